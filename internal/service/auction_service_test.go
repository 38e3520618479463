package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
)

func newAuctionFixture(products ...*entity.Product) (*AuctionService, *fakeBidRepo, *recordingPublisher) {
	productRepo := newFakeProductRepo(products...)
	bidRepo := newFakeBidRepo(productRepo)
	pub := &recordingPublisher{}
	return NewAuctionService(productRepo, bidRepo, pub), bidRepo, pub
}

func auctionProduct(id, sellerID, startingPrice int64, endsAt time.Time) *entity.Product {
	return &entity.Product{
		ID:             id,
		Title:          "vintage camera",
		SellerID:       sellerID,
		IsAuction:      true,
		StartingPrice:  startingPrice,
		AuctionEndTime: &endsAt,
	}
}

func TestPlaceBidFirstBidMustBeatStartingPrice(t *testing.T) {
	svc, _, _ := newAuctionFixture(auctionProduct(1, 2, 1000, time.Now().Add(time.Hour)))

	_, err := svc.PlaceBid(context.Background(), 1, 5, 1000)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "invalid_bid"))

	bid, err := svc.PlaceBid(context.Background(), 1, 5, 1001)
	require.NoError(t, err)
	assert.Equal(t, entity.BidWinning, bid.Status)
	assert.NotZero(t, bid.ID)
}

func TestPlaceBidMustExceedCurrentHighest(t *testing.T) {
	svc, bids, _ := newAuctionFixture(auctionProduct(1, 2, 100, time.Now().Add(time.Hour)))

	_, err := svc.PlaceBid(context.Background(), 1, 5, 200)
	require.NoError(t, err)

	// Equal to the current highest is not enough.
	_, err = svc.PlaceBid(context.Background(), 1, 6, 200)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "invalid_bid"))

	_, err = svc.PlaceBid(context.Background(), 1, 6, 150)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "invalid_bid"))

	winner, err := svc.PlaceBid(context.Background(), 1, 6, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), winner.BidAmount)
	assert.Equal(t, 1, bids.winningCount(1))
}

func TestPlaceBidConcurrentSingleWinner(t *testing.T) {
	svc, bids, _ := newAuctionFixture(auctionProduct(1, 2, 0, time.Now().Add(time.Hour)))

	const bidders = 32
	var wg sync.WaitGroup
	accepted := make([]int64, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := int64(100 + i)
			bid, err := svc.PlaceBid(context.Background(), 1, int64(10+i), amount)
			if err != nil {
				assert.True(t, apperr.Is(err, "invalid_bid"), "unexpected error: %v", err)
				return
			}
			accepted[i] = bid.BidAmount
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, bids.winningCount(1), "exactly one bid may be winning")

	highest, err := svc.GetHighestBid(context.Background(), 1)
	require.NoError(t, err)
	var maxAccepted int64
	for _, a := range accepted {
		if a > maxAccepted {
			maxAccepted = a
		}
	}
	assert.Equal(t, maxAccepted, highest.BidAmount)
	assert.Equal(t, entity.BidWinning, highest.Status)
}

func TestPlaceBidAuctionClosed(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newAuctionFixture(auctionProduct(1, 2, 100, end))
	svc.now = func() time.Time { return end } // boundary: end time itself is closed

	_, err := svc.PlaceBid(context.Background(), 1, 5, 200)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "auction_closed"))

	svc.now = func() time.Time { return end.Add(-time.Second) }
	_, err = svc.PlaceBid(context.Background(), 1, 5, 200)
	require.NoError(t, err)
}

func TestPlaceBidValidation(t *testing.T) {
	svc, _, _ := newAuctionFixture(
		auctionProduct(1, 2, 100, time.Now().Add(time.Hour)),
		&entity.Product{ID: 3, SellerID: 2, IsAuction: false, Price: 500},
	)

	_, err := svc.PlaceBid(context.Background(), 1, 0, 200)
	assert.True(t, apperr.Is(err, "not_authenticated"))

	_, err = svc.PlaceBid(context.Background(), 1, 5, 0)
	assert.True(t, apperr.Is(err, "invalid_bid"))

	_, err = svc.PlaceBid(context.Background(), 99, 5, 200)
	assert.True(t, apperr.Is(err, "product_not_found"))

	_, err = svc.PlaceBid(context.Background(), 3, 5, 200)
	assert.True(t, apperr.Is(err, "product_not_auction"))

	_, err = svc.PlaceBid(context.Background(), 1, 2, 200)
	assert.True(t, apperr.Is(err, "seller_cannot_bid"))
}

func TestPlaceBidPublishesEvent(t *testing.T) {
	svc, _, pub := newAuctionFixture(auctionProduct(1, 2, 100, time.Now().Add(time.Hour)))

	bid, err := svc.PlaceBid(context.Background(), 1, 5, 250)
	require.NoError(t, err)

	events := pub.byTopic(topicAuctionBids)
	require.Len(t, events, 1)
	assert.Equal(t, "bid-1", events[0].key)
	accepted, ok := events[0].event.(BidAccepted)
	require.True(t, ok)
	assert.Equal(t, bid.ID, accepted.BidID)
	assert.Equal(t, int64(250), accepted.BidAmount)
}

func TestGetBidHistoryRedactsBidder(t *testing.T) {
	svc, _, _ := newAuctionFixture(auctionProduct(1, 2, 100, time.Now().Add(time.Hour)))

	_, err := svc.PlaceBid(context.Background(), 1, 5, 200)
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), 1, 6, 300)
	require.NoError(t, err)

	history, err := svc.GetBidHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first, amounts only.
	assert.Equal(t, int64(300), history[0].BidAmount)
	assert.Equal(t, int64(200), history[1].BidAmount)
	assert.Equal(t, entity.BidWinning, history[0].Status)
	assert.Equal(t, entity.BidOutbid, history[1].Status)
}

func TestGetHighestBidNoBids(t *testing.T) {
	svc, _, _ := newAuctionFixture(auctionProduct(1, 2, 100, time.Now().Add(time.Hour)))

	_, err := svc.GetHighestBid(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "no_bids_found"))
}

func TestGetBidsByUser(t *testing.T) {
	svc, _, _ := newAuctionFixture(
		auctionProduct(1, 2, 100, time.Now().Add(time.Hour)),
		auctionProduct(2, 3, 100, time.Now().Add(time.Hour)),
	)

	_, err := svc.PlaceBid(context.Background(), 1, 5, 200)
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), 2, 5, 500)
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), 1, 6, 300)
	require.NoError(t, err)

	mine, err := svc.GetBidsByUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.GetBidsByUser(context.Background(), 0)
	assert.True(t, apperr.Is(err, "not_authenticated"))
}
