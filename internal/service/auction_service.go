package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
	"marketplace/internal/locker"
	"marketplace/internal/messaging"
	"marketplace/internal/repository"
)

const topicAuctionBids = "auction-bids"

// AuctionService accepts bids and maintains the winning-bid invariant:
// at most one winning bid per product, always the highest placed before
// the auction end time.
type AuctionService struct {
	products  repository.ProductRepository
	bids      repository.BidRepository
	publisher messaging.Publisher
	locks     *locker.KeyedMutex
	now       func() time.Time
}

func NewAuctionService(products repository.ProductRepository, bids repository.BidRepository, publisher messaging.Publisher) *AuctionService {
	return &AuctionService{
		products:  products,
		bids:      bids,
		publisher: publisher,
		locks:     locker.New(64),
		now:       time.Now,
	}
}

// BidAccepted is published when a bid becomes the winning bid.
type BidAccepted struct {
	BidID     int64     `json:"bid_id"`
	ProductID int64     `json:"product_id"`
	BidAmount int64     `json:"bid_amount"`
	BidDate   time.Time `json:"bid_date"`
}

// PlaceBid validates and records a bid. The read-compare-write section
// runs under a per-product lock, and the repository transition re-checks
// the highest bid inside its own transaction, so two concurrent bids can
// never both end up winning.
func (s *AuctionService) PlaceBid(ctx context.Context, productID, userID, bidAmount int64) (*entity.AuctionBid, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	if bidAmount <= 0 {
		return nil, apperr.New(apperr.Validation, "invalid_bid", "bid amount must be positive")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "product_not_found", "product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	if !product.IsAuction {
		return nil, apperr.New(apperr.Validation, "product_not_auction", "product is not an auction item")
	}
	if product.SellerID == userID {
		return nil, apperr.New(apperr.Forbidden, "seller_cannot_bid", "sellers cannot bid on their own auctions")
	}
	now := s.now()
	if product.AuctionEndTime != nil && !now.Before(*product.AuctionEndTime) {
		return nil, apperr.New(apperr.Conflict, "auction_closed", "auction has ended")
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	floor := product.StartingPrice
	highest, err := s.bids.HighestByProduct(ctx, productID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load highest bid for product %d: %w", productID, err)
	}
	if highest != nil && highest.BidAmount > floor {
		floor = highest.BidAmount
	}
	if bidAmount <= floor {
		return nil, apperr.New(apperr.Conflict, "invalid_bid",
			fmt.Sprintf("bid must be higher than current highest bid: %d", floor))
	}

	bid := &entity.AuctionBid{
		ProductID: productID,
		UserID:    userID,
		BidAmount: bidAmount,
		BidDate:   now,
		Status:    entity.BidWinning,
	}
	if err := s.bids.PlaceWinningBid(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrBidTooLow) {
			return nil, apperr.New(apperr.Conflict, "invalid_bid", "bid must be higher than current highest bid")
		}
		return nil, fmt.Errorf("place bid on product %d: %w", productID, err)
	}

	event := BidAccepted{BidID: bid.ID, ProductID: productID, BidAmount: bidAmount, BidDate: bid.BidDate}
	if err := s.publisher.PublishEvent(ctx, topicAuctionBids, fmt.Sprintf("bid-%d", productID), event); err != nil {
		logger.Error().Err(err).Int64("product_id", productID).Msg("Failed to publish bid event")
	}

	return bid, nil
}

// GetBidHistory returns the product's bids newest-first with bidder
// identity redacted.
func (s *AuctionService) GetBidHistory(ctx context.Context, productID int64) ([]entity.PublicBid, error) {
	bids, err := s.bids.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list bids for product %d: %w", productID, err)
	}
	public := make([]entity.PublicBid, 0, len(bids))
	for _, b := range bids {
		public = append(public, b.Public())
	}
	return public, nil
}

func (s *AuctionService) GetHighestBid(ctx context.Context, productID int64) (*entity.AuctionBid, error) {
	bid, err := s.bids.HighestByProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "no_bids_found", "no bids found for this product")
	}
	if err != nil {
		return nil, fmt.Errorf("load highest bid for product %d: %w", productID, err)
	}
	return bid, nil
}

func (s *AuctionService) GetBidsByUser(ctx context.Context, userID int64) ([]entity.AuctionBid, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	bids, err := s.bids.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bids for user %d: %w", userID, err)
	}
	return bids, nil
}
