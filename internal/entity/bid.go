package entity

import "time"

type BidStatus string

const (
	BidActive  BidStatus = "active"
	BidOutbid  BidStatus = "outbid"
	BidWinning BidStatus = "winning"
	BidLost    BidStatus = "lost"
)

// AuctionBid is a single offer on an auctioned product. At most one bid
// per product carries BidWinning at any time.
type AuctionBid struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	BidAmount int64     `json:"bid_amount"`
	BidDate   time.Time `json:"bid_date"`
	Status    BidStatus `json:"status"`
}

// PublicBid is the bid view exposed on unauthenticated endpoints. It
// strips the bidder identity.
type PublicBid struct {
	BidAmount int64     `json:"bid_amount"`
	BidDate   time.Time `json:"bid_date"`
	Status    BidStatus `json:"status"`
}

// Public returns the redacted view of the bid.
func (b AuctionBid) Public() PublicBid {
	return PublicBid{BidAmount: b.BidAmount, BidDate: b.BidDate, Status: b.Status}
}
