package entity

import "time"

// Product is a catalog item. Prices and bid amounts are integers in
// minor currency units; display-layer formatting happens elsewhere.
type Product struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Price          int64      `json:"price"`
	Quantity       int        `json:"quantity"`
	CategoryID     int64      `json:"category_id"`
	SellerID       int64      `json:"seller_id"`
	IsAuction      bool       `json:"is_auction"`
	StartingPrice  int64      `json:"starting_price"`
	CurrentBid     int64      `json:"current_bid"`
	HighestBidder  int64      `json:"highest_bidder"`
	AuctionEndTime *time.Time `json:"auction_end_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
