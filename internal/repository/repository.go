package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/entity"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrBidTooLow is returned when a bid loses the conditional winning
	// transition (another bid won the race inside the critical section).
	ErrBidTooLow = errors.New("bid not above current highest")
	// ErrAlreadyProcessed is returned when a status-guarded transition
	// finds the order is no longer in the expected state.
	ErrAlreadyProcessed = errors.New("order already processed")
)

// InsufficientStockError aborts settlement when a product cannot cover
// the ordered quantity at capture time.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// ProductRepository handles persistence for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	List(ctx context.Context) ([]entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
}

// CartRepository handles a user's cart lines.
type CartRepository interface {
	GetItems(ctx context.Context, userID int64) ([]entity.CartLine, error)
	// AddItem inserts the line or increments the quantity of an existing
	// line for the same product.
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	// UpdateQuantity sets the quantity of an existing line. The returned
	// bool reports whether the line existed.
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error)
	RemoveItem(ctx context.Context, userID, productID int64) (bool, error)
	// MergeItems applies a batch of anonymous-cart lines in one
	// transaction, summing quantities into existing lines.
	MergeItems(ctx context.Context, userID int64, lines []entity.CartLine) error
	Clear(ctx context.Context, userID int64) error
}

// BidRepository handles auction bids.
type BidRepository interface {
	// PlaceWinningBid atomically inserts bid as the winning bid, demotes
	// every other bid on the product to outbid, and updates the product's
	// denormalized current_bid/highest_bidder. The whole transition is
	// guarded by a re-read of the current highest under a product row
	// lock; ErrBidTooLow is returned if the bid no longer exceeds it.
	PlaceWinningBid(ctx context.Context, bid *entity.AuctionBid) error
	ListByProduct(ctx context.Context, productID int64) ([]entity.AuctionBid, error)
	HighestByProduct(ctx context.Context, productID int64) (*entity.AuctionBid, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.AuctionBid, error)
}

// CouponRepository handles discount codes.
type CouponRepository interface {
	Create(ctx context.Context, c *entity.Coupon) error
	GetByCode(ctx context.Context, code string) (*entity.Coupon, error)
	ListByProduct(ctx context.Context, productID int64) ([]entity.Coupon, error)
	// ConsumeUsage bumps usage_count if headroom remains. The returned
	// bool reports whether a use was consumed.
	ConsumeUsage(ctx context.Context, code string) (bool, error)
}

// OrderRepository handles orders and their items.
type OrderRepository interface {
	// Create persists the order and its items in one transaction and
	// fills in the generated ids.
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	GetByPaymentRef(ctx context.Context, ref string) (*entity.Order, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, id int64, status entity.OrderStatus) error
	// Settle decrements stock for every item and completes the order in a
	// single transaction. Decrements are conditional on sufficient stock;
	// any shortfall rolls the whole transaction back and returns
	// *InsufficientStockError. ErrAlreadyProcessed is returned when the
	// order has left the shipping state.
	Settle(ctx context.Context, o *entity.Order, paymentDate time.Time) error
	// FindStalePending lists shipping-status orders created before cutoff,
	// for the reconciliation sweep.
	FindStalePending(ctx context.Context, cutoff time.Time) ([]entity.Order, error)
}

// ReturnRepository handles return requests.
type ReturnRepository interface {
	Create(ctx context.Context, r *entity.ReturnRequest) error
	GetByID(ctx context.Context, id int64) (*entity.ReturnRequest, error)
	// GetPendingByOrder returns the pending request for an order, or
	// ErrNotFound when none is open.
	GetPendingByOrder(ctx context.Context, orderID int64) (*entity.ReturnRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.ReturnRequest, error)
	UpdateStatus(ctx context.Context, id int64, status entity.ReturnStatus) error
}

// UserRepository resolves buyer identities.
type UserRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// AddressRepository resolves shipping addresses.
type AddressRepository interface {
	// GetForUser returns the address only if it belongs to userID.
	GetForUser(ctx context.Context, id, userID int64) (*entity.Address, error)
}
