package entity

import "time"

type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

// ReturnRequest asks for reversal of a completed order. Only one pending
// request may exist per order.
type ReturnRequest struct {
	ID        int64        `json:"id"`
	OrderID   int64        `json:"order_id"`
	UserID    int64        `json:"user_id"`
	Reason    string       `json:"reason"`
	Status    ReturnStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
