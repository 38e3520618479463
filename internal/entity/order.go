package entity

import "time"

type OrderStatus string

const (
	// OrderShipping means the order awaits payment capture; inventory is
	// not committed yet.
	OrderShipping        OrderStatus = "shipping"
	OrderCompleted       OrderStatus = "completed"
	OrderCancelled       OrderStatus = "cancelled"
	OrderReturnRequested OrderStatus = "return_requested"
	OrderReturned        OrderStatus = "returned"
	// OrderPaymentFailed marks orders whose payment was captured but whose
	// settlement failed (stock depleted in the meantime). These need a
	// refund and must never read as completed.
	OrderPaymentFailed OrderStatus = "payment_failed"
)

// OrderItem snapshots one purchased line. UnitPrice is the product price
// at order-creation time, in minor units.
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// Order is a checkout record. TotalPrice is recomputed server-side and
// includes the shipping fee and any coupon discount.
type Order struct {
	ID          int64       `json:"id"`
	BuyerID     int64       `json:"buyer_id"`
	AddressID   int64       `json:"address_id"`
	OrderDate   time.Time   `json:"order_date"`
	TotalPrice  int64       `json:"total_price"`
	Status      OrderStatus `json:"status"`
	CouponCode  string      `json:"coupon_code,omitempty"`
	PaymentRef  string      `json:"payment_ref,omitempty"`
	PaymentDate *time.Time  `json:"payment_date,omitempty"`
	Items       []OrderItem `json:"items"`
}

// ShippingFee returns the flat fee for a shipping method, in minor units.
func ShippingFee(method string) (int64, bool) {
	switch method {
	case "standard":
		return 500, true
	case "express":
		return 1500, true
	default:
		return 0, false
	}
}
