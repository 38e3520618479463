package entity

// CartLine is one (product, quantity) pair in a user's cart.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart holds a user's pending purchases. One cart per user; duplicate
// product lines are merged by summing quantities.
type Cart struct {
	UserID int64      `json:"user_id"`
	Items  []CartLine `json:"items"`
}
