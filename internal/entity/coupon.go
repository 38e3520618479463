package entity

import "time"

// Coupon is a percentage discount code. ProductID of zero means the
// coupon applies to any product. UsageCount is bumped atomically when an
// order carrying the coupon is created and may never exceed MaxUsage.
type Coupon struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MaxUsage        int       `json:"max_usage"`
	UsageCount      int       `json:"usage_count"`
	ProductID       int64     `json:"product_id,omitempty"`
}

// CouponQuote is what applying a coupon returns to the checkout flow.
type CouponQuote struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	ProductID       int64  `json:"product_id,omitempty"`
}
