package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// CouponService validates and resolves discount codes. Applying a coupon
// is a read-only quote; usage is consumed only when an order carrying
// the code is created.
type CouponService struct {
	coupons repository.CouponRepository
	now     func() time.Time
}

func NewCouponService(coupons repository.CouponRepository) *CouponService {
	return &CouponService{coupons: coupons, now: time.Now}
}

func (s *CouponService) Apply(ctx context.Context, code string, productID int64) (*entity.CouponQuote, error) {
	if code == "" {
		return nil, apperr.New(apperr.Validation, "missing_coupon_code", "coupon code is required")
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "coupon_not_found", "coupon not found")
		}
		return nil, fmt.Errorf("load coupon %q: %w", code, err)
	}

	now := s.now()
	if now.Before(coupon.StartDate) || now.After(coupon.EndDate) {
		return nil, apperr.New(apperr.Validation, "coupon_expired", "coupon is outside its validity window")
	}
	if coupon.ProductID != 0 && coupon.ProductID != productID {
		return nil, apperr.New(apperr.Validation, "coupon_not_applicable", "coupon does not apply to this product")
	}
	if coupon.UsageCount >= coupon.MaxUsage {
		return nil, apperr.New(apperr.Conflict, "coupon_exhausted", "coupon usage limit reached")
	}

	return &entity.CouponQuote{
		Code:            coupon.Code,
		DiscountPercent: coupon.DiscountPercent,
		ProductID:       coupon.ProductID,
	}, nil
}

// Consume burns one use of the coupon. The repository update is
// conditional on remaining headroom, so concurrent checkouts cannot
// overshoot the limit.
func (s *CouponService) Consume(ctx context.Context, code string) error {
	ok, err := s.coupons.ConsumeUsage(ctx, code)
	if err != nil {
		return fmt.Errorf("consume coupon %q: %w", code, err)
	}
	if !ok {
		return apperr.New(apperr.Conflict, "coupon_exhausted", "coupon usage limit reached")
	}
	return nil
}

func (s *CouponService) Create(ctx context.Context, coupon *entity.Coupon) (*entity.Coupon, error) {
	if coupon.Code == "" {
		return nil, apperr.New(apperr.Validation, "missing_coupon_code", "coupon code is required")
	}
	if coupon.DiscountPercent < 0 || coupon.DiscountPercent > 100 {
		return nil, apperr.New(apperr.Validation, "invalid_discount", "discount percent must be between 0 and 100")
	}
	if coupon.MaxUsage < 1 {
		return nil, apperr.New(apperr.Validation, "invalid_max_usage", "max usage must be at least 1")
	}
	if !coupon.EndDate.After(coupon.StartDate) {
		return nil, apperr.New(apperr.Validation, "invalid_dates", "end date must be after start date")
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.Conflict, "coupon_code_exists", "coupon code already exists")
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

func (s *CouponService) GetByCode(ctx context.Context, code string) (*entity.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "coupon_not_found", "coupon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon %q: %w", code, err)
	}
	return coupon, nil
}

func (s *CouponService) ListByProduct(ctx context.Context, productID int64) ([]entity.Coupon, error) {
	coupons, err := s.coupons.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list coupons for product %d: %w", productID, err)
	}
	return coupons, nil
}
