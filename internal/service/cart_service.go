package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
	"marketplace/internal/locker"
	"marketplace/internal/repository"
)

// CartService owns per-user pending-purchase state. Writes to a single
// user's cart serialize through a striped lock so concurrent requests
// from the same user (multiple tabs, retries) cannot lose updates.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	locks    *locker.KeyedMutex
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		locks:    locker.New(64),
	}
}

func (s *CartService) Get(ctx context.Context, userID int64) (*entity.Cart, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	items, err := s.carts.GetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if items == nil {
		items = []entity.CartLine{}
	}
	return &entity.Cart{UserID: userID, Items: items}, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*entity.Cart, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	if quantity < 1 {
		return nil, apperr.New(apperr.Validation, "invalid_quantity", "quantity must be at least 1")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "product_not_found", "product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.carts.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*entity.Cart, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	// Removal goes through RemoveItem, never through a zero quantity.
	if quantity < 1 {
		return nil, apperr.New(apperr.Validation, "invalid_quantity", "quantity must be at least 1")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	found, err := s.carts.UpdateQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if !found {
		return nil, apperr.New(apperr.NotFound, "item_not_found", "product not found in cart")
	}
	return s.Get(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*entity.Cart, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	found, err := s.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if !found {
		return nil, apperr.New(apperr.NotFound, "item_not_found", "product not found in cart")
	}
	return s.Get(ctx, userID)
}

// MergeCart folds an anonymous cart into the user's server cart, summing
// quantities for products already present. The caller must discard the
// anonymous cart only after this returns successfully; that is what
// makes a retried merge a no-op in practice.
func (s *CartService) MergeCart(ctx context.Context, userID int64, lines []entity.CartLine) (*entity.Cart, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	merged := make([]entity.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 {
			continue
		}
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		merged = append(merged, line)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.carts.MergeItems(ctx, userID, merged); err != nil {
		return nil, fmt.Errorf("merge cart: %w", err)
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart. Called by the checkout orchestrator after a
// confirmed order completion.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
