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

// ReturnService runs the post-completion return state machine. A return
// can only be requested on a completed order, and only one pending
// request may exist per order.
type ReturnService struct {
	returns repository.ReturnRepository
	orders  repository.OrderRepository
	now     func() time.Time
}

func NewReturnService(returns repository.ReturnRepository, orders repository.OrderRepository) *ReturnService {
	return &ReturnService{returns: returns, orders: orders, now: time.Now}
}

func (s *ReturnService) Request(ctx context.Context, orderID, userID int64, reason string) (*entity.ReturnRequest, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	if reason == "" {
		return nil, apperr.New(apperr.Validation, "missing_reason", "a return reason is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "order_not_found", "order not found")
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order.BuyerID != userID {
		return nil, apperr.New(apperr.Forbidden, "not_order_owner", "only the buyer can request a return")
	}

	// The duplicate check must run before eligibility: a granted request
	// moves the order to return_requested, which is no longer completed.
	if _, err := s.returns.GetPendingByOrder(ctx, orderID); err == nil {
		return nil, apperr.New(apperr.Conflict, "duplicate_return_request", "a return request already exists for this order")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check pending return for order %d: %w", orderID, err)
	}

	if order.Status != entity.OrderCompleted {
		return nil, apperr.New(apperr.Conflict, "order_not_eligible", "only completed orders can be returned")
	}

	req := &entity.ReturnRequest{
		OrderID:   orderID,
		UserID:    userID,
		Reason:    reason,
		Status:    entity.ReturnPending,
		CreatedAt: s.now(),
	}
	if err := s.returns.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create return request: %w", err)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, entity.OrderReturnRequested); err != nil {
		return nil, fmt.Errorf("mark order %d return_requested: %w", orderID, err)
	}

	logger.Info().Int64("order_id", orderID).Int64("return_id", req.ID).Msg("Return requested")
	return req, nil
}

// Process decides a pending return. Approval moves the order to
// returned; rejection reverts it to completed, which makes a later
// return request possible again.
func (s *ReturnService) Process(ctx context.Context, returnID int64, decision string) (*entity.ReturnRequest, error) {
	var reqStatus entity.ReturnStatus
	var orderStatus entity.OrderStatus
	switch decision {
	case "approved":
		reqStatus, orderStatus = entity.ReturnApproved, entity.OrderReturned
	case "rejected":
		reqStatus, orderStatus = entity.ReturnRejected, entity.OrderCompleted
	default:
		return nil, apperr.New(apperr.Validation, "invalid_decision", "decision must be approved or rejected")
	}

	req, err := s.returns.GetByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "return_not_found", "return request not found")
		}
		return nil, fmt.Errorf("load return request %d: %w", returnID, err)
	}
	if req.Status != entity.ReturnPending {
		return nil, apperr.New(apperr.Conflict, "return_already_processed", "return request has already been processed")
	}

	if err := s.orders.UpdateStatus(ctx, req.OrderID, orderStatus); err != nil {
		return nil, fmt.Errorf("update order %d status: %w", req.OrderID, err)
	}
	if err := s.returns.UpdateStatus(ctx, returnID, reqStatus); err != nil {
		return nil, fmt.Errorf("update return request %d status: %w", returnID, err)
	}
	req.Status = reqStatus

	logger.Info().Int64("return_id", returnID).Str("decision", decision).Msg("Return processed")
	return req, nil
}

func (s *ReturnService) GetByID(ctx context.Context, returnID int64) (*entity.ReturnRequest, error) {
	req, err := s.returns.GetByID(ctx, returnID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "return_not_found", "return request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load return request %d: %w", returnID, err)
	}
	return req, nil
}

func (s *ReturnService) ListByUser(ctx context.Context, userID int64) ([]entity.ReturnRequest, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	requests, err := s.returns.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list returns for user %d: %w", userID, err)
	}
	return requests, nil
}
