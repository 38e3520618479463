package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
	"marketplace/internal/locker"
	"marketplace/internal/messaging"
	"marketplace/internal/payment"
	"marketplace/internal/repository"
)

const (
	topicOrders  = "orders"
	topicRefunds = "order-refunds"

	idempotencyTTL = 24 * time.Hour
)

// OrderService is the checkout orchestrator: it turns cart contents or a
// direct buy into a payment-backed order, and on the capture callback
// performs the atomic settlement (stock decrement + completion + cart
// clear).
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	addresses repository.AddressRepository
	carts     *CartService
	coupons   *CouponService
	payments  payment.Processor
	publisher messaging.Publisher
	rdb       *redis.Client
	locks     *locker.KeyedMutex
	now       func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	addresses repository.AddressRepository,
	carts *CartService,
	coupons *CouponService,
	payments payment.Processor,
	publisher messaging.Publisher,
	rdb *redis.Client,
) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		users:     users,
		addresses: addresses,
		carts:     carts,
		coupons:   coupons,
		payments:  payments,
		publisher: publisher,
		rdb:       rdb,
		locks:     locker.New(64),
		now:       time.Now,
	}
}

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequest struct {
	BuyerID        int64         `json:"buyer_id"`
	AddressID      int64         `json:"address_id"`
	Items          []ItemRequest `json:"items"`
	ShippingMethod string        `json:"shipping_method"`
	CouponCode     string        `json:"coupon_code"`
	IdempotencyKey string        `json:"-"`
}

type CreateOrderResult struct {
	Order       *entity.Order `json:"order"`
	ApprovalURL string        `json:"approval_url"`
}

// OrderEvent is published to the orders topic on lifecycle transitions.
type OrderEvent struct {
	EventID    string `json:"event_id"`
	OrderID    int64  `json:"order_id"`
	BuyerID    int64  `json:"buyer_id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

// RefundRequired is published to the refunds topic when a payment was
// captured but settlement failed. Money has already moved; the payments
// consumer must initiate the refund.
type RefundRequired struct {
	OrderID    int64  `json:"order_id"`
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
}

func (s *OrderService) checkIdempotencyKey(ctx context.Context, key string) error {
	if s.rdb == nil || key == "" {
		return nil
	}
	ok, err := s.rdb.SetNX(ctx, "idempotent-key:"+key, "exists", idempotencyTTL).Result()
	if err != nil {
		return fmt.Errorf("check idempotency key: %w", err)
	}
	if !ok {
		return apperr.New(apperr.Conflict, "duplicate_request", "request with this idempotency key was already accepted")
	}
	return nil
}

// CreateOrder validates the request, recomputes the total server-side,
// asks the payment collaborator for a payable order and persists the
// order in the shipping (awaiting-capture) state. Inventory is checked
// for display only; nothing is reserved here.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	if req.BuyerID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	if len(req.Items) == 0 {
		return nil, apperr.New(apperr.Validation, "empty_order", "order must contain at least one item")
	}
	shippingFee, ok := entity.ShippingFee(req.ShippingMethod)
	if !ok {
		return nil, apperr.New(apperr.Validation, "invalid_shipping_method", "shipping method must be standard or express")
	}

	if err := s.checkIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, req.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("check buyer %d: %w", req.BuyerID, err)
	}
	if !exists {
		return nil, apperr.New(apperr.NotFound, "buyer_not_found", "buyer does not exist")
	}
	if _, err := s.addresses.GetForUser(ctx, req.AddressID, req.BuyerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "address_not_found", "address does not exist or does not belong to the buyer")
		}
		return nil, fmt.Errorf("load address %d: %w", req.AddressID, err)
	}

	items := make([]entity.OrderItem, 0, len(req.Items))
	var subtotal int64
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, apperr.New(apperr.Validation, "invalid_quantity", "item quantity must be at least 1")
		}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.New(apperr.NotFound, "product_not_found",
					fmt.Sprintf("product %d does not exist", item.ProductID))
			}
			return nil, fmt.Errorf("load product %d: %w", item.ProductID, err)
		}
		// Display-time availability check only; the binding check happens
		// again at capture time.
		if product.Quantity < item.Quantity {
			return nil, apperr.New(apperr.InsufficientResource, "insufficient_stock",
				fmt.Sprintf("not enough stock for product %d", item.ProductID))
		}
		// Unit price always comes from the catalog, never the client.
		items = append(items, entity.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		subtotal += product.Price * int64(item.Quantity)
	}

	// Only a quote at this point; the use is consumed once the order
	// exists, so a failed payment initiation cannot drain the code.
	var discount int64
	if req.CouponCode != "" {
		discount, err = s.resolveDiscount(ctx, req.CouponCode, items)
		if err != nil {
			return nil, err
		}
	}

	total := subtotal - discount + shippingFee

	payable, err := s.payments.CreateOrder(ctx, total, "USD")
	if err != nil {
		logger.Error().Err(err).Int64("buyer_id", req.BuyerID).Msg("Payment initiation failed")
		return nil, apperr.New(apperr.Dependency, "payment_initiation_failed", "could not complete payment, please retry")
	}

	order := &entity.Order{
		BuyerID:    req.BuyerID,
		AddressID:  req.AddressID,
		OrderDate:  s.now(),
		TotalPrice: total,
		Status:     entity.OrderShipping,
		CouponCode: req.CouponCode,
		PaymentRef: payable.ID,
		Items:      items,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if req.CouponCode != "" {
		// The quote only checked headroom. Losing the last-use race here
		// voids the order instead of shipping it mispriced.
		if err := s.coupons.Consume(ctx, req.CouponCode); err != nil {
			if uerr := s.orders.UpdateStatus(ctx, order.ID, entity.OrderCancelled); uerr != nil {
				logger.Error().Err(uerr).Int64("order_id", order.ID).Msg("Failed to void order after coupon exhaustion")
			}
			return nil, err
		}
	}

	s.publishOrderEvent(ctx, order, "created")

	return &CreateOrderResult{Order: order, ApprovalURL: payable.ApprovalURL}, nil
}

// resolveDiscount computes the coupon discount over the order lines. A
// product-scoped coupon discounts only matching lines; an unscoped one
// discounts the whole subtotal.
func (s *OrderService) resolveDiscount(ctx context.Context, code string, items []entity.OrderItem) (int64, error) {
	var quote *entity.CouponQuote
	var err error
	for _, item := range items {
		quote, err = s.coupons.Apply(ctx, code, item.ProductID)
		if err == nil {
			break
		}
		if !apperr.Is(err, "coupon_not_applicable") {
			return 0, err
		}
	}
	if quote == nil {
		return 0, err
	}

	var base int64
	for _, item := range items {
		if quote.ProductID == 0 || quote.ProductID == item.ProductID {
			base += item.UnitPrice * int64(item.Quantity)
		}
	}
	return base * int64(quote.DiscountPercent) / 100, nil
}

// ConfirmPayment handles the collaborator's return callback: it captures
// the approved payment, re-checks stock (time has passed since order
// creation) and settles atomically. A settlement failure after capture
// is the refund-signaling path.
func (s *OrderService) ConfirmPayment(ctx context.Context, paymentRef, payerRef string) (*entity.Order, error) {
	if paymentRef == "" || payerRef == "" {
		return nil, apperr.New(apperr.Validation, "missing_payment_token", "payment token and payer id are required")
	}

	order, err := s.orders.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "order_not_found", "no order found for this payment")
		}
		return nil, fmt.Errorf("load order for payment %s: %w", paymentRef, err)
	}

	// Duplicate callbacks for the same order serialize here, so capture
	// runs at most once in-process.
	unlock := s.locks.Lock(order.ID)
	defer unlock()

	// Re-read under the lock; a racing callback may have settled already.
	order, err = s.orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order for payment %s: %w", paymentRef, err)
	}
	if order.Status != entity.OrderShipping {
		return nil, apperr.New(apperr.Conflict, "order_already_processed", "order has already been processed")
	}

	capture, err := s.payments.CaptureOrder(ctx, paymentRef)
	if err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Msg("Payment capture failed")
		return nil, apperr.New(apperr.Dependency, "payment_capture_failed", "could not complete payment, please retry")
	}

	if err := s.orders.Settle(ctx, order, s.now()); err != nil {
		var stockErr *repository.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			return nil, s.failSettlement(ctx, order, stockErr.ProductID)
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, apperr.New(apperr.Conflict, "order_already_processed", "order has already been processed")
		default:
			return nil, fmt.Errorf("settle order %d: %w", order.ID, err)
		}
	}

	logger.Info().Int64("order_id", order.ID).Str("payer_id", capture.PayerID).Msg("Order settled")

	if err := s.carts.Clear(ctx, order.BuyerID); err != nil {
		logger.Error().Err(err).Int64("buyer_id", order.BuyerID).Msg("Failed to clear cart after settlement")
	}
	s.publishOrderEvent(ctx, order, "completed")

	return order, nil
}

// failSettlement marks a captured-but-unfulfillable order and raises the
// refund signal. This is a priority operational event: money has moved.
func (s *OrderService) failSettlement(ctx context.Context, order *entity.Order, productID int64) error {
	logger.Error().
		Int64("order_id", order.ID).
		Int64("product_id", productID).
		Str("payment_ref", order.PaymentRef).
		Msg("Stock shortfall after capture, refund required")

	if err := s.orders.UpdateStatus(ctx, order.ID, entity.OrderPaymentFailed); err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Msg("Failed to mark order payment_failed")
	}
	refund := RefundRequired{
		OrderID:    order.ID,
		PaymentRef: order.PaymentRef,
		Amount:     order.TotalPrice,
		Reason:     fmt.Sprintf("insufficient stock for product %d", productID),
	}
	if err := s.publisher.PublishEvent(ctx, topicRefunds, fmt.Sprintf("refund-%d", order.ID), refund); err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Msg("Failed to publish refund event")
	}
	return apperr.New(apperr.InsufficientResource, "insufficient_stock", "item no longer available, payment will be refunded")
}

// CancelOrder cancels an order that has not completed yet.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) (*entity.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderShipping && order.Status != entity.OrderPaymentFailed {
		return nil, apperr.New(apperr.Conflict, "order_not_cancellable", "order can no longer be cancelled")
	}
	if err := s.orders.UpdateStatus(ctx, orderID, entity.OrderCancelled); err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	order.Status = entity.OrderCancelled
	s.publishOrderEvent(ctx, order, "cancelled")
	return order, nil
}

// ExpireStalePendingOrder is the hook for the reconciliation sweep: it
// expires a single order stuck awaiting payment for longer than maxAge.
func (s *OrderService) ExpireStalePendingOrder(ctx context.Context, orderID int64, maxAge time.Duration) (*entity.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderShipping {
		return nil, apperr.New(apperr.Conflict, "order_already_processed", "order is not awaiting payment")
	}
	if s.now().Sub(order.OrderDate) < maxAge {
		return nil, apperr.New(apperr.Conflict, "order_not_stale", "order is not old enough to expire")
	}
	if err := s.orders.UpdateStatus(ctx, orderID, entity.OrderCancelled); err != nil {
		return nil, fmt.Errorf("expire order %d: %w", orderID, err)
	}
	order.Status = entity.OrderCancelled
	s.publishOrderEvent(ctx, order, "expired")
	return order, nil
}

// ExpireStalePendingOrders expires every pending order created before
// now-maxAge. Orders confirmed between listing and expiry are skipped by
// the per-order status check.
func (s *OrderService) ExpireStalePendingOrders(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.orders.FindStalePending(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("list stale pending orders: %w", err)
	}
	expired := 0
	for _, order := range stale {
		if _, err := s.ExpireStalePendingOrder(ctx, order.ID, maxAge); err != nil {
			if apperr.As(err) != nil {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID int64) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "order_not_found", "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*entity.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *OrderService) GetStatus(ctx context.Context, orderID int64) (entity.OrderStatus, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	orders, err := s.orders.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListByBuyer(ctx context.Context, buyerID int64) ([]entity.Order, error) {
	if buyerID == 0 {
		return nil, apperr.New(apperr.Unauthenticated, "not_authenticated", "authentication required")
	}
	orders, err := s.orders.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list orders for buyer %d: %w", buyerID, err)
	}
	return orders, nil
}

func (s *OrderService) publishOrderEvent(ctx context.Context, order *entity.Order, key string) {
	event := OrderEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
		PaymentRef: order.PaymentRef,
	}
	msgKey := fmt.Sprintf("order-%s-%d", key, order.ID)
	if err := s.publisher.PublishEvent(ctx, topicOrders, msgKey, event); err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Str("key", key).Msg("Failed to publish order event")
	}
}
