package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace/internal/apperr"
	"marketplace/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
	successURL   string
	errorURL     string
	staleAge     time.Duration
}

func NewOrderHandler(orderService *service.OrderService, successURL, errorURL string, staleAge time.Duration) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		successURL:   successURL,
		errorURL:     errorURL,
		staleAge:     staleAge,
	}
}

// CreateOrder starts a checkout --> POST /orders/create
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req service.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}
	req.BuyerID = userID(c)
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	result, err := h.orderService.CreateOrder(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":     "order created successfully",
		"order_id":    result.Order.ID,
		"approvalUrl": result.ApprovalURL,
	})
}

// PaymentReturn is the payment collaborator's return callback -->
// GET /orders/success?token=...&PayerID=...
// It redirects the buyer to the storefront success or error page.
func (h *OrderHandler) PaymentReturn(c echo.Context) error {
	token := c.QueryParam("token")
	payerID := c.QueryParam("PayerID")

	order, err := h.orderService.ConfirmPayment(c.Request().Context(), token, payerID)
	if err != nil {
		msg := "payment could not be completed"
		if e := apperr.As(err); e != nil {
			msg = e.Message
		} else {
			c.Logger().Error(err)
		}
		return c.Redirect(http.StatusFound, h.errorURL+"?error="+url.QueryEscape(msg))
	}
	return c.Redirect(http.StatusFound, h.successURL+"?orderId="+strconv.FormatInt(order.ID, 10))
}

// GetOrder returns one order with items --> GET /orders/detail/:orderId
func (h *OrderHandler) GetOrder(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid order id"})
	}
	order, err := h.orderService.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// GetStatus returns an order's status --> GET /orders/status/:orderId
func (h *OrderHandler) GetStatus(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid order id"})
	}
	status, err := h.orderService.GetStatus(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}

// ListOrders is the admin listing --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "admin access required"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	orders, err := h.orderService.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// OrderHistory lists the authenticated buyer's orders --> GET /orders/history
func (h *OrderHandler) OrderHistory(c echo.Context) error {
	orders, err := h.orderService.ListByBuyer(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// CancelOrder cancels a not-yet-completed order --> PATCH /orders/:orderId/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid order id"})
	}
	order, err := h.orderService.CancelOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "order cancelled",
		"status":  string(order.Status),
	})
}

// ExpireOrder is the reconciliation-sweep hook --> POST /orders/:orderId/expire
func (h *OrderHandler) ExpireOrder(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "admin access required"})
	}
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid order id"})
	}
	order, err := h.orderService.ExpireStalePendingOrder(c.Request().Context(), orderID, h.staleAge)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "order expired",
		"status":  string(order.Status),
	})
}
