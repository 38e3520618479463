package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketplace/internal/entity"
	"marketplace/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// ApplyCoupon quotes a discount for a product --> POST /coupons/apply
func (h *CouponHandler) ApplyCoupon(c echo.Context) error {
	var body struct {
		Code      string `json:"code"`
		ProductID int64  `json:"product_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	quote, err := h.couponService.Apply(c.Request().Context(), body.Code, body.ProductID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// CreateCoupon registers a new code --> POST /coupons
func (h *CouponHandler) CreateCoupon(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "admin access required"})
	}
	var coupon entity.Coupon
	if err := c.Bind(&coupon); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	created, err := h.couponService.Create(c.Request().Context(), &coupon)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetCoupon returns one code --> GET /coupons/:code
func (h *CouponHandler) GetCoupon(c echo.Context) error {
	coupon, err := h.couponService.GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, coupon)
}

// ListByProduct returns codes scoped to a product --> GET /coupons/product/:productId
func (h *CouponHandler) ListByProduct(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid product id"})
	}
	coupons, err := h.couponService.ListByProduct(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, coupons)
}
