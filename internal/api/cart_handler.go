package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketplace/internal/entity"
	"marketplace/internal/service"
)

type CartHandler struct {
	cartService *service.CartService
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart returns the authenticated user's cart --> GET /cart
func (h *CartHandler) GetCart(c echo.Context) error {
	cart, err := h.cartService.Get(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem adds a product to the cart --> POST /cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	var body struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	cart, err := h.cartService.AddItem(c.Request().Context(), userID(c), body.ProductID, body.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// UpdateItem sets a line's quantity --> PUT /cart/items/:productId
func (h *CartHandler) UpdateItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid product id"})
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	cart, err := h.cartService.UpdateQuantity(c.Request().Context(), userID(c), productID, body.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveItem deletes a line --> DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid product id"})
	}

	cart, err := h.cartService.RemoveItem(c.Request().Context(), userID(c), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// MergeCart folds an anonymous local cart into the server cart --> POST /cart/merge
func (h *CartHandler) MergeCart(c echo.Context) error {
	var body struct {
		Items []entity.CartLine `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	cart, err := h.cartService.MergeCart(c.Request().Context(), userID(c), body.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}
