package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketplace/internal/service"
)

type ReturnHandler struct {
	returnService *service.ReturnService
}

func NewReturnHandler(returnService *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

// RequestReturn opens a return for a completed order --> POST /orders/:orderId/return-request
func (h *ReturnHandler) RequestReturn(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid order id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	req, err := h.returnService.Request(c.Request().Context(), orderID, userID(c), body.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":       "return request created",
		"returnRequest": req,
	})
}

// ProcessReturn decides a pending return --> PATCH /returns/:returnId/process
func (h *ReturnHandler) ProcessReturn(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "admin access required"})
	}
	returnID, err := strconv.ParseInt(c.Param("returnId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid return id"})
	}
	var body struct {
		Decision string `json:"decision"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	req, err := h.returnService.Process(c.Request().Context(), returnID, body.Decision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":       "return request processed",
		"returnRequest": req,
	})
}

// GetReturn returns one request --> GET /returns/:returnId
func (h *ReturnHandler) GetReturn(c echo.Context) error {
	returnID, err := strconv.ParseInt(c.Param("returnId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid return id"})
	}
	req, err := h.returnService.GetByID(c.Request().Context(), returnID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// MyReturns lists the authenticated user's requests --> GET /returns/my
func (h *ReturnHandler) MyReturns(c echo.Context) error {
	requests, err := h.returnService.ListByUser(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, requests)
}
