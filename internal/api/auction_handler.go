package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketplace/internal/service"
)

type AuctionHandler struct {
	auctionService *service.AuctionService
}

func NewAuctionHandler(auctionService *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// PlaceBid submits a bid --> POST /auctionBids
func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var body struct {
		ProductID int64 `json:"product_id"`
		BidAmount int64 `json:"bid_amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
	}

	bid, err := h.auctionService.PlaceBid(c.Request().Context(), body.ProductID, userID(c), body.BidAmount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message": "bid placed successfully",
		"bid":     bid,
	})
}

// GetBids lists a product's bids newest-first, bidder redacted --> GET /auctionBids?productId=
func (h *AuctionHandler) GetBids(c echo.Context) error {
	productID, err := strconv.ParseInt(c.QueryParam("productId"), 10, 64)
	if err != nil || productID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "product id is required"})
	}

	bids, err := h.auctionService.GetBidHistory(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bids)
}

// GetHighestBid returns the current winning bid --> GET /auctionBids/highest/:productId
func (h *AuctionHandler) GetHighestBid(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid product id"})
	}

	bid, err := h.auctionService.GetHighestBid(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bid)
}

// GetMyBids lists the authenticated bidder's bids --> GET /auctionBids/my
func (h *AuctionHandler) GetMyBids(c echo.Context) error {
	bids, err := h.auctionService.GetBidsByUser(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bids)
}
