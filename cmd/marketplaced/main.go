package main

import (
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"log"

	"marketplace/internal/api"
	"marketplace/internal/config"
	kafkabroker "marketplace/internal/messaging/kafka"
	"marketplace/internal/payment"
	"marketplace/internal/repository/mysql"
	"marketplace/internal/service"
	"marketplace/migrations"
)

func main() {
	cfg := config.Load()

	db, err := config.ConnectDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.AutoMigrate(3, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	broker := kafkabroker.NewBroker(config.KafkaBrokers())
	defer broker.Close()

	payments := payment.NewPayPalClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret, cfg.PaymentReturn, cfg.PaymentCancel)

	productRepo := mysql.NewProductRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	bidRepo := mysql.NewBidRepository(db)
	couponRepo := mysql.NewCouponRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	returnRepo := mysql.NewReturnRepository(db)
	userRepo := mysql.NewUserRepository(db)
	addressRepo := mysql.NewAddressRepository(db)

	productService := service.NewProductService(productRepo, rdb)
	cartService := service.NewCartService(cartRepo, productRepo)
	couponService := service.NewCouponService(couponRepo)
	auctionService := service.NewAuctionService(productRepo, bidRepo, broker)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, addressRepo, cartService, couponService, payments, broker, rdb)
	returnService := service.NewReturnService(returnRepo, orderRepo)

	productHandler := api.NewProductHandler(productService)
	cartHandler := api.NewCartHandler(cartService)
	couponHandler := api.NewCouponHandler(couponService)
	auctionHandler := api.NewAuctionHandler(auctionService)
	orderHandler := api.NewOrderHandler(orderService, cfg.FrontendSuccessURL, cfg.FrontendErrorURL, cfg.StalePendingAge)
	returnHandler := api.NewReturnHandler(returnService)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     50,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.Request().RemoteAddr, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	auth := echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(api.Claims)
		},
	})

	// Public catalog and auction reads
	e.GET("/products", productHandler.ListProducts)
	e.GET("/products/:id", productHandler.GetProduct)
	e.GET("/auctionBids", auctionHandler.GetBids)
	e.GET("/auctionBids/highest/:productId", auctionHandler.GetHighestBid)

	// Payment collaborator return callback (no bearer identity; the buyer
	// arrives here from the processor's redirect)
	e.GET("/orders/success", orderHandler.PaymentReturn)

	// Coupon quote is public, admin CRUD is not
	e.POST("/coupons/apply", couponHandler.ApplyCoupon)
	e.GET("/coupons/product/:productId", couponHandler.ListByProduct)

	authed := e.Group("", auth)
	authed.POST("/auctionBids", auctionHandler.PlaceBid)
	authed.GET("/auctionBids/my", auctionHandler.GetMyBids)

	authed.GET("/cart", cartHandler.GetCart)
	authed.POST("/cart/items", cartHandler.AddItem)
	authed.PUT("/cart/items/:productId", cartHandler.UpdateItem)
	authed.DELETE("/cart/items/:productId", cartHandler.RemoveItem)
	authed.POST("/cart/merge", cartHandler.MergeCart)

	authed.POST("/orders/create", orderHandler.CreateOrder)
	authed.GET("/orders", orderHandler.ListOrders)
	authed.GET("/orders/history", orderHandler.OrderHistory)
	authed.GET("/orders/detail/:orderId", orderHandler.GetOrder)
	authed.GET("/orders/status/:orderId", orderHandler.GetStatus)
	authed.PATCH("/orders/:orderId/cancel", orderHandler.CancelOrder)
	authed.POST("/orders/:orderId/expire", orderHandler.ExpireOrder)
	authed.POST("/orders/:orderId/return-request", returnHandler.RequestReturn)

	authed.GET("/returns/my", returnHandler.MyReturns)
	authed.GET("/returns/:returnId", returnHandler.GetReturn)
	authed.PATCH("/returns/:returnId/process", returnHandler.ProcessReturn)

	authed.POST("/coupons", couponHandler.CreateCoupon)
	authed.GET("/coupons/:code", couponHandler.GetCoupon)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"service": "marketplace",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
