package config

import (
	"os"
	"strings"
	"time"
)

// Config carries the service's environment-derived settings.
type Config struct {
	Port      string
	RedisAddr string
	JWTSecret string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	PayPalBaseURL  string
	PayPalClientID string
	PayPalSecret   string
	PaymentReturn  string
	PaymentCancel  string

	FrontendSuccessURL string
	FrontendErrorURL   string

	StalePendingAge time.Duration
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Load() *Config {
	return &Config{
		Port:      getenv("PORT", "9999"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret: getenv("JWT_SECRET", "secret"),

		DBHost: getenv("DB_HOST", "localhost"),
		DBPort: getenv("DB_PORT", "3306"),
		DBUser: getenv("DB_USER", "root"),
		DBPass: getenv("DB_PASS", ""),
		DBName: getenv("DB_NAME", "marketplace"),

		PayPalBaseURL:  getenv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:   os.Getenv("PAYPAL_SECRET"),
		PaymentReturn:  getenv("PAYMENT_RETURN_URL", "http://localhost:9999/orders/success"),
		PaymentCancel:  getenv("PAYMENT_CANCEL_URL", "http://localhost:9999/orders/cancel"),

		FrontendSuccessURL: getenv("FRONTEND_SUCCESS_URL", "http://localhost:3000/success"),
		FrontendErrorURL:   getenv("FRONTEND_ERROR_URL", "http://localhost:3000/checkout"),

		StalePendingAge: 24 * time.Hour,
	}
}

// KafkaBrokers reads broker addresses from KAFKA_BROKERS.
func KafkaBrokers() []string {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}
	return strings.Split(brokers, ",")
}
