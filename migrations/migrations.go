package migrations

import (
	"database/sql"
	"time"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		role VARCHAR(20) NOT NULL DEFAULT 'user'
	);`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(50) NOT NULL,
		street VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL,
		state VARCHAR(100) NOT NULL,
		country VARCHAR(100) NOT NULL,
		INDEX idx_addresses_user (user_id)
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		price BIGINT NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		category_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		is_auction BOOLEAN NOT NULL DEFAULT FALSE,
		starting_price BIGINT NOT NULL DEFAULT 0,
		current_bid BIGINT NOT NULL DEFAULT 0,
		highest_bidder BIGINT NOT NULL DEFAULT 0,
		auction_end_time DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CHECK (quantity >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (user_id, product_id),
		CHECK (quantity >= 1)
	);`,
	`CREATE TABLE IF NOT EXISTS auction_bids (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		bid_amount BIGINT NOT NULL,
		bid_date DATETIME NOT NULL,
		status VARCHAR(20) NOT NULL,
		INDEX idx_bids_product_date (product_id, bid_date),
		INDEX idx_bids_product_amount (product_id, bid_amount),
		INDEX idx_bids_user_date (user_id, bid_date)
	);`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(100) NOT NULL UNIQUE,
		discount_percent INT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		max_usage INT NOT NULL,
		usage_count INT NOT NULL DEFAULT 0,
		product_id BIGINT NOT NULL DEFAULT 0,
		CHECK (discount_percent BETWEEN 0 AND 100)
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		buyer_id BIGINT NOT NULL,
		address_id BIGINT NOT NULL,
		order_date DATETIME NOT NULL,
		total_price BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		coupon_code VARCHAR(100) NOT NULL DEFAULT '',
		payment_ref VARCHAR(100) NOT NULL DEFAULT '',
		payment_date DATETIME NULL,
		INDEX idx_orders_buyer_date (buyer_id, order_date),
		INDEX idx_orders_payment_ref (payment_ref),
		INDEX idx_orders_status_date (status, order_date)
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		unit_price BIGINT NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS return_requests (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		reason TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_returns_order (order_id),
		INDEX idx_returns_user_date (user_id, created_at)
	);`,
}

// AutoMigrate creates all tables if they do not exist, retrying each
// statement since the database may still be warming up.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, query := range statements {
		_, err := db.Exec(query)
		for i := 0; err != nil && i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
