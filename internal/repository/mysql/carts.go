package mysql

import (
	"context"
	"database/sql"

	"marketplace/internal/entity"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetItems(ctx context.Context, userID int64) ([]entity.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT product_id, quantity FROM cart_items WHERE user_id = ? ORDER BY product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []entity.CartLine
	for rows.Next() {
		var line entity.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *CartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, productID, quantity)
	return err
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?`, quantity, userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// A no-op update (same quantity) also reports zero rows on MySQL, so
	// distinguish it from a missing line.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *CartRepository) MergeItems(ctx context.Context, userID int64, lines []entity.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
			userID, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
