package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (buyer_id, address_id, order_date, total_price, status, coupon_code, payment_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.BuyerID, o.AddressID, o.OrderDate, o.TotalPrice, o.Status, o.CouponCode, o.PaymentRef)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
		item.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const orderColumns = `id, buyer_id, address_id, order_date, total_price, status, coupon_code, payment_ref, payment_date`

func scanOrder(row interface{ Scan(...any) error }) (*entity.Order, error) {
	o := &entity.Order{}
	var paymentDate sql.NullTime
	err := row.Scan(&o.ID, &o.BuyerID, &o.AddressID, &o.OrderDate, &o.TotalPrice, &o.Status, &o.CouponCode, &o.PaymentRef, &paymentDate)
	if err != nil {
		return nil, err
	}
	if paymentDate.Valid {
		o.PaymentDate = &paymentDate.Time
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) listOrders(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC LIMIT ?`, limit)
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]entity.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = ? ORDER BY order_date DESC`, buyerID)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status entity.OrderStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	return err
}

func (r *OrderRepository) Settle(ctx context.Context, o *entity.Order, paymentDate time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range o.Items {
		res, err := tx.ExecContext(ctx, `UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
			item.Quantity, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &repository.InsufficientStockError{ProductID: item.ProductID}
		}
	}

	// Status guard doubles as an idempotency check against duplicate
	// capture callbacks racing each other.
	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, payment_date = ? WHERE id = ? AND status = ?`,
		entity.OrderCompleted, paymentDate, o.ID, entity.OrderShipping)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrAlreadyProcessed
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	o.Status = entity.OrderCompleted
	o.PaymentDate = &paymentDate
	return nil
}

func (r *OrderRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]entity.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? AND order_date < ? ORDER BY order_date`, entity.OrderShipping, cutoff)
}
