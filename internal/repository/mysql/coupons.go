package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, code, discount_percent, start_date, end_date, max_usage, usage_count, product_id`

func (r *CouponRepository) Create(ctx context.Context, c *entity.Coupon) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (code, discount_percent, start_date, end_date, max_usage, usage_count, product_id)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		c.Code, c.DiscountPercent, c.StartDate, c.EndDate, c.MaxUsage, c.ProductID)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicate
		}
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*entity.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code)
	var c entity.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.StartDate, &c.EndDate, &c.MaxUsage, &c.UsageCount, &c.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CouponRepository) ListByProduct(ctx context.Context, productID int64) ([]entity.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE product_id = ?`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []entity.Coupon
	for rows.Next() {
		var c entity.Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.StartDate, &c.EndDate, &c.MaxUsage, &c.UsageCount, &c.ProductID); err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) ConsumeUsage(ctx context.Context, code string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE coupons SET usage_count = usage_count + 1 WHERE code = ? AND usage_count < max_usage`, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
