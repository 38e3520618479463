package mysql

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type ReturnRepository struct {
	db *sql.DB
}

func NewReturnRepository(db *sql.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

const returnColumns = `id, order_id, user_id, reason, status, created_at`

func (r *ReturnRepository) Create(ctx context.Context, req *entity.ReturnRequest) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO return_requests (order_id, user_id, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		req.OrderID, req.UserID, req.Reason, req.Status, req.CreatedAt)
	if err != nil {
		return err
	}
	req.ID, err = res.LastInsertId()
	return err
}

func (r *ReturnRepository) GetByID(ctx context.Context, id int64) (*entity.ReturnRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = ?`, id)
	return scanReturn(row)
}

func (r *ReturnRepository) GetPendingByOrder(ctx context.Context, orderID int64) (*entity.ReturnRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE order_id = ? AND status = ? LIMIT 1`, orderID, entity.ReturnPending)
	return scanReturn(row)
}

func scanReturn(row *sql.Row) (*entity.ReturnRequest, error) {
	var req entity.ReturnRequest
	err := row.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Reason, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ReturnRepository) ListByUser(ctx context.Context, userID int64) ([]entity.ReturnRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []entity.ReturnRequest
	for rows.Next() {
		var req entity.ReturnRequest
		if err := rows.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Reason, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *ReturnRepository) UpdateStatus(ctx context.Context, id int64, status entity.ReturnStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE return_requests SET status = ? WHERE id = ?`, status, id)
	return err
}
