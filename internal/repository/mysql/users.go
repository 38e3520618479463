package mysql

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) GetForUser(ctx context.Context, id, userID int64) (*entity.Address, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, phone, street, city, state, country
		FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	var a entity.Address
	err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.Street, &a.City, &a.State, &a.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
