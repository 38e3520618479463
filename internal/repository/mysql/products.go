package mysql

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, title, description, price, quantity, category_id, seller_id, is_auction, starting_price, current_bid, highest_bidder, auction_end_time, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*entity.Product, error) {
	p := &entity.Product{}
	var endTime sql.NullTime
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Quantity, &p.CategoryID, &p.SellerID, &p.IsAuction, &p.StartingPrice, &p.CurrentBid, &p.HighestBidder, &endTime, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		p.AuctionEndTime = &endTime.Time
	}
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	var endTime sql.NullTime
	if p.AuctionEndTime != nil {
		endTime = sql.NullTime{Time: *p.AuctionEndTime, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (title, description, price, quantity, category_id, seller_id, is_auction, starting_price, current_bid, highest_bidder, auction_end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Price, p.Quantity, p.CategoryID, p.SellerID, p.IsAuction, p.StartingPrice, p.CurrentBid, p.HighestBidder, endTime)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}
