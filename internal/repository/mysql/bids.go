package mysql

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) PlaceWinningBid(ctx context.Context, bid *entity.AuctionBid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the product row so concurrent bids on the same product
	// serialize across processes.
	var startingPrice int64
	err = tx.QueryRowContext(ctx, `SELECT starting_price FROM products WHERE id = ? FOR UPDATE`, bid.ProductID).Scan(&startingPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}

	// Re-read the highest under the lock; the caller's pre-check may be
	// stale by now.
	var highest int64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(bid_amount), 0) FROM auction_bids WHERE product_id = ?`, bid.ProductID).Scan(&highest)
	if err != nil {
		return err
	}
	if highest < startingPrice {
		highest = startingPrice
	}
	if bid.BidAmount <= highest {
		return repository.ErrBidTooLow
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO auction_bids (product_id, user_id, bid_amount, bid_date, status)
		VALUES (?, ?, ?, ?, ?)`,
		bid.ProductID, bid.UserID, bid.BidAmount, bid.BidDate, entity.BidWinning)
	if err != nil {
		return err
	}
	bid.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	bid.Status = entity.BidWinning

	_, err = tx.ExecContext(ctx, `UPDATE auction_bids SET status = ? WHERE product_id = ? AND id <> ?`,
		entity.BidOutbid, bid.ProductID, bid.ID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE products SET current_bid = ?, highest_bidder = ? WHERE id = ?`,
		bid.BidAmount, bid.UserID, bid.ProductID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const bidColumns = `id, product_id, user_id, bid_amount, bid_date, status`

func scanBids(rows *sql.Rows) ([]entity.AuctionBid, error) {
	var bids []entity.AuctionBid
	for rows.Next() {
		var b entity.AuctionBid
		if err := rows.Scan(&b.ID, &b.ProductID, &b.UserID, &b.BidAmount, &b.BidDate, &b.Status); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *BidRepository) ListByProduct(ctx context.Context, productID int64) ([]entity.AuctionBid, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bidColumns+` FROM auction_bids WHERE product_id = ? ORDER BY bid_date DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBids(rows)
}

func (r *BidRepository) HighestByProduct(ctx context.Context, productID int64) (*entity.AuctionBid, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM auction_bids WHERE product_id = ? ORDER BY bid_amount DESC LIMIT 1`, productID)
	var b entity.AuctionBid
	err := row.Scan(&b.ID, &b.ProductID, &b.UserID, &b.BidAmount, &b.BidDate, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BidRepository) ListByUser(ctx context.Context, userID int64) ([]entity.AuctionBid, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bidColumns+` FROM auction_bids WHERE user_id = ? ORDER BY bid_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBids(rows)
}
