package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BidRepository implements domain.BidLedger. Rows are only ever inserted,
// and only inside the auction CAS transaction.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save inserts bid within tx and records the assigned sequence on it.
func (r *BidRepository) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at)
        VALUES ($1, $2, $3, $4::numeric, $5)
        RETURNING seq
    `
	return tx.QueryRow(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount.String(),
		bid.Timestamp,
	).Scan(&bid.Sequence)
}

// HighestByBidder returns the top amount bidderID placed on the auction,
// or nil when there is none.
func (r *BidRepository) HighestByBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (*decimal.Decimal, error) {
	query := `
        SELECT MAX(amount)::text
        FROM bids
        WHERE auction_id = $1 AND bidder_id = $2
    `
	var amount *string
	if err := r.pool.QueryRow(ctx, query, auctionID, bidderID).Scan(&amount); err != nil {
		return nil, fmt.Errorf("bid repository: highest of %s on %s: %w", bidderID, auctionID, err)
	}
	if amount == nil {
		return nil, nil
	}
	best, err := decimal.NewFromString(*amount)
	if err != nil {
		return nil, fmt.Errorf("bid repository: amount %q: %w", *amount, err)
	}
	return &best, nil
}

// ListByAuction returns the ledger of an auction in insertion order.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT seq, id, auction_id, bidder_id, amount::text, placed_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY seq ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		var amount string
		err := rows.Scan(
			&bid.Sequence,
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&amount,
			&bid.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("bid repository: scan: %w", err)
		}
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bid repository: amount %q: %w", amount, err)
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bid repository: rows: %w", err)
	}

	return bids, nil
}
