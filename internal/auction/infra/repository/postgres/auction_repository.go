package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const auctionColumns = `id, title, description, starting_price::text, current_high_bid::text,
        status, start_time, end_time, created_by, version, created_at, updated_at`

// AuctionRepository implements domain.AuctionStore on PostgreSQL.
// The version column is the optimistic concurrency token.
type AuctionRepository struct {
	pool *pgxpool.Pool
	bids *BidRepository
}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool, bids *BidRepository) *AuctionRepository {
	return &AuctionRepository{pool: pool, bids: bids}
}

// Create inserts a new auction at its initial version.
func (r *AuctionRepository) Create(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, description, starting_price, current_high_bid, status,
                              start_time, end_time, created_by, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11, $11)
    `
	var createdBy *uuid.UUID
	if auction.CreatedBy != uuid.Nil {
		createdBy = &auction.CreatedBy
	}
	_, err := r.pool.Exec(ctx, query,
		auction.ID,
		auction.Title,
		auction.Description,
		auction.StartingPrice.String(),
		decimalArg(auction.CurrentHighBid),
		string(auction.Status),
		auction.StartTime,
		auction.EndTime,
		createdBy,
		auction.Version,
		auction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auction repository: create %s: %w", auction.ID, err)
	}
	return nil
}

// GetByID loads an auction snapshot.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("auction repository: get %s: %w", id, err)
	}
	return auction, nil
}

// ListByStatus returns auctions in any of the given statuses ordered by start time.
func (r *AuctionRepository) ListByStatus(ctx context.Context, statuses ...domain.AuctionStatus) ([]*domain.Auction, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	query := `SELECT ` + auctionColumns + ` FROM auctions
        WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
        ORDER BY start_time ASC`
	return r.list(ctx, query, names)
}

// DueForStart recupera subastas UPCOMING cuya hora de inicio ya paso.
func (r *AuctionRepository) DueForStart(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions
        WHERE status = $1 AND start_time <= $2
        ORDER BY start_time ASC`
	return r.list(ctx, query, string(domain.StatusUpcoming), now)
}

// DueForEnd recupera subastas LIVE cuya hora de termino ya paso.
func (r *AuctionRepository) DueForEnd(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions
        WHERE status = $1 AND end_time <= $2
        ORDER BY end_time ASC`
	return r.list(ctx, query, string(domain.StatusLive), now)
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("auction repository: list: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("auction repository: scan: %w", err)
		}
		auctions = append(auctions, auction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auction repository: rows: %w", err)
	}

	return auctions, nil
}

// CompareAndSwap writes next only if the stored version is still
// expectedVersion. The version check, the update and the optional ledger
// insert share one transaction, so a bid row exists iff its high bid does.
func (r *AuctionRepository) CompareAndSwap(ctx context.Context, next *domain.Auction, expectedVersion int64, bid *domain.Bid) (committed *domain.Auction, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("auction repository: failed to begin transaction: %w", err)
	}

	//config defer() to handles commit/rollback
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("AuctionRepository: Failed to commit transaction",
				zap.String("auctionID", next.ID.String()),
				zap.Error(commitErr),
			)
			committed = nil
			err = fmt.Errorf("auction repository: failed to commit transaction: %w", commitErr)
		}
	}()

	query := `
        UPDATE auctions
        SET current_high_bid = $3::numeric,
            status = $4,
            version = version + 1,
            updated_at = NOW()
        WHERE id = $1 AND version = $2
        RETURNING ` + auctionColumns
	committed, err = scanAuction(tx.QueryRow(ctx, query,
		next.ID,
		expectedVersion,
		decimalArg(next.CurrentHighBid),
		string(next.Status),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.mismatch(ctx, tx, next.ID, expectedVersion)
		}
		return nil, fmt.Errorf("auction repository: update %s: %w", next.ID, err)
	}

	if bid != nil {
		if err = r.bids.Save(ctx, tx, bid); err != nil {
			return nil, fmt.Errorf("auction repository: append bid for %s: %w", next.ID, err)
		}
	}
	return committed, nil
}

// mismatch explains why the versioned update touched no row.
func (r *AuctionRepository) mismatch(ctx context.Context, tx pgx.Tx, id uuid.UUID, expectedVersion int64) error {
	var current int64
	err := tx.QueryRow(ctx, `SELECT version FROM auctions WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAuctionNotFound
		}
		return fmt.Errorf("auction repository: read version of %s: %w", id, err)
	}
	return &domain.ConflictError{
		AuctionID:       id,
		ExpectedVersion: expectedVersion,
		CurrentVersion:  current,
	}
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	auction := &domain.Auction{}
	var (
		startingPrice string
		highBid       *string // pointer to handle NULL
		status        string
		createdBy     *uuid.UUID
	)
	err := row.Scan(
		&auction.ID,
		&auction.Title,
		&auction.Description,
		&startingPrice,
		&highBid,
		&status,
		&auction.StartTime,
		&auction.EndTime,
		&createdBy,
		&auction.Version,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if auction.StartingPrice, err = decimal.NewFromString(startingPrice); err != nil {
		return nil, fmt.Errorf("starting price %q: %w", startingPrice, err)
	}
	if highBid != nil {
		hb, err := decimal.NewFromString(*highBid)
		if err != nil {
			return nil, fmt.Errorf("current high bid %q: %w", *highBid, err)
		}
		auction.CurrentHighBid = &hb
	}
	if auction.Status, err = domain.ParseAuctionStatus(status); err != nil {
		return nil, fmt.Errorf("status %q: %w", status, err)
	}
	if createdBy != nil {
		auction.CreatedBy = *createdBy
	}
	return auction, nil
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
