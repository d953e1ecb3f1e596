package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStore is the authoritative, versioned record of auctions.
type AuctionStore interface {
	Create(ctx context.Context, auction *Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	ListByStatus(ctx context.Context, statuses ...AuctionStatus) ([]*Auction, error)
	// DueForStart lists UPCOMING auctions whose start time is <= now.
	DueForStart(ctx context.Context, now time.Time) ([]*Auction, error)
	// DueForEnd lists LIVE auctions whose end time is <= now.
	DueForEnd(ctx context.Context, now time.Time) ([]*Auction, error)
	// CompareAndSwap stores next iff the stored version equals expectedVersion,
	// bumping the version by one. When bid is not nil it is appended to the
	// ledger in the same atomic commit. A version mismatch yields a
	// *ConflictError; an unknown id yields ErrAuctionNotFound.
	CompareAndSwap(ctx context.Context, next *Auction, expectedVersion int64, bid *Bid) (*Auction, error)
}

// BidLedger is the read side of the append-only bid collection.
// Appends only happen through AuctionStore.CompareAndSwap.
type BidLedger interface {
	// ListByAuction returns bids in insertion order.
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
	// HighestByBidder returns the largest amount bidderID has placed on the
	// auction, or nil when they have not bid.
	HighestByBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (*decimal.Decimal, error)
}
