package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an immutable ledger entry. Sequence is assigned by the store and
// reflects insertion order within the ledger.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Timestamp time.Time
	Sequence  int64
}

// NewBid creates a new Bid instance
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, timestamp time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// outranks orders bids by amount desc, then earliest timestamp, then sequence.
func (b *Bid) outranks(other *Bid) bool {
	if c := b.Amount.Cmp(other.Amount); c != 0 {
		return c > 0
	}
	if !b.Timestamp.Equal(other.Timestamp) {
		return b.Timestamp.Before(other.Timestamp)
	}
	return b.Sequence < other.Sequence
}

// SortByAmountDesc returns a sorted copy, highest amount first.
func SortByAmountDesc(bids []*Bid) []*Bid {
	out := make([]*Bid, len(bids))
	copy(out, bids)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].outranks(out[j])
	})
	return out
}

// WinningBid picks the maximal bid; ties go to the earliest one.
// It returns nil for an empty ledger.
func WinningBid(bids []*Bid) *Bid {
	var best *Bid
	for _, b := range bids {
		if best == nil || b.outranks(best) {
			best = b
		}
	}
	return best
}
