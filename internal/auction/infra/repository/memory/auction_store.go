package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStore is an in-process implementation of domain.AuctionStore and
// domain.BidLedger. The mutex makes each CompareAndSwap indivisible, the way
// a row update inside a transaction is for the postgres store.
type AuctionStore struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]*domain.Bid
	seq      int64
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
	}
}

func (s *AuctionStore) Create(_ context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.auctions[auction.ID]; exists {
		return fmt.Errorf("memory store: auction %s already exists", auction.ID)
	}
	stored := auction.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	auction.Version = stored.Version
	s.auctions[auction.ID] = stored
	return nil
}

func (s *AuctionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return a.Clone(), nil
}

func (s *AuctionStore) ListByStatus(_ context.Context, statuses ...domain.AuctionStatus) ([]*domain.Auction, error) {
	want := make(map[domain.AuctionStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	return s.filter(func(a *domain.Auction) bool {
		return len(want) == 0 || want[a.Status]
	}), nil
}

func (s *AuctionStore) DueForStart(_ context.Context, now time.Time) ([]*domain.Auction, error) {
	return s.filter(func(a *domain.Auction) bool {
		return a.Status == domain.StatusUpcoming && !a.StartTime.After(now)
	}), nil
}

func (s *AuctionStore) DueForEnd(_ context.Context, now time.Time) ([]*domain.Auction, error) {
	return s.filter(func(a *domain.Auction) bool {
		return a.Status == domain.StatusLive && !a.EndTime.After(now)
	}), nil
}

func (s *AuctionStore) filter(keep func(a *domain.Auction) bool) []*domain.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Auction
	for _, a := range s.auctions {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (s *AuctionStore) CompareAndSwap(_ context.Context, next *domain.Auction, expectedVersion int64, bid *domain.Bid) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.auctions[next.ID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	if current.Version != expectedVersion {
		return nil, &domain.ConflictError{
			AuctionID:       next.ID,
			ExpectedVersion: expectedVersion,
			CurrentVersion:  current.Version,
		}
	}

	stored := next.Clone()
	stored.Version = current.Version + 1
	stored.UpdatedAt = time.Now()
	s.auctions[next.ID] = stored

	if bid != nil {
		s.seq++
		bid.Sequence = s.seq
		entry := *bid
		s.bids[next.ID] = append(s.bids[next.ID], &entry)
	}
	return stored.Clone(), nil
}

// ListByAuction returns copies so callers cannot alter ledger entries.
func (s *AuctionStore) ListByAuction(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.bids[auctionID]
	out := make([]*domain.Bid, 0, len(entries))
	for _, b := range entries {
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

func (s *AuctionStore) HighestByBidder(_ context.Context, auctionID, bidderID uuid.UUID) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *decimal.Decimal
	for _, b := range s.bids[auctionID] {
		if b.BidderID != bidderID {
			continue
		}
		if best == nil || b.Amount.GreaterThan(*best) {
			amount := b.Amount
			best = &amount
		}
	}
	return best, nil
}
