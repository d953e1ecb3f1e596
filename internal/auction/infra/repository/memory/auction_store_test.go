package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *AuctionStore, start, end time.Time) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(uuid.New(), "lot", "", decimal.NewFromInt(1000), start, end, uuid.New(), t0)
	assert.NoError(t, err)
	assert.NoError(t, s.Create(context.Background(), a))
	return a
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))

	got, err := s.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, a.ID, got.ID)
	check.Equal(t, int64(1), got.Version)

	check.Error(t, s.Create(ctx, a))

	_, err = s.GetByID(ctx, uuid.New())
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))

	got, err := s.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	got.Status = domain.StatusEnded

	again, err := s.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, domain.StatusLive, again.Status)
}

func TestCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))

	bid := domain.NewBid(uuid.New(), a.ID, uuid.New(), decimal.NewFromInt(1000), t0)
	committed, err := s.CompareAndSwap(ctx, a.WithHighBid(bid.Amount), a.Version, bid)
	assert.NoError(t, err)
	check.Equal(t, int64(2), committed.Version)
	check.Equal(t, "1000", committed.CurrentHighBid.String())
	check.Equal(t, int64(1), bid.Sequence)

	// stale version loses and writes nothing
	stale := domain.NewBid(uuid.New(), a.ID, uuid.New(), decimal.NewFromInt(1100), t0)
	_, err = s.CompareAndSwap(ctx, a.WithHighBid(stale.Amount), a.Version, stale)
	var conflict *domain.ConflictError
	assert.True(t, errors.As(err, &conflict))
	check.Equal(t, int64(1), conflict.ExpectedVersion)
	check.Equal(t, int64(2), conflict.CurrentVersion)

	bids, err := s.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(bids))
	check.Equal(t, bid.ID, bids[0].ID)

	current, err := s.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, "1000", current.CurrentHighBid.String())
}

func TestCompareAndSwap_Missing(t *testing.T) {
	s := NewAuctionStore()
	a, err := domain.NewAuction(uuid.New(), "", "", decimal.NewFromInt(1), t0, t0.Add(time.Hour), uuid.New(), t0)
	assert.NoError(t, err)
	_, err = s.CompareAndSwap(context.Background(), a, 1, nil)
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestCompareAndSwap_ConcurrentSameVersion(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))

	const writers = 16
	results := make([]error, writers)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			amount := decimal.NewFromInt(int64(1000 + i))
			bid := domain.NewBid(uuid.New(), a.ID, uuid.New(), amount, t0)
			_, results[i] = s.CompareAndSwap(ctx, a.WithHighBid(amount), a.Version, bid)
			return nil
		})
	}
	assert.NoError(t, g.Wait())

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		check.True(t, errors.Is(err, domain.ErrConcurrencyConflict))
	}
	check.Equal(t, 1, wins)

	bids, err := s.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, 1, len(bids))
}

func TestListByAuction_EntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))

	bid := domain.NewBid(uuid.New(), a.ID, uuid.New(), decimal.NewFromInt(1000), t0)
	_, err := s.CompareAndSwap(ctx, a.WithHighBid(bid.Amount), a.Version, bid)
	assert.NoError(t, err)

	// neither the caller's value nor a read copy reaches the ledger
	bid.Amount = decimal.NewFromInt(1)
	bids, err := s.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	bids[0].Amount = decimal.NewFromInt(2)

	again, err := s.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, "1000", again[0].Amount.String())
}

func TestHighestByBidder(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	a := seed(t, s, t0, t0.Add(time.Hour))
	alice, bob := uuid.New(), uuid.New()

	current := a
	for _, b := range []struct {
		bidder uuid.UUID
		amount int64
	}{{alice, 1000}, {bob, 1050}, {alice, 1100}, {bob, 1150}} {
		bid := domain.NewBid(uuid.New(), a.ID, b.bidder, decimal.NewFromInt(b.amount), t0)
		next, err := s.CompareAndSwap(ctx, current.WithHighBid(bid.Amount), current.Version, bid)
		assert.NoError(t, err)
		current = next
	}

	got, err := s.HighestByBidder(ctx, a.ID, alice)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	check.Equal(t, "1100", got.String())

	got, err = s.HighestByBidder(ctx, a.ID, uuid.New())
	assert.NoError(t, err)
	check.Nil(t, got)
}

func TestDueQueries(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionStore()
	live := seed(t, s, t0, t0.Add(time.Hour))
	upcoming := seed(t, s, t0.Add(time.Hour), t0.Add(2*time.Hour))

	due, err := s.DueForStart(ctx, t0.Add(30*time.Minute))
	assert.NoError(t, err)
	check.Equal(t, 0, len(due))

	due, err = s.DueForStart(ctx, t0.Add(time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(due))
	check.Equal(t, upcoming.ID, due[0].ID)

	due, err = s.DueForEnd(ctx, t0.Add(time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(due))
	check.Equal(t, live.ID, due[0].ID)

	open, err := s.ListByStatus(ctx, domain.StatusLive, domain.StatusUpcoming)
	assert.NoError(t, err)
	check.Equal(t, 2, len(open))

	ended, err := s.ListByStatus(ctx, domain.StatusEnded)
	assert.NoError(t, err)
	check.Equal(t, 0, len(ended))
}
