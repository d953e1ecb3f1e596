package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func TestPlaceBid_IncrementLadder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.createAuction(t, "Painting", t0, t0.Add(time.Hour))
	alice, bob := h.bidder(), h.bidder()

	steps := []struct {
		bidder  userdomain.Identity
		amount  int64
		minimum string // expected minimum on rejection, empty when accepted
	}{
		{bidder: alice, amount: 999, minimum: "1000"},
		{bidder: alice, amount: 1000},
		{bidder: bob, amount: 1040, minimum: "1050"},
		{bidder: bob, amount: 1050},
		{bidder: alice, amount: 1100},
		{bidder: bob, amount: 1150},
		{bidder: alice, amount: 1200},
		{bidder: bob, amount: 1200, minimum: "1250"},
	}
	for _, s := range steps {
		_, err := h.module.Service.PlaceBid(ctx, s.bidder, a.ID, decimal.NewFromInt(s.amount))
		if s.minimum == "" {
			check.NoError(t, err)
			continue
		}
		var tooLow *domain.BidTooLowError
		assert.True(t, errors.As(err, &tooLow))
		check.Equal(t, s.minimum, tooLow.Minimum.String())
	}

	current := h.auction(t, a.ID)
	check.Equal(t, "1200", current.CurrentHighBid.String())
	// one version per accepted bid
	check.Equal(t, int64(6), current.Version)

	bids, err := h.store.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, len(bids))
	for i := 1; i < len(bids); i++ {
		check.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}

	check.Equal(t, 5, len(h.broadcaster.bids))
	check.Equal(t, "1200", h.broadcaster.bids[4].Amount.String())
	check.Equal(t, alice.UserID, h.broadcaster.bids[4].BidderID)
}

func TestPlaceBid_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	live := h.createAuction(t, "Live", t0, t0.Add(time.Hour))
	upcoming := h.createAuction(t, "Later", t0.Add(time.Hour), t0.Add(2*time.Hour))
	bidder := h.bidder()

	tests := []struct {
		name      string
		bidder    userdomain.Identity
		auctionID uuid.UUID
		amount    decimal.Decimal
		want      error
	}{
		{name: "anonymous", bidder: userdomain.Identity{}, auctionID: live.ID, amount: decimal.NewFromInt(1000), want: domain.ErrUnauthorized},
		{name: "zero amount", bidder: bidder, auctionID: live.ID, amount: decimal.Zero, want: domain.ErrValidation},
		{name: "negative amount", bidder: bidder, auctionID: live.ID, amount: decimal.NewFromInt(-1), want: domain.ErrValidation},
		{name: "sub-cent amount", bidder: bidder, auctionID: live.ID, amount: decimal.RequireFromString("1000.0049"), want: domain.ErrValidation},
		{name: "unknown bidder", bidder: userdomain.Identity{UserID: uuid.New(), Role: userdomain.RoleBidder}, auctionID: live.ID, amount: decimal.NewFromInt(1000), want: domain.ErrBidderNotFound},
		{name: "unknown auction", bidder: bidder, auctionID: uuid.New(), amount: decimal.NewFromInt(1000), want: domain.ErrAuctionNotFound},
		{name: "upcoming auction", bidder: bidder, auctionID: upcoming.ID, amount: decimal.NewFromInt(1000), want: domain.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bid, err := h.module.Service.PlaceBid(ctx, tt.bidder, tt.auctionID, tt.amount)
			check.Nil(t, bid)
			check.True(t, errors.Is(err, tt.want))
		})
	}

	// nothing was written by any rejection
	check.Equal(t, int64(1), h.auction(t, live.ID).Version)
	check.Equal(t, 0, len(h.broadcaster.bids))
}

func TestPlaceBid_EndedAuction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.createAuction(t, "Closed", t0, t0.Add(time.Hour))
	_, err := h.module.Service.ManualEnd(ctx, h.admin, a.ID)
	assert.NoError(t, err)

	_, err = h.module.Service.PlaceBid(ctx, h.bidder(), a.ID, decimal.NewFromInt(5000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestPlaceBid_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.createAuction(t, "Clock", t0, t0.Add(time.Hour))
	winner := h.addUser(userdomain.RoleBidder, "winner@example.com")

	_, err := h.module.Service.PlaceBid(ctx, winner, a.ID, decimal.NewFromInt(1000))
	assert.NoError(t, err)

	// the scheduler has not run yet, but the end time has passed
	h.clock.Set(t0.Add(time.Hour))
	_, err = h.module.Service.PlaceBid(ctx, h.bidder(), a.ID, decimal.NewFromInt(2000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))

	current := h.auction(t, a.ID)
	check.Equal(t, domain.StatusEnded, current.Status)
	check.Equal(t, "1000", current.CurrentHighBid.String())

	sent := h.notifier.notifications()
	assert.Equal(t, 1, len(sent))
	check.Equal(t, "winner@example.com", sent[0].Recipient)
	check.Equal(t, "Clock", sent[0].AuctionTitle)

	events := h.broadcaster.statusEvents()
	assert.Equal(t, 1, len(events))
	check.Equal(t, domain.StatusEnded, events[0].To)

	// another late bid must not close the auction a second time
	_, err = h.module.Service.PlaceBid(ctx, h.bidder(), a.ID, decimal.NewFromInt(3000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
	check.Equal(t, current.Version, h.auction(t, a.ID).Version)
	check.Equal(t, 1, len(h.notifier.notifications()))
	check.Equal(t, 1, len(h.broadcaster.statusEvents()))

	// a later tick finds nothing left to do
	result := h.module.Scheduler.Tick(ctx)
	check.Equal(t, TickResult{}, result)
	check.Equal(t, 1, len(h.notifier.notifications()))
}

func TestPlaceBid_StaleSnapshotConflict(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.createAuction(t, "Race", t0, t0.Add(time.Hour))

	// both bidders read version 1 before either commits
	module := h.build(newBarrierStore(h.store, 2))
	bidders := []userdomain.Identity{h.bidder(), h.bidder()}
	errs := make([]error, len(bidders))

	var g errgroup.Group
	for i, b := range bidders {
		g.Go(func() error {
			_, errs[i] = module.Service.PlaceBid(ctx, b, a.ID, decimal.NewFromInt(1000))
			return nil
		})
	}
	assert.NoError(t, g.Wait())

	var winners int
	var conflict *domain.ConflictError
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, errors.As(err, &conflict))
	}
	check.Equal(t, 1, winners)
	assert.NotNil(t, conflict)
	check.Equal(t, int64(1), conflict.ExpectedVersion)
	check.Equal(t, int64(2), conflict.CurrentVersion)
	assert.NotNil(t, conflict.CurrentMinimum)
	check.Equal(t, "1050", conflict.CurrentMinimum.String())

	bids, err := h.store.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, 1, len(bids))
}

func TestPlaceBid_ConcurrentBiddersStayMonotonic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.createAuction(t, "Crowd", t0, t0.Add(time.Hour))

	const bidders = 20
	var g errgroup.Group
	accepted := make([]bool, bidders)
	for i := 0; i < bidders; i++ {
		bidder := h.bidder()
		g.Go(func() error {
			// each bidder tries the next ladder step it observes
			for attempt := 0; attempt < 5; attempt++ {
				current, err := h.store.GetByID(ctx, a.ID)
				if err != nil {
					return err
				}
				_, err = h.module.Service.PlaceBid(ctx, bidder, a.ID, current.MinimumBid(testIncrement))
				switch {
				case err == nil:
					accepted[i] = true
					return nil
				case isConflict(err), errors.Is(err, domain.ErrBidTooLow):
					continue
				default:
					return err
				}
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())

	bids, err := h.store.ListByAuction(ctx, a.ID)
	assert.NoError(t, err)

	wins := 0
	for _, ok := range accepted {
		if ok {
			wins++
		}
	}
	check.Equal(t, wins, len(bids))
	for i := 1; i < len(bids); i++ {
		check.True(t, bids[i].Amount.Equal(bids[i-1].Amount.Add(testIncrement)))
	}

	current := h.auction(t, a.ID)
	check.Equal(t, int64(1+len(bids)), current.Version)
	if len(bids) > 0 {
		check.Equal(t, bids[len(bids)-1].Amount.String(), current.CurrentHighBid.String())
	}
}

func TestPlaceBid_BroadcastFailureKeepsBid(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.broadcaster.err = errors.New("hub full")
	a := h.createAuction(t, "Quiet", t0, t0.Add(time.Hour))

	bid, err := h.module.Service.PlaceBid(ctx, h.bidder(), a.ID, decimal.NewFromInt(1000))
	assert.NoError(t, err)
	check.Equal(t, int64(1), bid.Sequence)
	check.Equal(t, "1000", h.auction(t, a.ID).CurrentHighBid.String())
}
