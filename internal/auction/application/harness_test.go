package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/auction/infra/repository/memory"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	usermemory "github.com/cristianortiz/auctionBidder/internal/user/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	bids   []BidPlacedEvent
	status []StatusChangedEvent
	err    error
}

func (b *recordingBroadcaster) BroadcastBid(_ context.Context, e BidPlacedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = append(b.bids, e)
	return b.err
}

func (b *recordingBroadcaster) BroadcastStatus(_ context.Context, e StatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = append(b.status, e)
	return b.err
}

func (b *recordingBroadcaster) statusEvents() []StatusChangedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StatusChangedEvent(nil), b.status...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []WinnerNotification
	err  error
}

func (n *recordingNotifier) NotifyWinner(_ context.Context, w WinnerNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, w)
	return n.err
}

func (n *recordingNotifier) notifications() []WinnerNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]WinnerNotification(nil), n.sent...)
}

// barrierStore holds the first n snapshot reads until all n have happened,
// so that n callers act on the same version.
type barrierStore struct {
	*memory.AuctionStore

	mu      sync.Mutex
	pending int
	release chan struct{}
}

func newBarrierStore(inner *memory.AuctionStore, n int) *barrierStore {
	return &barrierStore{AuctionStore: inner, pending: n, release: make(chan struct{})}
}

func (s *barrierStore) wait() {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return
	}
	s.pending--
	if s.pending == 0 {
		close(s.release)
	}
	s.mu.Unlock()
	<-s.release
}

func (s *barrierStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := s.AuctionStore.GetByID(ctx, id)
	s.wait()
	return a, err
}

func (s *barrierStore) DueForEnd(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	due, err := s.AuctionStore.DueForEnd(ctx, now)
	s.wait()
	return due, err
}

type harness struct {
	store       *memory.AuctionStore
	users       *usermemory.UserRepository
	clock       *fakeClock
	broadcaster *recordingBroadcaster
	notifier    *recordingNotifier
	module      *Module
	admin       userdomain.Identity
}

var testIncrement = decimal.NewFromInt(50)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:       memory.NewAuctionStore(),
		users:       usermemory.NewUserRepository(),
		clock:       &fakeClock{now: t0},
		broadcaster: &recordingBroadcaster{},
		notifier:    &recordingNotifier{},
	}
	h.admin = h.addUser(userdomain.RoleAdmin, "admin@example.com")
	h.module = h.build(h.store)
	return h
}

// build assembles a module over store, sharing the harness collaborators.
func (h *harness) build(store domain.AuctionStore) *Module {
	return NewModule(Dependencies{
		Store:           store,
		Ledger:          h.store,
		Users:           h.users,
		Broadcaster:     h.broadcaster,
		Notifier:        h.notifier,
		BidIncrement:    testIncrement,
		DefaultDuration: time.Hour,
		SchedulerEvery:  time.Minute,
		Clock:           h.clock.Now,
	})
}

func (h *harness) addUser(role userdomain.Role, email string) userdomain.Identity {
	u := userdomain.User{ID: uuid.New(), Email: email, Role: role}
	h.users.Put(u)
	return userdomain.Identity{UserID: u.ID, Role: role}
}

func (h *harness) bidder() userdomain.Identity {
	return h.addUser(userdomain.RoleBidder, "")
}

func (h *harness) createAuction(t *testing.T, title string, start, end time.Time) *domain.Auction {
	t.Helper()
	a, err := h.module.Service.CreateAuction(context.Background(), h.admin, CreateAuctionDTO{
		Title:         title,
		StartingPrice: decimal.NewFromInt(1000),
		StartTime:     start,
		EndTime:       end,
	})
	assert.NoError(t, err)
	return a
}

func (h *harness) auction(t *testing.T, id uuid.UUID) *domain.Auction {
	t.Helper()
	a, err := h.store.GetByID(context.Background(), id)
	assert.NoError(t, err)
	return a
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConcurrencyConflict)
}
