package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"go.uber.org/zap"
)

// DefaultSchedulerInterval bounds how late an expired auction is closed.
const DefaultSchedulerInterval = 60 * time.Second

// TickResult counts what a single scheduler pass did.
type TickResult struct {
	Started int
	Ended   int
	Skipped int
}

// Scheduler periodically starts due auctions and ends expired ones. Several
// schedulers may run against the same store; the CAS decides which one
// commits each transition.
type Scheduler struct {
	store     domain.AuctionStore
	lifecycle *LifecycleUseCase
	interval  time.Duration
	now       Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(store domain.AuctionStore, lifecycle *LifecycleUseCase, interval time.Duration, now Clock) *Scheduler {
	if interval <= 0 {
		interval = DefaultSchedulerInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:     store,
		lifecycle: lifecycle,
		interval:  interval,
		now:       now,
	}
}

// Start launches the loop in its own goroutine. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop cancels the loop and waits for the running tick, if any, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run blocks until ctx is cancelled. Used when the caller supervises goroutines.
func (s *Scheduler) Run(ctx context.Context) error {
	done := make(chan struct{})
	s.run(ctx, done)
	return nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("Lifecycle scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("Lifecycle scheduler stopped")
			return
		case <-ticker.C:
			// cancellation is only honoured between ticks
			result := s.Tick(context.WithoutCancel(ctx))
			if result.Started+result.Ended+result.Skipped > 0 {
				log.Info("Scheduler tick",
					zap.Int("started", result.Started),
					zap.Int("ended", result.Ended),
					zap.Int("skipped", result.Skipped),
				)
			}
		}
	}
}

// Tick runs one pass: first start due auctions, then end expired ones.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	var result TickResult
	now := s.now()

	toStart, err := s.store.DueForStart(ctx, now)
	if err != nil {
		log.Error("Scheduler: failed to list auctions due to start", zap.Error(err))
	}
	for _, auction := range toStart {
		if s.step(ctx, auction, (*domain.Auction).Start) {
			result.Started++
		} else {
			result.Skipped++
		}
	}

	toEnd, err := s.store.DueForEnd(ctx, now)
	if err != nil {
		log.Error("Scheduler: failed to list auctions due to end", zap.Error(err))
	}
	for _, auction := range toEnd {
		if s.step(ctx, auction, (*domain.Auction).End) {
			result.Ended++
		} else {
			result.Skipped++
		}
	}
	return result
}

// step applies one transition; losing a race is skipped until the next tick.
func (s *Scheduler) step(ctx context.Context, auction *domain.Auction, guard guardFunc) bool {
	_, err := s.lifecycle.apply(ctx, auction, guard, domain.TriggerScheduled)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrInvalidTransition):
		log.Info("Scheduler: transition skipped",
			zap.String("auctionID", auction.ID.String()),
			zap.Error(err),
		)
	default:
		log.Error("Scheduler: transition failed",
			zap.String("auctionID", auction.ID.String()),
			zap.Error(err),
		)
	}
	return false
}
