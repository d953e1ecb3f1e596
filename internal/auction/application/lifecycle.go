package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// guardFunc is one of the state machine transitions, e.g. (*domain.Auction).End.
type guardFunc func(a *domain.Auction, now time.Time, trigger domain.Trigger) (*domain.Auction, domain.Transition, error)

// LifecycleUseCase commits lifecycle transitions through the store's CAS.
// Manual admin actions, the scheduler and the lazy expiry in bid placement
// all go through apply, so at most one of any racing callers commits a given
// transition and only that caller runs the winner resolution.
type LifecycleUseCase struct {
	store       domain.AuctionStore
	resolver    *WinnerResolver
	broadcaster Broadcaster
	now         Clock
}

func NewLifecycleUseCase(store domain.AuctionStore, resolver *WinnerResolver, broadcaster Broadcaster, now Clock) *LifecycleUseCase {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if now == nil {
		now = time.Now
	}
	return &LifecycleUseCase{
		store:       store,
		resolver:    resolver,
		broadcaster: broadcaster,
		now:         now,
	}
}

// Start moves an auction to LIVE.
func (uc *LifecycleUseCase) Start(ctx context.Context, auctionID uuid.UUID, trigger domain.Trigger) (*domain.Auction, error) {
	auction, err := uc.store.GetByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: start auction %s: %w", auctionID, err)
	}
	return uc.apply(ctx, auction, (*domain.Auction).Start, trigger)
}

// End moves an auction to ENDED and resolves its winner.
func (uc *LifecycleUseCase) End(ctx context.Context, auctionID uuid.UUID, trigger domain.Trigger) (*domain.Auction, error) {
	auction, err := uc.store.GetByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: end auction %s: %w", auctionID, err)
	}
	return uc.apply(ctx, auction, (*domain.Auction).End, trigger)
}

// apply runs guard against the snapshot and commits the result with the
// snapshot's version. Errors are returned untouched so callers can tell a
// lost race (ErrConcurrencyConflict) from an illegal one (ErrInvalidTransition).
func (uc *LifecycleUseCase) apply(ctx context.Context, snapshot *domain.Auction, guard guardFunc, trigger domain.Trigger) (*domain.Auction, error) {
	next, transition, err := guard(snapshot, uc.now(), trigger)
	if err != nil {
		return nil, err
	}

	committed, err := uc.store.CompareAndSwap(ctx, next, snapshot.Version, nil)
	if err != nil {
		return nil, err
	}

	log.Info("Auction transition committed",
		zap.String("auctionID", committed.ID.String()),
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)),
		zap.String("trigger", string(transition.Trigger)),
		zap.Int64("version", committed.Version),
	)

	uc.afterCommit(ctx, committed, transition)
	return committed, nil
}

// afterCommit runs the best-effort side effects of a committed transition.
func (uc *LifecycleUseCase) afterCommit(ctx context.Context, committed *domain.Auction, transition domain.Transition) {
	event := StatusChangedEvent{
		AuctionID: committed.ID,
		From:      transition.From,
		To:        transition.To,
		Trigger:   transition.Trigger,
		Version:   committed.Version,
	}
	if err := uc.broadcaster.BroadcastStatus(ctx, event); err != nil {
		log.Error("Status broadcast failed",
			zap.String("auctionID", committed.ID.String()),
			zap.Error(err),
		)
	}

	if !transition.Ends() || uc.resolver == nil {
		return
	}
	if _, err := uc.resolver.Resolve(ctx, committed); err != nil {
		log.Error("Winner resolution failed",
			zap.String("auctionID", committed.ID.String()),
			zap.Error(err),
		)
	}
}
