package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	Bidder    userdomain.Identity
	Amount    decimal.Decimal
}

// PlaceBidUseCase validates a bid against the auction snapshot and commits it
// with a single version-checked write. It never retries: a lost race is
// reported to the caller as a *domain.ConflictError.
type PlaceBidUseCase struct {
	store       domain.AuctionStore
	users       userdomain.UserRepository
	lifecycle   *LifecycleUseCase
	broadcaster Broadcaster
	increment   decimal.Decimal
	now         Clock
}

// NewPlaceBidUseCase creates a new instace of PlaceBidUseCase struct, it receives dependency through injection
func NewPlaceBidUseCase(store domain.AuctionStore,
	users userdomain.UserRepository,
	lifecycle *LifecycleUseCase,
	broadcaster Broadcaster,
	increment decimal.Decimal,
	now Clock) *PlaceBidUseCase {

	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if !increment.IsPositive() {
		increment = domain.DefaultBidIncrement
	}
	if now == nil {
		now = time.Now
	}
	return &PlaceBidUseCase{
		store:       store,
		users:       users,
		lifecycle:   lifecycle,
		broadcaster: broadcaster,
		increment:   increment,
		now:         now,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	fields := []zap.Field{
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.Bidder.UserID.String()),
		zap.String("amount", cmd.Amount.String()),
	}

	// 1. input checks, nothing here depends on auction state
	if !cmd.Bidder.Authenticated() {
		return nil, fmt.Errorf("place bid use case: %w: bidder identity required", domain.ErrUnauthorized)
	}
	if err := domain.ValidateAmount("bid amount", cmd.Amount); err != nil {
		log.Warn("PlaceBidUseCase: Invalid bid amount", append(fields, zap.Error(err))...)
		return nil, err
	}
	if err := uc.checkBidder(ctx, cmd.Bidder.UserID); err != nil {
		return nil, err
	}

	// 2. snapshot of the auction; its version guards the commit below
	auction, err := uc.store.GetByID(ctx, cmd.AuctionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("PlaceBidUseCase: Failed to get auction", append(fields, zap.Error(err))...)
		}
		return nil, fmt.Errorf("place bid use case: failed to get auction %s: %w", cmd.AuctionID, err)
	}

	// 3. state check, independent of the scheduler cadence
	now := uc.now()
	if !auction.AcceptingBids(now) {
		if auction.Status == domain.StatusLive && auction.Expired(now) {
			uc.expire(ctx, auction)
			log.Warn("Bid rejected: Auction has ended", fields...)
			return nil, fmt.Errorf("%w: auction %s has ended", domain.ErrInvalidState, auction.ID)
		}
		log.Warn("Bid rejected: Auction not live", append(fields, zap.String("status", string(auction.Status)))...)
		return nil, fmt.Errorf("%w: auction %s is %s", domain.ErrInvalidState, auction.ID, auction.Status)
	}

	// 4. increment rule
	minimum := auction.MinimumBid(uc.increment)
	if cmd.Amount.LessThan(minimum) {
		log.Warn("Bid rejected: Amount too low", append(fields, zap.String("minimum", minimum.String()))...)
		return nil, &domain.BidTooLowError{AuctionID: auction.ID, Amount: cmd.Amount, Minimum: minimum}
	}

	// 5. commit high bid and ledger entry together, against the snapshot version
	bid := domain.NewBid(uuid.New(), auction.ID, cmd.Bidder.UserID, cmd.Amount, now)
	committed, err := uc.store.CompareAndSwap(ctx, auction.WithHighBid(cmd.Amount), auction.Version, bid)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			uc.fillConflict(ctx, conflict)
			log.Warn("Bid rejected: Concurrent update", append(fields, zap.Int64("expectedVersion", conflict.ExpectedVersion))...)
			return nil, conflict
		}
		log.Error("PlaceBidUseCase: Failed to commit bid", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("place bid use case: failed to commit bid for auction %s: %w", cmd.AuctionID, err)
	}

	log.Info("Bid placed successfully",
		append(fields, zap.String("bidID", bid.ID.String()), zap.Int64("version", committed.Version))...)

	// 6. best effort fan-out, the bid is already durable
	event := BidPlacedEvent{
		AuctionID: bid.AuctionID,
		Amount:    bid.Amount,
		BidderID:  bid.BidderID,
		Timestamp: bid.Timestamp,
	}
	if err := uc.broadcaster.BroadcastBid(ctx, event); err != nil {
		log.Error("Bid broadcast failed", append(fields, zap.Error(err))...)
	}

	return bid, nil
}

func (uc *PlaceBidUseCase) checkBidder(ctx context.Context, bidderID uuid.UUID) error {
	if uc.users == nil {
		return nil
	}
	if _, err := uc.users.GetByID(ctx, bidderID); err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return fmt.Errorf("place bid use case: %w: %s", domain.ErrBidderNotFound, bidderID)
		}
		return fmt.Errorf("place bid use case: failed to get bidder %s: %w", bidderID, err)
	}
	return nil
}

// expire closes a LIVE auction whose end time has passed. Losing the race to
// the scheduler or an admin is expected and only logged.
func (uc *PlaceBidUseCase) expire(ctx context.Context, auction *domain.Auction) {
	if uc.lifecycle == nil {
		return
	}
	if _, err := uc.lifecycle.apply(ctx, auction, (*domain.Auction).End, domain.TriggerScheduled); err != nil {
		log.Info("Lazy expiry skipped",
			zap.String("auctionID", auction.ID.String()),
			zap.Error(err),
		)
	}
}

// fillConflict adds the current minimum so the client can resubmit.
func (uc *PlaceBidUseCase) fillConflict(ctx context.Context, conflict *domain.ConflictError) {
	current, err := uc.store.GetByID(ctx, conflict.AuctionID)
	if err != nil {
		return
	}
	minimum := current.MinimumBid(uc.increment)
	conflict.CurrentVersion = current.Version
	conflict.CurrentMinimum = &minimum
}
