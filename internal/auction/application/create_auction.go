package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO carries the admin input; zero times take the defaults.
type CreateAuctionDTO struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

type CreateAuctionUseCase struct {
	store           domain.AuctionStore
	users           userdomain.UserRepository
	defaultDuration time.Duration
	now             Clock
}

// NewCreateAuctionUseCase builds the use case. A nil users repository skips
// the creator lookup.
func NewCreateAuctionUseCase(store domain.AuctionStore, users userdomain.UserRepository, defaultDuration time.Duration, now Clock) *CreateAuctionUseCase {
	if defaultDuration <= 0 {
		defaultDuration = domain.DefaultAuctionDuration
	}
	if now == nil {
		now = time.Now
	}
	return &CreateAuctionUseCase{store: store, users: users, defaultDuration: defaultDuration, now: now}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, creator userdomain.Identity, cmd CreateAuctionDTO) (*domain.Auction, error) {
	now := uc.now()
	start := cmd.StartTime
	if start.IsZero() {
		start = now
	}
	end := cmd.EndTime
	if end.IsZero() {
		end = start.Add(uc.defaultDuration)
	}

	auction, err := domain.NewAuction(uuid.New(), cmd.Title, cmd.Description, cmd.StartingPrice, start, end, creator.UserID, now)
	if err != nil {
		return nil, err
	}
	if err := uc.checkCreator(ctx, creator.UserID); err != nil {
		log.Warn("CreateAuctionUseCase: Creator lookup failed",
			zap.String("creatorID", creator.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if err := uc.store.Create(ctx, auction); err != nil {
		log.Error("CreateAuctionUseCase: Failed to save auction", zap.Error(err))
		return nil, fmt.Errorf("create auction use case: %w", err)
	}

	log.Info("Auction created",
		zap.String("auctionID", auction.ID.String()),
		zap.String("status", string(auction.Status)),
		zap.Time("startTime", auction.StartTime),
		zap.Time("endTime", auction.EndTime),
	)
	return auction, nil
}

func (uc *CreateAuctionUseCase) checkCreator(ctx context.Context, creatorID uuid.UUID) error {
	if uc.users == nil {
		return nil
	}
	if _, err := uc.users.GetByID(ctx, creatorID); err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return fmt.Errorf("create auction use case: %w: %s", domain.ErrCreatorNotFound, creatorID)
		}
		return fmt.Errorf("create auction use case: failed to get creator %s: %w", creatorID, err)
	}
	return nil
}
