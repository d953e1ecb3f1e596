package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	// PlaceBid commits a bid for the caller; see PlaceBidUseCase for the rules.
	PlaceBid(ctx context.Context, bidder userdomain.Identity, auctionID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error)

	CreateAuction(ctx context.Context, creator userdomain.Identity, cmd CreateAuctionDTO) (*domain.Auction, error)
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)
	ListAuctions(ctx context.Context) ([]*domain.Auction, error)
	// UserBid is the viewer's own highest bid on an auction, nil when none.
	UserBid(ctx context.Context, viewer userdomain.Identity, auctionID uuid.UUID) (*decimal.Decimal, error)

	// ManualStart and ManualEnd are admin overrides of the scheduler.
	ManualStart(ctx context.Context, admin userdomain.Identity, auctionID uuid.UUID) (*domain.Auction, error)
	ManualEnd(ctx context.Context, admin userdomain.Identity, auctionID uuid.UUID) (*domain.Auction, error)

	// BidIncrement is the configured raise over the current high bid.
	BidIncrement() decimal.Decimal
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	placeBidUC *PlaceBidUseCase
	lifecycle  *LifecycleUseCase
	createUC   *CreateAuctionUseCase
	queryUC    *QueryUseCase
	increment  decimal.Decimal
}

func NewAuctionService(placeBidUC *PlaceBidUseCase, lifecycle *LifecycleUseCase, createUC *CreateAuctionUseCase, queryUC *QueryUseCase) AuctionService {
	return &auctionService{
		placeBidUC: placeBidUC,
		lifecycle:  lifecycle,
		createUC:   createUC,
		queryUC:    queryUC,
		increment:  placeBidUC.increment,
	}
}

func (as *auctionService) PlaceBid(ctx context.Context, bidder userdomain.Identity, auctionID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error) {
	return as.placeBidUC.Execute(ctx, PlaceBidDTO{AuctionID: auctionID, Bidder: bidder, Amount: amount})
}

func (as *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return as.queryUC.ListBids(ctx, auctionID)
}

func (as *auctionService) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	return as.queryUC.HighestBid(ctx, auctionID)
}

func (as *auctionService) CreateAuction(ctx context.Context, creator userdomain.Identity, cmd CreateAuctionDTO) (*domain.Auction, error) {
	if err := requireAdmin(creator); err != nil {
		return nil, err
	}
	return as.createUC.Execute(ctx, creator, cmd)
}

func (as *auctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return as.queryUC.GetAuction(ctx, auctionID)
}

func (as *auctionService) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	return as.queryUC.ListOpen(ctx)
}

func (as *auctionService) UserBid(ctx context.Context, viewer userdomain.Identity, auctionID uuid.UUID) (*decimal.Decimal, error) {
	return as.queryUC.UserBid(ctx, viewer, auctionID)
}

func (as *auctionService) ManualStart(ctx context.Context, admin userdomain.Identity, auctionID uuid.UUID) (*domain.Auction, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return as.lifecycle.Start(ctx, auctionID, domain.TriggerManual)
}

func (as *auctionService) ManualEnd(ctx context.Context, admin userdomain.Identity, auctionID uuid.UUID) (*domain.Auction, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return as.lifecycle.End(ctx, auctionID, domain.TriggerManual)
}

func (as *auctionService) BidIncrement() decimal.Decimal {
	return as.increment
}

func requireAdmin(identity userdomain.Identity) error {
	if !identity.IsAdmin() {
		return fmt.Errorf("%w: admin role required", domain.ErrUnauthorized)
	}
	return nil
}

// Dependencies is everything the auction module needs from the outside.
type Dependencies struct {
	Store           domain.AuctionStore
	Ledger          domain.BidLedger
	Users           userdomain.UserRepository
	Broadcaster     Broadcaster
	Notifier        Notifier
	BidIncrement    decimal.Decimal
	DefaultDuration time.Duration
	SchedulerEvery  time.Duration
	Clock           Clock
}

// Module is the assembled auction core.
type Module struct {
	Service   AuctionService
	Scheduler *Scheduler
	Resolver  *WinnerResolver
}

// NewModule wires the use cases once; the scheduler and the service share
// the same lifecycle path.
func NewModule(deps Dependencies) *Module {
	resolver := NewWinnerResolver(deps.Ledger, deps.Users, deps.Notifier)
	lifecycle := NewLifecycleUseCase(deps.Store, resolver, deps.Broadcaster, deps.Clock)
	placeBid := NewPlaceBidUseCase(deps.Store, deps.Users, lifecycle, deps.Broadcaster, deps.BidIncrement, deps.Clock)
	create := NewCreateAuctionUseCase(deps.Store, deps.Users, deps.DefaultDuration, deps.Clock)
	query := NewQueryUseCase(deps.Store, deps.Ledger)

	return &Module{
		Service:   NewAuctionService(placeBid, lifecycle, create, query),
		Scheduler: NewScheduler(deps.Store, lifecycle, deps.SchedulerEvery, deps.Clock),
		Resolver:  resolver,
	}
}
