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

// AuctionDTO is the output DTO for exposing auction state to HTTP and WS clients.
type AuctionDTO struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	StartingPrice  decimal.Decimal  `json:"startingPrice"`
	CurrentHighBid *decimal.Decimal `json:"currentHighBid"`
	MinimumBid     *decimal.Decimal `json:"minimumBid,omitempty"`
	UserBid        *decimal.Decimal `json:"userBid,omitempty"`
	Status         string           `json:"status"`
	StartTime      time.Time        `json:"startTime"`
	EndTime        time.Time        `json:"endTime"`
	Version        int64            `json:"version"`
}

// BidDTO is the output DTO of a ledger entry.
type BidDTO struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auctionId"`
	BidderID  uuid.UUID       `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewAuctionDTO maps an auction; the minimum is only set while bids are accepted.
func NewAuctionDTO(a *domain.Auction, increment decimal.Decimal) AuctionDTO {
	dto := AuctionDTO{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		StartingPrice:  a.StartingPrice,
		CurrentHighBid: a.CurrentHighBid,
		Status:         string(a.Status),
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Version:        a.Version,
	}
	if a.Status == domain.StatusLive {
		minimum := a.MinimumBid(increment)
		dto.MinimumBid = &minimum
	}
	return dto
}

func NewBidDTO(b *domain.Bid) BidDTO {
	return BidDTO{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		Timestamp: b.Timestamp,
	}
}

// QueryUseCase serves the read-only views over auctions and their ledger.
type QueryUseCase struct {
	store  domain.AuctionStore
	ledger domain.BidLedger
}

func NewQueryUseCase(store domain.AuctionStore, ledger domain.BidLedger) *QueryUseCase {
	return &QueryUseCase{store: store, ledger: ledger}
}

func (uc *QueryUseCase) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return uc.store.GetByID(ctx, id)
}

// ListOpen returns the auctions that are LIVE or UPCOMING.
func (uc *QueryUseCase) ListOpen(ctx context.Context) ([]*domain.Auction, error) {
	return uc.store.ListByStatus(ctx, domain.StatusLive, domain.StatusUpcoming)
}

// ListBids returns the ledger of an auction, highest amount first.
func (uc *QueryUseCase) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	bids, err := uc.bids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return domain.SortByAmountDesc(bids), nil
}

// HighestBid returns the top bid or nil when the auction has none.
func (uc *QueryUseCase) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	bids, err := uc.bids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return domain.WinningBid(bids), nil
}

// UserBid returns the highest amount the viewer has bid on the auction.
// Anonymous viewers and viewers without bids get nil.
func (uc *QueryUseCase) UserBid(ctx context.Context, viewer userdomain.Identity, auctionID uuid.UUID) (*decimal.Decimal, error) {
	if !viewer.Authenticated() {
		return nil, nil
	}
	amount, err := uc.ledger.HighestByBidder(ctx, auctionID, viewer.UserID)
	if err != nil {
		return nil, fmt.Errorf("query use case: bid of %s on auction %s: %w", viewer.UserID, auctionID, err)
	}
	return amount, nil
}

func (uc *QueryUseCase) bids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	if _, err := uc.store.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := uc.ledger.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("query use case: list bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}
