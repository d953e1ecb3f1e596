package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"go.uber.org/zap"
)

// WinnerResolver designates the winner of an auction that has just ended.
// Callers must only invoke it after their own CAS committed the ENDED status.
type WinnerResolver struct {
	ledger   domain.BidLedger
	users    userdomain.UserRepository
	notifier Notifier
}

func NewWinnerResolver(ledger domain.BidLedger, users userdomain.UserRepository, notifier Notifier) *WinnerResolver {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &WinnerResolver{ledger: ledger, users: users, notifier: notifier}
}

// Resolve picks the highest bid of the ended auction and notifies its bidder.
// A nil result means the auction closed without bids. Notification failures
// are logged and do not turn into an error.
func (r *WinnerResolver) Resolve(ctx context.Context, auction *domain.Auction) (*WinnerDetermined, error) {
	bids, err := r.ledger.ListByAuction(ctx, auction.ID)
	if err != nil {
		return nil, fmt.Errorf("winner resolver: list bids for auction %s: %w", auction.ID, err)
	}

	best := domain.WinningBid(bids)
	if best == nil {
		log.Info("Auction ended without bids", zap.String("auctionID", auction.ID.String()))
		return nil, nil
	}

	winner := &WinnerDetermined{
		AuctionID: auction.ID,
		BidderID:  best.BidderID,
		Amount:    best.Amount,
		Title:     auction.DisplayTitle(),
	}
	log.Info("Winner determined",
		zap.String("auctionID", auction.ID.String()),
		zap.String("bidderID", best.BidderID.String()),
		zap.String("amount", best.Amount.String()),
	)

	notification := WinnerNotification{
		AuctionID:    auction.ID,
		Recipient:    r.recipient(ctx, winner),
		AuctionTitle: winner.Title,
		Amount:       winner.Amount,
	}
	if err := r.notifier.NotifyWinner(ctx, notification); err != nil {
		log.Error("Winner notification failed",
			zap.String("auctionID", auction.ID.String()),
			zap.String("recipient", notification.Recipient),
			zap.Error(err),
		)
	}
	return winner, nil
}

// recipient resolves the winner's address, falling back to the bidder id.
func (r *WinnerResolver) recipient(ctx context.Context, winner *WinnerDetermined) string {
	if r.users == nil {
		return winner.BidderID.String()
	}
	user, err := r.users.GetByID(ctx, winner.BidderID)
	if err != nil {
		if !errors.Is(err, userdomain.ErrUserNotFound) {
			log.Warn("Winner lookup failed, notifying by id",
				zap.String("bidderID", winner.BidderID.String()),
				zap.Error(err),
			)
		}
		return winner.BidderID.String()
	}
	if user.Email == "" {
		return winner.BidderID.String()
	}
	return user.Email
}
