package notification

import (
	"context"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// LogNotifier writes winner notifications to the log. Used when no
// notification transport is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyWinner(_ context.Context, notification application.WinnerNotification) error {
	log.Info("Winner notification",
		zap.String("auctionID", notification.AuctionID.String()),
		zap.String("recipient", notification.Recipient),
		zap.String("auctionTitle", notification.AuctionTitle),
		zap.String("amount", notification.Amount.String()),
	)
	return nil
}
