package application

import (
	"context"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Clock returns the current instant; swapped in tests.
type Clock func() time.Time

// BidPlacedEvent is published to every watcher of an auction after a commit.
type BidPlacedEvent struct {
	AuctionID uuid.UUID       `json:"auctionId"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  uuid.UUID       `json:"bidderId"`
	Timestamp time.Time       `json:"timestamp"`
}

// StatusChangedEvent is published after a committed lifecycle transition.
type StatusChangedEvent struct {
	AuctionID uuid.UUID            `json:"auctionId"`
	From      domain.AuctionStatus `json:"from"`
	To        domain.AuctionStatus `json:"to"`
	Trigger   domain.Trigger       `json:"trigger"`
	Version   int64                `json:"version"`
}

// Broadcaster fans events out to real-time subscribers. Best effort.
type Broadcaster interface {
	BroadcastBid(ctx context.Context, event BidPlacedEvent) error
	BroadcastStatus(ctx context.Context, event StatusChangedEvent) error
}

// WinnerDetermined is the outcome of resolving an ended auction.
type WinnerDetermined struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Title     string
}

// WinnerNotification is what the notification transport delivers.
type WinnerNotification struct {
	AuctionID    uuid.UUID       `json:"auctionId"`
	Recipient    string          `json:"recipient"`
	AuctionTitle string          `json:"auctionTitle"`
	Amount       decimal.Decimal `json:"amount"`
}

// Notifier delivers winner notifications. Best effort.
type Notifier interface {
	NotifyWinner(ctx context.Context, notification WinnerNotification) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastBid(context.Context, BidPlacedEvent) error         { return nil }
func (nopBroadcaster) BroadcastStatus(context.Context, StatusChangedEvent) error { return nil }

type nopNotifier struct{}

func (nopNotifier) NotifyWinner(context.Context, WinnerNotification) error { return nil }
