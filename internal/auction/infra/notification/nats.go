package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSNotifier publishes winner notifications on "<subject>.<auctionID>"
// for a downstream delivery service (mail, push).
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("auction-bidder"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

func (n *NATSNotifier) NotifyWinner(_ context.Context, notification application.WinnerNotification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal winner notification: %w", err)
	}
	subject := n.subject + "." + notification.AuctionID.String()
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish winner notification to %s: %w", subject, err)
	}
	log.Info("Winner notification published",
		zap.String("subject", subject),
		zap.String("recipient", notification.Recipient),
	)
	return nil
}

// Close flushes pending publishes.
func (n *NATSNotifier) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
