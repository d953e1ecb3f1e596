package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/websocket"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func startHub(t *testing.T) *websocket.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	return hub
}

func next(t *testing.T, c *websocket.Client) map[string]any {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		assert.True(t, ok)
		var msg map[string]any
		assert.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHubBroadcaster(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)
	auctionID := uuid.New()
	client := websocket.NewClient(hub, nil, "watcher", auctionID.String(), userdomain.Identity{})
	hub.RegisterClient(client)

	b := NewHubBroadcaster(hub)
	bidderID := uuid.New()
	assert.NoError(t, b.BroadcastBid(ctx, application.BidPlacedEvent{
		AuctionID: auctionID,
		Amount:    decimal.NewFromInt(1050),
		BidderID:  bidderID,
		Timestamp: t0,
	}))
	assert.NoError(t, b.BroadcastStatus(ctx, application.StatusChangedEvent{
		AuctionID: auctionID,
		From:      domain.StatusLive,
		To:        domain.StatusEnded,
		Trigger:   domain.TriggerScheduled,
		Version:   7,
	}))

	bid := next(t, client)
	check.Equal(t, "bid_placed", bid["type"])
	check.Equal(t, auctionID.String(), bid["auctionId"].(string))
	check.Equal(t, "1050", bid["amount"])
	check.Equal(t, bidderID.String(), bid["bidderId"].(string))
	check.Equal(t, t0.Format(time.RFC3339), bid["timestamp"].(string))

	status := next(t, client)
	check.Equal(t, "status_changed", status["type"])
	check.Equal(t, "LIVE", status["from"])
	check.Equal(t, "ENDED", status["to"])
	check.Equal(t, "scheduled", status["trigger"])
	check.Equal(t, float64(7), status["version"].(float64))
}
