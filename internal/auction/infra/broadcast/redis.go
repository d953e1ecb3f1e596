package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	auctionws "github.com/cristianortiz/auctionBidder/internal/auction/infra/websocket"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/cristianortiz/auctionBidder/internal/shared/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// RedisBroadcaster publishes auction events on "<prefix>:<auctionID>" so
// every instance's Relay can deliver them to its own websocket clients.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
}

func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

func (b *RedisBroadcaster) BroadcastBid(ctx context.Context, event application.BidPlacedEvent) error {
	data, err := auctionws.EncodeBidPlaced(event)
	if err != nil {
		return fmt.Errorf("failed to marshal bid event: %w", err)
	}
	return b.publish(ctx, event.AuctionID.String(), data)
}

func (b *RedisBroadcaster) BroadcastStatus(ctx context.Context, event application.StatusChangedEvent) error {
	data, err := auctionws.EncodeStatusChanged(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}
	return b.publish(ctx, event.AuctionID.String(), data)
}

func (b *RedisBroadcaster) publish(ctx context.Context, auctionID string, data []byte) error {
	return b.client.Publish(ctx, channelName(b.prefix, auctionID), data).Err()
}

// Relay forwards every message published under prefix to the local hub.
type Relay struct {
	client *redis.Client
	prefix string
	hub    *websocket.Hub
}

func NewRelay(client *redis.Client, prefix string, hub *websocket.Hub) *Relay {
	return &Relay{client: client, prefix: prefix, hub: hub}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+":*")
	defer pubsub.Close()

	log.Info("Redis relay subscribed", zap.String("pattern", r.prefix+":*"))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			auctionID := auctionIDFromChannel(r.prefix, msg.Channel)
			if auctionID == "" {
				log.Warn("Redis relay ignored message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			r.hub.BroadcastMessageToAuction(auctionID, []byte(msg.Payload))
		}
	}
}

func channelName(prefix, auctionID string) string {
	return prefix + ":" + auctionID
}

// auctionIDFromChannel turns "auction_events:<id>" into "<id>".
func auctionIDFromChannel(prefix, channel string) string {
	id, ok := strings.CutPrefix(channel, prefix+":")
	if !ok {
		return ""
	}
	return id
}
