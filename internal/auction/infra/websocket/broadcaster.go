package websocket

import (
	"context"
	"errors"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/shared/websocket"
)

var ErrBroadcastDropped = errors.New("broadcast queue full, message dropped")

// HubBroadcaster publishes events to the clients connected to this process.
type HubBroadcaster struct {
	hub *websocket.Hub
}

func NewHubBroadcaster(hub *websocket.Hub) *HubBroadcaster {
	return &HubBroadcaster{hub: hub}
}

func (b *HubBroadcaster) BroadcastBid(_ context.Context, event application.BidPlacedEvent) error {
	data, err := EncodeBidPlaced(event)
	if err != nil {
		return err
	}
	return b.send(event.AuctionID.String(), data)
}

func (b *HubBroadcaster) BroadcastStatus(_ context.Context, event application.StatusChangedEvent) error {
	data, err := EncodeStatusChanged(event)
	if err != nil {
		return err
	}
	return b.send(event.AuctionID.String(), data)
}

func (b *HubBroadcaster) send(auctionID string, data []byte) error {
	if !b.hub.BroadcastMessageToAuction(auctionID, data) {
		return ErrBroadcastDropped
	}
	return nil
}
