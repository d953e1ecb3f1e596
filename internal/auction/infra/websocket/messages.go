package websocket

import (
	"encoding/json"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client msg to make a bid
	MessageTypeServerBidPlaced    MessageType = "bid_placed"           // server msg, a bid was committed
	MessageTypeServerStatus       MessageType = "status_changed"       // server msg, lifecycle transition
	MessageTypeServerBidAccepted  MessageType = "server_bid_accepted"  // server msg to the bidder only
	MessageTypeServerError        MessageType = "server_error"         // server msg indicating error
	MessageTypeServerInitialState MessageType = "server_initial_state" // server msg with auction state on connect
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is sent by a client to bid on the auction it is subscribed to.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// BidPlacedMessage is fanned out to every watcher of the auction.
type BidPlacedMessage struct {
	BaseMessage
	application.BidPlacedEvent
}

// StatusChangedMessage is fanned out after a lifecycle transition.
type StatusChangedMessage struct {
	BaseMessage
	application.StatusChangedEvent
}

type ServerBidAcceptedMessage struct {
	BaseMessage
	Payload application.BidDTO `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error   string           `json:"error"`
		Code    string           `json:"code"`
		Minimum *decimal.Decimal `json:"minimum,omitempty"`
	} `json:"payload"`
}

type ServerInitialStateMessage struct {
	BaseMessage
	Payload application.AuctionDTO `json:"payload"`
}

// EncodeBidPlaced renders the wire form shared by the hub and the redis relay.
func EncodeBidPlaced(event application.BidPlacedEvent) ([]byte, error) {
	return json.Marshal(BidPlacedMessage{
		BaseMessage:    BaseMessage{Type: MessageTypeServerBidPlaced},
		BidPlacedEvent: event,
	})
}

// EncodeStatusChanged renders a lifecycle transition for subscribers.
func EncodeStatusChanged(event application.StatusChangedEvent) ([]byte, error) {
	return json.Marshal(StatusChangedMessage{
		BaseMessage:        BaseMessage{Type: MessageTypeServerStatus},
		StatusChangedEvent: event,
	})
}
