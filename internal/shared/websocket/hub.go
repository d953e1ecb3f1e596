package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Capacity of the hub queues and of each client's outbound buffer.
	queueSize      = 256
	SendBufferSize = 64
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients grouped by auction ID.
	clients map[string]map[*Client]bool
	// Outbound messages addressed to an auction room.
	broadcast chan *Message
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister chan *Client
	// InboundMessages is listened to by module-specific handlers (e.g, auction handler)
	InboundMessages chan *ClientMessage
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection. Nil for in-process subscribers.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction room this client is subscribed to.
	AuctionID string
	// Unique identifier for the client
	ID string
	// Identity resolved during the handshake; anonymous clients can only watch.
	Identity userdomain.Identity
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage wraps the client and the data it sent.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, queueSize),
		register:        make(chan *Client, queueSize),
		unregister:      make(chan *Client, queueSize),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, queueSize),
	}
}

// NewClient creates a client bound to an auction room.
func NewClient(hub *Hub, conn *websocket.Conn, id, auctionID string, identity userdomain.Identity) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, SendBufferSize),
		AuctionID: auctionID,
		ID:        id,
		Identity:  identity,
	}
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			for auctionID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, auctionID)
			}
			return
		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.drainRegistrations()
			h.remove(client)

		case message := <-h.broadcast:
			// a client queued before this message must receive it
			h.drainRegistrations()
			clients, ok := h.clients[message.AuctionID]
			if !ok {
				continue
			}
			log.Debug("Broadcasting message to auction", zap.String("auctionID", message.AuctionID), zap.Int("clients", len(clients)))
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					// slow consumer, drop it
					close(client.Send)
					delete(clients, client)
					log.Warn("Failed to Send message to client, unregistering",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
				}
			}
			if len(clients) == 0 {
				delete(h.clients, message.AuctionID)
			}
		}
	}
}

func (h *Hub) add(client *Client) {
	if _, ok := h.clients[client.AuctionID]; !ok {
		h.clients[client.AuctionID] = make(map[*Client]bool)
	}
	h.clients[client.AuctionID][client] = true
	log.Info("Client registered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.Int("total_clients", h.totalClients()),
	)
}

func (h *Hub) drainRegistrations() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
		default:
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.Int("total_clients", h.totalClients()),
	)
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
		log.Debug("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
}

func (h *Hub) totalClients() int {
	count := 0
	for _, auctionClients := range h.clients {
		count += len(auctionClients)
	}
	return count
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
		log.Debug("Client queued for registration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
		log.Debug("Client queued for unregistration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastMessageToAuction queues data for every client subscribed to auctionID.
// It never blocks; it reports false when the message was dropped.
func (h *Hub) BroadcastMessageToAuction(auctionID string, data []byte) bool {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("auctionID", auctionID))
		return true
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("auctionID", auctionID))
		return false
	}
}

// ReadPump reads frames from the websocket and hands them to the hub's
// inbound channel. Run one per client; it returns when the peer goes away.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// It is the only writer to the connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("WritePump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Debug("Failed to send close control message",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
