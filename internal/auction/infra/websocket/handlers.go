package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/auth"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/cristianortiz/auctionBidder/internal/shared/websocket"
	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	ctx            context.Context
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler. ctx bounds
// the lifetime of every connection it accepts.
func NewAuctionWSHandler(ctx context.Context, auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		ctx:            ctx,
		auctionService: auctionService,
		hub:            hub,
	}
}

// Register mounts GET /ws/auctions/:id. The auth middleware must run first
// so the handshake carries the caller identity.
func (h *AuctionWSHandler) Register(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/auctions/:id", func(c *fiber.Ctx) error {
		auctionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
		}
		auction, err := h.auctionService.GetAuction(c.UserContext(), auctionID)
		if err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, domain.ErrNotFound) {
				status = fiber.StatusNotFound
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals("auction", auction)
		return c.Next()
	}, fiberws.New(h.serve))
}

// serve runs for the lifetime of one websocket connection.
func (h *AuctionWSHandler) serve(conn *fiberws.Conn) {
	auction, _ := conn.Locals("auction").(*domain.Auction)
	if auction == nil {
		return
	}
	identity := auth.IdentityFromValue(conn.Locals(auth.IdentityLocalsKey))
	client := websocket.NewClient(h.hub, conn, uuid.NewString(), auction.ID.String(), identity)

	if data, err := json.Marshal(h.initialState(h.ctx, auction, identity)); err == nil {
		client.Send <- data
	}

	h.hub.RegisterClient(client)
	go client.WritePump(h.ctx)
	client.ReadPump(h.ctx)
}

// initialState is the snapshot a client gets on connect, including its own
// top bid. A failed lookup of that bid only drops the field.
func (h *AuctionWSHandler) initialState(ctx context.Context, auction *domain.Auction, viewer userdomain.Identity) ServerInitialStateMessage {
	dto := application.NewAuctionDTO(auction, h.auctionService.BidIncrement())
	userBid, err := h.auctionService.UserBid(ctx, viewer, auction.ID)
	if err != nil {
		log.Warn("AuctionWSHandler: Failed to load viewer bid",
			zap.String("auctionID", auction.ID.String()),
			zap.Error(err),
		)
	}
	dto.UserBid = userBid
	return ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     dto,
	}
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, domain.NewValidationError("invalid message format"))
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, domain.NewValidationError("unknown message type"))
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, domain.NewValidationError("invalid bid message format"))
		return
	}

	auctionID, err := uuid.Parse(client.AuctionID)
	if err != nil {
		h.sendErrorToClient(client, domain.NewValidationError("invalid auction id"))
		return
	}

	// the committed bid reaches every watcher through the broadcaster,
	// the bidder additionally gets an acknowledgement
	bid, err := h.auctionService.PlaceBid(ctx, client.Identity, auctionID, bidMsg.Payload.Amount)
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}

	ack := ServerBidAcceptedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerBidAccepted},
		Payload:     application.NewBidDTO(bid),
	}
	h.sendToClient(client, ack)
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, cause error) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerError},
	}
	errMsg.Payload.Error = cause.Error()
	errMsg.Payload.Code = string(domain.CodeOf(cause))

	var tooLow *domain.BidTooLowError
	var conflict *domain.ConflictError
	switch {
	case errors.As(cause, &tooLow):
		errMsg.Payload.Minimum = &tooLow.Minimum
	case errors.As(cause, &conflict):
		errMsg.Payload.Minimum = conflict.CurrentMinimum
	}
	h.sendToClient(client, errMsg)
}

func (h *AuctionWSHandler) sendToClient(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ws message", zap.Error(err))
		return
	}
	defer func() {
		// Send may have been closed by the hub meanwhile
		if recover() != nil {
			log.Debug("client send channel closed, message discarded", zap.String("clientID", client.ID))
		}
	}()
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, could not send msg", zap.String("clientID", client.ID))
	}
}
