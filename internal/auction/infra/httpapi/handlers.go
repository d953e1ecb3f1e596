package httpapi

import (
	"errors"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/auth"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var log = logger.GetLogger()

// Handler exposes the auction service over REST.
type Handler struct {
	service application.AuctionService
}

func NewHandler(service application.AuctionService) *Handler {
	return &Handler{service: service}
}

type placeBidRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type createAuctionRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	StartTime     *time.Time      `json:"startTime"`
	EndTime       *time.Time      `json:"endTime"`
}

// Register mounts the auction routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/auctions", h.listAuctions)
	app.Get("/auctions/:id", h.getAuction)

	bids := app.Group("/bids")
	bids.Post("/:auctionId", h.placeBid)
	bids.Get("/:auctionId", h.listBids)
	bids.Get("/:auctionId/highest", h.highestBid)

	admin := app.Group("/admin/auctions")
	admin.Post("", h.createAuction)
	admin.Put("/:id/start", h.startAuction)
	admin.Put("/:id/end", h.endAuction)
}

func (h *Handler) listAuctions(c *fiber.Ctx) error {
	auctions, err := h.service.ListAuctions(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]application.AuctionDTO, 0, len(auctions))
	for _, a := range auctions {
		dto, err := h.viewAuction(c, a)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, dto)
	}
	return c.JSON(out)
}

func (h *Handler) getAuction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	auction, err := h.service.GetAuction(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.viewAuction(c, auction)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto)
}

// viewAuction maps an auction for the caller, adding their own top bid.
func (h *Handler) viewAuction(c *fiber.Ctx, auction *domain.Auction) (application.AuctionDTO, error) {
	dto := application.NewAuctionDTO(auction, h.service.BidIncrement())
	userBid, err := h.service.UserBid(c.UserContext(), auth.IdentityFrom(c), auction.ID)
	if err != nil {
		return application.AuctionDTO{}, err
	}
	dto.UserBid = userBid
	return dto, nil
}

// placeBid accepts the amount in the JSON body or as ?amount=.
func (h *Handler) placeBid(c *fiber.Ctx) error {
	id, err := parseID(c, "auctionId")
	if err != nil {
		return writeError(c, err)
	}
	amount, err := bidAmount(c)
	if err != nil {
		return writeError(c, err)
	}

	bid, err := h.service.PlaceBid(c.UserContext(), auth.IdentityFrom(c), id, amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(application.NewBidDTO(bid))
}

func (h *Handler) listBids(c *fiber.Ctx) error {
	id, err := parseID(c, "auctionId")
	if err != nil {
		return writeError(c, err)
	}
	bids, err := h.service.ListBids(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]application.BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, application.NewBidDTO(b))
	}
	return c.JSON(out)
}

func (h *Handler) highestBid(c *fiber.Ctx) error {
	id, err := parseID(c, "auctionId")
	if err != nil {
		return writeError(c, err)
	}
	bid, err := h.service.HighestBid(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	if bid == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(application.NewBidDTO(bid))
}

func (h *Handler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, domain.NewValidationError("malformed request body"))
	}
	cmd := application.CreateAuctionDTO{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
	}
	if req.StartTime != nil {
		cmd.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		cmd.EndTime = *req.EndTime
	}

	auction, err := h.service.CreateAuction(c.UserContext(), auth.IdentityFrom(c), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(application.NewAuctionDTO(auction, h.service.BidIncrement()))
}

func (h *Handler) startAuction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	auction, err := h.service.ManualStart(c.UserContext(), auth.IdentityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(application.NewAuctionDTO(auction, h.service.BidIncrement()))
}

func (h *Handler) endAuction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	auction, err := h.service.ManualEnd(c.UserContext(), auth.IdentityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(application.NewAuctionDTO(auction, h.service.BidIncrement()))
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid " + param)
	}
	return id, nil
}

func bidAmount(c *fiber.Ctx) (decimal.Decimal, error) {
	if raw := c.Query("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, domain.NewValidationError("amount is not a number")
		}
		return amount, nil
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		if errors.Is(err, fiber.ErrUnprocessableEntity) {
			return decimal.Zero, domain.NewValidationError("amount is required")
		}
		return decimal.Zero, domain.NewValidationError("malformed request body")
	}
	if req.Amount == nil {
		return decimal.Zero, domain.NewValidationError("amount is required")
	}
	return *req.Amount, nil
}
