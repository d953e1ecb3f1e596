package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus represents the lifecycle state of an auction.
// The ordering UPCOMING < LIVE < ENDED is the only direction a status moves.
type AuctionStatus string

const (
	StatusUpcoming AuctionStatus = "UPCOMING"
	StatusLive     AuctionStatus = "LIVE"
	StatusEnded    AuctionStatus = "ENDED"
)

// DefaultBidIncrement is the minimum raise over the current high bid.
var DefaultBidIncrement = decimal.NewFromInt(100)

// AmountScale is the number of fractional digits a money amount may carry.
// It matches the NUMERIC(18, 2) columns, so no driver rounds silently.
const AmountScale = 2

// maxAmount is the first value NUMERIC(18, 2) can no longer hold.
var maxAmount = decimal.New(1, 16)

// ValidateAmount rejects amounts that are not positive or that the store
// cannot represent exactly. field names the input in the error.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError(field + " must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return NewValidationError(fmt.Sprintf("%s must have at most %d decimal places", field, AmountScale))
	}
	if !amount.LessThan(maxAmount) {
		return NewValidationError(field + " is too large")
	}
	return nil
}

// DefaultAuctionDuration is used when an auction is created without end time.
const DefaultAuctionDuration = 24 * time.Hour

// rank orders statuses so regressions can be detected.
func (s AuctionStatus) rank() int {
	switch s {
	case StatusUpcoming:
		return 1
	case StatusLive:
		return 2
	case StatusEnded:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s AuctionStatus) Valid() bool {
	return s.rank() > 0
}

// Before reports whether s comes strictly before other in the lifecycle.
func (s AuctionStatus) Before(other AuctionStatus) bool {
	return s.rank() < other.rank()
}

// ParseAuctionStatus converts a stored value into an AuctionStatus.
func ParseAuctionStatus(raw string) (AuctionStatus, error) {
	s := AuctionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrValidation
	}
	return s, nil
}

// Auction is the versioned record every writer competes on.
// Values are treated as snapshots: methods that change state return a copy
// and the store is the only place a new version becomes visible.
type Auction struct {
	ID             uuid.UUID
	Title          string
	Description    string
	StartingPrice  decimal.Decimal
	CurrentHighBid *decimal.Decimal // nil until the first accepted bid
	Status         AuctionStatus
	StartTime      time.Time
	EndTime        time.Time
	CreatedBy      uuid.UUID
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAuction builds an auction at version 1. A zero startTime means now and a
// zero endTime means startTime plus DefaultAuctionDuration. The initial status
// is LIVE when the start time is not in the future.
func NewAuction(id uuid.UUID, title, description string, startingPrice decimal.Decimal,
	startTime, endTime time.Time, createdBy uuid.UUID, now time.Time) (*Auction, error) {

	if err := ValidateAmount("starting price", startingPrice); err != nil {
		return nil, err
	}
	if startTime.IsZero() {
		startTime = now
	}
	if endTime.IsZero() {
		endTime = startTime.Add(DefaultAuctionDuration)
	}
	if !endTime.After(startTime) {
		return nil, NewValidationError("end time must be after start time")
	}

	status := StatusUpcoming
	if !startTime.After(now) {
		status = StatusLive
	}

	return &Auction{
		ID:            id,
		Title:         strings.TrimSpace(title),
		Description:   description,
		StartingPrice: startingPrice,
		Status:        status,
		StartTime:     startTime,
		EndTime:       endTime,
		CreatedBy:     createdBy,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Clone returns a deep copy safe to modify without touching the snapshot.
func (a *Auction) Clone() *Auction {
	c := *a
	if a.CurrentHighBid != nil {
		hb := *a.CurrentHighBid
		c.CurrentHighBid = &hb
	}
	return &c
}

// MinimumBid is the smallest amount the next bid may carry.
func (a *Auction) MinimumBid(increment decimal.Decimal) decimal.Decimal {
	if a.CurrentHighBid == nil {
		return a.StartingPrice
	}
	return a.CurrentHighBid.Add(increment)
}

// Expired reports whether the end time has been reached at now.
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// AcceptingBids reports whether a bid may be committed at now.
func (a *Auction) AcceptingBids(now time.Time) bool {
	return a.Status == StatusLive && !a.Expired(now)
}

// WithHighBid returns a copy carrying amount as the new high bid.
func (a *Auction) WithHighBid(amount decimal.Decimal) *Auction {
	next := a.Clone()
	next.CurrentHighBid = &amount
	return next
}

// DisplayTitle falls back to a generated title for untitled auctions.
func (a *Auction) DisplayTitle() string {
	if strings.TrimSpace(a.Title) != "" {
		return a.Title
	}
	return "Auction #" + a.ID.String()
}
