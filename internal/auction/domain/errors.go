package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAuctionNotFound     = fmt.Errorf("auction %w", ErrNotFound)
	ErrBidderNotFound      = fmt.Errorf("bidder %w", ErrNotFound)
	ErrCreatorNotFound     = fmt.Errorf("creator %w", ErrNotFound)
	ErrInvalidState        = errors.New("auction is not accepting bids")
	ErrValidation          = errors.New("validation failed")
	ErrBidTooLow           = errors.New("bid amount is too low")
	ErrConcurrencyConflict = errors.New("auction was modified concurrently")
	ErrInvalidTransition   = errors.New("invalid lifecycle transition")
	ErrUnauthorized        = errors.New("unauthorized")
)

// ValidationError describes a rejected input.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// BidTooLowError carries the minimum the client has to beat.
type BidTooLowError struct {
	AuctionID uuid.UUID
	Amount    decimal.Decimal
	Minimum   decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: bid %s for auction %s, minimum is %s",
		ErrBidTooLow, e.Amount, e.AuctionID, e.Minimum)
}

// Is matches both ErrBidTooLow and the broader ErrValidation.
func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow || target == ErrValidation
}

// ConflictError is returned when a version-checked write loses a race.
// The caller may re-read and retry; CurrentMinimum is filled when known.
type ConflictError struct {
	AuctionID       uuid.UUID
	ExpectedVersion int64
	CurrentVersion  int64
	CurrentMinimum  *decimal.Decimal
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: auction %s expected version %d, current version %d",
		ErrConcurrencyConflict, e.AuctionID, e.ExpectedVersion, e.CurrentVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }

// ErrorCode is a stable, client-facing name for an error kind.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidState      ErrorCode = "invalid_state"
	CodeBidTooLow         ErrorCode = "bid_too_low"
	CodeValidation        ErrorCode = "validation_error"
	CodeConflict          ErrorCode = "concurrency_conflict"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeInternal          ErrorCode = "internal_error"
)

// CodeOf classifies err into the taxonomy above.
func CodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrBidTooLow):
		return CodeBidTooLow
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConcurrencyConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
