package httpapi

import (
	"errors"

	"github.com/cristianortiz/auctionBidder/internal/auction/domain"
	"github.com/cristianortiz/auctionBidder/internal/shared/auth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error          string      `json:"error"`
	Code           string      `json:"code"`
	Minimum        interface{} `json:"minimum,omitempty"`
	CurrentVersion *int64      `json:"currentVersion,omitempty"`
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeInvalidState, domain.CodeConflict:
		return fiber.StatusConflict
	case domain.CodeValidation, domain.CodeBidTooLow, domain.CodeInvalidTransition:
		return fiber.StatusBadRequest
	case domain.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as JSON. An authenticated caller lacking the
// required role gets 403 instead of 401.
func writeError(c *fiber.Ctx, err error) error {
	code := domain.CodeOf(err)
	status := statusFor(code)
	if code == domain.CodeUnauthorized && auth.IdentityFrom(c).Authenticated() {
		status = fiber.StatusForbidden
	}

	resp := errorResponse{Error: err.Error(), Code: string(code)}
	var tooLow *domain.BidTooLowError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &tooLow):
		resp.Minimum = tooLow.Minimum
	case errors.As(err, &conflict):
		current := conflict.CurrentVersion
		resp.CurrentVersion = &current
		if conflict.CurrentMinimum != nil {
			resp.Minimum = *conflict.CurrentMinimum
		}
	}

	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		resp.Error = "internal server error"
	}
	return c.Status(status).JSON(resp)
}
