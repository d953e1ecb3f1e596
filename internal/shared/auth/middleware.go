package auth

import (
	"strings"

	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/gofiber/fiber/v2"
)

// IdentityLocalsKey is the request local holding the caller identity.
const IdentityLocalsKey = "identity"

// Middleware resolves the bearer token (header, or ?token= for websocket
// handshakes) into an identity stored in the request locals. Requests
// without a token continue as anonymous; a bad token is rejected.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}
		identity, err := v.Parse(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals(IdentityLocalsKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the caller identity, anonymous when absent.
func IdentityFrom(c *fiber.Ctx) userdomain.Identity {
	return IdentityFromValue(c.Locals(IdentityLocalsKey))
}

// IdentityFromValue converts a stored local, e.g. from a websocket conn.
func IdentityFromValue(v interface{}) userdomain.Identity {
	if identity, ok := v.(userdomain.Identity); ok {
		return identity
	}
	return userdomain.Identity{}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return strings.TrimSpace(c.Query("token"))
}
