package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the token payload issued by the external auth service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens and turns them into identities.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs a token for identity. Token issuance belongs to the auth
// service; this exists for local tooling and tests.
func (v *Verifier) Issue(identity userdomain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Parse validates tokenString and returns the identity it carries.
func (v *Verifier) Parse(tokenString string) (userdomain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return userdomain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return userdomain.Identity{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return userdomain.Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	role := userdomain.Role(strings.ToUpper(claims.Role))
	if role != userdomain.RoleAdmin {
		role = userdomain.RoleBidder
	}
	return userdomain.Identity{UserID: userID, Role: role}, nil
}
