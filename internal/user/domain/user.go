package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Role is the authorization level carried by an identity.
type Role string

const (
	RoleBidder Role = "BIDDER"
	RoleAdmin  Role = "ADMIN"
)

var ErrUserNotFound = errors.New("user not found")

// User is the slice of a registered account the auction core needs.
type User struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// Identity is the authenticated caller of an operation.
// The zero value is an anonymous caller.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// UserRepository resolves users by id.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
