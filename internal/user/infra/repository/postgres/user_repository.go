package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository for PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID loads a user by id, returning domain.ErrUserNotFound when missing.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, email, role FROM users WHERE id = $1`

	user := &domain.User{}
	var role string
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get %s: %w", id, err)
	}
	user.Role = domain.Role(role)

	return user, nil
}
