package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// UserRepository is the read-side principal directory. Account
// management lives in the external identity service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userRepository struct {
	q Querier
}

// NewUserRepository builds repository.
func NewUserRepository(q Querier) UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, name, email, role, created_at FROM users WHERE id=$1`
	var user domain.User
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
