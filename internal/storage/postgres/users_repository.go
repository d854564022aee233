package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherhub/server/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateUserParams) (*users.User, error) {
	user := users.User{
		ID:    params.ID,
		Name:  params.Name,
		Email: params.Email,
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO users (id, name, email)
VALUES ($1, $2, $3)
RETURNING created_at
`, user.ID, user.Name, user.Email).Scan(&user.CreatedAt)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}
