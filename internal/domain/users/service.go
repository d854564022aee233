package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/domain/ids"
	"github.com/gatherhub/server/internal/storage"
)

var ErrEmailTaken = errors.New("email already exists")

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// User is an account that can hold event registrations. Users are immutable
// after creation and never deleted through this surface.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"-"`
}

// CreateUserInput is the payload for creating a user.
type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type CreateUserParams struct {
	ID    string
	Name  string
	Email string
}

// Repository is the persistence gateway for users.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
}

// Service handles user creation.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

// Create validates the input and persists a new user. A unique-constraint
// violation on the email column surfaces as ErrEmailTaken.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	if err := s.validate.Struct(input); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return nil, ValidationError{Field: fieldErrors[0].Field(), Message: "is required"}
		}
		return nil, ValidationError{Field: "input", Message: err.Error()}
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateUserParams{
		ID:    id,
		Name:  input.Name,
		Email: input.Email,
	})
	if err != nil {
		var uniqueErr *storage.UniqueViolationError
		if errors.As(err, &uniqueErr) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("user created")
	return user, nil
}
