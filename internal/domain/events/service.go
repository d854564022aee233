package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gatherhub/server/internal/clock"
	"github.com/gatherhub/server/internal/domain/ids"
)

// CreateEventInput is the payload for creating a new event.
type CreateEventInput struct {
	Title    string `json:"title" validate:"required"`
	DateTime string `json:"dateTime" validate:"required"`
	Location string `json:"location" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=1000"`
}

// Service orchestrates event lifecycle and registration operations.
type Service struct {
	repo     Repository
	clock    clock.Clock
	validate *validator.Validate
}

func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{
		repo:     repo,
		clock:    clk,
		validate: validator.New(),
	}
}

// Create validates the input and persists a new event.
func (s *Service) Create(ctx context.Context, input CreateEventInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}

	dateTime, err := time.Parse(time.RFC3339, input.DateTime)
	if err != nil {
		return nil, ValidationError{Field: "dateTime", Message: "must be an RFC 3339 timestamp"}
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	return s.repo.Create(ctx, CreateEventParams{
		ID:       id,
		Title:    input.Title,
		DateTime: dateTime,
		Location: input.Location,
		Capacity: input.Capacity,
	})
}

// ListUpcoming returns all events strictly after the current instant,
// ordered by dateTime then location.
func (s *Service) ListUpcoming(ctx context.Context) ([]Event, error) {
	return s.repo.ListUpcoming(ctx, s.clock.Now())
}

// GetDetails returns an event with its registered users.
func (s *Service) GetDetails(ctx context.Context, eventID string) (*Details, error) {
	if ids.ValidateULID(eventID) != nil {
		return nil, ErrNotFound
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	users, err := s.repo.ListRegisteredUsers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &Details{Event: *event, RegisteredUsers: users}, nil
}

// Register creates a registration for (eventID, userID). The checks run in a
// fixed order so each failure mode surfaces distinctly: event existence,
// duplicate registration, capacity, past event. The whole sequence holds a
// row lock on the event so concurrent attempts cannot overbook.
func (s *Service) Register(ctx context.Context, eventID, userID string) (*Registration, error) {
	// A malformed id can never name an existing event, so it short-circuits
	// to the same outcome a lookup would reach.
	if ids.ValidateULID(eventID) != nil {
		return nil, ErrNotFound
	}

	now := s.clock.Now()

	var registration *Registration
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		event, err := tx.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		existing, err := tx.FindRegistration(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}

		count, err := tx.CountRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		if count >= event.Capacity {
			return ErrEventFull
		}

		if event.DateTime.Before(now) {
			return ErrEventInPast
		}

		id, err := ids.NewULID()
		if err != nil {
			return fmt.Errorf("generate registration id: %w", err)
		}

		registration, err = tx.CreateRegistration(ctx, CreateRegistrationParams{
			ID:      id,
			EventID: eventID,
			UserID:  userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return registration, nil
}

// Cancel deletes one registration for (eventID, userID). When duplicates
// exist the one with the lowest id goes first, so repeated cancels drain
// them oldest-first.
func (s *Service) Cancel(ctx context.Context, eventID, userID string) error {
	if ids.ValidateULID(eventID) != nil {
		return ErrRegistrationNotFound
	}

	deleted, err := s.repo.DeleteRegistration(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrRegistrationNotFound
	}
	return nil
}

// Stats returns capacity usage for an event. remainingCapacity can go
// negative if an event was ever overbooked.
func (s *Service) Stats(ctx context.Context, eventID string) (*Stats, error) {
	if ids.ValidateULID(eventID) != nil {
		return nil, ErrNotFound
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}

	percentage := float64(total) / float64(event.Capacity) * 100
	return &Stats{
		EventID:            event.ID,
		Title:              event.Title,
		TotalRegistrations: total,
		RemainingCapacity:  event.Capacity - total,
		PercentageUsed:     fmt.Sprintf("%.2f%%", percentage),
	}, nil
}

func asValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		switch fe.Tag() {
		case "required":
			return ValidationError{Field: fe.Field(), Message: "is required"}
		case "gt":
			return ValidationError{Field: fe.Field(), Message: "must be greater than " + fe.Param()}
		case "lte":
			return ValidationError{Field: fe.Field(), Message: "must be at most " + fe.Param()}
		}
		return ValidationError{Field: fe.Field(), Message: "is invalid"}
	}
	return ValidationError{Message: err.Error()}
}
