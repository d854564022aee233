package events

import (
	"context"
	"time"
)

// Event is a bookable event. Events are immutable after creation; there is
// no update or delete operation on this surface.
type Event struct {
	ID        string
	Title     string
	DateTime  time.Time
	Location  string
	Capacity  int
	CreatedAt time.Time
}

// Registration links one user to one seat at one event.
type Registration struct {
	ID        string
	EventID   string
	UserID    string
	CreatedAt time.Time
}

// RegisteredUser is the projection of a user attached to an event's details.
type RegisteredUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Details bundles an event with its registered users.
type Details struct {
	Event           Event
	RegisteredUsers []RegisteredUser
}

// Stats summarises capacity usage for a single event.
type Stats struct {
	EventID            string
	Title              string
	TotalRegistrations int
	RemainingCapacity  int
	PercentageUsed     string
}

type CreateEventParams struct {
	ID       string
	Title    string
	DateTime time.Time
	Location string
	Capacity int
}

type CreateRegistrationParams struct {
	ID      string
	EventID string
	UserID  string
}

// Repository is the persistence gateway for events and registrations.
type Repository interface {
	Create(ctx context.Context, params CreateEventParams) (*Event, error)

	// ListUpcoming returns events strictly after the given instant, ordered
	// by date_time ascending then location ascending.
	ListUpcoming(ctx context.Context, after time.Time) ([]Event, error)

	// GetByID returns ErrNotFound when no event exists.
	GetByID(ctx context.Context, id string) (*Event, error)

	// GetByIDForUpdate behaves like GetByID but, inside a transaction,
	// holds a row lock on the event until the transaction resolves.
	GetByIDForUpdate(ctx context.Context, id string) (*Event, error)

	// ListRegisteredUsers returns the users registered for an event in
	// registration insertion order.
	ListRegisteredUsers(ctx context.Context, eventID string) ([]RegisteredUser, error)

	// FindRegistration returns (nil, nil) when no registration exists.
	FindRegistration(ctx context.Context, eventID, userID string) (*Registration, error)

	CountRegistrations(ctx context.Context, eventID string) (int, error)

	CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*Registration, error)

	// DeleteRegistration removes exactly one registration for the pair,
	// the one with the lowest id. Returns false when none existed.
	DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error)

	// WithTx runs fn against a transactional view of the repository.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}
