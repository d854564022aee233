package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherhub/server/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

// EventRepository implements events.Repository on PostgreSQL. It covers both
// events and their registrations since the domain treats them as one unit.
type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateEventParams) (*events.Event, error) {
	event := events.Event{
		ID:       params.ID,
		Title:    params.Title,
		DateTime: params.DateTime.UTC(),
		Location: params.Location,
		Capacity: params.Capacity,
	}

	err := r.queryer().QueryRow(ctx, `
INSERT INTO events (id, title, date_time, location, capacity)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at
`, event.ID, event.Title, event.DateTime, event.Location, event.Capacity).Scan(&event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) ListUpcoming(ctx context.Context, after time.Time) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, title, date_time, location, capacity, created_at
  FROM events
 WHERE date_time > $1
 ORDER BY date_time ASC, location ASC
`, after.UTC())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		var event events.Event
		if err := rows.Scan(&event.ID, &event.Title, &event.DateTime, &event.Location, &event.Capacity, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	return r.getByID(ctx, id, false)
}

func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id string) (*events.Event, error) {
	return r.getByID(ctx, id, true)
}

func (r *EventRepository) getByID(ctx context.Context, id string, forUpdate bool) (*events.Event, error) {
	query := `
SELECT id, title, date_time, location, capacity, created_at
  FROM events
 WHERE id = $1`
	if forUpdate {
		query += `
   FOR UPDATE`
	}

	var event events.Event
	err := r.queryer().QueryRow(ctx, query, id).
		Scan(&event.ID, &event.Title, &event.DateTime, &event.Location, &event.Capacity, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) ListRegisteredUsers(ctx context.Context, eventID string) ([]events.RegisteredUser, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT u.id, u.name, u.email
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = $1
 ORDER BY r.id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	defer rows.Close()

	users := make([]events.RegisteredUser, 0)
	for rows.Next() {
		var user events.RegisteredUser
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("scan registered user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registered users: %w", err)
	}
	return users, nil
}

func (r *EventRepository) FindRegistration(ctx context.Context, eventID, userID string) (*events.Registration, error) {
	var reg events.Registration
	err := r.queryer().QueryRow(ctx, `
SELECT id, event_id, user_id, created_at
  FROM registrations
 WHERE event_id = $1 AND user_id = $2
 ORDER BY id ASC
 LIMIT 1
`, eventID, userID).Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

func (r *EventRepository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.queryer().QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (r *EventRepository) CreateRegistration(ctx context.Context, params events.CreateRegistrationParams) (*events.Registration, error) {
	reg := events.Registration{
		ID:      params.ID,
		EventID: params.EventID,
		UserID:  params.UserID,
	}

	err := r.queryer().QueryRow(ctx, `
INSERT INTO registrations (id, event_id, user_id)
VALUES ($1, $2, $3)
RETURNING created_at
`, reg.ID, reg.EventID, reg.UserID).Scan(&reg.CreatedAt)
	if err != nil {
		// The unique (event_id, user_id) constraint backs up the duplicate
		// check for attempts the row lock did not serialize.
		if isUniqueViolation(err) {
			return nil, events.ErrAlreadyRegistered
		}
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, fmt.Errorf("insert registration: %w", mapped)
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return &reg, nil
}

func (r *EventRepository) DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	// Lowest id goes first: ULIDs order by creation time, so duplicates (if
	// any ever existed) drain oldest-first.
	tag, err := r.queryer().Exec(ctx, `
DELETE FROM registrations
 WHERE id = (
	SELECT id FROM registrations
	 WHERE event_id = $1 AND user_id = $2
	 ORDER BY id ASC
	 LIMIT 1
 )
`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx events.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &EventRepository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
