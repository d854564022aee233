package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatherhub/server/internal/clock"
	"github.com/gatherhub/server/internal/domain/events"
)

// stubEventsRepo implements events.Repository with overridable behavior.
type stubEventsRepo struct {
	createFn       func(params events.CreateEventParams) (*events.Event, error)
	listUpcomingFn func(after time.Time) ([]events.Event, error)
	getFn          func(id string) (*events.Event, error)
	listUsersFn    func(eventID string) ([]events.RegisteredUser, error)
	findRegFn      func(eventID, userID string) (*events.Registration, error)
	countFn        func(eventID string) (int, error)
	createRegFn    func(params events.CreateRegistrationParams) (*events.Registration, error)
	deleteRegFn    func(eventID, userID string) (bool, error)
}

func (s stubEventsRepo) Create(_ context.Context, params events.CreateEventParams) (*events.Event, error) {
	if s.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.createFn(params)
}

func (s stubEventsRepo) ListUpcoming(_ context.Context, after time.Time) ([]events.Event, error) {
	if s.listUpcomingFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.listUpcomingFn(after)
}

func (s stubEventsRepo) GetByID(_ context.Context, id string) (*events.Event, error) {
	if s.getFn == nil {
		return nil, events.ErrNotFound
	}
	return s.getFn(id)
}

func (s stubEventsRepo) GetByIDForUpdate(ctx context.Context, id string) (*events.Event, error) {
	return s.GetByID(ctx, id)
}

func (s stubEventsRepo) ListRegisteredUsers(_ context.Context, eventID string) ([]events.RegisteredUser, error) {
	if s.listUsersFn == nil {
		return nil, nil
	}
	return s.listUsersFn(eventID)
}

func (s stubEventsRepo) FindRegistration(_ context.Context, eventID, userID string) (*events.Registration, error) {
	if s.findRegFn == nil {
		return nil, nil
	}
	return s.findRegFn(eventID, userID)
}

func (s stubEventsRepo) CountRegistrations(_ context.Context, eventID string) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(eventID)
}

func (s stubEventsRepo) CreateRegistration(_ context.Context, params events.CreateRegistrationParams) (*events.Registration, error) {
	if s.createRegFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.createRegFn(params)
}

func (s stubEventsRepo) DeleteRegistration(_ context.Context, eventID, userID string) (bool, error) {
	if s.deleteRegFn == nil {
		return false, nil
	}
	return s.deleteRegFn(eventID, userID)
}

func (s stubEventsRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx events.Repository) error) error {
	return fn(ctx, s)
}

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

const (
	testEventID  = "01J5C8R4Y2M3N4P5Q6R7S8T9V0"
	testUserID   = "01J5C8R4Y2M3N4P5Q6R7S8T9V1"
	testEventID2 = "01J5C8R4Y2M3N4P5Q6R7S8T9V2"
)

func newEventsHandler(repo events.Repository) *EventsHandler {
	return NewEventsHandler(events.NewService(repo, clock.NewFixed(testNow)), "test")
}

func futureEvent(id string) *events.Event {
	return &events.Event{
		ID:       id,
		Title:    "Meetup",
		DateTime: testNow.Add(24 * time.Hour),
		Location: "HQ",
		Capacity: 10,
	}
}

func TestEventsCreate(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		createFn: func(params events.CreateEventParams) (*events.Event, error) {
			return &events.Event{
				ID:       params.ID,
				Title:    params.Title,
				DateTime: params.DateTime,
				Location: params.Location,
				Capacity: params.Capacity,
			}, nil
		},
	})

	body := `{"title":"Meetup","dateTime":"2030-06-01T18:00:00Z","location":"HQ","capacity":10}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Create(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	var payload map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.NotEmpty(t, payload["eventId"])
}

func TestEventsCreateInvalidInput(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{})

	cases := map[string]string{
		"missing title": `{"dateTime":"2030-06-01T18:00:00Z","location":"HQ","capacity":10}`,
		"zero capacity": `{"title":"Meetup","dateTime":"2030-06-01T18:00:00Z","location":"HQ","capacity":0}`,
		"over capacity": `{"title":"Meetup","dateTime":"2030-06-01T18:00:00Z","location":"HQ","capacity":1001}`,
		"bad timestamp": `{"title":"Meetup","dateTime":"soon","location":"HQ","capacity":10}`,
		"not json":      `{`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
			res := httptest.NewRecorder()

			handler.Create(res, req)

			require.Equal(t, http.StatusBadRequest, res.Code)
			require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
		})
	}
}

func TestEventsListUpcoming(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		listUpcomingFn: func(after time.Time) ([]events.Event, error) {
			require.True(t, after.Equal(testNow))
			return []events.Event{*futureEvent(testEventID), *futureEvent(testEventID2)}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/events/upcoming", nil)
	res := httptest.NewRecorder()

	handler.ListUpcoming(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		UpcomingEvents []eventPayload `json:"upcomingEvents"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Len(t, payload.UpcomingEvents, 2)
	require.Equal(t, testEventID, payload.UpcomingEvents[0].ID)
}

func TestEventsGetDetails(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		getFn: func(id string) (*events.Event, error) {
			return futureEvent(id), nil
		},
		listUsersFn: func(eventID string) ([]events.RegisteredUser, error) {
			return []events.RegisteredUser{{ID: testUserID, Name: "Ada", Email: "ada@example.com"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID, nil)
	req.SetPathValue("id", testEventID)
	res := httptest.NewRecorder()

	handler.Get(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		eventPayload
		RegisteredUsers []events.RegisteredUser `json:"registeredUsers"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "Meetup", payload.Title)
	require.Len(t, payload.RegisteredUsers, 1)
	require.Equal(t, "Ada", payload.RegisteredUsers[0].Name)
}

func TestEventsGetNotFound(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{})

	req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID, nil)
	req.SetPathValue("id", testEventID)
	res := httptest.NewRecorder()

	handler.Get(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
}

func registerRequestFor(eventID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/register", strings.NewReader(body))
	req.SetPathValue("id", eventID)
	return req
}

func TestEventsRegister(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		getFn: func(id string) (*events.Event, error) {
			return futureEvent(id), nil
		},
		createRegFn: func(params events.CreateRegistrationParams) (*events.Registration, error) {
			return &events.Registration{ID: params.ID, EventID: params.EventID, UserID: params.UserID}, nil
		},
	})

	res := httptest.NewRecorder()
	handler.Register(res, registerRequestFor(testEventID, `{"userId":"`+testUserID+`"}`))

	require.Equal(t, http.StatusOK, res.Code)
	var payload map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "User registered successfully", payload["message"])
}

func TestEventsRegisterFailureModes(t *testing.T) {
	cases := []struct {
		name   string
		repo   stubEventsRepo
		status int
	}{
		{
			name:   "event not found",
			repo:   stubEventsRepo{},
			status: http.StatusNotFound,
		},
		{
			name: "already registered",
			repo: stubEventsRepo{
				getFn: func(id string) (*events.Event, error) { return futureEvent(id), nil },
				findRegFn: func(eventID, userID string) (*events.Registration, error) {
					return &events.Registration{ID: "r-1", EventID: eventID, UserID: userID}, nil
				},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "event full",
			repo: stubEventsRepo{
				getFn:   func(id string) (*events.Event, error) { return futureEvent(id), nil },
				countFn: func(eventID string) (int, error) { return 10, nil },
			},
			status: http.StatusBadRequest,
		},
		{
			name: "past event",
			repo: stubEventsRepo{
				getFn: func(id string) (*events.Event, error) {
					event := futureEvent(id)
					event.DateTime = testNow.Add(-time.Hour)
					return event, nil
				},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "storage fault",
			repo: stubEventsRepo{
				getFn: func(id string) (*events.Event, error) { return nil, errors.New("connection reset") },
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newEventsHandler(tc.repo)
			res := httptest.NewRecorder()
			handler.Register(res, registerRequestFor(testEventID, `{"userId":"`+testUserID+`"}`))
			require.Equal(t, tc.status, res.Code)
		})
	}
}

func TestEventsRegisterMissingUserID(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{})

	res := httptest.NewRecorder()
	handler.Register(res, registerRequestFor(testEventID, `{}`))

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsCancel(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		deleteRegFn: func(eventID, userID string) (bool, error) { return true, nil },
	})

	req := httptest.NewRequest(http.MethodDelete, "/events/"+testEventID+"/register/"+testUserID, nil)
	req.SetPathValue("id", testEventID)
	req.SetPathValue("userId", testUserID)
	res := httptest.NewRecorder()

	handler.Cancel(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "Registration cancelled successfully", payload["message"])
}

func TestEventsCancelNotRegistered(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{})

	req := httptest.NewRequest(http.MethodDelete, "/events/"+testEventID+"/register/"+testUserID, nil)
	req.SetPathValue("id", testEventID)
	req.SetPathValue("userId", testUserID)
	res := httptest.NewRecorder()

	handler.Cancel(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestEventsStats(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{
		getFn:   func(id string) (*events.Event, error) { return futureEvent(id), nil },
		countFn: func(eventID string) (int, error) { return 3, nil },
	})

	req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID+"/stats", nil)
	req.SetPathValue("id", testEventID)
	res := httptest.NewRecorder()

	handler.Stats(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload statsPayload
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, 3, payload.TotalRegistrations)
	require.Equal(t, 7, payload.RemainingCapacity)
	require.Equal(t, "30.00%", payload.PercentageUsed)
}

func TestEventsMalformedIDIsNotFound(t *testing.T) {
	// The stub fails loudly if any lookup happens: malformed ids must be
	// rejected before the repository is consulted.
	handler := newEventsHandler(stubEventsRepo{
		getFn: func(id string) (*events.Event, error) {
			t.Fatalf("repository consulted for malformed id %q", id)
			return nil, nil
		},
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events/not-a-ulid", nil)
		req.SetPathValue("id", "not-a-ulid")
		res := httptest.NewRecorder()

		handler.Get(res, req)

		require.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("register", func(t *testing.T) {
		res := httptest.NewRecorder()
		handler.Register(res, registerRequestFor("not-a-ulid", `{"userId":"`+testUserID+`"}`))

		require.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("stats", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events/not-a-ulid/stats", nil)
		req.SetPathValue("id", "not-a-ulid")
		res := httptest.NewRecorder()

		handler.Stats(res, req)

		require.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("cancel", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/events/not-a-ulid/register/"+testUserID, nil)
		req.SetPathValue("id", "not-a-ulid")
		req.SetPathValue("userId", testUserID)
		res := httptest.NewRecorder()

		handler.Cancel(res, req)

		require.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestEventsStatsNotFound(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{})

	req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID+"/stats", nil)
	req.SetPathValue("id", testEventID)
	res := httptest.NewRecorder()

	handler.Stats(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
}
