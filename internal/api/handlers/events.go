package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatherhub/server/internal/api/problem"
	"github.com/gatherhub/server/internal/domain/events"
	"github.com/gatherhub/server/internal/metrics"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	DateTime string `json:"dateTime"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
}

func toEventPayload(event events.Event) eventPayload {
	return eventPayload{
		ID:       event.ID,
		Title:    event.Title,
		DateTime: event.DateTime.UTC().Format(time.RFC3339),
		Location: event.Location,
		Capacity: event.Capacity,
	}
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input events.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), input)
	if err != nil {
		var validationErr events.ValidationError
		if errors.As(err, &validationErr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event input", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"eventId": event.ID})
}

func (h *EventsHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.Service.ListUpcoming(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]eventPayload, 0, len(upcoming))
	for _, event := range upcoming {
		items = append(items, toEventPayload(event))
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcomingEvents": items})
}

type eventDetailsPayload struct {
	eventPayload
	RegisteredUsers []events.RegisteredUser `json:"registeredUsers"`
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(pathParam(r, "id"))

	details, err := h.Service.GetDetails(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, eventDetailsPayload{
		eventPayload:    toEventPayload(details.Event),
		RegisteredUsers: details.RegisteredUsers,
	})
}

type registerRequest struct {
	UserID string `json:"userId"`
}

func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(pathParam(r, "id"))

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.ValidationError{Field: "userId", Message: "is required"}, h.Env)
		return
	}

	_, err := h.Service.Register(r.Context(), eventID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			metrics.RegistrationsTotal.WithLabelValues("not_found").Inc()
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
		case errors.Is(err, events.ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("already_registered").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "User already registered", err, h.Env)
		case errors.Is(err, events.ErrEventFull):
			metrics.RegistrationsTotal.WithLabelValues("event_full").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Event is full", err, h.Env)
		case errors.Is(err, events.ErrEventInPast):
			metrics.RegistrationsTotal.WithLabelValues("past_event").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Cannot register for past event", err, h.Env)
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (h *EventsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(pathParam(r, "id"))
	userID := strings.TrimSpace(pathParam(r, "userId"))

	if err := h.Service.Cancel(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, events.ErrRegistrationNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User is not registered for this event", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Registration cancelled successfully"})
}

type statsPayload struct {
	EventID            string `json:"eventId"`
	Title              string `json:"title"`
	TotalRegistrations int    `json:"totalRegistrations"`
	RemainingCapacity  int    `json:"remainingCapacity"`
	PercentageUsed     string `json:"percentageUsed"`
}

func (h *EventsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(pathParam(r, "id"))

	stats, err := h.Service.Stats(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, statsPayload{
		EventID:            stats.EventID,
		Title:              stats.Title,
		TotalRegistrations: stats.TotalRegistrations,
		RemainingCapacity:  stats.RemainingCapacity,
		PercentageUsed:     stats.PercentageUsed,
	})
}
