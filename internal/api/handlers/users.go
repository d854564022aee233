package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherhub/server/internal/api/problem"
	"github.com/gatherhub/server/internal/domain/users"
)

type UsersHandler struct {
	Service *users.Service
	Env     string
}

func NewUsersHandler(service *users.Service, env string) *UsersHandler {
	return &UsersHandler{Service: service, Env: env}
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input users.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	user, err := h.Service.Create(r.Context(), input)
	if err != nil {
		var validationErr users.ValidationError
		switch {
		case errors.As(err, &validationErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Name and email are required", err, h.Env)
		case errors.Is(err, users.ErrEmailTaken):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email already exists", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]*users.User{"user": user})
}
