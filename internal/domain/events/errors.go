package events

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("user is not registered for this event")
	ErrAlreadyRegistered    = errors.New("user already registered")
	ErrEventFull            = errors.New("event is full")
	ErrEventInPast          = errors.New("cannot register for past event")
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
