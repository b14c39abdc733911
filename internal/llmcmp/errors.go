package llmcmp

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for input rejected locally (empty prompt, no models).
	// It never results in a network call.
	ErrValidation = errors.New("validation failed")

	// ErrAuthExpired means the access credential expired and could not be refreshed.
	// Stored credentials have been cleared when it is returned.
	ErrAuthExpired = errors.New("authorization expired, please sign in again")

	// ErrTransport covers network failures and non-success statuses unrelated to auth.
	ErrTransport = errors.New("transport error")

	// ErrUnauthorized is the signal a protected call returns on a 401/403 answer.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBusy is returned when a turn is submitted while another is in flight.
	ErrBusy = errors.New("a turn is already in flight")

	// ErrAbandoned is returned when the session was reset while a turn was in flight.
	ErrAbandoned = errors.New("session abandoned")
)

// StatusError is a non-success HTTP answer from the comparison service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrTransport) match status errors.
func (e *StatusError) Unwrap() error {
	return ErrTransport
}

// Validationf returns an ErrValidation wrapping a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UserMessage maps an engine error to the message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrAuthExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current responses to arrive."
	default:
		return "Something went wrong."
	}
}
