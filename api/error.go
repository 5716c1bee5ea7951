package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
)

// Error is a failed call as the server (or the network) reported it. Status is 0 when
// no response was received.
type Error struct {
	Status  int
	Data    json.RawMessage
	Message string
	cause   error
}

// NewError builds an Error from a non-2xx response body
func NewError(status int, body []byte) *Error {
	e := &Error{Status: status, Message: http.StatusText(status)}
	if len(body) == 0 {
		return e
	}
	if json.Valid(body) {
		e.Data = json.RawMessage(body)
	}

	var payload struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			e.Message = payload.Message
		case payload.ErrorDescription != "":
			e.Message = payload.ErrorDescription
		case payload.Error != "":
			e.Message = payload.Error
		}
	}
	return e
}

// NetworkError wraps a transport failure
func NetworkError(err error) *Error {
	return &Error{Message: err.Error(), cause: err}
}

// Wrap records the underlying failure, reachable through errors.Unwrap
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: network error: %s", e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is classifies the failure onto the request error sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case errors.ErrNetwork:
		return e.Status == 0
	case errors.ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case errors.ErrForbidden:
		return e.Status == http.StatusForbidden
	case errors.ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case errors.ErrServer:
		return e.Status >= http.StatusInternalServerError
	case errors.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// FieldErrors returns per field messages from a validation response. Both
// {"errors":{"email":"taken"}} and {"errors":{"email":["taken"]}} are accepted.
func (e *Error) FieldErrors() map[string][]string {
	fields := map[string][]string{}
	if len(e.Data) == 0 {
		return fields
	}

	var payload struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return fields
	}
	for field, raw := range payload.Errors {
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			fields[field] = many
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			fields[field] = []string{one}
		}
	}
	return fields
}

// Fields returns the names of the fields that failed validation, sorted
func (e *Error) Fields() []string {
	fieldErrors := e.FieldErrors()
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
