package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is returned when an authenticated call is attempted without an access token.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSessionExpired is returned when the access token was rejected and could not be refreshed.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")
	// ErrValidationFailed is returned for 400 responses, always through a *ValidationError.
	ErrValidationFailed = errors.New("validation failed")
	// ErrAPI covers every other non-2xx response and transport failures, always through an *APIError.
	ErrAPI = errors.New("api error")
	// ErrInvalidResponse is returned when a successful response does not carry valid JSON.
	ErrInvalidResponse = errors.New("invalid response")
)

// ValidationError carries the first field-level message of a rejected request.
// Field is empty when the server reported a non-field error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// APIError describes a failed request. StatusCode is 0 when no response was received.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(ErrAPI.Error())
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(": status %d", e.StatusCode))
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAPI}
	}
	return []error{ErrAPI, e.Err}
}

// statusError maps a non-2xx response to the error taxonomy.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusBadRequest:
		return parseValidationError(body)
	case http.StatusNotFound:
		if msg := errorMessage(body); msg != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return ErrNotFound
	default:
		msg := errorMessage(body)
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{StatusCode: status, Message: msg}
	}
}

// errorMessage extracts {"error": ...} or {"detail": ...} from a response body.
func errorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Detail
}

// parseValidationError understands the shapes a 400 body may take:
//
//	{"validation_errors": {"name": "failed on rule: required"}}
//	{"name": ["This field is required."]}
//	{"error": "..."} or {"detail": "..."}
//
// When several fields are reported the first one in sorted order wins.
func parseValidationError(body []byte) *ValidationError {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return &ValidationError{Message: http.StatusText(http.StatusBadRequest)}
	}

	if raw, ok := fields["validation_errors"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
			fields = nested
		}
	} else if msg := errorMessage(body); msg != "" {
		return &ValidationError{Message: msg}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		if msg := firstMessage(fields[field]); msg != "" {
			if field == "non_field_errors" {
				field = ""
			}
			return &ValidationError{Field: field, Message: msg}
		}
	}
	return &ValidationError{Message: http.StatusText(http.StatusBadRequest)}
}

func firstMessage(raw json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err == nil && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}
