package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrCategoryRequired is returned when neither a listed nor a custom category resolves.
	ErrCategoryRequired = errors.New("please choose a business category")

	// ErrInvalidEmail is returned when the contact email is not a valid address.
	ErrInvalidEmail = errors.New("a valid email address is required")

	// ErrBusinessNameRequired is returned when the business name is blank.
	ErrBusinessNameRequired = errors.New("business name is required")

	// ErrLeadNotFound is returned when a lead is not found, or when the
	// id/token pair does not match.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrDuplicateToken signals an access token collision on insert.
	ErrDuplicateToken = errors.New("access token already in use")

	// ErrStore wraps any failure from the backing store.
	ErrStore = errors.New("lead store unavailable")

	errMissingToken = errors.New("access token required")
)

// ValidationError collects the field problems found in an intake submission.
type ValidationError struct {
	Fields map[string]error
}

func (e *ValidationError) Error() string {
	for _, key := range []string{"email", "business_name", "category"} {
		if err, ok := e.Fields[key]; ok {
			return err.Error()
		}
	}
	return "invalid submission"
}

// Unwrap exposes the individual field errors to errors.Is.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Fields))
	for _, err := range e.Fields {
		out = append(out, err)
	}
	return out
}

// Messages flattens the field errors for JSON responses.
func (e *ValidationError) Messages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for key, err := range e.Fields {
		out[key] = err.Error()
	}
	return out
}

func storeError(op string, err error) error {
	return fmt.Errorf("leads: %s: %w: %w", op, ErrStore, err)
}
