package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the visit tracker application

// ErrVisitNotFound is returned when a visit ID doesn't exist in the database
var ErrVisitNotFound = errors.New("visit not found")

// ErrDatabaseConnection is returned when database connection fails
var ErrDatabaseConnection = errors.New("database connection failed")

// ErrUnsupportedDriver is returned when database.driver names an unknown driver
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ErrLookupSkipped is returned when no routable address is available for enrichment
var ErrLookupSkipped = errors.New("geolocation lookup skipped")

// ErrLookupRateLimited is returned when the outbound lookup budget is spent
var ErrLookupRateLimited = errors.New("geolocation lookup rate limit reached")

// ErrResetDisabled is returned when the schema reset operation is turned off
var ErrResetDisabled = errors.New("schema reset is disabled")

// ValidationError is returned when a required request field is missing.
// Message is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing %s", e.Field)
}

// NewValidationError builds a ValidationError for a missing field.
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// LookupError is returned when the geolocation collaborator fails for an IP
type LookupError struct {
	IP     string
	Reason string
}

func (e LookupError) Error() string {
	return fmt.Sprintf("geolocation lookup failed for %s: %s", e.IP, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
