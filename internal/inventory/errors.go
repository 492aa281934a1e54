package inventory

import (
	"errors"
	"fmt"

	"github.com/netbox-mcp/internal/netbox"
)

// NotFoundError means a single-entity lookup by exact identifier found nothing.
type NotFoundError struct {
	Kind       string // "Device", "Circuit", ...
	Field      string // "name", "CID", "ID"
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s '%s' not found", e.Kind, e.Field, e.Identifier)
}

// UpstreamRejectedError means the API refused a filter value as not one of
// its enumerated choices.
type UpstreamRejectedError struct {
	Op    string
	Field string // may be empty when the API did not say which field
	Err   error
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *UpstreamRejectedError) Unwrap() error { return e.Err }

// TransportError is any other failure talking to the API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// classify wraps a client error into the taxonomy above.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var apiErr *netbox.APIError
	if errors.As(err, &apiErr) {
		if field, ok := apiErr.InvalidChoice(); ok {
			return &UpstreamRejectedError{Op: op, Field: field, Err: err}
		}
	}
	return &TransportError{Op: op, Err: err}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
