// ABOUTME: Tagged error variant produced at the network boundary
// ABOUTME: All downstream classification is a single switch on Kind

package api

import (
	"errors"
	"fmt"
)

// ErrorKind partitions request failures by how callers must react.
type ErrorKind string

const (
	// KindUnauthorized is an HTTP 401: credentials are expired or invalid.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindServerFault is an HTTP 5xx: the server is broken, the session is not.
	KindServerFault ErrorKind = "server_fault"

	// KindTransport is a failure with no HTTP response at all.
	KindTransport ErrorKind = "transport"

	// KindValidation is any other HTTP error status, local to the calling form.
	KindValidation ErrorKind = "validation"
)

// Error is the classified failure returned by every client method.
type Error struct {
	Kind    ErrorKind
	Status  int // 0 for transport failures
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api: %s (status %d): %s", e.Kind, e.Status, e.Message)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// AsError unwraps err to an *Error if possible.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
