// Package apierr holds the failure types of the storefront API boundary.
package apierr

import (
	"errors"
	"fmt"
)

// NetworkError is a transport or decoding failure reaching the API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Detail carries the server's message, if any.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Network wraps err as a NetworkError for op.
func Network(op string, err error) error {
	return &NetworkError{Op: op, Err: err}
}

// DisplayMessage returns the text to show a shopper for err: the server
// detail when there is one, fallback otherwise.
func DisplayMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
