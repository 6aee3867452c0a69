// Package errors provides error handling for hirepanel.
//
// This package re-exports github.com/cockroachdb/errors so every package
// wraps, inspects and hints errors the same way:
//
//	if err := fetch(); err != nil {
//	    return errors.Wrap(err, "failed to load candidates")
//	}
//
//	return errors.WithHint(errors.ErrUnauthorized, "run `hirepanel login`")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"fmt"
	"net/http"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinels shared by the fetcher, the action dispatcher and the CLI.
// Wrap or Mark them to add context while keeping errors.Is working.
var (
	// ErrUnauthorized means the API rejected the bearer token (or there is none).
	ErrUnauthorized = New("unauthorized")

	// ErrForbidden means the session role may not perform the request.
	ErrForbidden = New("forbidden")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates a client-side validation failure
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates the resource changed underneath the request
	ErrConflict = New("resource conflict")

	// ErrRateLimited is returned for HTTP 429
	ErrRateLimited = New("too many requests")

	// ErrTransport wraps failures where no HTTP response was received
	ErrTransport = New("network error")

	// ErrInvalidResponse means the body could not be decoded as JSON
	ErrInvalidResponse = New("invalid response from server")
)

// StatusError is a non-2xx HTTP response. Message is the server-supplied
// message when one could be decoded.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return StatusText(e.Code)
}

// Unwrap maps well-known status codes onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	}
	return nil
}

// StatusText is the generic user-facing message for an HTTP status.
func StatusText(code int) string {
	switch {
	case code == http.StatusBadRequest:
		return "The request was invalid."
	case code == http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case code == http.StatusForbidden:
		return "You do not have permission to perform this action."
	case code == http.StatusNotFound:
		return "The requested record was not found."
	case code == http.StatusConflict:
		return "The record was changed by someone else. Refresh and try again."
	case code == http.StatusUnprocessableEntity:
		return "Some fields are invalid."
	case code == http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment."
	case code >= 500:
		return "Server error. Please try again later."
	}
	return fmt.Sprintf("request failed with status %d", code)
}

// IsUnauthorized reports whether err is or wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return err != nil && Is(err, ErrUnauthorized)
}

// IsInvalidRequest reports whether err is or wraps ErrInvalidRequest.
func IsInvalidRequest(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidRequest)
}

// UserMessage is the single line shown to the user for err. A StatusError
// anywhere in the chain wins over the wrapping context; transport and
// decode failures get a fixed message instead of the low-level cause.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if As(err, &se) {
		return se.Error()
	}
	switch {
	case Is(err, ErrTransport):
		return "Could not reach the server. Check your connection and api.base_url."
	case Is(err, ErrInvalidResponse):
		return "The server returned an invalid response."
	}
	return err.Error()
}
