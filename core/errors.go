package core

import (
	"errors"
	"fmt"
)

// Validation errors (local, raised before any network call)
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrNoFile           = errors.New("no file selected")
	ErrUnsupportedKind  = errors.New("media kind not supported")
	ErrCreditsNotInt    = errors.New("credits must be an integer")
	ErrInvalidPlan      = errors.New("plan must be 'free' or 'premium'")
	ErrNoUserSelected   = errors.New("no user selected")
)

// Request outcome kinds
var (
	ErrAuthRequired  = errors.New("authentication required") // 401 with a token set; session is force-cleared
	ErrForbidden     = errors.New("forbidden")               // 403; session stays valid
	ErrNoCredits     = errors.New("no credits left")         // local pre-check or 402 no_credits
	ErrRequestFailed = errors.New("request failed")          // any other non-2xx or malformed payload
	ErrTimeout       = errors.New("request timed out")       // deadline elapsed before completion
	ErrNetwork       = errors.New("network unreachable")     // transport failure, no response at all
)

// Storage errors
var (
	ErrKeyNotFound = errors.New("key not found")
)

// Config errors
var (
	ErrAPIBaseRequired = errors.New("api base url is required")
)

// RequestError carries the classified outcome of a failed backend call.
// It unwraps to one of the request outcome sentinels so callers can
// branch with errors.Is.
type RequestError struct {
	Status  int    // HTTP status, 0 when no response was received
	Code    string // machine code from the payload's "error" field
	Message string // human-readable reason
	Raw     string // raw body text when the payload was not valid JSON
	kind    error
}

func NewRequestError(status int, code, message string, kind error) *RequestError {
	if kind == nil {
		kind = ErrRequestFailed
	}
	if message == "" {
		message = kind.Error()
	}
	return &RequestError{Status: status, Code: code, Message: message, kind: kind}
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.kind }
