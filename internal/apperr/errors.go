package apperr

import (
	"errors"
	"fmt"
)

// The four error classes every service in this codebase surfaces.
// Handlers map these to HTTP statuses; nothing retries them automatically.
var (
	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: a precondition or guard failed (bad transition,
	// DNC hit, empty contact set, inactive agent).
	ErrInvalidState = errors.New("invalid state")

	// ErrUpstream: the telephony vendor returned an error or non-2xx.
	ErrUpstream = errors.New("upstream failure")

	// ErrStore: the persistence layer failed.
	ErrStore = errors.New("store failure")
)

// NotFoundf wraps ErrNotFound with a caller-facing message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a caller-facing message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}

// Upstreamf wraps ErrUpstream with vendor context.
func Upstreamf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUpstream}, args...)...)
}

// Storef wraps ErrStore with persistence context.
func Storef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStore}, args...)...)
}

// Message returns the text after the class prefix, suitable for JSON bodies.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, class := range []error{ErrNotFound, ErrInvalidState, ErrUpstream, ErrStore} {
		prefix := class.Error() + ": "
		if errors.Is(err, class) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}
