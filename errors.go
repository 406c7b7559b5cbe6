package freshness

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericselin/freshness/catalog"
)

var (
	// ErrScopeMismatch is returned when a policy is resolved against the wrong kind of scope.
	ErrScopeMismatch = errors.New("scope does not match policy")
	// ErrScopeClosed is returned when resolving in a request scope that has ended.
	ErrScopeClosed = errors.New("scope closed")
)

// FrozenInitError is the terminal failure of a frozen scope's single fetch.
// Every later resolve in the same scope reports the same error.
type FrozenInitError struct {
	Err error
}

func (e *FrozenInitError) Error() string {
	return fmt.Sprintf("frozen catalog initialization failed: %v", e.Err)
}

func (e *FrozenInitError) Unwrap() error {
	return e.Err
}

// Reason codes for failed outcomes.
const (
	ReasonIO       = "io"
	ReasonFormat   = "format"
	ReasonCanceled = "canceled"
	ReasonUnknown  = "unknown"
)

// ReasonCode returns the category of a failure reason.
// A frozen initialization failure keeps the category of its cause.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, catalog.ErrIO):
		return ReasonIO
	case errors.Is(err, catalog.ErrFormat):
		return ReasonFormat
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	}
	return ReasonUnknown
}

// IsTerminal reports whether err is a frozen initialization failure,
// i.e. no catalog will be available until the scope is re-created.
func IsTerminal(err error) bool {
	var fe *FrozenInitError
	return errors.As(err, &fe)
}
