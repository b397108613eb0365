package pharma

import (
	"context"
	"fmt"
	"time"
)

// Fetcher loads the page implied by one target. The caller's context carries
// the per-target deadline; implementations must honor cancellation on every
// exit path and must not share browser state between concurrent calls.
// A deadline hit surfaces as an error wrapping context.DeadlineExceeded.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) (Page, error)
}

// Clock returns the current time (swap out in tests).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ValidationError is returned when a query matches neither the postcode nor
// the pharmacy-code shape. No fetch is attempted.
type ValidationError struct {
	Query  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query %q: %s", e.Query, e.Reason)
}
