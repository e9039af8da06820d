package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error categories surfaced by drivers. Callers match them with errors.Is;
// the wrapped message carries the selector or element involved.
var (
	ErrConnection   = errors.New("cannot reach automation endpoint")
	ErrNavigation   = errors.New("navigation failed")
	ErrNotFound     = errors.New("element not found")
	ErrNotClickable = errors.New("element not clickable")
	ErrTimeout      = errors.New("timed out waiting for element")
)

// Element is a transient reference to a node in the driver's current
// document. It is only meaningful to the driver that produced it and is
// invalidated by navigation.
type Element interface {
	fmt.Stringer
}

// Wait turns a query into a bounded poll: retry every Interval until at
// least one element matches or Timeout elapses.
type Wait struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Driver is the set of browser primitives the page layer is written against.
type Driver interface {
	// Query returns every element matching selector under scope (the whole
	// document when scope is nil). With a nil wait it makes a single
	// attempt; with a wait it polls and returns an empty slice on timeout.
	Query(ctx context.Context, selector string, scope Element, wait *Wait) ([]Element, error)

	// Text returns the element's rendered text, trimmed.
	Text(ctx context.Context, el Element) (string, error)

	// Attribute returns the named attribute, or "" when it is absent.
	Attribute(ctx context.Context, el Element, name string) (string, error)

	// Click fails with ErrNotClickable when the element cannot be interacted with.
	Click(ctx context.Context, el Element) error

	// WaitClickable blocks until el is visible and enabled, failing with
	// ErrTimeout after timeout.
	WaitClickable(ctx context.Context, el Element, timeout time.Duration) error

	Close() error
}

// First returns the first element matching selector, or ErrNotFound.
func First(ctx context.Context, d Driver, selector string, scope Element, wait *Wait) (Element, error) {
	els, err := d.Query(ctx, selector, scope, wait)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		if scope != nil {
			return nil, fmt.Errorf("%w: %q under %s", ErrNotFound, selector, scope)
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return els[0], nil
}
