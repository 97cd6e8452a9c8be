// Package dom defines the remote document surface the scraper drives: load a
// URL, wait for a selector, evaluate a read-only query and click an element.
// internal/browser implements it with Chrome; domtest provides a fake.
package dom

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Presence is the outcome of a bounded selector wait.
type Presence int

const (
	// TimedOut means the selector did not appear before the deadline.
	TimedOut Presence = iota
	// Found means a matching element is present and visible.
	Found
)

func (p Presence) String() string {
	if p == Found {
		return "found"
	}
	return "timed out"
}

// ErrNoElement is returned by Click when the selector has no match at the
// requested index.
var ErrNoElement = errors.New("no matching element")

// Document is one active document view. Implementations are not safe for
// concurrent use: a single view drives one navigation at a time.
type Document interface {
	// Load navigates the view to url and waits for the page to load.
	Load(ctx context.Context, url string) error

	// AwaitSelector waits up to timeout for selector to become visible. An
	// expired wait is reported as TimedOut with a nil error; the error is
	// reserved for failures of the document source itself.
	AwaitSelector(ctx context.Context, selector string, timeout time.Duration) (Presence, error)

	// Evaluate runs q against the current document and returns its result
	// as JSON.
	Evaluate(ctx context.Context, q Query, args ...any) (json.RawMessage, error)

	// Click clicks the index-th element matching selector.
	Click(ctx context.Context, selector string, index int) error
}
