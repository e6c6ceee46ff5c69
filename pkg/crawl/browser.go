// Package crawl fetches catalog pages from a source that actively resists
// automated traffic. Orchestration code talks to the Controller, and the
// Controller talks to a Browser; nothing outside this package touches the
// underlying automation APIs.
package crawl

import (
	"context"
	"errors"
	"time"
)

// Browser is the capability object shared by a whole run. It is configured
// once and hands out isolated sessions.
type Browser interface {
	// Open starts a session with fresh cookies and storage.
	Open(ctx context.Context) (Session, error)
	Close() error
}

// Session is a single isolated browsing context. Sessions are not safe for
// concurrent use.
type Session interface {
	// Navigate loads url and returns the HTTP status of the main document.
	Navigate(ctx context.Context, url string) (int, error)
	// Content returns the markup of the current page.
	Content(ctx context.Context) (string, error)
	// Text returns the line-structured visible text of the current page.
	Text(ctx context.Context) (string, error)
	// WaitFor blocks until selector matches an element or ctx expires.
	WaitFor(ctx context.Context, selector string) error
	// Humanize performs synthetic pointer and scroll motion.
	Humanize(ctx context.Context) error
	Close() error
}

var (
	ErrNoSession = errors.New("no browsing session could be opened")
	ErrBlocked   = errors.New("blocked by bot detection")
)

// remaining returns the time left before ctx expires, or fallback when ctx
// has no deadline.
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}
