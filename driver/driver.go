// Package driver abstracts the browser capabilities the extractor needs so
// the page walk can run against a real browser, a plain HTTP fetcher, or a
// test fake.
package driver

import (
	"context"
	"time"
)

// NavigateOptions tunes a navigation.
type NavigateOptions struct {
	Timeout time.Duration
	Headers map[string]string
}

// Driver opens page sessions.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is a single page context. Sessions are not restartable: re-running
// an extraction requires a fresh session.
type Session interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error
	// WaitForSelector blocks until sel matches at least one element or the
	// timeout elapses.
	WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error
	// QueryAll returns every element currently matching sel.
	QueryAll(ctx context.Context, sel string) ([]Node, error)
	// WaitForNavigation blocks until a navigation triggered by a prior
	// interaction (such as Node.Click) has completed.
	WaitForNavigation(ctx context.Context) error
	// Screenshot captures the current page state to path.
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Node is one element within a session's current document.
type Node interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	// Query finds the first descendant matching sel, or ErrNoNode.
	Query(ctx context.Context, sel string) (Node, error)
	Click(ctx context.Context) error
}
