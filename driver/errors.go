package driver

import (
	"errors"
	"fmt"
)

// ErrNoNode signals that a selector matched nothing within a node.
var ErrNoNode = errors.New("driver: no matching node")

// ErrNavigation indicates the driver could not reach or render a target.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrSelectorTimeout indicates an expected element never appeared.
type ErrSelectorTimeout struct {
	Selector string
	Err      error
}

func (e ErrSelectorTimeout) Error() string {
	return fmt.Sprintf("selector %q did not appear: %v", e.Selector, e.Err)
}

func (e ErrSelectorTimeout) Unwrap() error {
	return e.Err
}
