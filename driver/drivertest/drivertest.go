// Package drivertest provides an in-memory driver implementation for tests.
package drivertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-products/driver"
)

// Field is one extractable value within an item.
type Field struct {
	Text  string
	Attrs map[string]string
}

// Item is a fake product element; keys are the sub-selectors the extractor
// will query.
type Item struct {
	Fields map[string]Field
}

// Page is one fake listing page.
type Page struct {
	Items   []Item
	HasNext bool
}

// Driver scripts a paginated listing for the extractor to walk.
type Driver struct {
	mu sync.Mutex

	// ProductSelector and NextSelector mirror the site config under test.
	ProductSelector string
	NextSelector    string
	Pages           []Page

	// WaitFailures makes the first n WaitForSelector calls time out.
	WaitFailures int
	// NavigateHook, when set, can fail a navigation by URL.
	NavigateHook func(url string) error
	// ScreenshotErr fails Screenshot calls when set.
	ScreenshotErr error

	Navigations  []string
	PageAdvances int
	Screenshots  []string
	Sessions     int
}

// NewSession starts a fresh walk at page 0.
func (d *Driver) NewSession(ctx context.Context) (driver.Session, error) {
	d.mu.Lock()
	d.Sessions++
	d.mu.Unlock()
	return &session{driver: d}, nil
}

type session struct {
	driver  *Driver
	page    int
	pending bool
	closed  bool
}

func (s *session) current() (Page, bool) {
	if s.page < 0 || s.page >= len(s.driver.Pages) {
		return Page{}, false
	}
	return s.driver.Pages[s.page], true
}

func (s *session) Navigate(ctx context.Context, url string, opts driver.NavigateOptions) error {
	s.driver.mu.Lock()
	s.driver.Navigations = append(s.driver.Navigations, url)
	hook := s.driver.NavigateHook
	s.driver.mu.Unlock()

	if hook != nil {
		if err := hook(url); err != nil {
			return driver.ErrNavigation{URL: url, Err: err}
		}
	}
	s.page = 0
	return nil
}

func (s *session) WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error {
	s.driver.mu.Lock()
	if s.driver.WaitFailures > 0 {
		s.driver.WaitFailures--
		s.driver.mu.Unlock()
		return driver.ErrSelectorTimeout{Selector: sel, Err: fmt.Errorf("scripted timeout")}
	}
	s.driver.mu.Unlock()

	if _, ok := s.current(); !ok {
		return driver.ErrSelectorTimeout{Selector: sel, Err: fmt.Errorf("no page")}
	}
	return nil
}

func (s *session) QueryAll(ctx context.Context, sel string) ([]driver.Node, error) {
	page, ok := s.current()
	if !ok {
		return nil, nil
	}

	switch sel {
	case s.driver.NextSelector:
		if !page.HasNext {
			return nil, nil
		}
		return []driver.Node{&nextNode{session: s}}, nil
	case s.driver.ProductSelector:
		nodes := make([]driver.Node, 0, len(page.Items))
		for i := range page.Items {
			nodes = append(nodes, &itemNode{item: page.Items[i]})
		}
		return nodes, nil
	default:
		return nil, nil
	}
}

func (s *session) WaitForNavigation(ctx context.Context) error {
	if !s.pending {
		return driver.ErrNavigation{Err: fmt.Errorf("no navigation in progress")}
	}
	s.pending = false
	s.page++
	s.driver.mu.Lock()
	s.driver.PageAdvances++
	s.driver.mu.Unlock()
	return nil
}

func (s *session) Screenshot(ctx context.Context, path string) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if s.driver.ScreenshotErr != nil {
		return s.driver.ScreenshotErr
	}
	s.driver.Screenshots = append(s.driver.Screenshots, path)
	return nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

type itemNode struct {
	item Item
}

func (n *itemNode) Text(ctx context.Context) (string, error) {
	return "", nil
}

func (n *itemNode) Attribute(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (n *itemNode) Query(ctx context.Context, sel string) (driver.Node, error) {
	field, ok := n.item.Fields[sel]
	if !ok {
		return nil, driver.ErrNoNode
	}
	return &fieldNode{field: field}, nil
}

func (n *itemNode) Click(ctx context.Context) error {
	return fmt.Errorf("drivertest: item is not clickable")
}

type fieldNode struct {
	field Field
}

func (n *fieldNode) Text(ctx context.Context) (string, error) {
	return n.field.Text, nil
}

func (n *fieldNode) Attribute(ctx context.Context, name string) (string, error) {
	return n.field.Attrs[name], nil
}

func (n *fieldNode) Query(ctx context.Context, sel string) (driver.Node, error) {
	return nil, driver.ErrNoNode
}

func (n *fieldNode) Click(ctx context.Context) error {
	return fmt.Errorf("drivertest: field is not clickable")
}

type nextNode struct {
	session *session
}

func (n *nextNode) Text(ctx context.Context) (string, error) {
	return "Next", nil
}

func (n *nextNode) Attribute(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (n *nextNode) Query(ctx context.Context, sel string) (driver.Node, error) {
	return nil, driver.ErrNoNode
}

func (n *nextNode) Click(ctx context.Context) error {
	n.session.pending = true
	return nil
}
