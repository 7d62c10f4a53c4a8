// Package htmldriver implements the driver capability interface over plain
// HTTP and static HTML parsing. It serves JS-free catalog sites and tests;
// dynamic sites need the rod driver.
package htmldriver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/driver"
)

// Driver fetches pages with an http.Client and parses them with goquery.
type Driver struct {
	client    *http.Client
	userAgent string
}

// Option mutates the driver during construction.
type Option func(*Driver)

// WithClient substitutes the HTTP client, e.g. one with a mock transport.
func WithClient(client *http.Client) Option {
	return func(d *Driver) { d.client = client }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(d *Driver) { d.userAgent = ua }
}

// New builds a static-HTML driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewSession returns a session holding no document until the first Navigate.
func (d *Driver) NewSession(ctx context.Context) (driver.Session, error) {
	return &session{driver: d}, nil
}

type session struct {
	driver  *Driver
	doc     *goquery.Document
	base    *url.URL
	headers map[string]string

	// pendingURL is set by clicking a link and consumed by WaitForNavigation.
	pendingURL string
	closed     bool
}

func (s *session) Navigate(ctx context.Context, target string, opts driver.NavigateOptions) error {
	if s.closed {
		return fmt.Errorf("htmldriver: session closed")
	}
	if opts.Headers != nil {
		s.headers = opts.Headers
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return driver.ErrNavigation{URL: target, Err: err}
	}
	if s.driver.userAgent != "" {
		req.Header.Set("User-Agent", s.driver.userAgent)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.driver.client.Do(req)
	if err != nil {
		return driver.ErrNavigation{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return driver.ErrNavigation{URL: target, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return driver.ErrNavigation{URL: target, Err: err}
	}

	base, err := url.Parse(target)
	if err != nil {
		return driver.ErrNavigation{URL: target, Err: err}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	s.doc = doc
	s.base = base
	s.pendingURL = ""
	return nil
}

// WaitForSelector cannot actually wait on a static document: the element is
// either present in the fetched HTML or it never will be.
func (s *session) WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error {
	if s.doc == nil {
		return driver.ErrSelectorTimeout{Selector: sel, Err: fmt.Errorf("no document loaded")}
	}
	if s.doc.Find(sel).Length() == 0 {
		return driver.ErrSelectorTimeout{Selector: sel, Err: fmt.Errorf("not present in document")}
	}
	return nil
}

func (s *session) QueryAll(ctx context.Context, sel string) ([]driver.Node, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("htmldriver: no document loaded")
	}
	var nodes []driver.Node
	s.doc.Find(sel).Each(func(_ int, selection *goquery.Selection) {
		nodes = append(nodes, &node{session: s, sel: selection})
	})
	return nodes, nil
}

func (s *session) WaitForNavigation(ctx context.Context) error {
	if s.pendingURL == "" {
		return driver.ErrNavigation{Err: fmt.Errorf("no navigation in progress")}
	}
	target := s.pendingURL
	s.pendingURL = ""
	return s.Navigate(ctx, target, driver.NavigateOptions{Headers: s.headers})
}

// Screenshot writes the current document HTML; a static driver has no pixels
// to capture but the markup is the useful diagnostic anyway.
func (s *session) Screenshot(ctx context.Context, path string) error {
	if s.doc == nil {
		return fmt.Errorf("htmldriver: no document loaded")
	}
	html, err := s.doc.Html()
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

func (s *session) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

// resolve turns href into an absolute URL against the session base.
func (s *session) resolve(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if s.base == nil {
		return ref.String()
	}
	return s.base.ResolveReference(ref).String()
}

type node struct {
	session *session
	sel     *goquery.Selection
}

func (n *node) Text(ctx context.Context) (string, error) {
	return strings.TrimSpace(n.sel.Text()), nil
}

func (n *node) Attribute(ctx context.Context, name string) (string, error) {
	value, ok := n.sel.Attr(name)
	if !ok {
		return "", nil
	}
	return value, nil
}

func (n *node) Query(ctx context.Context, sel string) (driver.Node, error) {
	found := n.sel.Find(sel).First()
	if found.Length() == 0 {
		return nil, driver.ErrNoNode
	}
	return &node{session: n.session, sel: found}, nil
}

// Click follows the node's link. Only anchor-style activation is meaningful
// without a script engine.
func (n *node) Click(ctx context.Context) error {
	href, ok := n.sel.Attr("href")
	if !ok {
		if nested := n.sel.Find("a[href]").First(); nested.Length() > 0 {
			href, _ = nested.Attr("href")
		}
	}
	if href == "" {
		return fmt.Errorf("htmldriver: element is not a link")
	}
	n.session.pendingURL = n.session.resolve(href)
	return nil
}
