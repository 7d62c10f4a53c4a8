package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodOptions configures the real-browser driver.
type RodOptions struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// RodDriver drives a Chromium instance through go-rod.
type RodDriver struct {
	browser *rod.Browser
	opts    RodOptions
}

// NewRodDriver launches a browser and connects to it.
func NewRodDriver(opts RodOptions) (*RodDriver, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1920
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 1080
	}

	controlURL, err := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &RodDriver{browser: browser, opts: opts}, nil
}

// NewSession opens a fresh page.
func (d *RodDriver) NewSession(ctx context.Context) (Session, error) {
	page, err := d.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             d.opts.ViewportWidth,
		Height:            d.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if d.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: d.opts.UserAgent}); err != nil {
			page.Close()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	return &rodSession{page: page}, nil
}

// Close shuts the browser down.
func (d *RodDriver) Close() error {
	return d.browser.Close()
}

type rodSession struct {
	page *rod.Page
}

func (s *rodSession) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	page := s.page.Context(ctx)
	if opts.Timeout > 0 {
		page = page.Timeout(opts.Timeout)
	}
	if len(opts.Headers) > 0 {
		pairs := make([]string, 0, len(opts.Headers)*2)
		for k, v := range opts.Headers {
			pairs = append(pairs, k, v)
		}
		if _, err := page.SetExtraHeaders(pairs); err != nil {
			return ErrNavigation{URL: url, Err: err}
		}
	}
	if err := page.Navigate(url); err != nil {
		return ErrNavigation{URL: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		return ErrNavigation{URL: url, Err: err}
	}
	return nil
}

func (s *rodSession) WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error {
	page := s.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
	}
	if _, err := page.Element(sel); err != nil {
		return ErrSelectorTimeout{Selector: sel, Err: err}
	}
	return nil
}

func (s *rodSession) QueryAll(ctx context.Context, sel string) ([]Node, error) {
	elements, err := s.page.Context(ctx).Elements(sel)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", sel, err)
	}
	nodes := make([]Node, 0, len(elements))
	for _, el := range elements {
		nodes = append(nodes, &rodNode{el: el})
	}
	return nodes, nil
}

func (s *rodSession) WaitForNavigation(ctx context.Context) error {
	page := s.page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return ErrNavigation{URL: "", Err: err}
	}
	// Give late-rendering listings a moment to settle.
	if err := page.WaitDOMStable(300*time.Millisecond, 0); err != nil {
		return ErrNavigation{URL: "", Err: err}
	}
	return nil
}

func (s *rodSession) Screenshot(ctx context.Context, path string) error {
	data, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

func (s *rodSession) Close() error {
	return s.page.Close()
}

type rodNode struct {
	el *rod.Element
}

func (n *rodNode) Text(ctx context.Context) (string, error) {
	return n.el.Context(ctx).Text()
}

func (n *rodNode) Attribute(ctx context.Context, name string) (string, error) {
	value, err := n.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (n *rodNode) Query(ctx context.Context, sel string) (Node, error) {
	has, el, err := n.el.Context(ctx).Has(sel)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrNoNode
	}
	return &rodNode{el: el}, nil
}

func (n *rodNode) Click(ctx context.Context) error {
	return n.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}
