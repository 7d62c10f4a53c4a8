package htmldriver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-products/driver"
)

const listingPage = `<html><body>
<div class="results">
  <div class="item">
    <span class="name">Widget</span>
    <span class="price">$19.99</span>
    <a class="link" href="/p/widget">details</a>
    <img src="/img/widget.jpg" alt="Widget">
  </div>
  <div class="item">
    <span class="name">Gadget</span>
    <span class="price">$5.00</span>
    <a class="link" href="/p/gadget">details</a>
  </div>
</div>
<a class="next" href="/page/2">Next</a>
</body></html>`

const secondPage = `<html><body>
<div class="results">
  <div class="item"><span class="name">Gizmo</span></div>
</div>
</body></html>`

func newMockedSession(t *testing.T) (driver.Session, *http.Client) {
	t.Helper()
	client := &http.Client{Transport: httpmock.NewMockTransport()}
	d := New(WithClient(client), WithUserAgent("products-scraper/1.0"))
	sess, err := d.NewSession(context.Background())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess, client
}

func mockTransport(client *http.Client) *httpmock.MockTransport {
	return client.Transport.(*httpmock.MockTransport)
}

func TestNavigateAndQuery(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/catalog",
		httpmock.NewStringResponder(http.StatusOK, listingPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/catalog", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := sess.WaitForSelector(ctx, ".results", time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	items, err := sess.QueryAll(ctx, ".item")
	if err != nil {
		t.Fatalf("queryAll: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	name, err := mustQuery(t, items[0], ".name").Text(ctx)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if name != "Widget" {
		t.Fatalf("name = %q, want %q", name, "Widget")
	}

	href, err := mustQuery(t, items[0], "a.link").Attribute(ctx, "href")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if href != "/p/widget" {
		t.Fatalf("href = %q, want %q", href, "/p/widget")
	}

	if _, err := items[1].Query(ctx, "img"); !errors.Is(err, driver.ErrNoNode) {
		t.Fatalf("missing sub-node err = %v, want ErrNoNode", err)
	}
}

func TestNavigateSendsHeaders(t *testing.T) {
	sess, client := newMockedSession(t)

	var gotUA, gotLang string
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/",
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			gotLang = req.Header.Get("Accept-Language")
			return httpmock.NewStringResponse(http.StatusOK, listingPage), nil
		})

	err := sess.Navigate(context.Background(), "https://shop.example.com/", driver.NavigateOptions{
		Headers: map[string]string{"Accept-Language": "en-US"},
	})
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if gotUA != "products-scraper/1.0" {
		t.Fatalf("user-agent = %q", gotUA)
	}
	if gotLang != "en-US" {
		t.Fatalf("accept-language = %q", gotLang)
	}
}

func TestNavigateBadStatus(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/down",
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream error"))

	err := sess.Navigate(context.Background(), "https://shop.example.com/down", driver.NavigateOptions{})
	var nav driver.ErrNavigation
	if !errors.As(err, &nav) {
		t.Fatalf("err = %v, want ErrNavigation", err)
	}
	if nav.URL != "https://shop.example.com/down" {
		t.Fatalf("nav url = %q", nav.URL)
	}
	if !strings.Contains(nav.Error(), "502") {
		t.Fatalf("err = %v, want status code in message", nav)
	}
}

func TestWaitForSelectorMissing(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/",
		httpmock.NewStringResponder(http.StatusOK, listingPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	err := sess.WaitForSelector(ctx, ".does-not-exist", time.Second)
	var timeout driver.ErrSelectorTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("err = %v, want ErrSelectorTimeout", err)
	}
	if timeout.Selector != ".does-not-exist" {
		t.Fatalf("selector = %q", timeout.Selector)
	}
}

func TestClickFollowsPagination(t *testing.T) {
	sess, client := newMockedSession(t)
	transport := mockTransport(client)
	transport.RegisterResponder(http.MethodGet, "https://shop.example.com/catalog",
		httpmock.NewStringResponder(http.StatusOK, listingPage))
	transport.RegisterResponder(http.MethodGet, "https://shop.example.com/page/2",
		httpmock.NewStringResponder(http.StatusOK, secondPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/catalog", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	next, err := sess.QueryAll(ctx, ".next")
	if err != nil || len(next) != 1 {
		t.Fatalf("next control: %v (%d found)", err, len(next))
	}
	if err := next[0].Click(ctx); err != nil {
		t.Fatalf("click: %v", err)
	}
	if err := sess.WaitForNavigation(ctx); err != nil {
		t.Fatalf("waitForNavigation: %v", err)
	}

	items, err := sess.QueryAll(ctx, ".item")
	if err != nil {
		t.Fatalf("queryAll: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items on page 2 = %d, want 1", len(items))
	}
	name, _ := mustQuery(t, items[0], ".name").Text(ctx)
	if name != "Gizmo" {
		t.Fatalf("name = %q, want %q", name, "Gizmo")
	}
}

func TestWaitForNavigationWithoutClick(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/",
		httpmock.NewStringResponder(http.StatusOK, listingPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	var nav driver.ErrNavigation
	if err := sess.WaitForNavigation(ctx); !errors.As(err, &nav) {
		t.Fatalf("err = %v, want ErrNavigation", err)
	}
}

func TestClickNonLink(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/",
		httpmock.NewStringResponder(http.StatusOK, listingPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	names, err := sess.QueryAll(ctx, ".name")
	if err != nil || len(names) == 0 {
		t.Fatalf("queryAll: %v", err)
	}
	if err := names[0].Click(ctx); err == nil {
		t.Fatal("clicking a non-link should fail")
	}
}

func TestScreenshotWritesDocument(t *testing.T) {
	sess, client := newMockedSession(t)
	mockTransport(client).RegisterResponder(http.MethodGet, "https://shop.example.com/",
		httpmock.NewStringResponder(http.StatusOK, listingPage))

	ctx := context.Background()
	if err := sess.Navigate(ctx, "https://shop.example.com/", driver.NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	path := filepath.Join(t.TempDir(), "shots", "page.html")
	if err := sess.Screenshot(ctx, path); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if !strings.Contains(string(data), "Widget") {
		t.Fatal("capture missing document content")
	}
}

func mustQuery(t *testing.T, n driver.Node, sel string) driver.Node {
	t.Helper()
	found, err := n.Query(context.Background(), sel)
	if err != nil {
		t.Fatalf("query %q: %v", sel, err)
	}
	return found
}
