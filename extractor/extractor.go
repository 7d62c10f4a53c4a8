// Package extractor walks paginated listing pages through a driver session
// and emits validated candidate records.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/driver"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"github.com/aluiziolira/go-scrape-products/retry"
)

// Extractor drives a session through a website's listing pages.
type Extractor struct {
	cfg *config.Config

	// OnRetry, when set, is invoked for every failed selector-wait attempt.
	OnRetry func()
}

// New builds an extractor from process configuration.
func New(cfg *config.Config) *Extractor {
	return &Extractor{cfg: cfg}
}

func (e *Extractor) waitPolicy(operation string) retry.Policy {
	return retry.Policy{
		MaxAttempts:  e.cfg.RetryAttempts,
		InitialDelay: e.cfg.RetryDelay,
		MaxDelay:     e.cfg.RetryMaxDelay,
		Operation:    operation,
		OnAttempt: func(int, error) {
			if e.OnRetry != nil {
				e.OnRetry()
			}
		},
	}
}

// Extract walks the listing starting at the session's current page and
// returns every candidate that passes validation. It stops at the per-search
// limit, the configured page limit, or when no next-page control exists.
// The session is consumed; re-running requires a new one.
func (e *Extractor) Extract(ctx context.Context, sess driver.Session, site config.WebsiteConfig, category string) ([]models.Candidate, error) {
	base, err := url.Parse(site.URL)
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", site.Name, err)
	}

	// Transient render delays are expected; retry the initial wait before
	// failing the whole pair.
	err = retry.Do(ctx, e.waitPolicy("wait_product_list"), func() error {
		return sess.WaitForSelector(ctx, site.Selectors.ProductList, e.cfg.SelectorTimeout)
	})
	if err != nil {
		return nil, err
	}

	limit := e.cfg.Validation.MaxProductsPerSearch
	var products []models.Candidate
	page := 1

	for {
		err = retry.Do(ctx, e.waitPolicy("wait_products"), func() error {
			return sess.WaitForSelector(ctx, site.Selectors.Product, e.cfg.SelectorTimeout)
		})
		if err != nil {
			return nil, err
		}

		nodes, err := sess.QueryAll(ctx, site.Selectors.Product)
		if err != nil {
			return nil, fmt.Errorf("query products on page %d: %w", page, err)
		}
		slog.Debug("found product elements",
			slog.String("website", site.Name),
			slog.Int("count", len(nodes)),
			slog.Int("page", page),
		)

		for _, node := range nodes {
			candidate := e.extractItem(ctx, node, site, category, base)
			if !parser.ValidateCandidate(candidate, e.cfg.Validation) {
				continue
			}
			products = append(products, candidate)

			if len(products) >= limit {
				slog.Info("reached products limit",
					slog.String("website", site.Name),
					slog.Int("limit", limit),
				)
				return products, nil
			}
		}

		if !site.Pagination.Enabled || page >= site.Pagination.MaxPages {
			break
		}
		if !e.nextPage(ctx, sess, site.Pagination.NextButton) {
			slog.Info("no more pages", slog.String("website", site.Name), slog.Int("page", page))
			break
		}
		page++
	}

	return products, nil
}

func (e *Extractor) extractItem(ctx context.Context, item driver.Node, site config.WebsiteConfig, category string, base *url.URL) models.Candidate {
	sel := site.Selectors

	name := nodeText(ctx, item, sel.Name)
	priceText := nodeText(ctx, item, sel.Price)
	description := nodeText(ctx, item, sel.Description)
	ratingText := nodeText(ctx, item, sel.Rating)
	imageURL := nodeAttr(ctx, item, sel.Image, "src")
	href := nodeAttr(ctx, item, sel.Link, "href")

	candidate := models.Candidate{
		Name:        name,
		Price:       parser.ParsePrice(priceText),
		Description: description,
		Rating:      parser.ParseRating(ratingText),
		Source: models.ProductSource{
			Website:  site.Name,
			URL:      resolveURL(base, href),
			Category: category,
		},
	}
	if imageURL != "" {
		candidate.Images = []models.ProductImage{{URL: imageURL, Alt: name}}
	}
	return parser.NormalizeCandidate(candidate)
}

// nextPage activates the next-page control and awaits the navigation. A
// missing control or a failed activation is a normal stop, not an error.
func (e *Extractor) nextPage(ctx context.Context, sess driver.Session, nextSelector string) bool {
	nodes, err := sess.QueryAll(ctx, nextSelector)
	if err != nil || len(nodes) == 0 {
		return false
	}
	if err := nodes[0].Click(ctx); err != nil {
		slog.Error("next page click failed", slog.Any("error", err))
		return false
	}
	if err := sess.WaitForNavigation(ctx); err != nil {
		slog.Error("next page navigation failed", slog.Any("error", err))
		return false
	}
	return true
}

// nodeText is best-effort: a missing sub-selector yields an empty value
// rather than aborting the item.
func nodeText(ctx context.Context, item driver.Node, sel string) string {
	if sel == "" {
		return ""
	}
	node, err := item.Query(ctx, sel)
	if err != nil {
		return ""
	}
	text, err := node.Text(ctx)
	if err != nil {
		return ""
	}
	return text
}

func nodeAttr(ctx context.Context, item driver.Node, sel, attr string) string {
	if sel == "" {
		return ""
	}
	node, err := item.Query(ctx, sel)
	if err != nil {
		return ""
	}
	value, err := node.Attribute(ctx, attr)
	if err != nil {
		return ""
	}
	return value
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
