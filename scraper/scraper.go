// Package scraper orchestrates scrape runs: single-flight status tracking,
// website/category iteration, extraction, validation, and upserts.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/driver"
	"github.com/aluiziolira/go-scrape-products/extractor"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/retry"
	"github.com/aluiziolira/go-scrape-products/store"
)

// Orchestrator owns scrape status and drives extraction into the store.
type Orchestrator struct {
	cfg     *config.Config
	driver  driver.Driver
	store   *store.Store
	ext     *extractor.Extractor
	status  *Status
	Metrics *Metrics
}

// New builds an orchestrator in the idle state.
func New(cfg *config.Config, drv driver.Driver, st *store.Store) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		driver:  drv,
		store:   st,
		status:  NewStatus(),
		Metrics: NewMetrics(),
	}
	o.ext = extractor.New(cfg)
	o.ext.OnRetry = o.Metrics.IncRetries
	return o
}

// GetStatus returns a snapshot of the scrape state. Never fails.
func (o *Orchestrator) GetStatus() models.ScrapeStatus {
	return o.status.Snapshot()
}

// ScrapeWebsite runs one website/category pair under the single-flight
// guard. A concurrent run fails immediately with ErrAlreadyScraping.
func (o *Orchestrator) ScrapeWebsite(ctx context.Context, site config.WebsiteConfig, category string) ([]models.Product, error) {
	if err := o.status.begin(category); err != nil {
		return nil, err
	}
	defer o.status.end()

	return o.scrapePair(ctx, site, category)
}

// ScrapeWebsiteByName resolves the website configuration first, so callers
// can pass request parameters straight through.
func (o *Orchestrator) ScrapeWebsiteByName(ctx context.Context, name, category string) ([]models.Product, error) {
	site, ok := o.cfg.Website(name)
	if !ok {
		return nil, ErrUnknownWebsite{Name: name}
	}
	return o.ScrapeWebsite(ctx, site, category)
}

// ScrapeAll sequentially drives every configured website/category pair
// under one running window. One pair's failure does not abort the rest;
// the aggregate result carries each pair's outcome.
func (o *Orchestrator) ScrapeAll(ctx context.Context) ([]models.PairResult, error) {
	if err := o.status.begin(""); err != nil {
		return nil, err
	}
	defer o.status.end()

	var results []models.PairResult
	for _, site := range o.cfg.Websites {
		for _, category := range o.cfg.Categories {
			products, err := o.scrapePair(ctx, site, category)
			if err != nil {
				results = append(results, models.PairResult{
					Website:  site.Name,
					Category: category,
					Success:  false,
					Error:    err.Error(),
				})
				continue
			}
			results = append(results, models.PairResult{
				Website:       site.Name,
				Category:      category,
				Success:       true,
				ProductsCount: len(products),
			})
		}
	}
	return results, nil
}

// RunScheduled triggers ScrapeAll every interval until ctx is cancelled.
func (o *Orchestrator) RunScheduled(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	o.status.SetNextScheduled(time.Now().Add(interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.status.SetNextScheduled(time.Now().Add(interval))
			if _, err := o.ScrapeAll(ctx); err != nil {
				slog.Error("scheduled scrape skipped", slog.Any("error", err))
			}
		}
	}
}

// scrapePair processes one website/category pair. Callers hold the
// single-flight guard.
func (o *Orchestrator) scrapePair(ctx context.Context, site config.WebsiteConfig, category string) ([]models.Product, error) {
	start := time.Now()
	o.status.setCategory(category)

	sess, err := o.driver.NewSession(ctx)
	if err != nil {
		o.recordFailure(ctx, nil, site, category, err)
		return nil, fmt.Errorf("open session for %s: %w", site.Name, err)
	}
	defer sess.Close()

	target := listingURL(site, category)
	slog.Info("navigating",
		slog.String("website", site.Name),
		slog.String("category", category),
		slog.String("url", target),
	)

	err = retry.Do(ctx, o.navigatePolicy(), func() error {
		return sess.Navigate(ctx, target, driver.NavigateOptions{
			Timeout: o.cfg.NavigationTimeout,
			Headers: site.Headers,
		})
	})
	if err != nil {
		o.recordFailure(ctx, sess, site, category, err)
		return nil, err
	}

	candidates, err := o.ext.Extract(ctx, sess, site, category)
	if err != nil {
		o.recordFailure(ctx, sess, site, category, err)
		return nil, err
	}
	o.Metrics.AddProducts(len(candidates))

	saved, err := o.saveCandidates(ctx, candidates)
	if err != nil {
		o.recordFailure(ctx, sess, site, category, err)
		return nil, err
	}

	count := len(saved)
	if err := o.store.AppendLog(models.ScrapeLogEntry{
		Website:       site.Name,
		Category:      category,
		ProductsCount: &count,
		Status:        models.LogStatusSuccess,
	}); err != nil {
		slog.Error("append scrape log failed", slog.Any("error", err))
	}

	o.Metrics.IncPair("success")
	o.Metrics.ObserveDuration(time.Since(start))
	slog.Info("scrape pair complete",
		slog.String("website", site.Name),
		slog.String("category", category),
		slog.Int("products", count),
		slog.Duration("duration", time.Since(start)),
	)
	return saved, nil
}

func (o *Orchestrator) navigatePolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  o.cfg.RetryAttempts,
		InitialDelay: o.cfg.RetryDelay,
		MaxDelay:     o.cfg.RetryMaxDelay,
		Operation:    "page_navigation",
		OnAttempt:    func(int, error) { o.Metrics.IncRetries() },
	}
}

// saveCandidates upserts every candidate, throttled by the configured
// inter-save delay. A storage failure propagates; it is not swallowed.
func (o *Orchestrator) saveCandidates(ctx context.Context, candidates []models.Candidate) ([]models.Product, error) {
	saved := make([]models.Product, 0, len(candidates))
	for i, candidate := range candidates {
		product, err := o.upsert(candidate)
		if err != nil {
			return saved, err
		}
		saved = append(saved, product)

		if o.cfg.DelayBetweenSaves > 0 && i < len(candidates)-1 {
			select {
			case <-time.After(o.cfg.DelayBetweenSaves):
			case <-ctx.Done():
				return saved, ctx.Err()
			}
		}
	}
	return saved, nil
}

// upsert writes one candidate keyed by its (website, canonical URL)
// identity: update the scraped fields on a hit, create otherwise.
func (o *Orchestrator) upsert(candidate models.Candidate) (models.Product, error) {
	existing, found, err := o.store.FindBySource(candidate.Source.Website, candidate.Source.URL)
	if err != nil {
		return models.Product{}, err
	}

	if found {
		updated, err := o.store.Update(existing.ID, map[string]any{
			"name":        candidate.Name,
			"price":       candidate.Price,
			"description": candidate.Description,
			"rating":      candidate.Rating,
		})
		if err != nil {
			return models.Product{}, err
		}
		o.Metrics.IncUpsert("updated")
		return updated, nil
	}

	created, err := o.store.Create(models.Product{
		Name:        candidate.Name,
		Price:       candidate.Price,
		Description: candidate.Description,
		Rating:      candidate.Rating,
		Category:    candidate.Source.Category,
		Images:      candidate.Images,
		Source:      candidate.Source,
	})
	if err != nil {
		return models.Product{}, err
	}
	o.Metrics.IncUpsert("created")
	return created, nil
}

// recordFailure captures a pair failure: metrics, an error log entry, and a
// best-effort diagnostic screenshot. Nothing here escalates.
func (o *Orchestrator) recordFailure(ctx context.Context, sess driver.Session, site config.WebsiteConfig, category string, cause error) {
	label := errorTypeLabel(cause)
	slog.Error("scrape pair failed",
		slog.String("website", site.Name),
		slog.String("category", category),
		slog.String("error_type", label),
		slog.Any("error", cause),
	)
	o.Metrics.IncPair("error")
	o.Metrics.IncError(label)

	if o.cfg.ScreenshotOnError && sess != nil {
		path := filepath.Join(o.cfg.ScreenshotDir,
			fmt.Sprintf("error-%s-%d.png", site.Name, time.Now().UnixMilli()))
		if err := sess.Screenshot(ctx, path); err != nil {
			slog.Error("error screenshot failed", slog.Any("error", err))
		}
	}

	if err := o.store.AppendLog(models.ScrapeLogEntry{
		Website:  site.Name,
		Category: category,
		Status:   models.LogStatusError,
		Error:    cause.Error(),
	}); err != nil {
		slog.Error("append scrape log failed", slog.Any("error", err))
	}
}

// listingURL builds the page address: the search URL with the escaped
// category appended when both exist, the base URL otherwise.
func listingURL(site config.WebsiteConfig, category string) string {
	if category != "" && site.SearchURL != "" {
		return site.SearchURL + url.QueryEscape(category)
	}
	return site.URL
}
