package scraper

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-products/driver"
	"github.com/aluiziolira/go-scrape-products/store"
)

// ErrAlreadyScraping signals a single-flight violation: a run was requested
// while another was active. Never retried.
var ErrAlreadyScraping = errors.New("scraping already in progress")

// ErrUnknownWebsite indicates a request for a website that is not configured.
type ErrUnknownWebsite struct {
	Name string
}

func (e ErrUnknownWebsite) Error() string {
	return fmt.Sprintf("website configuration not found: %s", e.Name)
}

// errorTypeLabel classifies an error for metrics and logs.
func errorTypeLabel(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, ErrAlreadyScraping) {
		return "already_scraping"
	}
	var unknown ErrUnknownWebsite
	if errors.As(err, &unknown) {
		return "configuration"
	}
	var selectorTimeout driver.ErrSelectorTimeout
	if errors.As(err, &selectorTimeout) {
		return "selector_timeout"
	}
	var navigation driver.ErrNavigation
	if errors.As(err, &navigation) {
		return "navigation"
	}
	var storage store.StorageError
	if errors.As(err, &storage) {
		return "storage"
	}
	return "other"
}
