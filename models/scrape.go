package models

import "time"

// Scrape log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
)

// ScrapeLogEntry is an append-only record of one website/category scrape.
// Timestamp is assigned by the log writer.
type ScrapeLogEntry struct {
	Website       string    `json:"website"`
	Category      string    `json:"category,omitempty"`
	ProductsCount *int      `json:"productsCount,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ScrapeStatus is a point-in-time snapshot of the orchestrator state.
type ScrapeStatus struct {
	IsScraping          bool       `json:"isScraping"`
	LastScrapeTime      *time.Time `json:"lastScrapeTime"`
	NextScheduledScrape *time.Time `json:"nextScheduledScrape"`
	CurrentCategory     string     `json:"currentCategory,omitempty"`
}

// PairResult is the outcome of scraping one website/category pair.
type PairResult struct {
	Website       string `json:"website"`
	Category      string `json:"category"`
	Success       bool   `json:"success"`
	ProductsCount int    `json:"productsCount,omitempty"`
	Error         string `json:"error,omitempty"`
}
