package scraper

import (
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
)

// Status tracks the process-wide scrape state. All transitions go through
// guarded methods so two near-simultaneous starts cannot both observe idle.
type Status struct {
	mu sync.Mutex

	scraping        bool
	lastScrapeTime  *time.Time
	nextScheduled   *time.Time
	currentCategory string

	now func() time.Time
}

// NewStatus returns an idle status.
func NewStatus() *Status {
	return &Status{now: time.Now}
}

// begin flips the single-flight flag. It fails with ErrAlreadyScraping when
// a run is active, leaving the status untouched.
func (s *Status) begin(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scraping {
		return ErrAlreadyScraping
	}
	s.scraping = true
	s.currentCategory = category
	return nil
}

// end returns to idle and stamps the completion time. It runs on every exit
// path so the flag can never be observed stuck true after a run.
func (s *Status) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.scraping = false
	s.currentCategory = ""
	s.lastScrapeTime = &now
}

// setCategory updates the in-flight category marker.
func (s *Status) setCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCategory = category
}

// SetNextScheduled records the next scheduled scrape time (informational).
func (s *Status) SetNextScheduled(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScheduled = &t
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() models.ScrapeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := models.ScrapeStatus{
		IsScraping:      s.scraping,
		CurrentCategory: s.currentCategory,
	}
	if s.lastScrapeTime != nil {
		t := *s.lastScrapeTime
		snapshot.LastScrapeTime = &t
	}
	if s.nextScheduled != nil {
		t := *s.nextScheduled
		snapshot.NextScheduledScrape = &t
	}
	return snapshot
}
