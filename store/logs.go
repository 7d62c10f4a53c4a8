package store

import (
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
)

// AppendLog appends a scrape log entry, assigning its timestamp. Entries are
// never mutated after append.
func (s *Store) AppendLog(entry models.ScrapeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := readCollection[models.ScrapeLogEntry](s, s.logsPath, "read_logs")
	if err != nil {
		return err
	}
	entry.Timestamp = s.now().UTC()
	logs = append(logs, entry)
	return writeCollection(s, s.logsPath, "write_logs", logs)
}

// Logs returns all scrape log entries in append order.
func (s *Store) Logs() ([]models.ScrapeLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCollection[models.ScrapeLogEntry](s, s.logsPath, "read_logs")
}

// PruneLogsOlderThan removes entries older than now minus age and returns
// how many were removed.
func (s *Store) PruneLogsOlderThan(age time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := readCollection[models.ScrapeLogEntry](s, s.logsPath, "read_logs")
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-age)
	kept := logs[:0]
	for _, entry := range logs {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(logs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := writeCollection(s, s.logsPath, "write_logs", kept); err != nil {
		return 0, err
	}
	slog.Info("pruned old scrape logs", slog.Int("removed", removed))
	return removed, nil
}
