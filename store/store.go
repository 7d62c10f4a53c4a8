// Package store persists product records and scrape logs as JSON
// collections on disk. Every mutation rewrites the whole collection through
// an atomic temp-file-then-rename, so a partial write can never be observed.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/retry"
)

const (
	productsFile = "products.json"
	logsFile     = "scrape_logs.json"

	cacheSize = 512
)

// StorageError indicates a durable-store failure after retry exhaustion.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("store: record not found")

// Store is a file-backed record store. All collection mutations are
// serialized behind one mutex; callers must treat each write as a
// full-collection transaction.
type Store struct {
	dataDir      string
	productsPath string
	logsPath     string

	mu    sync.Mutex
	cache *lru.Cache[string, models.Product]

	now         func() time.Time
	retryPolicy retry.Policy
}

// Option mutates the store during construction.
type Option func(*Store)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRetryPolicy overrides the I/O retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Store) { s.retryPolicy = policy }
}

// New builds a store rooted at dataDir. Call Initialize before use.
func New(dataDir string, opts ...Option) *Store {
	cache, _ := lru.New[string, models.Product](cacheSize)
	s := &Store{
		dataDir:      dataDir,
		productsPath: filepath.Join(dataDir, productsFile),
		logsPath:     filepath.Join(dataDir, logsFile),
		cache:        cache,
		now:          time.Now,
		retryPolicy: retry.Policy{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			ShouldRetry:  transient,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transient rejects retrying corrupt-data failures; re-reading a malformed
// file cannot help.
func transient(err error) bool {
	var syntax *json.SyntaxError
	return !errors.As(err, &syntax)
}

// Initialize ensures the storage location and both collections exist.
// Idempotent.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return StorageError{Op: "initialize", Err: err}
	}
	for _, path := range []string{s.productsPath, s.logsPath} {
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return StorageError{Op: "initialize", Err: err}
		}
		if err := atomicWrite(path, []byte("[]\n")); err != nil {
			return StorageError{Op: "initialize", Err: err}
		}
		slog.Info("created collection file", slog.String("path", path))
	}
	return nil
}

func (s *Store) policy(operation string) retry.Policy {
	p := s.retryPolicy
	p.Operation = operation
	return p
}

// readCollection loads a JSON array from path. A missing file is an empty
// collection; corrupt JSON is a hard failure.
func readCollection[T any](s *Store, path, operation string) ([]T, error) {
	records, err := retry.DoValue(context.Background(), s.policy(operation), func() ([]T, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, StorageError{Op: operation, Err: err}
	}
	return records, nil
}

func writeCollection[T any](s *Store, path, operation string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return StorageError{Op: operation, Err: err}
	}
	data = append(data, '\n')

	err = retry.Do(context.Background(), s.policy(operation), func() error {
		return atomicWrite(path, data)
	})
	if err != nil {
		return StorageError{Op: operation, Err: err}
	}
	return nil
}

// atomicWrite replaces path in one step: write a sibling temp file, fsync,
// then rename over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
