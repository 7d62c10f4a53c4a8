package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-products/models"
)

// Find returns every product matching the query, in stored order.
func (s *Store) Find(q Query) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readCollection[models.Product](s, s.productsPath, "read_products")
	if err != nil {
		return nil, err
	}
	if len(q) == 0 {
		return products, nil
	}
	var out []models.Product
	for _, p := range products {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Count returns how many products match the query.
func (s *Store) Count(q Query) (int, error) {
	matched, err := s.Find(q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Page slices one pagination window out of a result set. Pages are
// 1-based; a window past the end is empty, not an error.
func Page(items []models.Product, page, limit int) []models.Product {
	if page < 1 || limit < 1 {
		return nil
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// FindByID returns the product with the given id, or ErrNotFound.
func (s *Store) FindByID(id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}

	products, err := readCollection[models.Product](s, s.productsPath, "read_products")
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			s.cache.Add(id, p)
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

// FindBySource looks a product up by its (website, canonical URL) identity.
func (s *Store) FindBySource(website, url string) (models.Product, bool, error) {
	matched, err := s.Find(Query{
		"source.website": Eq(website),
		"source.url":     Eq(url),
	})
	if err != nil {
		return models.Product{}, false, err
	}
	if len(matched) == 0 {
		return models.Product{}, false, nil
	}
	return matched[0], true, nil
}

// Create persists a new product, assigning id and timestamps.
func (s *Store) Create(p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readCollection[models.Product](s, s.productsPath, "read_products")
	if err != nil {
		return models.Product{}, err
	}

	now := s.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	products = append(products, p)
	if err := writeCollection(s, s.productsPath, "write_products", products); err != nil {
		return models.Product{}, err
	}
	s.cache.Add(p.ID, p)

	slog.Debug("created product",
		slog.String("id", p.ID),
		slog.String("website", p.Source.Website),
	)
	return p, nil
}

// Update merges patch over the stored record, refreshes updatedAt, and
// returns the merged record. The id, createdAt, and updatedAt fields cannot
// be patched. Returns ErrNotFound when no record has the id.
func (s *Store) Update(id string, patch map[string]any) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readCollection[models.Product](s, s.productsPath, "read_products")
	if err != nil {
		return models.Product{}, err
	}

	index := -1
	for i, p := range products {
		if p.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return models.Product{}, ErrNotFound
	}

	merged, err := mergePatch(products[index], patch)
	if err != nil {
		return models.Product{}, StorageError{Op: "update_product", Err: err}
	}

	now := s.now().UTC()
	if !now.After(merged.UpdatedAt) {
		// updatedAt must strictly increase even under a coarse clock.
		now = merged.UpdatedAt.Add(time.Nanosecond)
	}
	merged.UpdatedAt = now

	products[index] = merged
	if err := writeCollection(s, s.productsPath, "write_products", products); err != nil {
		return models.Product{}, err
	}
	s.cache.Add(id, merged)
	return merged, nil
}

// Delete removes the product with the given id and reports whether a record
// was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readCollection[models.Product](s, s.productsPath, "read_products")
	if err != nil {
		return false, err
	}

	kept := products[:0]
	removed := false
	for _, p := range products {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false, nil
	}
	if err := writeCollection(s, s.productsPath, "write_products", kept); err != nil {
		return false, err
	}
	s.cache.Remove(id)
	return true, nil
}

// mergePatch overlays patch onto the record through its JSON representation,
// mirroring object-merge update semantics.
func mergePatch(p models.Product, patch map[string]any) (models.Product, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return models.Product{}, fmt.Errorf("marshal record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Product{}, fmt.Errorf("unmarshal record: %w", err)
	}

	for key, value := range patch {
		switch key {
		case "_id", "createdAt", "updatedAt":
			continue
		}
		fields[key] = value
	}

	mergedRaw, err := json.Marshal(fields)
	if err != nil {
		return models.Product{}, fmt.Errorf("marshal merged record: %w", err)
	}
	var merged models.Product
	if err := json.Unmarshal(mergedRaw, &merged); err != nil {
		return models.Product{}, fmt.Errorf("apply patch: %w", err)
	}
	return merged, nil
}
