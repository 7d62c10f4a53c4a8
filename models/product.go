// Package models defines data structures shared across the scraper.
package models

import "time"

// ProductImage is a single product image reference.
type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductSource records where a product was observed. The pair
// (Website, URL) is the product's identity for upserts.
type ProductSource struct {
	Website  string `json:"website"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
}

// Product is a persisted catalog record. ID, CreatedAt and UpdatedAt are
// assigned by the store and must not be set by callers.
type Product struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Price       float64        `json:"price"`
	Description string         `json:"description"`
	Rating      float64        `json:"rating"`
	Category    string         `json:"category,omitempty"`
	Images      []ProductImage `json:"images"`
	Source      ProductSource  `json:"source"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Candidate is an extracted, not-yet-persisted product observation.
type Candidate struct {
	Name        string
	Price       float64
	Description string
	Rating      float64
	Images      []ProductImage
	Source      ProductSource
}
