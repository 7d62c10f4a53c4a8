package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "dollar with thousands separator", text: "$1,234.50", want: 1234.50},
		{name: "plain", text: "19.99", want: 19.99},
		{name: "currency suffix", text: "399 USD", want: 399},
		{name: "embedded", text: "Now only £12.75 (was £20)", want: 12.75},
		{name: "empty", text: "", want: 0},
		{name: "not available", text: "N/A", want: 0},
		{name: "punctuation only", text: "...", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePrice(tt.text); got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "out of five", text: "4.5 out of 5 stars", want: 4.5},
		{name: "integer", text: "3 stars", want: 3},
		{name: "leading text", text: "Rated 4.8", want: 4.8},
		{name: "no digits", text: "no reviews yet", want: 0},
		{name: "empty", text: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRating(tt.text); got != tt.want {
				t.Fatalf("ParseRating(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateCandidate(t *testing.T) {
	bounds := config.Validation{MinPrice: 10, MaxPrice: 500, MaxProductsPerSearch: 100}
	valid := models.Candidate{Name: "Widget", Price: 99.99, Description: "A widget"}

	tests := []struct {
		name   string
		mutate func(*models.Candidate)
		want   bool
	}{
		{name: "valid", mutate: func(c *models.Candidate) {}, want: true},
		{name: "price at lower bound", mutate: func(c *models.Candidate) { c.Price = 10 }, want: true},
		{name: "price at upper bound", mutate: func(c *models.Candidate) { c.Price = 500 }, want: true},
		{name: "empty name", mutate: func(c *models.Candidate) { c.Name = " " }, want: false},
		{name: "zero price", mutate: func(c *models.Candidate) { c.Price = 0 }, want: false},
		{name: "empty description", mutate: func(c *models.Candidate) { c.Description = "" }, want: false},
		{name: "below min price", mutate: func(c *models.Candidate) { c.Price = 9.99 }, want: false},
		{name: "above max price", mutate: func(c *models.Candidate) { c.Price = 500.01 }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if got := ValidateCandidate(c, bounds); got != tt.want {
				t.Fatalf("ValidateCandidate(%+v) = %v, want %v", c, got, tt.want)
			}
		})
	}
}

func TestNormalizeCandidate(t *testing.T) {
	c := NormalizeCandidate(models.Candidate{Name: "  Widget  ", Description: "  "})
	if c.Name != "Widget" {
		t.Fatalf("name = %q, want Widget", c.Name)
	}
	if c.Description != "Widget" {
		t.Fatalf("description fallback = %q, want Widget", c.Description)
	}
}
