// Package parser normalizes and validates raw scraped product fields.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
)

var (
	pricePattern  = regexp.MustCompile(`[\d,.]+`)
	ratingPattern = regexp.MustCompile(`\d+(\.\d+)?`)
)

// ParsePrice extracts a decimal price from raw listing text. The first run
// of digits, commas, and decimal points is taken, commas are stripped, and
// anything absent or unparsable yields 0.
func ParsePrice(text string) float64 {
	match := pricePattern.FindString(text)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return value
}

// ParseRating extracts the first decimal number from raw rating text,
// e.g. "4.5 out of 5 stars" yields 4.5. Absent or unparsable yields 0.
func ParseRating(text string) float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

// ValidateCandidate reports whether a candidate is acceptable: name, price,
// and description must be non-empty/non-zero and the price must fall within
// the configured bounds. Rejected candidates are dropped silently.
func ValidateCandidate(c models.Candidate, bounds config.Validation) bool {
	if strings.TrimSpace(c.Name) == "" {
		return false
	}
	if c.Price == 0 {
		return false
	}
	if strings.TrimSpace(c.Description) == "" {
		return false
	}
	if c.Price < bounds.MinPrice || c.Price > bounds.MaxPrice {
		return false
	}
	return true
}

// NormalizeCandidate fills derived fields: a missing description falls back
// to the name, and whitespace is trimmed.
func NormalizeCandidate(c models.Candidate) models.Candidate {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Description == "" {
		c.Description = c.Name
	}
	return c
}
