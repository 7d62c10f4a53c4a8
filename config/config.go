// Package config holds scraper, storage, and API configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// SelectorSet names the CSS selectors used to locate product data on a
// listing page. Item-level selectors are resolved relative to Product.
type SelectorSet struct {
	ProductList string `json:"productList"`
	Product     string `json:"product"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Rating      string `json:"rating"`
	Image       string `json:"image"`
	Link        string `json:"link"`
}

// Pagination controls listing traversal for one website.
type Pagination struct {
	Enabled    bool   `json:"enabled"`
	NextButton string `json:"nextButton"`
	MaxPages   int    `json:"maxPages"`
}

// WebsiteConfig describes one catalog website. SearchURL, when set, has the
// URL-escaped category appended to form the listing address.
type WebsiteConfig struct {
	Name       string            `json:"name"`
	URL        string            `json:"url"`
	SearchURL  string            `json:"searchUrl"`
	Selectors  SelectorSet       `json:"selectors"`
	Pagination Pagination        `json:"pagination"`
	Headers    map[string]string `json:"headers"`
}

// Validation bounds accepted candidate records.
type Validation struct {
	MinPrice             float64 `json:"minPrice"`
	MaxPrice             float64 `json:"maxPrice"`
	MaxProductsPerSearch int     `json:"maxProductsPerSearch"`
}

// Config holds the full process configuration.
type Config struct {
	Websites   []WebsiteConfig
	Categories []string
	Validation Validation

	DataDir     string
	Addr        string
	Environment string
	UserAgent   string
	DriverKind  string // rod or html
	Headless    bool
	Verbose     bool

	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration

	DelayBetweenSaves time.Duration
	ScrapeInterval    time.Duration
	LogRetention      time.Duration
	ScreenshotOnError bool
	ScreenshotDir     string
}

// DefaultConfig returns conservative defaults for a single demo website.
func DefaultConfig() *Config {
	return &Config{
		Websites: []WebsiteConfig{
			{
				Name:      "books",
				URL:       "https://books.toscrape.com",
				SearchURL: "",
				Selectors: SelectorSet{
					ProductList: "section",
					Product:     "article.product_pod",
					Name:        "h3 a",
					Price:       "p.price_color",
					Description: "h3 a",
					Rating:      "p.star-rating",
					Image:       "img",
					Link:        "h3 a",
				},
				Pagination: Pagination{
					Enabled:    true,
					NextButton: "li.next a",
					MaxPages:   5,
				},
			},
		},
		Categories: []string{""},
		Validation: Validation{
			MinPrice:             0,
			MaxPrice:             1000000,
			MaxProductsPerSearch: 100,
		},
		DataDir:           "data",
		Addr:              ":8080",
		Environment:       "development",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		DriverKind:        "html",
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		SelectorTimeout:   30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        1 * time.Second,
		RetryMaxDelay:     10 * time.Second,
		DelayBetweenSaves: 0,
		ScrapeInterval:    0,
		LogRetention:      30 * 24 * time.Hour,
		ScreenshotOnError: true,
		ScreenshotDir:     "screenshots",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.Websites) == 0 {
		return fmt.Errorf("at least one website must be configured")
	}
	seen := make(map[string]struct{}, len(c.Websites))
	for _, w := range c.Websites {
		if w.Name == "" {
			return fmt.Errorf("website name cannot be empty")
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("duplicate website name %q", w.Name)
		}
		seen[w.Name] = struct{}{}

		parsed, err := url.Parse(w.URL)
		if err != nil {
			return fmt.Errorf("website %s: invalid base URL: %w", w.Name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("website %s: base URL must include a host", w.Name)
		}
		if w.Selectors.ProductList == "" {
			return fmt.Errorf("website %s: product list selector cannot be empty", w.Name)
		}
		if w.Selectors.Product == "" {
			return fmt.Errorf("website %s: product selector cannot be empty", w.Name)
		}
		if w.Pagination.Enabled && w.Pagination.MaxPages <= 0 {
			return fmt.Errorf("website %s: max pages must be positive when pagination is enabled", w.Name)
		}
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category must be configured")
	}
	if c.Validation.MinPrice < 0 {
		return fmt.Errorf("min price cannot be negative")
	}
	if c.Validation.MaxPrice < c.Validation.MinPrice {
		return fmt.Errorf("max price (%v) cannot be below min price (%v)", c.Validation.MaxPrice, c.Validation.MinPrice)
	}
	if c.Validation.MaxProductsPerSearch <= 0 {
		return fmt.Errorf("max products per search must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.SelectorTimeout <= 0 {
		return fmt.Errorf("selector timeout must be positive")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.RetryMaxDelay > 0 && c.RetryDelay > c.RetryMaxDelay {
		return fmt.Errorf("retry delay (%s) cannot exceed retry max delay (%s)", c.RetryDelay, c.RetryMaxDelay)
	}
	if c.DelayBetweenSaves < 0 {
		return fmt.Errorf("delay between saves cannot be negative")
	}
	if c.ScrapeInterval < 0 {
		return fmt.Errorf("scrape interval cannot be negative")
	}
	if c.LogRetention < 0 {
		return fmt.Errorf("log retention cannot be negative")
	}
	if c.DriverKind != "rod" && c.DriverKind != "html" {
		return fmt.Errorf("driver must be rod or html")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// Website returns the configured website with the given name.
func (c *Config) Website(name string) (WebsiteConfig, bool) {
	for _, w := range c.Websites {
		if w.Name == name {
			return w, true
		}
	}
	return WebsiteConfig{}, false
}

// WebsiteNames lists configured website names in order.
func (c *Config) WebsiteNames() []string {
	names := make([]string, 0, len(c.Websites))
	for _, w := range c.Websites {
		names = append(names, w.Name)
	}
	return names
}

// websitesFile is the on-disk shape of the website definition file.
type websitesFile struct {
	Websites   []WebsiteConfig `json:"websites"`
	Categories []string        `json:"categories"`
	Validation *Validation     `json:"validation"`
}

// LoadWebsites merges website definitions from a JSON file over the
// built-in defaults.
func (c *Config) LoadWebsites(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read websites file: %w", err)
	}
	var file websitesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse websites file %s: %w", path, err)
	}
	if len(file.Websites) > 0 {
		c.Websites = file.Websites
	}
	if len(file.Categories) > 0 {
		c.Categories = file.Categories
	}
	if file.Validation != nil {
		c.Validation = *file.Validation
	}
	return nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok && value != ""
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration reads a duration environment override.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}
