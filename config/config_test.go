package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "no websites",
			mutate: func(cfg *Config) {
				cfg.Websites = nil
			},
			wantErr: "at least one website",
		},
		{
			name: "duplicate website name",
			mutate: func(cfg *Config) {
				cfg.Websites = append(cfg.Websites, cfg.Websites[0])
			},
			wantErr: "duplicate website",
		},
		{
			name: "missing host",
			mutate: func(cfg *Config) {
				cfg.Websites[0].URL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty product selector",
			mutate: func(cfg *Config) {
				cfg.Websites[0].Selectors.Product = ""
			},
			wantErr: "product selector",
		},
		{
			name: "pagination without max pages",
			mutate: func(cfg *Config) {
				cfg.Websites[0].Pagination = Pagination{Enabled: true, NextButton: "a.next"}
			},
			wantErr: "max pages",
		},
		{
			name: "inverted price bounds",
			mutate: func(cfg *Config) {
				cfg.Validation.MinPrice = 100
				cfg.Validation.MaxPrice = 10
			},
			wantErr: "max price",
		},
		{
			name: "negative retry delay",
			mutate: func(cfg *Config) {
				cfg.RetryDelay = -time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "retry delay above cap",
			mutate: func(cfg *Config) {
				cfg.RetryDelay = time.Minute
				cfg.RetryMaxDelay = time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "unknown driver",
			mutate: func(cfg *Config) {
				cfg.DriverKind = "wget"
			},
			wantErr: "driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadWebsites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "websites.json")
	payload := `{
		"websites": [
			{
				"name": "shop",
				"url": "https://shop.example.com",
				"searchUrl": "https://shop.example.com/s?k=",
				"selectors": {"productList": ".results", "product": ".item"},
				"pagination": {"enabled": true, "nextButton": ".next", "maxPages": 3}
			}
		],
		"categories": ["laptop"],
		"validation": {"minPrice": 1, "maxPrice": 500, "maxProductsPerSearch": 20}
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadWebsites(path); err != nil {
		t.Fatalf("load websites: %v", err)
	}
	if len(cfg.Websites) != 1 || cfg.Websites[0].Name != "shop" {
		t.Fatalf("websites not replaced: %+v", cfg.Websites)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0] != "laptop" {
		t.Fatalf("categories not replaced: %+v", cfg.Categories)
	}
	if cfg.Validation.MaxPrice != 500 {
		t.Fatalf("validation not replaced: %+v", cfg.Validation)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate, got %v", err)
	}

	if _, ok := cfg.Website("shop"); !ok {
		t.Fatalf("expected website lookup to find shop")
	}
	if _, ok := cfg.Website("missing"); ok {
		t.Fatalf("unexpected website lookup hit")
	}
}

func TestLoadWebsitesMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadWebsites(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
