package atelier

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nordvik/atelier/analytics"
)

// SiteConfig holds all configuration for an atelier site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Atelier")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // Content SQLite path (default "data/site.db")

	AnalyticsEnabled      bool   `yaml:"analytics_enabled"`       // Enable view tracking (default via cmd)
	AnalyticsBackend      string `yaml:"analytics_backend"`       // "sqlite" (default) or "clickhouse"
	AnalyticsDatabasePath string `yaml:"analytics_database_path"` // Events SQLite path (default "data/events.db")

	ClickHouse analytics.ClickHouseConfig `yaml:"clickhouse"` // Hosted event store, when backend is "clickhouse"

	AdminPasswordHash string `yaml:"admin_password_hash"` // Required: bcrypt hash of the admin password
	SessionSecret     string `yaml:"session_secret"`      // Required: session/cookie signing secret
	CookieSecure      bool   `yaml:"cookie_secure"`       // Set true behind HTTPS

	ContentCacheTTL time.Duration `yaml:"-"` // Content cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Atelier"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.AnalyticsBackend == "" {
		c.AnalyticsBackend = "sqlite"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/events.db"
	}
	if c.ContentCacheTTL == 0 {
		c.ContentCacheTTL = 5 * time.Minute
	}
}

// LoadConfigFile reads a YAML site configuration. Values left empty fall
// back to defaults when the App starts.
func LoadConfigFile(path string) (SiteConfig, error) {
	var cfg SiteConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
