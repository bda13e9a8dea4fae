package qrvision

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrvision/qrvision/analytics"
)

// Storage drivers for the analytics records.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// SiteConfig holds all configuration for a QR Vision site.
type SiteConfig struct {
	Name        string // Site name (default "QR Vision")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for meta tags

	Addr          string // Listen address (default ":3000")
	StorageDriver string // "sqlite" (default) or "memory"
	DatabasePath  string // SQLite path (default "data/analytics.db")
	TimeZone      string // IANA zone that decides the analytics day (default local)

	AdminPassword     string // admin gate secret, compared as-is
	AdminPasswordHash string // bcrypt hash; takes precedence over AdminPassword
	SessionSecret     string // Required: session encryption secret
	CookieSecure      bool   // Set true for HTTPS

	CORSOrigins []string      // Origins allowed on /api (default "*")
	SymbolTTL   time.Duration // Rendered symbol cache TTL (default 10min)
	RenderLimit int           // Symbol renders per IP per minute (default 60)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "QR Vision"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Description == "" {
		c.Description = "منصة متكاملة لتوليد ومسح رموز QR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = StorageSQLite
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/analytics.db"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.SymbolTTL == 0 {
		c.SymbolTTL = 10 * time.Minute
	}
	if c.RenderLimit == 0 {
		c.RenderLimit = 60
	}
}

// location resolves TimeZone, falling back to the local zone.
func (c *SiteConfig) location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the application logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithStorage replaces the configured analytics storage, e.g. with an
// analytics.MemoryStorage in tests.
func WithStorage(s analytics.Storage) Option {
	return func(a *App) {
		a.storage = s
	}
}

// WithViews overrides some or all of the default page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = a.Views.merge(v)
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithMiddleware adds Echo middleware after the built-in stack.
func WithMiddleware(m ...echo.MiddlewareFunc) Option {
	return func(a *App) {
		a.extraMiddleware = append(a.extraMiddleware, m...)
	}
}
