// Package qrvision is a QR code generation and scanning site built with Go,
// Echo, and templ. It encodes structured data into QR payloads, renders
// symbols, tracks camera scan sessions and keeps local usage analytics.
//
// Users may provide their own templ components via the ViewFuncs struct;
// qrvision handles the handler logic, middleware, and storage.
package qrvision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/qrvision/qrvision/analytics"
	"github.com/qrvision/qrvision/analytics/templates"
	"github.com/qrvision/qrvision/payload"
	"github.com/qrvision/qrvision/scan"
	"github.com/qrvision/qrvision/views"
)

// ViewFuncs holds the templ components the app calls when rendering pages.
// Any nil field falls back to the default component from package views.
type ViewFuncs struct {
	Home           func(site views.Site, tmpls []payload.Template, csrfToken string) templ.Component
	AdminLogin     func(site views.Site, showError bool, csrfToken string) templ.Component
	AdminDashboard func(site views.Site, summary *templates.SummaryViewModel, message, csrfToken string) templ.Component
	NotFound       func(site views.Site) templ.Component
	ServerError    func(site views.Site) templ.Component
}

func defaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

func (v ViewFuncs) merge(o ViewFuncs) ViewFuncs {
	if o.Home != nil {
		v.Home = o.Home
	}
	if o.AdminLogin != nil {
		v.AdminLogin = o.AdminLogin
	}
	if o.AdminDashboard != nil {
		v.AdminDashboard = o.AdminDashboard
	}
	if o.NotFound != nil {
		v.NotFound = o.NotFound
	}
	if o.ServerError != nil {
		v.ServerError = o.ServerError
	}
	return v
}

// App is the central qrvision application. It wires together the analytics
// aggregator, scan sessions, symbol cache, handlers, and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Logger    *slog.Logger
	Views     ViewFuncs
	Analytics *analytics.Aggregator
	Scans     *scan.Manager
	Symbols   *SymbolCache

	storage         analytics.Storage
	closer          io.Closer
	events          chan analytics.Kind
	renderLimiter   *RateLimiter
	customRoutes    []func(*App)
	extraMiddleware []echo.MiddlewareFunc
	initialized     bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Logger: slog.Default(),
		Views:  defaultViews(),
		events: make(chan analytics.Kind, 64),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init validates the configuration, opens storage, and registers
// middleware and routes. Start calls it when needed; tests may call it
// directly and drive a.Echo with httptest.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Config.AdminPassword == "" && a.Config.AdminPasswordHash == "" {
		return fmt.Errorf("qrvision: AdminPassword or AdminPasswordHash is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("qrvision: SessionSecret is required")
	}
	loc, err := a.Config.location()
	if err != nil {
		return fmt.Errorf("qrvision: time zone: %w", err)
	}

	if a.storage == nil {
		if err := a.openStorage(); err != nil {
			return err
		}
	}

	a.Analytics, err = analytics.New(a.storage,
		analytics.WithLocation(loc),
		analytics.WithLogger(a.Logger.With(slog.String("component", "analytics"))),
	)
	if err != nil {
		return fmt.Errorf("qrvision: load analytics: %w", err)
	}
	a.Scans = scan.NewManager(a.events, nil, a.Logger.With(slog.String("component", "scan")))
	a.Symbols = NewSymbolCache(a.Config.SymbolTTL)
	a.renderLimiter = NewRateLimiter(a.Config.RenderLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

func (a *App) openStorage() error {
	switch a.Config.StorageDriver {
	case StorageMemory:
		a.storage = analytics.NewMemoryStorage()
	case StorageSQLite:
		store, err := analytics.NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("qrvision: init store: %w", err)
		}
		a.storage = store
		a.closer = store
	default:
		return fmt.Errorf("qrvision: unknown storage driver %q", a.Config.StorageDriver)
	}
	return nil
}

// Start initializes the app and serves until ctx is cancelled or the
// server fails. Scan events are recorded by a background loop that runs
// for the lifetime of the server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.Analytics.Run(ctx, a.events)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		a.Logger.Info("server started", slog.String("addr", a.Config.Addr))
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Echo.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded client script that drives the generator and the camera.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/qrvision.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)

	// Pages
	e.GET("/", a.handleHome)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/reset/", a.handleAdminReset)

	// Public API
	api := e.Group("/api")
	api.GET("/templates", a.handleTemplates)
	api.POST("/generate", a.handleGenerate)
	api.GET("/qr.png", a.handleSymbol)
	api.POST("/scan/sessions", a.handleScanStart)
	api.GET("/scan/sessions/:id", a.handleScanGet)
	api.POST("/scan/sessions/:id/result", a.handleScanResult)
	api.POST("/scan/sessions/:id/error", a.handleScanError)
	api.DELETE("/scan/sessions/:id", a.handleScanCancel)
	api.POST("/scan/image", a.handleScanUpload)

	analyticsHandler := analytics.NewHandler(a.Analytics)
	analyticsAuthMiddleware := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return c.Redirect(http.StatusSeeOther, "/admin/")
			}
			return next(c)
		}
	}
	analyticsHandler.RegisterRoutes(e, api, analyticsAuthMiddleware)
}

// Close cancels open scan sessions and closes storage. Call this when the
// app is shutting down.
func (a *App) Close() error {
	if a.Scans != nil {
		a.Scans.Close()
	}
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// site returns the page-level settings passed to views.
func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
	}
}
