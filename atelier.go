// Package atelier is a storefront-and-content site engine built with Go,
// Echo, and templ. It serves a shop, blog, DIY tutorials and workshop
// listings from one content store, with an admin back office, a contact
// form router, view tracking and an analytics dashboard out of the box.
//
// Users provide their own templ templates via the ViewFuncs struct, and
// atelier handles all the handler logic, middleware, and database
// operations.
package atelier

import (
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nordvik/atelier/analytics"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home             func(products, posts []ContentItem, siteURL string) templ.Component
	Section          func(kind string, items []ContentItem, activeTag string, tags []string, siteURL string) templ.Component
	Item             func(item ContentItem, related []ContentItem, siteURL string) templ.Component
	About            func(siteURL string) templ.Component
	Contact          func(topic, notice, csrfToken string) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(kind string, items []ContentItem, message string, csrfToken string) templ.Component
	AdminFormPartial func(item ContentItem, csrfToken string) templ.Component
	AdminImages      func(images []Image, csrfToken string) templ.Component
	AdminMessages    func(msgs []ContactMessage, topic string, csrfToken string) templ.Component
	AdminAnalytics   func(csrfToken string) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

// App is the central atelier application. It wires together the store,
// cache, handlers, middleware, analytics and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *ContentCache
	Views  ViewFuncs
	Log    zerolog.Logger

	loginLimiter   *LoginLimiter
	contactLimiter *LoginLimiter

	analyticsStore    analytics.Store
	analyticsRecorder *analytics.Recorder
	analyticsHandler  *analytics.Handler

	customRoutes []func(*App)
	staticDir    string
}

// New creates a new atelier App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Log:       zerolog.New(os.Stderr).With().Timestamp().Logger(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, cache, middleware, routes, and starts the server.
func (a *App) Start() error {
	if a.Config.AdminPasswordHash == "" {
		return fmt.Errorf("atelier: AdminPasswordHash is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("atelier: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("atelier: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewContentCache(a.Store, a.Config.ContentCacheTTL)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.contactLimiter = NewLoginLimiter(5, time.Hour)

	if a.Config.AnalyticsEnabled {
		if err := a.initAnalytics(); err != nil {
			return err
		}
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// initAnalytics opens the configured event store and wires the recorder,
// session provider and HTTP handler around it.
func (a *App) initAnalytics() error {
	var (
		store analytics.Store
		err   error
	)
	switch a.Config.AnalyticsBackend {
	case "clickhouse":
		store, err = analytics.NewClickHouseStore(a.Config.ClickHouse)
	case "sqlite":
		store, err = analytics.NewSQLiteStore(a.Config.AnalyticsDatabasePath)
	default:
		return fmt.Errorf("atelier: unknown analytics backend %q", a.Config.AnalyticsBackend)
	}
	if err != nil {
		return fmt.Errorf("atelier: init analytics store: %w", err)
	}
	a.analyticsStore = store
	a.analyticsRecorder = analytics.NewRecorder(store, a.Log.With().Str("component", "analytics").Logger())
	sessions := analytics.NewCookieSessionProvider(
		[]byte(a.Config.SessionSecret), a.Config.CookieSecure, a.Log)
	a.analyticsHandler = analytics.NewHandler(store, a.analyticsRecorder, sessions, a.Log)
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Serve embedded framework assets under /public/, falling through to
	// the user's static dir for everything else.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/analytics.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/about/", a.handleAbout)
	e.GET("/contact/", a.handleContact)
	e.POST("/contact/:topic/", a.handleContactSubmit)
	for _, kind := range []string{KindProduct, KindBlog, KindDIY, KindWorkshop} {
		section := sectionPath(kind)
		e.GET(section+"/", a.handleSection(kind))
		e.GET(section+"/:slug/", a.handleItem(kind))
	}

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	admin := e.Group("/admin", requireAdmin)
	admin.GET("/content/:kind/:slug/", a.handleAdminItem)
	admin.POST("/save/", a.handleAdminSave)
	admin.DELETE("/content/:kind/:slug/", a.handleAdminDelete)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
	admin.GET("/messages/", a.handleAdminMessages)

	// Analytics routes
	if a.analyticsHandler != nil {
		publicGroup := e.Group("")
		a.analyticsHandler.RegisterRoutes(e, publicGroup, requireAdmin)
		admin.GET("/analytics/", func(c echo.Context) error {
			return Render(c, a.Views.AdminAnalytics(CsrfToken(c)))
		})
	}
}

// Close cleans up resources. Call this when the app is shutting down.
// The analytics recorder is drained before its store closes so queued
// page views are not lost.
func (a *App) Close() error {
	if a.analyticsRecorder != nil {
		a.analyticsRecorder.Close()
	}
	if a.analyticsHandler != nil {
		a.analyticsHandler.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.contactLimiter != nil {
		a.contactLimiter.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("atelier: required environment variable %s is not set", key)
	}
	return v
}
