// Package pubgarden builds and serves a blog with a digital garden from
// markdown content collections.
//
// A build loads every configured source, links entries across collections
// through references (creating tag-like entries on demand), drops unpublished
// posts in production and derives a route table from path templates. The
// result is written to routes.json and a SQLite store that the Echo server
// reads from.
package pubgarden

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/pubgarden/markdown"
)

// Logger is the logging surface the pipeline needs. Both echo.Logger and
// gommon's *log.Logger satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// NewLogger returns the default logger, a gommon logger prefixed "pubgarden".
// Production builds log at INFO, development at DEBUG.
func NewLogger(mode Mode) *log.Logger {
	l := log.New("pubgarden")
	l.SetHeader("${time_rfc3339} ${level} ${prefix}")
	if mode == ModeProduction {
		l.SetLevel(log.INFO)
	} else {
		l.SetLevel(log.DEBUG)
	}
	return l
}

// App is the central pubgarden application. It wires together the build
// pipeline, the store, the cache, handlers, middleware and page views.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *RouteCache
	Views    ViewFuncs
	Markdown *markdown.Renderer

	logger    Logger
	staticDir string
	buildMu   sync.Mutex
	last      *BuildResult
}

// New creates a pubgarden App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.Logger = NewLogger(cfg.Mode)
	a.logger = a.Echo.Logger
	a.Views = DefaultViews()

	for _, opt := range opts {
		opt(a)
	}

	md := cfg.Transformers.Markdown
	plugins := make([]markdown.Plugin, 0, len(md.Plugins))
	for _, p := range md.Plugins {
		plugins = append(plugins, markdown.Plugin{Name: p.Name, Options: p.Options})
	}
	a.Markdown = markdown.New(markdown.Options{
		ExternalLinksTarget: md.ExternalLinksTarget,
		ExternalLinksRel:    md.ExternalLinksRel,
		SiteURL:             cfg.URL,
		Extensions:          md.Extensions,
		Plugins:             plugins,
	})
	return a
}

// Open opens the store and cache. Start calls it; tests and the build
// command call it directly.
func (a *App) Open() error {
	if a.Store != nil {
		return nil
	}
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pubgarden: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewRouteCache(store, a.Config.CacheTTL)
	return nil
}

// Build runs the pipeline, writes routes.json and persists the result.
// Concurrent calls are serialized.
func (a *App) Build(ctx context.Context) (*BuildResult, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	if err := a.Open(); err != nil {
		return nil, err
	}
	res, err := NewBuilder(a.Config, a.logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	out, err := WriteRouteArtifact(a.Config.OutputDir, a.Config.Name, a.Config.Mode, res.Routes)
	if err != nil {
		return nil, fmt.Errorf("pubgarden: write route table: %w", err)
	}
	a.logger.Infof("wrote %s", out)
	if err := a.Store.SaveBuild(ctx, res); err != nil {
		return nil, fmt.Errorf("pubgarden: save build: %w", err)
	}
	a.Cache.Invalidate()
	a.last = res
	return res, nil
}

// LastBuild returns the result of the most recent successful Build, or nil.
func (a *App) LastBuild() *BuildResult {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()
	return a.last
}

// Start builds the site, sets up middleware and routes and starts the server.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.Build(ctx); err != nil {
		return err
	}
	a.setupMiddleware()
	a.setupRoutes()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler returns the configured HTTP handler without starting a listener.
func (a *App) Handler() http.Handler {
	a.setupMiddleware()
	a.setupRoutes()
	return a.Echo
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/routes.json", a.handleRouteTable)

	// Everything else goes through the generated route table, which ends in
	// the wildcard not-found route.
	e.GET("/*", a.handlePage)
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
