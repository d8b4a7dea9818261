// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cdrslab/fundam-builder/internal/autocomplete"
	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/config"
	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/eventbus"
	"github.com/cdrslab/fundam-builder/internal/handler"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/preview"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/session"
	"github.com/cdrslab/fundam-builder/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Settings *config.Config
	Pages    page.Store
	Registry *registry.Registry // default catalog when nil
	Log      *slog.Logger

	// SessionIDs and NodeIDs override the id generators, for tests.
	SessionIDs idgen.Generator
	NodeIDs    idgen.Generator
}

// App is the assembled builder backend.
type App struct {
	Handler  http.Handler
	Sessions *session.Manager
	Journal  *event.Journal

	bus      *eventbus.Bus
	settings *config.Config
	log      *slog.Logger
}

// New wires the services and routes. Nothing runs until Start.
func New(cfg Config) *App {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.MustDefault()
	}
	nodeIDs := cfg.NodeIDs
	if nodeIDs == nil {
		nodeIDs = idgen.Node
	}

	// Events flow from sessions into the journal, then to the bus.
	journal := event.NewJournal(500)
	bus := eventbus.New(1024, log)
	journal.SetPublisher(bus)

	gen := codegen.New(reg, codegen.Options{})
	parser := codesync.New(reg, codesync.WithIDGenerator(nodeIDs))
	renderer := preview.New(reg)
	sessions := session.NewManager(session.Services{
		Registry:   reg,
		Generator:  gen,
		Parser:     parser,
		Renderer:   renderer,
		Catalog:    settings.Catalog(),
		Caller:     settings.Caller(),
		Recorder:   journal,
		Log:        log,
		NodeIDs:    nodeIDs,
		SessionIDs: cfg.SessionIDs,
		Inset:      settings.PlacementInset,
		StableIDs:  settings.StableIDs,
	}, settings.Session.MaxAge, settings.Session.IdleTimeout)

	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	if cfg.Pages != nil {
		bus.Subscribe("autosave", eventbus.NewAutosaveConsumer(cfg.Pages, sessions, log))
	}
	bus.Subscribe("journal-gc", eventbus.HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		if evt.EventType == event.TypeSessionClosed {
			journal.Forget(evt.SessionID)
		}
		return nil
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(log))
	r.Use(handler.Logging(log))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		// --- Registry ---
		rh := handler.NewRegistryHandler(reg)
		r.Get("/components", rh.ListComponents)
		r.Get("/components/{type}", rh.GetComponent)
		r.Get("/categories", rh.ListCategories)
		r.Get("/actions", rh.ListActionSchemas)

		// --- Conversions ---
		bh := handler.NewBuilderHandler(reg, gen, parser, renderer)
		r.Post("/generate", bh.Generate)
		r.Post("/parse", bh.Parse)
		r.Post("/preview", bh.Preview)
		r.Post("/complete", bh.Complete)
		r.Post("/export", bh.Export)
		r.Post("/import", bh.Import)

		// --- Pages ---
		if cfg.Pages != nil {
			ph := handler.NewPageHandler(cfg.Pages, reg, gen, nil)
			r.Post("/pages", ph.CreatePage)
			r.Post("/pages/import", ph.ImportPage)
			r.Get("/pages", ph.ListPages)
			r.Get("/pages/{id}", ph.GetPage)
			r.Put("/pages/{id}", ph.UpdatePage)
			r.Delete("/pages/{id}", ph.DeletePage)
			r.Get("/pages/{id}/export", ph.ExportPage)
			r.Get("/pages/{id}/source", ph.PageSource)
		}

		// --- Sessions ---
		sh := handler.NewSessionHandler(sessions, cfg.Pages, journal)
		r.Post("/sessions", sh.CreateSession)
		r.Get("/sessions", sh.ListSessions)
		r.Get("/sessions/{id}", sh.GetSession)
		r.Delete("/sessions/{id}", sh.DeleteSession)
		r.Get("/sessions/{id}/events", sh.ListEvents)
		r.Post("/sessions/{id}/save", sh.SaveSession)

		// Live editing
		r.Get("/ws", wire.NewHandler(sessions, cfg.Pages, autocomplete.New(reg), log).ServeHTTP)
	})

	return &App{
		Handler:  r,
		Sessions: sessions,
		Journal:  journal,
		bus:      bus,
		settings: settings,
		log:      log,
	}
}

// Start runs the event bus and session cleanup until ctx is done.
func (a *App) Start(ctx context.Context) {
	a.bus.Start(ctx)
	go a.Sessions.Run(ctx, a.settings.Session.CleanupInterval)
}

// Stop delivers queued events and stops the bus.
func (a *App) Stop() {
	a.bus.Stop()
}

// Run starts the HTTP server and blocks until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	app := New(cfg)
	app.Start(ctx)
	defer app.Stop()

	port := 8080
	if cfg.Settings != nil {
		port = cfg.Settings.Port
	}
	addr := fmt.Sprintf(":%d", port)
	app.log.Info("starting server", "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.log.Warn("server shutdown", "error", err)
		}
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
