/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the scheduling engine, its storage and caches
// into an HTTP service.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/api"
	"github.com/friendsincode/grimnir_scheduler/internal/auth"
	"github.com/friendsincode/grimnir_scheduler/internal/cache"
	"github.com/friendsincode/grimnir_scheduler/internal/config"
	"github.com/friendsincode/grimnir_scheduler/internal/db"
	"github.com/friendsincode/grimnir_scheduler/internal/engine"
	"github.com/friendsincode/grimnir_scheduler/internal/events"
	"github.com/friendsincode/grimnir_scheduler/internal/notify"
	"github.com/friendsincode/grimnir_scheduler/internal/prefs"
	"github.com/friendsincode/grimnir_scheduler/internal/resolver"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db     *gorm.DB
	cache  *cache.Cache
	bus    *events.Bus
	sink   *notify.Sink
	engine *engine.Engine
	api    *api.API
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("grimnir-scheduler-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if err := db.RegisterCallbacks(database); err != nil {
		return fmt.Errorf("register database callbacks: %w", err)
	}

	// Pool gauge sampling.
	poolDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-poolDone:
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(database)
			}
		}
	}()
	s.DeferClose(func() error {
		close(poolDone)
		return nil
	})

	redisCache, err := cache.New(cache.Config{
		RedisAddr:      s.cfg.RedisAddr,
		RedisPassword:  s.cfg.RedisPassword,
		RedisDB:        s.cfg.RedisDB,
		SettingsTTL:    cache.DefaultSettingsTTL,
		DisableOnError: true,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	s.cache = redisCache
	s.DeferClose(redisCache.Close)

	natsCfg := notify.DefaultConfig()
	natsCfg.URL = s.cfg.NATSURL
	natsCfg.Token = s.cfg.NATSToken
	sink, err := notify.New(natsCfg, s.bus, s.logger)
	if err != nil {
		return fmt.Errorf("initialize notification sink: %w", err)
	}
	s.sink = sink
	s.DeferClose(func() error {
		sink.Close()
		return nil
	})

	preferences := prefs.New(database, redisCache, s.logger)
	mediaResolver := resolver.New(database, preferences, s.logger)
	authz := auth.NewAuthz(database)
	gormStore := store.New(database)

	s.engine = engine.New(gormStore, mediaResolver, authz, preferences, sink, s.logger)
	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.engine, preferences, s.logger)

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Engine exposes the scheduling engine, mainly for tooling commands.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
