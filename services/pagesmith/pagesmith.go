// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pagesmith wires the page-composition engine into a runnable HTTP
// service.
//
// # Usage
//
// Local single-user deployment (no-op auth):
//
//	cfg, err := config.Load(os.Getenv("PAGESMITH_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc, err := pagesmith.New(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run(ctx))
//
// Deployments with identity infrastructure inject providers:
//
//	opts := extensions.DefaultOptions().WithAuth(myProvider)
//	svc, err := pagesmith.New(ctx, cfg, &opts)
package pagesmith

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/config"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/interpret"
	"github.com/AleutianAI/pagesmith/services/pagesmith/middleware"
	"github.com/AleutianAI/pagesmith/services/pagesmith/observability"
	"github.com/AleutianAI/pagesmith/services/pagesmith/realtime"
	"github.com/AleutianAI/pagesmith/services/pagesmith/routes"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
	"github.com/AleutianAI/pagesmith/services/pagesmith/sessionstore"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

// ServiceName identifies the service in traces and logs.
const ServiceName = "pagesmith"

// limiterEvictInterval is how often idle rate-limit buckets are dropped.
const limiterEvictInterval = time.Minute

// Service owns every long-lived component of a running pagesmith server.
//
// # Description
//
// New selects the session store once by probing the configured backends in
// order, builds the engine, the optional LLM collaborators, the realtime hub
// and the router. Run serves HTTP together with the TTL sweeper until the
// context is cancelled, then shuts everything down.
//
// # Thread Safety
//
// Run must be called at most once. Close is safe to call more than once.
type Service struct {
	cfg    config.Config
	opts   extensions.ServiceOptions
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *observability.Metrics

	catalog  *catalog.Catalog
	composer *compose.Composer
	store    sessionstore.Store
	sweeper  *sessionstore.Sweeper
	orch     *session.Orchestrator
	hub      *realtime.Hub
	limiter  *middleware.RateLimiter
	router   *gin.Engine

	tracerCleanup func(context.Context)
	closeOnce     sync.Once
	closeErr      error
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a Service.
//
// # Description
//
// Initialization order:
//  1. Tracing (only when an OTLP endpoint is configured)
//  2. Prometheus registry and metrics (when enabled)
//  3. Session store selection (first backend that passes the probe)
//  4. LLM collaborators (interpreter and content enricher; optional)
//  5. Session orchestrator and realtime hub
//  6. Router with auth, rate limiting and otelgin
//
// If opts is nil, the providers selected by cfg are used.
//
// # Outputs
//
//   - *Service: Ready to Run.
//   - error: Non-nil when no store backend works, the catalog is
//     inconsistent, or an LLM backend is configured but cannot be created.
func New(ctx context.Context, cfg config.Config, opts *extensions.ServiceOptions) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		logger: slog.Default().With("component", ServiceName),
	}
	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = cfg.ServiceOptions()
	}

	cleanup, err := s.initTracer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if cfg.Observability.MetricsEnabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		s.metrics = observability.NewMetrics(s.registry)
	}

	s.catalog = catalog.Default()
	if err := content.ValidateCatalog(s.catalog); err != nil {
		s.cleanupTracer()
		return nil, fmt.Errorf("catalog is inconsistent with content schemas: %w", err)
	}
	s.composer = compose.NewComposer(s.catalog, rules.Default())

	if err := s.initStore(ctx); err != nil {
		s.cleanupTracer()
		return nil, err
	}

	orchOpts, err := s.sessionOptions()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.orch = session.NewOrchestrator(s.composer, s.store, orchOpts)
	s.hub = realtime.NewHub(s.orch, realtime.Config{
		OnSubscribers: s.metrics.SetSubscribers,
		Logger:        s.logger.With("subsystem", "realtime"),
	})
	s.orch.SetBroadcaster(s.hub)

	s.sweeper = sessionstore.NewSweeper(s.store, cfg.Store.SweepInterval, s.logger.With("subsystem", "sweeper"))
	s.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	s.initRouter()
	return s, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Router returns the configured Gin engine. Used by tests.
func (s *Service) Router() *gin.Engine { return s.router }

// Orchestrator returns the session orchestrator.
func (s *Service) Orchestrator() *session.Orchestrator { return s.orch }

// Store returns the selected session store.
func (s *Service) Store() sessionstore.Store { return s.store }

// Sweeper returns the TTL sweeper.
func (s *Service) Sweeper() *sessionstore.Sweeper { return s.sweeper }

// =============================================================================
// Lifecycle
// =============================================================================

// Run serves HTTP and runs the sweeper until ctx is cancelled or the server
// fails. Resources are released before Run returns.
func (s *Service) Run(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := s.sweeper.Start(gctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	g.Go(func() error {
		s.logger.Info("Starting pagesmith server", "port", s.cfg.Server.Port, "store", s.store.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.limiter.Enabled() {
		g.Go(func() error {
			s.limiter.Run(gctx, limiterEvictInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down pagesmith server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.sweeper.Stop()
		// Hijacked WebSocket connections are not closed by Shutdown.
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the sweeper, the hub, the audit log, the store and the
// tracer.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if s.hub != nil {
			s.hub.Close()
		}
		if s.opts.AuditLogger != nil {
			if err := s.opts.AuditLogger.Flush(context.Background()); err != nil {
				s.logger.Warn("Failed to flush audit log", "error", err)
			}
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				s.closeErr = fmt.Errorf("close session store: %w", err)
			}
		}
		s.cleanupTracer()
	})
	return s.closeErr
}

func (s *Service) cleanupTracer() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer sets up OTLP trace export when an endpoint is configured.
// Without one, the global no-op tracer provider stays in place.
func (s *Service) initTracer(ctx context.Context) (func(context.Context), error) {
	endpoint := s.cfg.Observability.OTLPEndpoint
	if endpoint == "" {
		return nil, nil
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if s.cfg.Observability.OTLPInsecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	s.logger.Info("Tracing enabled", "endpoint", endpoint)

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	}, nil
}

// initStore probes the configured backends in order and keeps the first
// that works. The chain is never re-probed.
func (s *Service) initStore(ctx context.Context) error {
	storeOpts := sessionstore.Options{
		TTL:    s.cfg.Store.SessionTTL,
		Logger: s.logger.With("subsystem", "sessionstore"),
	}

	candidates := make([]sessionstore.Candidate, 0, len(s.cfg.Store.Backends))
	for _, name := range s.cfg.Store.Backends {
		switch name {
		case config.BackendBadger:
			bcfg := sessionstore.DefaultBadgerConfig(config.ExpandHome(s.cfg.Store.BadgerPath))
			bcfg.InMemory = s.cfg.Store.BadgerInMemory
			candidates = append(candidates, sessionstore.Candidate{
				Name: name,
				Open: func(context.Context) (sessionstore.Store, error) {
					return sessionstore.OpenBadger(bcfg, storeOpts)
				},
			})
		case config.BackendSQLite:
			path := config.ExpandHome(s.cfg.Store.SQLitePath)
			candidates = append(candidates, sessionstore.Candidate{
				Name: name,
				Open: func(ctx context.Context) (sessionstore.Store, error) {
					if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
						return nil, fmt.Errorf("create sqlite directory: %w", err)
					}
					return sessionstore.OpenSQLite(ctx, path, storeOpts)
				},
			})
		case config.BackendMemory:
			candidates = append(candidates, sessionstore.Candidate{
				Name: name,
				Open: func(context.Context) (sessionstore.Store, error) {
					return sessionstore.NewMemory(storeOpts), nil
				},
			})
		default:
			return fmt.Errorf("unknown session store backend %q", name)
		}
	}

	store, err := sessionstore.Select(ctx, candidates, storeOpts.Logger)
	if err != nil {
		return fmt.Errorf("failed to select session store: %w", err)
	}
	s.store = sessionstore.WithErrorHook(store, s.metrics.RecordStoreError)
	return nil
}

// sessionOptions builds the orchestrator options, including the optional
// LLM interpreter and content enricher.
func (s *Service) sessionOptions() (session.Options, error) {
	opts := session.Options{
		Compose:     s.cfg.ComposeBounds(),
		OnOperation: s.metrics.RecordSessionOperation,
		Logger:      s.logger.With("subsystem", "session"),
	}

	client, err := llm.New(s.cfg.LLMClientConfig())
	switch {
	case errors.Is(err, llm.ErrNoBackend):
		s.logger.Info("No LLM backend configured, using the keyword interpreter only")
		client = nil
	case err != nil:
		return opts, fmt.Errorf("failed to initialize LLM client: %w", err)
	default:
		s.logger.Info("LLM backend configured", "backend", s.cfg.LLM.Backend)
	}

	var remote interpret.Interpreter
	if client != nil {
		remote = interpret.NewLLM(client, transform.NewLibrary(s.composer).Names())
		if s.cfg.LLM.ContentGeneration {
			opts.Enricher = content.NewEnricher(client, s.cfg.LLM.ContentTimeout, opts.Logger)
		}
	}
	opts.Interpreter = interpret.NewEngine(remote, interpret.EngineConfig{
		Threshold: s.cfg.LLM.InterpreterThreshold,
		Timeout:   s.cfg.LLM.InterpreterTimeout,
		OnResult:  s.metrics.RecordInterpreter,
		Logger:    opts.Logger,
	})
	return opts, nil
}

// initRouter builds the Gin engine with tracing and every route.
func (s *Service) initRouter() {
	gin.SetMode(s.cfg.Server.GinMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware(ServiceName))

	deps := routes.Dependencies{
		Catalog:         s.catalog,
		Composer:        s.composer,
		ComposeDefaults: s.cfg.ComposeBounds(),
		Orchestrator:    s.orch,
		StoreName:       s.store.Name(),
		Hub:             s.hub,
		Metrics:         s.metrics,
		RateLimiter:     s.limiter,
		Options:         s.opts,
	}
	if s.registry != nil {
		deps.Gatherer = s.registry
	}
	routes.SetupRoutes(s.router, deps)
}
