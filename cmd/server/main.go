// Package main is the entry point for the chat gateway server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/internal/agent"
	"github.com/undergnarly/odoo-mcp-chat/internal/audit"
	"github.com/undergnarly/odoo-mcp-chat/internal/config"
	"github.com/undergnarly/odoo-mcp-chat/internal/discovery"
	"github.com/undergnarly/odoo-mcp-chat/internal/domfilter"
	"github.com/undergnarly/odoo-mcp-chat/internal/intent"
	"github.com/undergnarly/odoo-mcp-chat/internal/observability"
	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
	"github.com/undergnarly/odoo-mcp-chat/internal/schema"
	"github.com/undergnarly/odoo-mcp-chat/internal/session"
	"github.com/undergnarly/odoo-mcp-chat/internal/transport"
	"github.com/undergnarly/odoo-mcp-chat/internal/validate"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

const discoveryCatalogTTL = 5 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "odoo-chat-gateway", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Backend client behind a circuit breaker.
	breaker := odoo.NewBreaker(
		cfg.Odoo.CircuitBreaker.FailureThreshold,
		cfg.Odoo.CircuitBreaker.SuccessThreshold,
		cfg.Odoo.CircuitBreaker.Cooldown,
	)
	client := odoo.NewJSONRPCClient(odoo.Options{
		URL:      cfg.Odoo.URL,
		Database: cfg.Odoo.Database,
		Login:    cfg.Odoo.Login,
		APIKey:   os.Getenv(cfg.Odoo.APIKeyEnv),
		Timeout:  cfg.Odoo.Timeout,
		Breaker:  breaker,
		Logger:   logger,
	})

	// Schema-aware pipeline.
	schemas := schema.NewCache(client, schema.Options{
		TTL:    cfg.Schema.TTL,
		Logger: logger,
		OnHit:  metrics.RecordSchemaCacheHit,
		OnMiss: metrics.RecordSchemaCacheMiss,
	})
	validator := validate.NewValidator(schemas, logger)
	filters := domfilter.NewNormalizer(logger)
	disc := discovery.NewService(client, discoveryCatalogTTL, logger)

	// Stores.
	sessions, sessionCloser, err := buildSessionStore(cfg.Session, logger)
	if err != nil {
		logger.Error("session store initialization failed", zap.Error(err))
		return 1
	}
	auditStore, auditCloser, err := buildAuditStore(ctx, cfg.Audit, logger)
	if err != nil {
		logger.Error("audit store initialization failed", zap.Error(err))
		return 1
	}

	// Intent classifier.
	classifier, err := intent.NewGeminiClassifier(ctx, intent.GeminiOptions{
		APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
		Provider:    &agent.PromptContext{Discovery: disc, Schemas: schemas},
		Logger:      logger,
	})
	if err != nil {
		logger.Error("classifier initialization failed", zap.Error(err))
		return 1
	}

	ag := agent.New(agent.Options{
		Client:     client,
		Schemas:    schemas,
		Validator:  validator,
		Filters:    filters,
		Classifier: classifier,
		Sessions:   sessions,
		Audit:      auditStore,
		Discovery:  disc,
		Metrics:    metrics,
		Logger:     logger,
		ReadOnly:   cfg.ReadOnlyMode,
		PendingTTL: cfg.Session.PendingTTL,
	})

	readiness := observability.ReadinessChecks{Backend: client}
	if hc, ok := sessions.(observability.HealthChecker); ok {
		readiness.SessionStore = hc
	}
	if hc, ok := auditStore.(observability.HealthChecker); ok {
		readiness.AuditStore = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config: cfg,
		Handlers: &transport.Handlers{
			Agent:     ag,
			Schemas:   schemas,
			Discovery: disc,
			Audit:     auditStore,
		},
		Metrics:      metrics,
		Authenticate: transport.NewAuthenticator(cfg.Auth).Middleware,
		Readiness:    readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background tasks.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	if cfg.Schema.PreloadCommon {
		go func() {
			loaded := schemas.PreloadCommon(bgCtx)
			ok := 0
			for _, success := range loaded {
				if success {
					ok++
				}
			}
			logger.Info("schema preload finished",
				zap.Int("loaded", ok),
				zap.Int("attempted", len(loaded)))
			metrics.SetSchemaCacheEntries(float64(len(schemas.CachedModels())))
		}()
	}
	go reportBreakerState(bgCtx, client, metrics)

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Bool("read_only_mode", cfg.ReadOnlyMode),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()

	if sessionCloser != nil {
		sessionCloser()
	}
	if auditCloser != nil {
		auditCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildSessionStore creates the session store based on config.
func buildSessionStore(cfg config.SessionConfig, logger *zap.Logger) (session.Store, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("session store: %s environment variable not set", cfg.AddrEnv)
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		logger.Info("using redis session store", zap.String("addr", addr))
		return session.NewRedisStore(rdb), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store driver: %q", cfg.Driver)
	}
}

// buildAuditStore creates the audit store based on config.
func buildAuditStore(ctx context.Context, cfg config.AuditConfig, logger *zap.Logger) (audit.Store, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory audit store")
		return audit.NewMemoryStore(cfg.MaxEntries), nil, nil
	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("audit store: %s environment variable not set", cfg.DSNEnv)
		}

		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("audit store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("audit store: ping: %w", err)
		}

		store := audit.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using postgres audit store")
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported audit store driver: %q", cfg.Driver)
	}
}

// reportBreakerState keeps the circuit breaker gauge current.
func reportBreakerState(ctx context.Context, client *odoo.JSONRPCClient, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var state float64
			switch client.BreakerState() {
			case "half-open":
				state = 1
			case "open":
				state = 2
			}
			metrics.SetBackendCircuitBreakerState(state)
		}
	}
}
