package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/finvault/finvault/pkg/api"
	"github.com/finvault/finvault/pkg/auth"
	"github.com/finvault/finvault/pkg/config"
	"github.com/finvault/finvault/pkg/csrf"
	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
	"github.com/finvault/finvault/pkg/storage"
)

func main() {
	limitsFile := flag.String("limits", "", "Path to a YAML rate limit override file (overrides FINVAULT_LIMITS_FILE)")
	flag.Parse()

	startup := logrus.New()
	startup.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		startup.Fatalf("Failed to load configuration: %v", err)
	}
	if *limitsFile != "" {
		cfg.LimitsFile = *limitsFile
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics()

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		startup.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		startup.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	startup.Infof("Database ready (driver=%s)", cfg.Database.Driver)

	// Token verification: OIDC delegation when configured, local JWT
	// otherwise. The local verifier doubles as the login token issuer.
	jwtVerifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	var verifier auth.Verifier = jwtVerifier
	if cfg.Auth.OIDCIssuerURL != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
			IssuerURL: cfg.Auth.OIDCIssuerURL,
			ClientID:  cfg.Auth.OIDCClientID,
		})
		if err != nil {
			startup.Fatalf("Failed to configure OIDC verifier: %v", err)
		}
		verifier = oidcVerifier
		startup.Infof("Token verification delegated to %s", cfg.Auth.OIDCIssuerURL)
	}

	scheduler := cron.New()

	// CSRF guard: durable records in production, process-local in
	// development
	var csrfStore csrf.Store
	var csrfMemory *csrf.MemoryStore
	if cfg.Profile == config.ProfileProduction {
		csrfStore = csrf.NewSQLStore(db)
	} else {
		csrfMemory = csrf.NewMemoryStore()
		csrfStore = csrfMemory
	}
	guard := csrf.NewGuard(csrfStore, logger)

	// Rate limiting: shared Redis counters in production, LRU-bounded
	// local counters in development
	if cfg.LimitsFile != "" {
		if err := config.LoadLimits(cfg.LimitsFile, cfg.RateLimit); err != nil {
			startup.Fatalf("Failed to load rate limit overrides: %v", err)
		}
		stopWatch, err := config.WatchLimits(cfg.LimitsFile, cfg.RateLimit, logger)
		if err != nil {
			startup.Fatalf("Failed to watch rate limit overrides: %v", err)
		}
		defer stopWatch()
		startup.Infof("Rate limit overrides active from %s", cfg.LimitsFile)
	}

	var counterStore ratelimit.CounterStore
	var redisClient *redis.Client
	if cfg.UseRedisCounters() {
		redisClient, err = storage.NewRedisClient(cfg.Redis)
		if err != nil {
			startup.Fatalf("Failed to connect to redis: %v", err)
		}
		counterStore = ratelimit.NewRedisStore(redisClient, "finvault:rl")
		startup.Info("Rate limiting on shared redis counters")
	} else {
		memStore, err := ratelimit.NewMemoryStore(0)
		if err != nil {
			startup.Fatalf("Failed to create local counter store: %v", err)
		}
		counterStore = memStore
		window := cfg.RateLimit.Window
		scheduler.AddFunc("@every 5m", func() {
			if n := memStore.Prune(window); n > 0 {
				logger.WithField("pruned", n).Debug("Pruned idle rate counters")
			}
		})
		startup.Info("Rate limiting on local in-memory counters")
	}
	limiter := ratelimit.NewLimiter(counterStore, cfg.RateLimit, logger, metrics)

	if csrfMemory != nil {
		scheduler.AddFunc("@hourly", func() {
			csrfMemory.DeleteStale(24 * time.Hour)
		})
	}

	auditLogger := buildAuditLogger(ctx, startup, scheduler, cfg, db, logger)
	if auditLogger != nil {
		defer auditLogger.Close()
	}

	server := api.NewServer(api.ServerConfig{
		Users:        storage.NewSQLUserStore(db),
		Accounts:     storage.NewSQLAccountStore(db),
		Transactions: storage.NewSQLTransactionStore(db),
		Verifier:     verifier,
		Issuer:       jwtVerifier,
		TokenTTL:     cfg.Auth.TokenTTL,
		Guard:        guard,
		Limiter:      limiter,
		Logger:       logger,
		Metrics:      metrics,
		Audit:        auditLogger,
	})

	tracing := observability.TracingMiddleware(otelProviders, cfg.Observability.OTelServiceName)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      tracing(server.Handler()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.OpsPort,
		Handler:      opsHandler(db, redisClient, metrics, cfg.Observability.MetricsEnabled),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		scheduler.Stop()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		startup.Infof("API server listening on %s (profile=%s)", apiServer.Addr, cfg.Profile)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		startup.Infof("Ops server listening on %s", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := g.Wait(); err != nil {
		startup.Fatalf("Server error: %v", err)
	}
	startup.Info("Shutdown complete")
}
