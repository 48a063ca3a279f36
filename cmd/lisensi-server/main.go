// Package main is the entrypoint for the lisensi server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arexans/lisensi/internal/api"
	"github.com/arexans/lisensi/internal/api/handlers"
	"github.com/arexans/lisensi/internal/config"
	"github.com/arexans/lisensi/internal/db"
	"github.com/arexans/lisensi/internal/gateway"
	"github.com/arexans/lisensi/internal/ledger"
	"github.com/arexans/lisensi/internal/license"
	"github.com/arexans/lisensi/internal/maintenance"
	"github.com/arexans/lisensi/internal/metrics"
	"github.com/arexans/lisensi/internal/payment"
	"github.com/arexans/lisensi/internal/session"
	"github.com/arexans/lisensi/internal/watcher"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lisensi-server",
		Short:        "QRIS license storefront server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lisensi-server %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			database, err := connectDatabase(ctx, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("schema_version", version).Msg("migrations up to date")
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lisensi HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultConfigPath, "path to the YAML config file")

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

func connectDatabase(ctx context.Context, logger zerolog.Logger) (*db.DB, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return db.New(ctx, db.DefaultConfig(databaseURL), logger)
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func runServe(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := newLogger()

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("starting lisensi server")

	cfg := config.LoadServerConfig()

	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	providerCfg := config.LoadProviderConfig(fileCfg)
	if err := providerCfg.Validate(); err != nil {
		return fmt.Errorf("provider configuration: %w", err)
	}

	database, err := connectDatabase(ctx, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Metrics can be switched off entirely; PaymentMetrics methods are
	// nil-safe, and a nil registry leaves /metrics unregistered.
	var registry *prometheus.Registry
	var paymentMetrics *metrics.PaymentMetrics
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		paymentMetrics = metrics.NewPaymentMetrics(registry)
	}

	gw := gateway.New(providerCfg, logger)

	// The licenses ledger is optional: without it payments still settle,
	// keys just are not synced to the external repository.
	var issuer *license.Issuer
	ledgerCfg := config.LoadLedgerConfig(fileCfg)
	if err := ledgerCfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("ledger not configured, license sync disabled")
		issuer = license.NewIssuer(nil, logger)
	} else {
		issuer = license.NewIssuer(ledger.New(ledgerCfg, logger), logger)
	}

	svc := payment.NewService(database, gw, issuer, paymentMetrics, logger)

	// One Redis connection serves both session resume and the shared rate
	// limit store. Without it, sessions are disabled and limits are
	// per-process.
	var sessions handlers.SessionStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, session resume and shared rate limiting disabled")
		} else {
			redisClient = client
			sessions = session.NewStore(client, logger)
			defer client.Close()
		}
	} else {
		logger.Info().Msg("REDIS_URL not set, session resume disabled")
	}

	watch := watcher.New(svc, watcher.DefaultInterval, nil, logger)
	defer watch.Stop()

	sweeper := maintenance.NewSweeper(database, "", paymentMetrics, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start expiry sweeper")
	}
	defer sweeper.Stop()

	router, err := api.NewRouter(api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
		RedisClient:       redisClient,
		Registry:          registry,
	}, database, svc, sessions, watch, logger)
	if err != nil {
		return fmt.Errorf("initialize router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("server stopped gracefully")
	return nil
}
