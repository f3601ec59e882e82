package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"emberAPI/handlers"
	"emberAPI/internal/config"
	"emberAPI/internal/docstore"
	"emberAPI/internal/docstore/postgres"
	"emberAPI/internal/docstore/sqlite"
	"emberAPI/internal/logger"
	"emberAPI/middleware"
	"emberAPI/services"
)

const startupTimeout = 10 * time.Second

// NewRootCmd builds the ember CLI. Running it without a subcommand serves
// the API.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ember",
		Short:         "Ember smoking tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Fill the last 14 days with sample logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd)
		},
	})

	return root
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logger.New(logger.Options{
		Service: "ember-api",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if !dotenv {
		log.Debug().Msg("No .env file found")
	}
	return cfg, log, nil
}

// openStore connects the configured driver and makes sure the schema exists.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (docstore.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		opts := postgres.DefaultPoolOptions
		opts.MaxConns = cfg.DBMaxConns
		opts.MinConns = cfg.DBMinConns

		store, err := postgres.Open(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		log.Info().Str("driver", cfg.StoreDriver).Msg("Successfully connected to database")
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.StoreDriver).Str("path", cfg.SQLitePath).Msg("Opened database file")
		return store, nil
	}

	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("Closing database connection...")
		store.Close()
	}()

	settingsService := services.NewSettingsService(store, log)
	delayService := services.NewDelayService(store, settingsService, log)
	logService := services.NewDailyLogService(store, log)
	analyticsService := services.NewAnalyticsService(store, settingsService, delayService)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := middleware.InitPrometheus(reg); err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}
	if err := services.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("failed to register domain metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go limiter.Cleanup(ctx)

	r := handlers.NewRouter(handlers.RouterParams{
		Store:       store,
		Logs:        logService,
		Settings:    settingsService,
		Delays:      delayService,
		Analytics:   analyticsService,
		Logger:      log,
		RateLimiter: limiter,
		Gatherer:    reg,
		MetricsUser: cfg.MetricsUser,
		MetricsPass: cfg.MetricsPass,
		PprofSecret: cfg.PprofSecret,
	})
	if !cfg.MetricsAuthEnabled() {
		log.Warn().Msg("metrics endpoint is not protected; set EMBER_METRICS_USER and EMBER_METRICS_PASS")
	}

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsHandler(r),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info().Str("driver", cfg.StoreDriver).Msg("Schema is up to date")
	return nil
}

func runSeed(ctx context.Context, cmd *cobra.Command) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	seeded, err := services.NewDailyLogService(store, log).Seed(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d days\n", seeded)
	return nil
}
