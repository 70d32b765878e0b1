package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sanjeevni/portal/internal/config"
	authdomain "github.com/sanjeevni/portal/internal/domain/auth"
	"github.com/sanjeevni/portal/internal/domain/bloodbank"
	"github.com/sanjeevni/portal/internal/domain/booking"
	"github.com/sanjeevni/portal/internal/domain/notification"
	"github.com/sanjeevni/portal/internal/domain/queue"
	"github.com/sanjeevni/portal/internal/platform/auth"
	"github.com/sanjeevni/portal/internal/platform/db"
	"github.com/sanjeevni/portal/internal/platform/metrics"
	"github.com/sanjeevni/portal/internal/platform/middleware"
	"github.com/sanjeevni/portal/internal/platform/store"
	"github.com/sanjeevni/portal/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Sanjeevni patient portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(recordsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres record store",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, poolOptions(ctx, cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, poolOptions(ctx, cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect the record store",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every record stored for a client as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, _ := cmd.Flags().GetString("client")
			if !store.ValidClientID(clientID) {
				return fmt.Errorf("--client must be a valid client id, got %q", clientID)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			records, err := store.Snapshot(ctx, b.kv, clientID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
	dumpCmd.Flags().String("client", "default", "Client id whose records are printed")
	cmd.AddCommand(dumpCmd)

	return cmd
}

// backend is an opened record store plus what the health check needs.
type backend struct {
	name    string
	kv      store.KV
	ping    db.PingFunc
	details func() interface{}
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{name: cfg.StoreBackend, close: func() {}}
	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.kv = store.NewMemoryKV()
	case config.BackendFile:
		kv, err := store.NewFileKV(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		b.kv = kv
	case config.BackendRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.kv = store.NewRedisKV(client)
		b.ping = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		b.close = func() { _ = client.Close() }
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, poolOptions(ctx, cfg))
		if err != nil {
			return nil, err
		}
		b.kv = store.NewPostgresKV(pool)
		b.ping = pool.Ping
		b.details = func() interface{} { return db.GetPoolStats(pool) }
		b.close = pool.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return b, nil
}

func poolOptions(ctx context.Context, cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		URL:              cfg.DatabaseURL,
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		StatementTimeout: cfg.DBStatementTimeout,
		Logger:           *zerolog.Ctx(ctx),
	}
}

// app holds the wired services of a running server.
type app struct {
	echo      *echo.Echo
	scheduler *queue.Scheduler
}

func newApp(cfg *config.Config, logger zerolog.Logger, b *backend, reg *prometheus.Registry) *app {
	m := metrics.New(reg)

	// Domain services
	hub := websocket.NewHub(logger)
	notifier := notification.NewEmitter(notification.NewStoreRepo(b.kv), cfg.NotificationCap, m)
	notifier.SetPublisher(hub)
	authSvc := authdomain.NewService(authdomain.NewStoreRepo(b.kv), cfg.OTPTTL, m)
	apptRepo := booking.NewStoreRepo(b.kv)
	bookingSvc := booking.NewService(booking.DefaultCatalog(), apptRepo, notifier, m)
	sim := queue.NewSimulator(apptRepo, notifier, cfg.QueueMinutesPerPatient, logger, m)
	bloodSvc := bloodbank.NewService(bloodbank.NewStoreRepo(b.kv), bloodbank.DefaultInventory(), notifier, m)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Rate limits key on this address, so forwarding headers count only
	// behind a proxy that overwrites them.
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// Global middleware
	e.Use(middleware.Recovery(logger, m.HandlerPanicked))
	e.Use(middleware.RequestID())
	e.Use(store.ClientMiddleware(cfg.DefaultClient))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, store.ClientIDHeader},
	}))
	e.Use(m.Middleware())

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/store", db.HealthHandler(b.name, b.ping, b.details))
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// Session gate for client records
	sessionCfg := auth.SessionConfig{
		Issuer:             auth.NewTokenIssuer(cfg.SigningKey(), cfg.SessionTTL),
		Sessions:           authSvc.CurrentUserID,
		AllowStoredSession: cfg.IsDev(),
	}
	requireSession := auth.RequireSession(sessionCfg)
	limiter := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})

	apiV1 := e.Group("/api/v1")
	authdomain.NewHandler(authSvc, sessionCfg.Issuer).RegisterRoutes(apiV1, limiter)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1, requireSession)
	notification.NewHandler(notifier).RegisterRoutes(apiV1, requireSession)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1, "/notifications/stream", requireSession)
	queue.NewHandler(sim).RegisterRoutes(apiV1, requireSession)
	bloodbank.NewHandler(bloodSvc).RegisterRoutes(apiV1, requireSession)

	return &app{
		echo:      e,
		scheduler: queue.NewScheduler(sim, cfg.QueueTickInterval, logger),
	}
}

func runServer() error {
	logger := newLogger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Record store
	ctx := logger.WithContext(context.Background())
	b, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open record store")
	}
	defer b.close()
	logger.Info().Str("backend", b.name).Msg("record store ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := newApp(cfg, logger, b, reg)
	if err := a.scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start queue simulator")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.scheduler.Stop(shutdownCtx)
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
