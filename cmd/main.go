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

	"github.com/senyabanana/autoservice-market/internal/cache"
	"github.com/senyabanana/autoservice-market/internal/db"
	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/handlers"
	"github.com/senyabanana/autoservice-market/internal/logger"
	"github.com/senyabanana/autoservice-market/internal/metrics"
	"github.com/senyabanana/autoservice-market/internal/middleware"
	"github.com/senyabanana/autoservice-market/internal/repository"
	"github.com/senyabanana/autoservice-market/internal/router"
	"github.com/senyabanana/autoservice-market/internal/router/config"
	"github.com/senyabanana/autoservice-market/internal/scheduler"
	"github.com/senyabanana/autoservice-market/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "autoservice-market"
	shutdownTimeout = 10 * time.Second
	sweepBatch      = 100
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           serviceName,
	Short:         "Service request and bid marketplace for car owners and workshops",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// serveCmd запускает HTTP API, сервер метрик и планировщик.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the metrics listener and the expiry sweeper",
	RunE:  runServe,
}

// migrateCmd применяет миграции схемы.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

// sweepCmd выполняет один проход закрытия просроченных заявок.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue service requests once and exit",
	RunE:  runSweep,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app - собранные зависимости сервиса.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	store     repository.Store
	cache     cache.RequestCache
	publisher events.Publisher
	metrics   *metrics.Metrics

	requests  *services.RequestService
	bids      *services.BidService
	lifecycle *services.LifecycleService
	auth      *services.AuthService
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}

	log, err := logger.New(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	if err := db.Migrate(cfg); err != nil {
		return nil, err
	}
	log.Info("db migrated successfully", zap.String("driver", cfg.StorageDriver))

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &app{cfg: cfg, log: log, store: store, metrics: metrics.New()}

	a.cache = cache.NopCache{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.cache = cache.NewRedisRequestCache(rdb, cfg.CacheTTL)
		log.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	a.publisher = events.NewLogPublisher(log)
	if cfg.KafkaBrokers != "" {
		a.publisher = events.NewKafkaPublisher(events.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		log.Info("kafka events enabled", zap.String("topic", cfg.KafkaTopic))
	}

	deps := services.Deps{
		Store:   store,
		Cache:   a.cache,
		Events:  a.publisher,
		Metrics: a.metrics,
		Log:     log,
	}
	a.requests = services.NewRequestService(deps, cfg.RequestTTL)
	a.bids = services.NewBidService(deps)
	a.lifecycle = services.NewLifecycleService(deps)
	a.auth = services.NewAuthService(store, log, cfg.Secret(), cfg.TokenTTL)
	return a, nil
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("close event publisher", zap.Error(err))
	}
	a.store.Close()
	_ = a.log.Sync()
}

func (a *app) health(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := a.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	timeout := a.cfg.RequestTimeout
	routes := router.InitRoutes(router.Handlers{
		Requests: handlers.NewRequestHandler(a.requests, a.lifecycle, a.log, timeout),
		Bids:     handlers.NewBidHandler(a.bids, a.log, timeout),
		Auth:     handlers.NewAuthHandler(a.auth, a.log, timeout),
	}, middleware.NewAuthenticator(a.auth))

	trustedProxies, err := middleware.ParseTrustedProxies(a.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	limiter := middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, trustedProxies, a.log)
	var handler http.Handler = routes
	handler = limiter.Middleware(handler)
	handler = middleware.AccessLog(a.log, a.metrics)(handler)
	handler = middleware.Recover(a.log)(handler)

	apiServer := &http.Server{
		Addr:              a.cfg.ServerAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              a.cfg.MetricsAddress,
		Handler:           a.metrics.Handler(a.health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sweeper := scheduler.New(a.lifecycle, a.log, a.cfg.ExpirySweepSpec, sweepBatch)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server is listening", zap.String("addr", apiServer.Addr))
		return listen(apiServer)
	})
	g.Go(func() error {
		a.log.Info("metrics server is listening", zap.String("addr", metricsServer.Addr))
		return listen(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s failed: %w", srv.Addr, err)
	}
	return nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	if err := db.Migrate(cfg); err != nil {
		return err
	}
	fmt.Println("db migrated successfully")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.lifecycle.ExpireOverdue(cmd.Context(), time.Now().UTC(), sweepBatch)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	a.log.Info("sweep finished", zap.Int("expired", n))
	return nil
}
