package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/gateway"
	"github.com/attendify/notify-agent/internal/gateway/middleware"
	"github.com/attendify/notify-agent/internal/modules/notification"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/config"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/database"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/logger"
	"github.com/attendify/notify-agent/pkg/migration"
)

const moduleShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

// run wires the agent and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := notification.Deps{Config: cfg, Logger: zl, Registerer: reg}

	if cfg.Redis.Enabled {
		zl.Info("connecting to redis", zap.String("addr", cfg.Redis.Addr()))
		rdb, err := database.NewRedis(ctx, cfg.Redis.RedisConfig)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Redis = rdb
	}

	if cfg.Journal.Enabled {
		zl.Info("connecting to journal database", zap.String("host", cfg.Journal.Host))
		db, err := database.NewPostgresDB(ctx, cfg.Journal.PostgresConfig)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migration.AutoMigrate(cfg.Journal.URL(), cfg.Journal.MigrationsPath, zl); err != nil {
			return fmt.Errorf("journal migrations: %w", err)
		}
		deps.DB = db
	}

	mod, err := notification.NewModule(deps)
	if err != nil {
		return err
	}

	srv := gateway.NewServer(cfg.Server.Port, buildHandler(cfg, mod, reg), zl)
	serveErr := srv.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), moduleShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, mod.Shutdown(shutdownCtx))
}

// buildHandler assembles routes and the middleware chain: metrics outermost,
// then CORS.
func buildHandler(cfg *config.Config, mod *notification.Module, reg *prometheus.Registry) http.Handler {
	mux := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: mod.HTTPHandler(),
		JournalHandler:      mod.JournalHandler(),
		Gatherer:            reg,
	})
	httpMetrics := middleware.NewHTTPMetrics(reg)
	return httpMetrics.Middleware(middleware.CORSMiddleware(mux, cfg.Server.AllowedOrigins))
}
