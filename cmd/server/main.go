package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/iliyamo/festival-ticketing/internal/app"
	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/database"
	"github.com/iliyamo/festival-ticketing/internal/handler"
	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/memstore"
	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	addr := pflag.String("addr", "", "listen address (default :$APP_PORT)")
	migrate := pflag.Bool("migrate", true, "apply the schema on startup (mysql only)")
	pflag.Parse()

	if err := run(*envFile, *addr, *migrate); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(envFile, addr string, migrate bool) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(logging.Config{Service: "festival-api", Env: cfg.Env, Level: cfg.LogLevel})
	slog.SetDefault(log)
	metrics.MustRegister("festival-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store service.Store
		db    handler.Pinger
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		store = memstore.New()
	default:
		sqlDB, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqlDB.Close()
		if migrate {
			if err := database.Migrate(ctx, sqlDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		store, db = repository.NewStore(sqlDB), sqlDB
	}

	var rdb *redis.Client
	if config.RedisEnabled() {
		if rdb, err = config.NewRedisClient(ctx); err != nil {
			log.Warn("redis unavailable; rate limiting and caching disabled", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	notifier, closeNotifier := app.Notifier(cfg, log)
	defer closeNotifier()

	e, err := app.New(app.Deps{
		Config:   cfg,
		Store:    store,
		Notifier: notifier,
		Log:      log,
		Redis:    rdb,
		DB:       db,
		Metrics:  true,
	})
	if err != nil {
		return err
	}

	if addr == "" {
		addr = ":" + cfg.Port
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "storage", cfg.StorageDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
