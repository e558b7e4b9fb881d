// Command mailer drains the RabbitMQ mail queues filled by the API
// server and delivers each message over SMTP.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/iliyamo/festival-ticketing/internal/app"
	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/queue"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	metricsAddr := pflag.String("metrics-addr", ":9102", "address for /metrics; empty disables it")
	prefetch := pflag.Int("prefetch", 10, "unacknowledged messages per consumer")
	pflag.Parse()

	if err := run(*envFile, *metricsAddr, *prefetch); err != nil {
		fmt.Fprintln(os.Stderr, "mailer:", err)
		os.Exit(1)
	}
}

func run(envFile, metricsAddr string, prefetch int) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required")
	}
	log := logging.New(logging.Config{Service: "festival-mailer", Env: cfg.Env, Level: cfg.LogLevel})
	slog.SetDefault(log)
	metrics.MustRegister("festival-mailer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	c := &queue.Consumer{
		URL:      cfg.RabbitMQURL,
		Sender:   notify.NewMailNotifier(app.Mailer(cfg, log)),
		Log:      log,
		Prefetch: prefetch,
	}
	log.Info("mailer started", "queues", queue.Queues)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
