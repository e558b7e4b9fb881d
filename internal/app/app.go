// Package app wires storage, services, handlers and middleware into
// an echo server.  cmd/server and the end-to-end tests share it.
package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/handler"
	"github.com/iliyamo/festival-ticketing/internal/middleware"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/qr"
	"github.com/iliyamo/festival-ticketing/internal/router"
	"github.com/iliyamo/festival-ticketing/internal/service"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// Deps are the long-lived resources the server is built from.
type Deps struct {
	Config   config.Config
	Store    service.Store
	Notifier notify.Notifier
	Log      *slog.Logger
	// Redis enables rate limiting and the event cache when non-nil.
	Redis *redis.Client
	// DB backs the readiness probe; nil means always ready.
	DB handler.Pinger
	// Metrics mounts /metrics.
	Metrics bool
}

// New builds the HTTP server.
func New(d Deps) (*echo.Echo, error) {
	codec, err := ticket.NewCodec(d.Config.TicketSecret)
	if err != nil {
		return nil, err
	}
	cfg, st, log := d.Config, d.Store, d.Log

	renderer := qr.NewRenderer(cfg.BaseURL, codec)
	issuer := service.NewTicketIssuer(codec, renderer)
	audit := service.NewAuditWriter(st, log)
	authSvc := service.NewAuthService(st, st, st, d.Notifier, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, log)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), d.Redis, log)
	h := router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, log, cfg.IsProduction()),
		Events:       handler.NewEventsHandler(service.NewCatalogService(st, st), log),
		Reservations: handler.NewReservationHandler(service.NewReservationService(st, st, st, issuer, d.Notifier, log), log),
		QR:           handler.NewQRHandler(renderer, log),
		Approver:     handler.NewApproverHandler(service.NewCheckInService(codec, st, st, st, st, audit), log),
		Admin:        handler.NewAdminHandler(service.NewAdminService(st, audit, issuer, cfg.BcryptCost, log), cache, log),
	}
	limits := router.Limits{
		Auth:    middleware.NewTokenBucket(config.LoadRouteRateLimit("auth", 10), d.Redis, log),
		QR:      middleware.NewTokenBucket(config.LoadRouteRateLimit("qr", 60), d.Redis, log),
		CheckIn: middleware.NewTokenBucket(config.LoadRouteRateLimit("checkin", 30), d.Redis, log),
		Events:  cache.Middleware(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis, log))
	e.Use(echomw.BodyLimit("1M"))
	e.Pre(middleware.PageGuard(cfg.JWTSecret))

	router.Register(e, h, limits, cfg.JWTSecret, d.DB)
	if d.Metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	if cfg.WebRoot != "" {
		e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
			Root:  cfg.WebRoot,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}
	return e, nil
}

// errorHandler renders echo's own errors (404, 405, bind failures,
// recovered panics) in the API error shape.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, reason, msg := http.StatusInternalServerError, "server_error", "internal error"
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			reason = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
			msg = http.StatusText(status)
		}
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Request().URL.Path, "err", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, echo.Map{"error": reason, "message": msg})
	}
}
