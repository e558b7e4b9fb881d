package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/handler"
	"github.com/iliyamo/festival-ticketing/internal/middleware"
)

// Handlers bundles every HTTP handler of the API.
type Handlers struct {
	Auth         *handler.AuthHandler
	Events       *handler.EventsHandler
	Reservations *handler.ReservationHandler
	QR           *handler.QRHandler
	Approver     *handler.ApproverHandler
	Admin        *handler.AdminHandler
}

// Limits holds the per-route rate limiters and the public event
// cache.  Nil entries are skipped.
type Limits struct {
	Auth    echo.MiddlewareFunc
	QR      echo.MiddlewareFunc
	CheckIn echo.MiddlewareFunc
	Events  echo.MiddlewareFunc
}

func with(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, h Handlers, l Limits, jwtSecret string, db handler.Pinger) {
	RegisterRoutes(e, db)
	RegisterAuth(e, h.Auth, jwtSecret, l.Auth)
	RegisterPublic(e, h.Events, h.QR, l.Events, l.QR)
	RegisterHolder(e, h.Reservations, h.Auth, jwtSecret)
	RegisterApprover(e, h.Approver, jwtSecret, l.CheckIn)
	RegisterAdmin(e, h.Admin, jwtSecret)
}

// RegisterRoutes mounts the probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth mounts /api/auth.  Every route shares the auth rate
// limit; logout also accepts an optional session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth", with(limit)...)
	g.POST("/register", a.Register)
	g.POST("/register/verify", a.Verify)
	g.POST("/register/resend", a.Resend)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))
}

// RegisterPublic mounts event browsing and the QR image endpoint.
func RegisterPublic(e *echo.Echo, ev *handler.EventsHandler, q *handler.QRHandler, cache, qrLimit echo.MiddlewareFunc) {
	e.GET("/api/events", ev.List, with(cache)...)
	e.GET("/api/events/:slug", ev.Get, with(cache)...)
	e.GET("/api/qr", q.Image, with(qrLimit)...)
}
