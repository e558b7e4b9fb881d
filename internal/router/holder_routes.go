package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/handler"
	"github.com/iliyamo/festival-ticketing/internal/middleware"
)

// RegisterHolder mounts the signed-in user's own endpoints.  Any role
// may hold reservations.  JWTAuth is attached per route so unknown
// /api paths still answer 404.
func RegisterHolder(e *echo.Echo, r *handler.ReservationHandler, a *handler.AuthHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	e.GET("/api/me", a.Me, auth)
	e.POST("/api/reservations", r.Create, auth)
	e.GET("/api/reservations", r.List, auth)
}
