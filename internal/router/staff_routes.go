package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/handler"
	"github.com/iliyamo/festival-ticketing/internal/middleware"
	"github.com/iliyamo/festival-ticketing/internal/model"
)

// RegisterApprover mounts the door endpoints for ADMIN and APPROVER.
func RegisterApprover(e *echo.Echo, h *handler.ApproverHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api/approver",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleApprover),
	)
	g.GET("/scan", h.Scan)
	g.POST("/check-in", h.CheckIn, with(limit)...)
}

// RegisterAdmin mounts the back office under /api/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Users ----
	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.GET("/users/:id", h.GetUser)
	g.PUT("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)

	// ---- Venues ----
	g.GET("/venues", h.ListVenues)
	g.POST("/venues", h.CreateVenue)
	g.GET("/venues/:id", h.GetVenue)
	g.PUT("/venues/:id", h.UpdateVenue)
	g.DELETE("/venues/:id", h.DeleteVenue)

	// ---- Events ----
	g.GET("/events", h.ListEvents)
	g.POST("/events", h.CreateEvent)
	g.GET("/events/:id", h.GetEvent)
	g.PUT("/events/:id", h.UpdateEvent)
	g.DELETE("/events/:id", h.DeleteEvent)

	// ---- Reservations ----
	g.GET("/reservations", h.ListReservations)
	g.POST("/reservations", h.CreateReservation)
	g.GET("/reservations/:id", h.GetReservation)
	g.PUT("/reservations/:id", h.UpdateReservation)
	g.DELETE("/reservations/:id", h.DeleteReservation)

	g.GET("/audit-logs", h.AuditLogs)
	g.GET("/stats", h.Stats)
}
