package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// CachePurger drops cached public responses after catalog writes.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// AdminHandler serves the back office.  Every route sits behind
// RequireRole(ADMIN); the service checks the role again.
type AdminHandler struct {
	Admin *service.AdminService
	Cache CachePurger
	Log   *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, cache CachePurger, log *slog.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Cache: cache, Log: log}
}

// purge is best effort; a stale listing expires with its TTL.
func (h *AdminHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Log.WarnContext(c.Request().Context(), "cache purge failed", "err", err)
	}
}

func invalidID(c echo.Context) error {
	return badRequest(c, "invalid_id", "id must be a positive integer")
}

// ----- users -----

type userReq struct {
	Name     *string `json:"name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Verified *bool   `json:"verified"`
}

func (r userReq) input() service.UserInput {
	return service.UserInput{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Password: r.Password,
		Role:     model.Role(strings.ToUpper(strings.TrimSpace(r.Role))),
		Verified: r.Verified,
	}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := listFilter(c)
	items, total, err := h.Admin.ListUsers(ctx, currentActor(c), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toUser), total, f))
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.GetUser(ctx, currentActor(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.CreateUser(ctx, currentActor(c), req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUser(u))
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req userReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.UpdateUser(ctx, currentActor(c), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.DeleteUser(ctx, currentActor(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- read-only -----

// AuditLogs lists entries filtered by ?entity_type=&action=&actor_id=.
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := model.AuditFilter{
		ListFilter: listFilter(c),
		EntityType: strings.TrimSpace(c.QueryParam("entity_type")),
		Action:     strings.ToUpper(strings.TrimSpace(c.QueryParam("action"))),
		ActorID:    queryUint(c, "actor_id"),
	}
	items, total, err := h.Admin.ListAudit(ctx, currentActor(c), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toAudit), total, f.ListFilter))
}

func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Admin.Stats(ctx, currentActor(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if st.PerEvent == nil {
		st.PerEvent = []model.EventStats{}
	}
	return c.JSON(http.StatusOK, st)
}
