package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/service"
)

// ApproverHandler serves the door: scanning and check-in.
type ApproverHandler struct {
	CheckIns *service.CheckInService
	Log      *slog.Logger
}

func NewApproverHandler(checkIns *service.CheckInService, log *slog.Logger) *ApproverHandler {
	return &ApproverHandler{CheckIns: checkIns, Log: log}
}

type checkInReq struct {
	Token string `json:"token"`
}

// Scan resolves ?token= without changing anything.
func (h *ApproverHandler) Scan(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return badRequest(c, "invalid_token", "token is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.CheckIns.Resolve(ctx, currentActor(c), token)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTicketView(view))
}

// CheckIn admits a ticket holder.  Refusals that found the
// reservation (already checked in, not confirmed) include it so the
// door can show who it was.
func (h *ApproverHandler) CheckIn(c echo.Context) error {
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.Token = strings.TrimSpace(req.Token); req.Token == "" {
		return badRequest(c, "invalid_token", "token is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.CheckIns.CheckIn(ctx, currentActor(c), req.Token)
	if err != nil {
		se := service.AsError(err)
		if view.Reservation.ID != 0 && se.Kind != service.KindServerError {
			return c.JSON(se.Kind.HTTPStatus(), echo.Map{
				"error":   se.Reason,
				"message": se.Message,
				"ticket":  toTicketView(view),
			})
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTicketView(view))
}
