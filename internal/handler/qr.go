package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/qr"
	"github.com/iliyamo/festival-ticketing/internal/service"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// QRHandler renders ticket QR codes on demand.
type QRHandler struct {
	Renderer *qr.Renderer
	Log      *slog.Logger
}

func NewQRHandler(r *qr.Renderer, log *slog.Logger) *QRHandler {
	return &QRHandler{Renderer: r, Log: log}
}

// Image serves GET /api/qr?token=&size= as image/png.  The token is
// verified first; invalid or expired tokens get 400 and no image.
func (h *QRHandler) Image(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return badRequest(c, "invalid_token", "token is required")
	}
	png, err := h.Renderer.PNG(token, queryInt(c, "size"))
	if err != nil {
		if ticket.IsTokenError(err) {
			return writeError(c, h.Log, service.TokenError(err))
		}
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, "image/png", png)
}
