package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/middleware"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentActor returns the caller stored by the JWT middleware.
func currentActor(c echo.Context) service.Actor {
	return service.Actor{ID: middleware.UserID(c), Role: middleware.Role(c)}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps err to its HTTP status.  Unexpected errors are
// logged with the request ID and reported as server_error.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	se := service.AsError(err)
	status := se.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		ctx := c.Request().Context()
		log.ErrorContext(ctx, "request failed",
			"request_id", logging.RequestID(ctx),
			"method", c.Request().Method,
			"path", c.Path(),
			"err", err,
		)
		return c.JSON(status, errorBody{Error: "server_error", Message: "internal error"})
	}
	return c.JSON(status, errorBody{Error: se.Reason, Message: se.Message})
}

func badRequest(c echo.Context, reason, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: reason, Message: msg})
}

func invalidBody(c echo.Context) error {
	return badRequest(c, "invalid_body", "request body is not valid JSON")
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

func queryUint(c echo.Context, name string) uint64 {
	n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return n
}

// listFilter reads ?q=&limit=&offset=.
func listFilter(c echo.Context) model.ListFilter {
	return model.ListFilter{
		Query:  strings.TrimSpace(c.QueryParam("q")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}.Normalize()
}

type page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newPage[T any](items []T, total int, f model.ListFilter) page[T] {
	if items == nil {
		items = []T{}
	}
	return page[T]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}
}

func mapSlice[S, T any](in []S, fn func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
