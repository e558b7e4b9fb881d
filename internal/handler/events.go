package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// EventsHandler serves the public program.
type EventsHandler struct {
	Catalog *service.CatalogService
	Log     *slog.Logger
}

func NewEventsHandler(catalog *service.CatalogService, log *slog.Logger) *EventsHandler {
	return &EventsHandler{Catalog: catalog, Log: log}
}

func eventFilter(c echo.Context) model.EventFilter {
	return model.EventFilter{
		ListFilter: listFilter(c),
		Track:      strings.TrimSpace(c.QueryParam("track")),
		Day:        strings.TrimSpace(c.QueryParam("day")),
		VenueID:    queryUint(c, "venue_id"),
	}
}

// List returns events filtered by ?track=&day=&venue_id=&q=.
func (h *EventsHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := eventFilter(c)
	items, total, err := h.Catalog.ListEvents(ctx, f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toEvent), total, f.ListFilter))
}

// Get returns one event by slug with its venue.
func (h *EventsHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Catalog.GetEvent(ctx, c.Param("slug"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	resp := eventDetailResp{eventResp: toEvent(d.Event)}
	if d.Venue != nil {
		v := toVenue(*d.Venue)
		resp.Venue = &v
	}
	return c.JSON(http.StatusOK, resp)
}
