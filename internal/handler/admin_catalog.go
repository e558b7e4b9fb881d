package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/service"
)

// ----- venues -----

type venueReq struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
	MapURL   *string `json:"mapUrl"`
	EmbedURL *string `json:"embedUrl"`
}

func (r venueReq) input() service.VenueInput {
	return service.VenueInput{
		Name:     r.Name,
		Label:    r.Label,
		Address:  r.Address,
		City:     r.City,
		Country:  r.Country,
		MapURL:   r.MapURL,
		EmbedURL: r.EmbedURL,
	}
}

func (h *AdminHandler) ListVenues(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := listFilter(c)
	items, total, err := h.Admin.ListVenues(ctx, currentActor(c), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toVenue), total, f))
}

func (h *AdminHandler) GetVenue(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Admin.GetVenue(ctx, currentActor(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toVenue(v))
}

func (h *AdminHandler) CreateVenue(c echo.Context) error {
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Admin.CreateVenue(ctx, currentActor(c), req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toVenue(v))
}

func (h *AdminHandler) UpdateVenue(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Admin.UpdateVenue(ctx, currentActor(c), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toVenue(v))
}

// DeleteVenue answers 409 venue_in_use while events reference it.
func (h *AdminHandler) DeleteVenue(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.DeleteVenue(ctx, currentActor(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// ----- events -----

type eventReq struct {
	Slug                 string     `json:"slug"`
	Title                string     `json:"title"`
	Description          *string    `json:"description"`
	Track                *string    `json:"track"`
	Day                  *string    `json:"day"`
	DayLabel             *string    `json:"dayLabel"`
	TimeLabel            *string    `json:"timeLabel"`
	IsFree               bool       `json:"isFree"`
	RequiresRegistration bool       `json:"requiresRegistration"`
	StartsAt             *time.Time `json:"startsAt"`
	EndsAt               *time.Time `json:"endsAt"`
	VenueID              *uint64    `json:"venueId"`
	VenueLabel           *string    `json:"venueLabel"`
}

func (r eventReq) input() service.EventInput {
	return service.EventInput{
		Slug:                 r.Slug,
		Title:                r.Title,
		Description:          r.Description,
		Track:                r.Track,
		Day:                  r.Day,
		DayLabel:             r.DayLabel,
		TimeLabel:            r.TimeLabel,
		IsFree:               r.IsFree,
		RequiresRegistration: r.RequiresRegistration,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		VenueID:              r.VenueID,
		VenueLabel:           r.VenueLabel,
	}
}

func (h *AdminHandler) ListEvents(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := eventFilter(c)
	items, total, err := h.Admin.ListEvents(ctx, currentActor(c), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toEvent), total, f.ListFilter))
}

func (h *AdminHandler) GetEvent(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Admin.GetEvent(ctx, currentActor(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toEvent(e))
}

func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Admin.CreateEvent(ctx, currentActor(c), req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toEvent(e))
}

func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Admin.UpdateEvent(ctx, currentActor(c), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toEvent(e))
}

func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.DeleteEvent(ctx, currentActor(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}
