package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

type reservationReq struct {
	UserID       uint64  `json:"userId"`
	EventID      uint64  `json:"eventId"`
	Quantity     int     `json:"quantity"`
	Status       string  `json:"status"`
	CancelReason *string `json:"cancelReason"`
}

func (r reservationReq) input() service.ReservationInput {
	return service.ReservationInput{
		UserID:       r.UserID,
		EventID:      r.EventID,
		Quantity:     r.Quantity,
		Status:       model.ReservationStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
		CancelReason: r.CancelReason,
	}
}

// ListReservations accepts ?status=&event_id=&user_id=&q=.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f := model.ReservationFilter{
		ListFilter: listFilter(c),
		Status:     model.ReservationStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
		EventID:    queryUint(c, "event_id"),
		UserID:     queryUint(c, "user_id"),
	}
	items, total, err := h.Admin.ListReservations(ctx, currentActor(c), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newPage(mapSlice(items, toReservationRow), total, f.ListFilter))
}

func (h *AdminHandler) GetReservation(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Admin.GetReservation(ctx, currentActor(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationDetail(d))
}

func (h *AdminHandler) CreateReservation(c echo.Context) error {
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Admin.CreateReservation(ctx, currentActor(c), req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toReservationDetail(d))
}

func (h *AdminHandler) UpdateReservation(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Admin.UpdateReservation(ctx, currentActor(c), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationDetail(d))
}

func (h *AdminHandler) DeleteReservation(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.DeleteReservation(ctx, currentActor(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
