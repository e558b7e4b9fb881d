package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/middleware"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// ReservationHandler serves the holder's own reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Log          *slog.Logger
}

func NewReservationHandler(reservations *service.ReservationService, log *slog.Logger) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations, Log: log}
}

type reserveReq struct {
	Slug     string `json:"slug"`
	Quantity int    `json:"quantity"`
}

type reserveResp struct {
	Reservation reservationResp `json:"reservation"`
	Event       eventResp       `json:"event"`
	Ticket      ticketResp      `json:"ticket"`
	Created     bool            `json:"created"`
	EmailSent   bool            `json:"emailSent"`
}

type userTicketResp struct {
	Reservation reservationResp `json:"reservation"`
	Event       eventResp       `json:"event"`
	Ticket      ticketResp      `json:"ticket"`
}

// Create reserves places for an event, or updates the quantity of the
// caller's existing reservation.  201 on creation, 200 on update.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Reservations.CreateOrUpdate(ctx, middleware.UserID(c), req.Slug, req.Quantity)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, reserveResp{
		Reservation: toReservation(res.Reservation),
		Event:       toEvent(res.Event),
		Ticket:      toTicket(res.Ticket),
		Created:     res.Created,
		EmailSent:   res.EmailSent,
	})
}

// List returns the caller's reservations with freshly signed tickets.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Reservations.ListForUser(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := mapSlice(items, func(t service.UserTicket) userTicketResp {
		return userTicketResp{Reservation: toReservation(t.Reservation), Event: toEvent(t.Event), Ticket: toTicket(t.Ticket)}
	})
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
