package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// Actor is the authenticated caller of a privileged operation.
type Actor struct {
	ID   uint64
	Role model.Role
}

// Verifier is the part of ticket.Codec used at the door.
type Verifier interface {
	Verify(token string) (ticket.Payload, error)
}

// TicketView is what an approver sees after scanning.
type TicketView struct {
	Reservation model.Reservation
	Event       model.Event
	Holder      model.User
	CheckIn     *model.ReservationCheckIn
	ExpiresAt   time.Time
}

// CheckedIn reports whether the reservation was already scanned.
func (v TicketView) CheckedIn() bool { return v.CheckIn != nil }

// CheckInService resolves scanned tokens and records check-ins.
type CheckInService struct {
	codec        Verifier
	reservations ReservationStore
	events       EventStore
	users        UserStore
	checkIns     CheckInStore
	audit        *AuditWriter
}

func NewCheckInService(codec Verifier, reservations ReservationStore, events EventStore, users UserStore, checkIns CheckInStore, audit *AuditWriter) *CheckInService {
	return &CheckInService{codec: codec, reservations: reservations, events: events, users: users, checkIns: checkIns, audit: audit}
}

// Resolve verifies token and loads the reservation it names without
// changing anything.
func (s *CheckInService) Resolve(ctx context.Context, actor Actor, token string) (TicketView, error) {
	if !actor.Role.CanScan() {
		return TicketView{}, newError(KindForbidden, "forbidden", "only approvers can scan tickets")
	}
	p, err := s.codec.Verify(token)
	if err != nil {
		return TicketView{}, TokenError(err)
	}
	notFound := newError(KindNotFound, "reservation_not_found", "no reservation matches this ticket")
	res, err := s.reservations.GetReservation(ctx, p.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TicketView{}, notFound
		}
		return TicketView{}, internal("load reservation", err)
	}
	if res.TicketCode != p.TicketCode {
		return TicketView{}, notFound
	}
	view := TicketView{Reservation: res, ExpiresAt: p.ExpiresAt()}
	if view.Event, err = s.events.GetEvent(ctx, res.EventID); err != nil {
		return TicketView{}, internal("load event", err)
	}
	if view.Holder, err = s.users.GetUserByID(ctx, res.UserID); err != nil {
		return TicketView{}, internal("load holder", err)
	}
	ci, err := s.checkIns.GetCheckIn(ctx, res.ID)
	switch {
	case err == nil:
		view.CheckIn = &ci
	case errors.Is(err, repository.ErrNotFound):
	default:
		return TicketView{}, internal("load check-in", err)
	}
	return view, nil
}

// CheckIn admits the holder of token once.  Only confirmed
// reservations are admitted; a second scan reports already_checked_in
// with the original check-in in the view.
func (s *CheckInService) CheckIn(ctx context.Context, actor Actor, token string) (TicketView, error) {
	view, err := s.Resolve(ctx, actor, token)
	if err != nil {
		metrics.CheckInsTotal.WithLabelValues(KindOf(err).String()).Inc()
		return TicketView{}, err
	}
	if view.Reservation.Status != model.StatusConfirmed {
		metrics.CheckInsTotal.WithLabelValues("not_confirmed").Inc()
		return view, newError(KindInvalidState, "reservation_not_confirmed", "reservation is "+string(view.Reservation.Status))
	}
	if view.CheckedIn() {
		metrics.CheckInsTotal.WithLabelValues("already_checked_in").Inc()
		return view, alreadyCheckedIn(nil)
	}

	scanner := actor.ID
	ci := model.ReservationCheckIn{ReservationID: view.Reservation.ID, ScannedByID: &scanner}
	if err := s.checkIns.CreateCheckIn(ctx, &ci); err != nil {
		if errors.Is(err, repository.ErrAlreadyCheckedIn) {
			metrics.CheckInsTotal.WithLabelValues("already_checked_in").Inc()
			if prev, gerr := s.checkIns.GetCheckIn(ctx, view.Reservation.ID); gerr == nil {
				view.CheckIn = &prev
			}
			return view, alreadyCheckedIn(err)
		}
		return TicketView{}, internal("create check-in", err)
	}
	view.CheckIn = &ci
	metrics.CheckInsTotal.WithLabelValues("ok").Inc()

	s.audit.Record(ctx, actor.ID, model.ActionCheckIn, model.EntityReservation, view.Reservation.ID, model.Meta{
		"eventId":  view.Event.ID,
		"slug":     view.Event.Slug,
		"quantity": view.Reservation.Quantity,
	})
	return view, nil
}

func alreadyCheckedIn(err error) *Error {
	return &Error{Kind: KindConflict, Reason: "already_checked_in", Message: "ticket was already checked in", Err: err}
}
