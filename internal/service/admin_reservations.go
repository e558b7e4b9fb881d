package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// ReservationInput is the admin reservation form.  Create upserts on
// (UserID, EventID); update ignores both.
type ReservationInput struct {
	UserID       uint64
	EventID      uint64
	Quantity     int
	Status       model.ReservationStatus
	CancelReason *string
}

// ReservationDetail is the back-office view of one reservation.
type ReservationDetail struct {
	Reservation model.Reservation
	Event       model.Event
	Holder      model.User
	CheckIn     *model.ReservationCheckIn
	Ticket      Ticket
}

// applyStatus moves r to status on behalf of actorID.  Confirming
// records the approver; cancelling records who, when and why.  The
// ticket code is never touched.
func (s *AdminService) applyStatus(r *model.Reservation, status model.ReservationStatus, actorID uint64, reason *string) {
	r.Status = status
	switch status {
	case model.StatusConfirmed:
		r.ApprovedByID = &actorID
		r.CancelledByID, r.CancelledAt, r.CancelReason = nil, nil, nil
	case model.StatusCancelled:
		now := s.now().UTC()
		r.CancelledByID, r.CancelledAt, r.CancelReason = &actorID, &now, trimmedOrNil(reason)
	case model.StatusWaitlist:
		r.ApprovedByID = nil
		r.CancelledByID, r.CancelledAt, r.CancelReason = nil, nil, nil
	}
}

// statusAction is the audit action recorded for entering status.
func statusAction(status model.ReservationStatus) string {
	switch status {
	case model.StatusConfirmed:
		return model.ActionApprove
	case model.StatusCancelled:
		return model.ActionCancel
	case model.StatusWaitlist:
		return model.ActionWaitlist
	default:
		return model.ActionUpdate
	}
}

func normalizeStatus(st model.ReservationStatus) model.ReservationStatus {
	return model.ReservationStatus(strings.ToUpper(strings.TrimSpace(string(st))))
}

func validStatus(st model.ReservationStatus) error {
	if st == "" {
		return nil
	}
	if _, err := model.ParseReservationStatus(string(st)); err != nil {
		return newError(KindInvalidInput, "invalid_status", "status must be CONFIRMED, WAITLIST or CANCELLED")
	}
	return nil
}

func reservationMeta(r model.Reservation) model.Meta {
	return model.Meta{"userId": r.UserID, "eventId": r.EventID, "status": string(r.Status), "quantity": r.Quantity}
}

func (s *AdminService) ListReservations(ctx context.Context, actor Actor, f model.ReservationFilter) ([]model.ReservationRow, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	f.Status = normalizeStatus(f.Status)
	if err := validStatus(f.Status); err != nil {
		return nil, 0, err
	}
	f.ListFilter = f.ListFilter.Normalize()
	items, total, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, 0, internal("list reservations", err)
	}
	return items, total, nil
}

func (s *AdminService) GetReservation(ctx context.Context, actor Actor, id uint64) (ReservationDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return ReservationDetail{}, err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return ReservationDetail{}, notFoundOr(err, "reservation_not_found", "reservation not found", "load reservation")
	}
	return s.detail(ctx, r)
}

func (s *AdminService) detail(ctx context.Context, r model.Reservation) (ReservationDetail, error) {
	d := ReservationDetail{Reservation: r}
	var err error
	if d.Event, err = s.store.GetEvent(ctx, r.EventID); err != nil {
		return ReservationDetail{}, internal("load event", err)
	}
	if d.Holder, err = s.store.GetUserByID(ctx, r.UserID); err != nil {
		return ReservationDetail{}, internal("load holder", err)
	}
	ci, err := s.store.GetCheckIn(ctx, r.ID)
	switch {
	case err == nil:
		d.CheckIn = &ci
	case isNotFound(err):
	default:
		return ReservationDetail{}, internal("load check-in", err)
	}
	if d.Ticket, err = s.issuer.Issue(r, d.Event); err != nil {
		return ReservationDetail{}, internal("issue ticket", err)
	}
	return d, nil
}

// CreateReservation upserts a reservation for any user and applies an
// explicit status.
func (s *AdminService) CreateReservation(ctx context.Context, actor Actor, in ReservationInput) (ReservationDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return ReservationDetail{}, err
	}
	if in.Quantity < 1 || in.Quantity > MaxQuantity {
		return ReservationDetail{}, newError(KindInvalidInput, "invalid_quantity", "quantity must be between 1 and 10")
	}
	in.Status = normalizeStatus(in.Status)
	if err := validStatus(in.Status); err != nil {
		return ReservationDetail{}, err
	}
	if _, err := s.store.GetUserByID(ctx, in.UserID); err != nil {
		if isNotFound(err) {
			return ReservationDetail{}, newError(KindInvalidInput, "unknown_user", "user does not exist")
		}
		return ReservationDetail{}, internal("load user", err)
	}
	ev, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		if isNotFound(err) {
			return ReservationDetail{}, newError(KindInvalidInput, "unknown_event", "event does not exist")
		}
		return ReservationDetail{}, internal("load event", err)
	}

	code, err := ticket.NewCode()
	if err != nil {
		return ReservationDetail{}, internal("generate ticket code", err)
	}
	r := model.Reservation{
		UserID:     in.UserID,
		EventID:    ev.ID,
		Status:     computeStatus(ev.RequiresRegistration),
		Quantity:   in.Quantity,
		TicketCode: code,
	}
	created, err := s.store.UpsertReservation(ctx, &r)
	if err != nil {
		return ReservationDetail{}, internal("upsert reservation", err)
	}
	action := model.ActionUpdate
	if created {
		action = model.ActionCreate
	}
	desired := in.Status
	if desired == "" && created {
		desired = r.Status
	}
	if desired != "" && (created || desired != r.Status) {
		if !created {
			action = statusAction(desired)
		}
		s.applyStatus(&r, desired, actor.ID, in.CancelReason)
		if err := s.store.UpdateReservation(ctx, &r); err != nil {
			return ReservationDetail{}, internal("update reservation", err)
		}
	}
	s.audit.Record(ctx, actor.ID, action, model.EntityReservation, r.ID, reservationMeta(r))
	return s.detail(ctx, r)
}

// UpdateReservation changes status, quantity or cancel reason.  A zero
// Quantity keeps the current one.
func (s *AdminService) UpdateReservation(ctx context.Context, actor Actor, id uint64, in ReservationInput) (ReservationDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return ReservationDetail{}, err
	}
	if in.Quantity != 0 && (in.Quantity < 1 || in.Quantity > MaxQuantity) {
		return ReservationDetail{}, newError(KindInvalidInput, "invalid_quantity", "quantity must be between 1 and 10")
	}
	in.Status = normalizeStatus(in.Status)
	if err := validStatus(in.Status); err != nil {
		return ReservationDetail{}, err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return ReservationDetail{}, notFoundOr(err, "reservation_not_found", "reservation not found", "load reservation")
	}
	if in.Quantity != 0 {
		r.Quantity = in.Quantity
	}
	action := model.ActionUpdate
	switch {
	case in.Status != "" && in.Status != r.Status:
		action = statusAction(in.Status)
		s.applyStatus(&r, in.Status, actor.ID, in.CancelReason)
	case r.Status == model.StatusCancelled && in.CancelReason != nil:
		r.CancelReason = trimmedOrNil(in.CancelReason)
	}
	if err := s.store.UpdateReservation(ctx, &r); err != nil {
		return ReservationDetail{}, notFoundOr(err, "reservation_not_found", "reservation not found", "update reservation")
	}
	s.audit.Record(ctx, actor.ID, action, model.EntityReservation, r.ID, reservationMeta(r))
	return s.detail(ctx, r)
}

func (s *AdminService) DeleteReservation(ctx context.Context, actor Actor, id uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return notFoundOr(err, "reservation_not_found", "reservation not found", "load reservation")
	}
	if err := s.store.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundOr(err, "reservation_not_found", "reservation not found", "delete reservation")
		}
		return internal("delete reservation", err)
	}
	s.audit.Record(ctx, actor.ID, model.ActionDelete, model.EntityReservation, id, reservationMeta(r))
	return nil
}
