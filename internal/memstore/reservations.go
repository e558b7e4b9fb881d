package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
)

func (s *Store) findReservationLocked(userID, eventID uint64) (model.Reservation, bool) {
	for _, r := range s.reservations {
		if r.UserID == userID && r.EventID == eventID {
			return r, true
		}
	}
	return model.Reservation{}, false
}

func (s *Store) UpsertReservation(_ context.Context, r *model.Reservation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[r.UserID]; !ok {
		return false, repository.ErrNotFound
	}
	if _, ok := s.events[r.EventID]; !ok {
		return false, repository.ErrNotFound
	}
	now := s.now()
	if existing, ok := s.findReservationLocked(r.UserID, r.EventID); ok {
		existing.Quantity = r.Quantity
		existing.UpdatedAt = now
		s.reservations[existing.ID] = existing
		*r = existing
		return false, nil
	}
	for _, other := range s.reservations {
		if other.TicketCode == r.TicketCode {
			return false, repository.ErrConflict
		}
	}
	r.ID, r.CreatedAt, r.UpdatedAt = s.nextID(), now, now
	s.reservations[r.ID] = *r
	return true, nil
}

func (s *Store) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReservationsForUser(_ context.Context, userID uint64) ([]model.ReservationWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReservationWithEvent
	for _, r := range s.reservations {
		if r.UserID != userID {
			continue
		}
		out = append(out, model.ReservationWithEvent{Reservation: r, Event: s.events[r.EventID]})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Event.StartsAt, out[j].Event.StartsAt
		if (a == nil) != (b == nil) {
			return a != nil
		}
		if a != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].Reservation.ID < out[j].Reservation.ID
	})
	return out, nil
}

func (s *Store) ListReservations(_ context.Context, f model.ReservationFilter) ([]model.ReservationRow, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ListFilter = f.ListFilter.Normalize()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.ReservationRow
	for _, r := range s.reservations {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.EventID != 0 && r.EventID != f.EventID {
			continue
		}
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		u, e := s.users[r.UserID], s.events[r.EventID]
		if q != "" && !strings.Contains(u.Email, q) && !contains(u.Name, q) &&
			!strings.Contains(strings.ToLower(e.Title), q) && r.TicketCode != q {
			continue
		}
		row := model.ReservationRow{
			Reservation: r,
			UserEmail:   u.Email,
			UserName:    u.Name,
			EventSlug:   e.Slug,
			EventTitle:  e.Title,
		}
		if c, ok := s.checkIns[r.ID]; ok {
			at := c.ScannedAt
			row.CheckedInAt = &at
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reservation.ID > out[j].Reservation.ID })
	return page(out, f.ListFilter), len(out), nil
}

func (s *Store) UpdateReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.reservations[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	old.Status = r.Status
	old.Quantity = r.Quantity
	old.ApprovedByID = r.ApprovedByID
	old.CancelledByID = r.CancelledByID
	old.CancelledAt = r.CancelledAt
	old.CancelReason = r.CancelReason
	old.UpdatedAt = s.now()
	s.reservations[r.ID] = old
	*r = old
	return nil
}

func (s *Store) deleteReservationLocked(id uint64) {
	delete(s.reservations, id)
	delete(s.checkIns, id)
}

func (s *Store) DeleteReservation(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleteReservationLocked(id)
	return nil
}

// ----- check-ins -----

func (s *Store) GetCheckIn(_ context.Context, reservationID uint64) (model.ReservationCheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkIns[reservationID]
	if !ok {
		return model.ReservationCheckIn{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCheckIn(_ context.Context, c *model.ReservationCheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[c.ReservationID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.checkIns[c.ReservationID]; ok {
		return repository.ErrAlreadyCheckedIn
	}
	if c.ScannedAt.IsZero() {
		c.ScannedAt = s.now()
	}
	c.ID = s.nextID()
	stored := *c
	if c.ScannedByID != nil {
		id := *c.ScannedByID
		stored.ScannedByID = &id
	}
	s.checkIns[c.ReservationID] = stored
	return nil
}

// ----- audit -----

func (s *Store) InsertAudit(_ context.Context, a *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.ID = s.nextID()
	s.audit = append(s.audit, *a)
	return nil
}

func (s *Store) ListAudit(_ context.Context, f model.AuditFilter) ([]model.AuditLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ListFilter = f.ListFilter.Normalize()
	var out []model.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		a := s.audit[i]
		if f.EntityType != "" && a.EntityType != f.EntityType {
			continue
		}
		if f.Action != "" && a.Action != f.Action {
			continue
		}
		if f.ActorID != 0 && (a.ActorID == nil || *a.ActorID != f.ActorID) {
			continue
		}
		if q := strings.TrimSpace(f.Query); q != "" && a.EntityID != q {
			continue
		}
		out = append(out, a)
	}
	return page(out, f.ListFilter), len(out), nil
}

// ----- stats -----

func (s *Store) Stats(_ context.Context) (model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.Stats{
		Users:    len(s.users),
		Events:   len(s.events),
		Venues:   len(s.venues),
		CheckIns: len(s.checkIns),
	}
	for _, u := range s.users {
		if u.EmailVerifiedAt != nil {
			st.VerifiedUsers++
		}
	}
	per := make(map[uint64]*model.EventStats, len(s.events))
	for id, e := range s.events {
		per[id] = &model.EventStats{EventID: id, Slug: e.Slug, Title: e.Title}
	}
	for _, r := range s.reservations {
		st.Reservations++
		es := per[r.EventID]
		es.Reservations++
		switch r.Status {
		case model.StatusConfirmed:
			st.ReservationsConfirmed++
			st.TicketsConfirmed += r.Quantity
			es.Tickets += r.Quantity
		case model.StatusWaitlist:
			st.ReservationsWaitlist++
		case model.StatusCancelled:
			st.ReservationsCancelled++
		}
		if _, ok := s.checkIns[r.ID]; ok {
			es.CheckIns++
		}
	}
	st.PerEvent = make([]model.EventStats, 0, len(per))
	for _, es := range per {
		st.PerEvent = append(st.PerEvent, *es)
	}
	sort.Slice(st.PerEvent, func(i, j int) bool { return st.PerEvent[i].EventID < st.PerEvent[j].EventID })
	return st, nil
}

// String summarizes table sizes for debug logging.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "memstore{users=" + strconv.Itoa(len(s.users)) +
		" events=" + strconv.Itoa(len(s.events)) +
		" reservations=" + strconv.Itoa(len(s.reservations)) + "}"
}
