package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
)

// ----- venues -----

func (s *Store) venueConflict(v model.Venue) error {
	for _, other := range s.venues {
		if other.ID != v.ID && other.Name == v.Name {
			return repository.ErrDuplicateVenue
		}
	}
	return nil
}

func (s *Store) CreateVenue(_ context.Context, v *model.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = 0
	if err := s.venueConflict(*v); err != nil {
		return err
	}
	now := s.now()
	v.ID, v.CreatedAt, v.UpdatedAt = s.nextID(), now, now
	s.venues[v.ID] = *v
	return nil
}

func (s *Store) GetVenue(_ context.Context, id uint64) (model.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[id]
	if !ok {
		return model.Venue{}, repository.ErrNotFound
	}
	return v, nil
}

func (s *Store) GetVenueByName(_ context.Context, name string) (model.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.venues {
		if v.Name == name {
			return v, nil
		}
	}
	return model.Venue{}, repository.ErrNotFound
}

func (s *Store) UpdateVenue(_ context.Context, v *model.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.venues[v.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.venueConflict(*v); err != nil {
		return err
	}
	v.CreatedAt, v.UpdatedAt = old.CreatedAt, s.now()
	s.venues[v.ID] = *v
	for id, e := range s.events {
		if e.VenueID != nil && *e.VenueID == v.ID {
			label := v.Label
			e.VenueLabel = &label
			s.events[id] = e
		}
	}
	return nil
}

func (s *Store) countEventsForVenueLocked(venueID uint64) int {
	n := 0
	for _, e := range s.events {
		if e.VenueID != nil && *e.VenueID == venueID {
			n++
		}
	}
	return n
}

func (s *Store) DeleteVenue(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[id]; !ok {
		return repository.ErrNotFound
	}
	if s.countEventsForVenueLocked(id) > 0 {
		return repository.ErrVenueInUse
	}
	delete(s.venues, id)
	return nil
}

func (s *Store) CountEventsForVenue(_ context.Context, venueID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countEventsForVenueLocked(venueID), nil
}

func (s *Store) ListVenues(_ context.Context, f model.ListFilter) ([]model.Venue, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f = f.Normalize()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.Venue
	for _, v := range s.venues {
		if q != "" && !strings.Contains(strings.ToLower(v.Name), q) &&
			!strings.Contains(strings.ToLower(v.Label), q) && !contains(v.City, q) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f), len(out), nil
}

// ----- events -----

func (s *Store) eventConflict(e model.Event) error {
	for _, other := range s.events {
		if other.ID != e.ID && other.Slug == e.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	return nil
}

func (s *Store) checkVenueRef(e model.Event) error {
	if e.VenueID == nil {
		return nil
	}
	if _, ok := s.venues[*e.VenueID]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = 0
	if err := s.eventConflict(*e); err != nil {
		return err
	}
	if err := s.checkVenueRef(*e); err != nil {
		return err
	}
	now := s.now()
	e.ID, e.CreatedAt, e.UpdatedAt = s.nextID(), now, now
	s.events[e.ID] = *e
	return nil
}

func (s *Store) GetEvent(_ context.Context, id uint64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetEventBySlug(_ context.Context, slug string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Slug == slug {
			return e, nil
		}
	}
	return model.Event{}, repository.ErrNotFound
}

func (s *Store) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.eventConflict(*e); err != nil {
		return err
	}
	if err := s.checkVenueRef(*e); err != nil {
		return err
	}
	e.CreatedAt, e.UpdatedAt = old.CreatedAt, s.now()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.events, id)
	for rid, r := range s.reservations {
		if r.EventID == id {
			s.deleteReservationLocked(rid)
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// eventLess orders events like the MySQL listing: day, start, title,
// with missing values last.
func eventLess(a, b model.Event) bool {
	if (a.Day == nil) != (b.Day == nil) {
		return a.Day != nil
	}
	if da, db := deref(a.Day), deref(b.Day); da != db {
		return da < db
	}
	if (a.StartsAt == nil) != (b.StartsAt == nil) {
		return a.StartsAt != nil
	}
	if a.StartsAt != nil && !a.StartsAt.Equal(*b.StartsAt) {
		return a.StartsAt.Before(*b.StartsAt)
	}
	return a.Title < b.Title
}

func (s *Store) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ListFilter = f.ListFilter.Normalize()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.Event
	for _, e := range s.events {
		if q != "" && !strings.Contains(strings.ToLower(e.Title), q) &&
			!strings.Contains(e.Slug, q) && !contains(e.Description, q) {
			continue
		}
		if f.Track != "" && deref(e.Track) != f.Track {
			continue
		}
		if f.Day != "" && deref(e.Day) != f.Day {
			continue
		}
		if f.VenueID != 0 && (e.VenueID == nil || *e.VenueID != f.VenueID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return eventLess(out[i], out[j]) })
	return page(out, f.ListFilter), len(out), nil
}
