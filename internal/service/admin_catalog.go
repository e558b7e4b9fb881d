package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ----- venues -----

// VenueInput is the admin venue form.
type VenueInput struct {
	Name     string
	Label    string
	Address  *string
	City     *string
	Country  *string
	MapURL   *string
	EmbedURL *string
}

func (in VenueInput) apply(v *model.Venue) error {
	v.Name = strings.TrimSpace(in.Name)
	if v.Name == "" {
		return newError(KindInvalidInput, "invalid_name", "venue name is required")
	}
	v.Label = strings.TrimSpace(in.Label)
	if v.Label == "" {
		v.Label = v.Name
	}
	v.Address = trimmedOrNil(in.Address)
	v.City = trimmedOrNil(in.City)
	v.Country = trimmedOrNil(in.Country)
	v.MapURL = trimmedOrNil(in.MapURL)
	v.EmbedURL = trimmedOrNil(in.EmbedURL)
	return nil
}

func venueConflict(err error, op string) *Error {
	switch {
	case errors.Is(err, repository.ErrDuplicateVenue):
		return &Error{Kind: KindConflict, Reason: "venue_name_taken", Message: "a venue with this name already exists", Err: err}
	case isNotFound(err):
		return &Error{Kind: KindNotFound, Reason: "venue_not_found", Message: "venue not found", Err: err}
	default:
		return internal(op, err)
	}
}

func (s *AdminService) ListVenues(ctx context.Context, actor Actor, f model.ListFilter) ([]model.Venue, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	items, total, err := s.store.ListVenues(ctx, f.Normalize())
	if err != nil {
		return nil, 0, internal("list venues", err)
	}
	return items, total, nil
}

func (s *AdminService) GetVenue(ctx context.Context, actor Actor, id uint64) (model.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Venue{}, err
	}
	v, err := s.store.GetVenue(ctx, id)
	if err != nil {
		return model.Venue{}, notFoundOr(err, "venue_not_found", "venue not found", "load venue")
	}
	return v, nil
}

func (s *AdminService) CreateVenue(ctx context.Context, actor Actor, in VenueInput) (model.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Venue{}, err
	}
	var v model.Venue
	if err := in.apply(&v); err != nil {
		return model.Venue{}, err
	}
	if err := s.store.CreateVenue(ctx, &v); err != nil {
		return model.Venue{}, venueConflict(err, "create venue")
	}
	s.audit.Record(ctx, actor.ID, model.ActionCreate, model.EntityVenue, v.ID, model.Meta{"name": v.Name, "label": v.Label})
	return v, nil
}

// UpdateVenue also refreshes the cached label of every event at the
// venue.
func (s *AdminService) UpdateVenue(ctx context.Context, actor Actor, id uint64, in VenueInput) (model.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Venue{}, err
	}
	v, err := s.store.GetVenue(ctx, id)
	if err != nil {
		return model.Venue{}, notFoundOr(err, "venue_not_found", "venue not found", "load venue")
	}
	if err := in.apply(&v); err != nil {
		return model.Venue{}, err
	}
	if err := s.store.UpdateVenue(ctx, &v); err != nil {
		return model.Venue{}, venueConflict(err, "update venue")
	}
	s.audit.Record(ctx, actor.ID, model.ActionUpdate, model.EntityVenue, v.ID, model.Meta{"name": v.Name, "label": v.Label})
	return v, nil
}

// DeleteVenue refuses while any event still references the venue.
func (s *AdminService) DeleteVenue(ctx context.Context, actor Actor, id uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	v, err := s.store.GetVenue(ctx, id)
	if err != nil {
		return notFoundOr(err, "venue_not_found", "venue not found", "load venue")
	}
	n, err := s.store.CountEventsForVenue(ctx, id)
	if err != nil {
		return internal("count venue events", err)
	}
	if n > 0 {
		return venueInUse(n, nil)
	}
	if err := s.store.DeleteVenue(ctx, id); err != nil {
		if errors.Is(err, repository.ErrVenueInUse) {
			n, _ = s.store.CountEventsForVenue(ctx, id)
			return venueInUse(n, err)
		}
		return notFoundOr(err, "venue_not_found", "venue not found", "delete venue")
	}
	s.audit.Record(ctx, actor.ID, model.ActionDelete, model.EntityVenue, id, model.Meta{"name": v.Name})
	return nil
}

func venueInUse(n int, err error) *Error {
	noun := "events"
	if n == 1 {
		noun = "event"
	}
	return &Error{
		Kind:    KindConflict,
		Reason:  "venue_in_use",
		Message: fmt.Sprintf("venue is used by %d %s; move or delete them first", n, noun),
		Err:     err,
	}
}

// ----- events -----

// EventInput is the admin event form.  VenueLabel is only used when
// VenueID is nil; otherwise the venue's label is cached.
type EventInput struct {
	Slug                 string
	Title                string
	Description          *string
	Track                *string
	Day                  *string
	DayLabel             *string
	TimeLabel            *string
	IsFree               bool
	RequiresRegistration bool
	StartsAt             *time.Time
	EndsAt               *time.Time
	VenueID              *uint64
	VenueLabel           *string
}

func (s *AdminService) applyEventInput(ctx context.Context, e *model.Event, in EventInput) error {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return newError(KindInvalidInput, "invalid_slug", "slug may only contain lowercase letters, digits and dashes")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return newError(KindInvalidInput, "invalid_title", "title is required")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return newError(KindInvalidInput, "invalid_schedule", "event cannot end before it starts")
	}
	e.Slug, e.Title = slug, title
	e.Description = trimmedOrNil(in.Description)
	e.Track = trimmedOrNil(in.Track)
	e.Day = trimmedOrNil(in.Day)
	e.DayLabel = trimmedOrNil(in.DayLabel)
	e.TimeLabel = trimmedOrNil(in.TimeLabel)
	e.IsFree = in.IsFree
	e.RequiresRegistration = in.RequiresRegistration
	e.StartsAt = utcOrNil(in.StartsAt)
	e.EndsAt = utcOrNil(in.EndsAt)

	if in.VenueID == nil || *in.VenueID == 0 {
		e.VenueID = nil
		e.VenueLabel = trimmedOrNil(in.VenueLabel)
		return nil
	}
	v, err := s.store.GetVenue(ctx, *in.VenueID)
	if err != nil {
		if isNotFound(err) {
			return newError(KindInvalidInput, "unknown_venue", "venue does not exist")
		}
		return internal("load venue", err)
	}
	id, label := v.ID, v.Label
	e.VenueID, e.VenueLabel = &id, &label
	return nil
}

func eventConflict(err error, op string) *Error {
	switch {
	case errors.Is(err, repository.ErrDuplicateSlug):
		return &Error{Kind: KindConflict, Reason: "slug_taken", Message: "an event with this slug already exists", Err: err}
	case isNotFound(err):
		return &Error{Kind: KindNotFound, Reason: "event_not_found", Message: "event not found", Err: err}
	default:
		return internal(op, err)
	}
}

func eventMeta(e model.Event) model.Meta {
	m := model.Meta{"slug": e.Slug, "title": e.Title}
	if e.VenueID != nil {
		m["venueId"] = *e.VenueID
	}
	return m
}

func (s *AdminService) ListEvents(ctx context.Context, actor Actor, f model.EventFilter) ([]model.Event, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	f.ListFilter = f.ListFilter.Normalize()
	items, total, err := s.store.ListEvents(ctx, f)
	if err != nil {
		return nil, 0, internal("list events", err)
	}
	return items, total, nil
}

func (s *AdminService) GetEvent(ctx context.Context, actor Actor, id uint64) (model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Event{}, err
	}
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, notFoundOr(err, "event_not_found", "event not found", "load event")
	}
	return e, nil
}

func (s *AdminService) CreateEvent(ctx context.Context, actor Actor, in EventInput) (model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Event{}, err
	}
	var e model.Event
	if err := s.applyEventInput(ctx, &e, in); err != nil {
		return model.Event{}, err
	}
	if err := s.store.CreateEvent(ctx, &e); err != nil {
		return model.Event{}, eventConflict(err, "create event")
	}
	s.audit.Record(ctx, actor.ID, model.ActionCreate, model.EntityEvent, e.ID, eventMeta(e))
	return e, nil
}

func (s *AdminService) UpdateEvent(ctx context.Context, actor Actor, id uint64, in EventInput) (model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Event{}, err
	}
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, notFoundOr(err, "event_not_found", "event not found", "load event")
	}
	if err := s.applyEventInput(ctx, &e, in); err != nil {
		return model.Event{}, err
	}
	if err := s.store.UpdateEvent(ctx, &e); err != nil {
		return model.Event{}, eventConflict(err, "update event")
	}
	s.audit.Record(ctx, actor.ID, model.ActionUpdate, model.EntityEvent, e.ID, eventMeta(e))
	return e, nil
}

// DeleteEvent removes an event and, by cascade, its reservations.
func (s *AdminService) DeleteEvent(ctx context.Context, actor Actor, id uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return notFoundOr(err, "event_not_found", "event not found", "load event")
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return notFoundOr(err, "event_not_found", "event not found", "delete event")
	}
	s.audit.Record(ctx, actor.ID, model.ActionDelete, model.EntityEvent, id, model.Meta{"slug": e.Slug})
	return nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
