package service

import (
	"context"
	"strings"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// CatalogService serves the public program.
type CatalogService struct {
	events EventStore
	venues VenueStore
}

func NewCatalogService(events EventStore, venues VenueStore) *CatalogService {
	return &CatalogService{events: events, venues: venues}
}

// EventDetail is an event with its venue, when it has one.
type EventDetail struct {
	Event model.Event
	Venue *model.Venue
}

func (s *CatalogService) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	f.ListFilter = f.ListFilter.Normalize()
	items, total, err := s.events.ListEvents(ctx, f)
	if err != nil {
		return nil, 0, internal("list events", err)
	}
	return items, total, nil
}

func (s *CatalogService) GetEvent(ctx context.Context, slug string) (EventDetail, error) {
	ev, err := s.events.GetEventBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return EventDetail{}, notFoundOr(err, "event_not_found", "event not found", "load event")
	}
	d := EventDetail{Event: ev}
	if ev.VenueID != nil {
		v, err := s.venues.GetVenue(ctx, *ev.VenueID)
		switch {
		case err == nil:
			d.Venue = &v
		case isNotFound(err):
		default:
			return EventDetail{}, internal("load venue", err)
		}
	}
	return d, nil
}
