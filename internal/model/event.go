package model

import "time"

// Venue is a physical location referenced by events.  A venue is
// shared: events point at it but never own it, and it cannot be
// removed while any event still references it.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	Label     string    // venues.label (short display name)
	Address   *string   // venues.address (nullable)
	City      *string   // venues.city (nullable)
	Country   *string   // venues.country (nullable)
	MapURL    *string   // venues.map_url (nullable)
	EmbedURL  *string   // venues.embed_url (nullable)
	CreatedAt time.Time // venues.created_at
	UpdatedAt time.Time // venues.updated_at
}

// Event represents a scheduled program item.  Slug is the public
// identifier used in URLs and reservation requests.  VenueLabel is a
// display cache of the venue's label captured when the event was last
// written.
//
// Fields:
//  ID                   – primary key identifier.
//  Slug                 – unique public identifier.
//  Title, Description   – display text.
//  Track, Day           – program classification (e.g. "music", "day-1").
//  DayLabel, TimeLabel  – preformatted display labels.
//  IsFree               – whether attendance is free of charge.
//  RequiresRegistration – whether a reservation is expected.
//  StartsAt, EndsAt     – optional schedule; EndsAt drives ticket expiry.
//  VenueID, VenueLabel  – optional venue reference and its cached label.
type Event struct {
	ID                   uint64     // events.id
	Slug                 string     // events.slug
	Title                string     // events.title
	Description          *string    // events.description (nullable)
	Track                *string    // events.track (nullable)
	Day                  *string    // events.day (nullable)
	DayLabel             *string    // events.day_label (nullable)
	TimeLabel            *string    // events.time_label (nullable)
	IsFree               bool       // events.is_free
	RequiresRegistration bool       // events.requires_registration
	StartsAt             *time.Time // events.starts_at (nullable)
	EndsAt               *time.Time // events.ends_at (nullable)
	VenueID              *uint64    // events.venue_id (nullable)
	VenueLabel           *string    // events.venue_label (nullable)
	CreatedAt            time.Time  // events.created_at
	UpdatedAt            time.Time  // events.updated_at
}

// EventFilter narrows event listings.
type EventFilter struct {
	ListFilter
	Track   string
	Day     string
	VenueID uint64
}
