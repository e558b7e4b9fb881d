package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Meta is the schema-less snapshot attached to an audit entry.  Its
// consumers only serialize or display it, so it stays an open map.
type Meta map[string]any

// Value stores Meta as a JSON document.
func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan reads a JSON document column into Meta.
func (m *Meta) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Meta{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("meta: unsupported column type %T", src)
	}
	out := Meta{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// Audit actions.
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionCheckIn  = "CHECK_IN"
	ActionApprove  = "APPROVE"
	ActionCancel   = "CANCEL"
	ActionWaitlist = "WAITLIST"
)

// Audited entity types.
const (
	EntityUser        = "User"
	EntityEvent       = "Event"
	EntityVenue       = "Venue"
	EntityReservation = "Reservation"
)

// AuditLog is one append-only administrative action.
type AuditLog struct {
	ID         uint64    // audit_logs.id
	ActorID    *uint64   // audit_logs.actor_id (nullable, actor may be deleted later)
	Action     string    // audit_logs.action
	EntityType string    // audit_logs.entity_type
	EntityID   string    // audit_logs.entity_id
	Meta       Meta      // audit_logs.meta (JSON)
	CreatedAt  time.Time // audit_logs.created_at
}

// AuditFilter narrows the audit log viewer.
type AuditFilter struct {
	ListFilter
	EntityType string
	Action     string
	ActorID    uint64
}

// Stats aggregates the back-office dashboard numbers.
type Stats struct {
	Users                 int          `json:"users"`
	VerifiedUsers         int          `json:"verified_users"`
	Events                int          `json:"events"`
	Venues                int          `json:"venues"`
	Reservations          int          `json:"reservations"`
	ReservationsConfirmed int          `json:"reservations_confirmed"`
	ReservationsWaitlist  int          `json:"reservations_waitlist"`
	ReservationsCancelled int          `json:"reservations_cancelled"`
	TicketsConfirmed      int          `json:"tickets_confirmed"`
	CheckIns              int          `json:"check_ins"`
	PerEvent              []EventStats `json:"per_event"`
}

// EventStats is the per-event line of the dashboard.
type EventStats struct {
	EventID      uint64 `json:"event_id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Reservations int    `json:"reservations"`
	Tickets      int    `json:"tickets"`
	CheckIns     int    `json:"check_ins"`
}
