package model

import (
	"fmt"
	"strings"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusWaitlist  ReservationStatus = "WAITLIST"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// ParseReservationStatus normalizes s and returns the matching status.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusConfirmed, StatusWaitlist, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", s)
	}
}

// Reservation binds a user to an event.  There is at most one row per
// (user, event) pair; submitting again updates Quantity.  TicketCode is
// assigned once at creation and never changes afterwards, so tokens
// signed against it stay valid.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – holder of the reservation.
//  EventID       – event being attended.
//  Status        – CONFIRMED, WAITLIST or CANCELLED.
//  Quantity      – number of seats/places (>= 1).
//  TicketCode    – opaque random code embedded in signed tickets.
//  ApprovedByID  – admin who confirmed the reservation, if any.
//  CancelledByID – user who cancelled the reservation, if any.
//  CancelledAt   – when the reservation was cancelled.
//  CancelReason  – free text reason recorded on cancellation.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
	ID            uint64            // reservations.id
	UserID        uint64            // reservations.user_id
	EventID       uint64            // reservations.event_id
	Status        ReservationStatus // reservations.status
	Quantity      int               // reservations.quantity
	TicketCode    string            // reservations.ticket_code
	ApprovedByID  *uint64           // reservations.approved_by_id (nullable)
	CancelledByID *uint64           // reservations.cancelled_by_id (nullable)
	CancelledAt   *time.Time        // reservations.cancelled_at (nullable)
	CancelReason  *string           // reservations.cancel_reason (nullable)
	CreatedAt     time.Time         // reservations.created_at
	UpdatedAt     time.Time         // reservations.updated_at
}

// ReservationWithEvent pairs a reservation with its event for the
// holder's ticket list.
type ReservationWithEvent struct {
	Reservation Reservation
	Event       Event
}

// ReservationRow is the back-office projection of a reservation with
// the holder's contact and the event title.
type ReservationRow struct {
	Reservation Reservation
	UserEmail   string
	UserName    *string
	EventSlug   string
	EventTitle  string
	CheckedInAt *time.Time
}

// ReservationFilter narrows the back-office reservation listing.
type ReservationFilter struct {
	ListFilter
	Status  ReservationStatus
	EventID uint64
	UserID  uint64
}

// ReservationCheckIn is the append-only record of a successful scan.
// reservation_id is unique so a reservation is checked in at most once.
// Deleting the scanning account clears ScannedByID but keeps the row.
type ReservationCheckIn struct {
	ID            uint64    // reservation_check_ins.id
	ReservationID uint64    // reservation_check_ins.reservation_id
	ScannedByID   *uint64   // reservation_check_ins.scanned_by_id (nullable)
	ScannedAt     time.Time // reservation_check_ins.scanned_at
}
