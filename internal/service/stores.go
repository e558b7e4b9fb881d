package service

import (
	"context"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// The store interfaces below are satisfied by the MySQL repositories
// and by memstore.Store.  Implementations report missing rows with
// repository.ErrNotFound and unique-key violations with the matching
// repository sentinel.

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id uint64) error
	ListUsers(ctx context.Context, f model.ListFilter) ([]model.User, int, error)
}

type VerificationStore interface {
	CreateCode(ctx context.Context, c *model.EmailVerificationCode) error
	LatestUnusedCode(ctx context.Context, userID uint64) (model.EmailVerificationCode, error)
	RecordFailedAttempt(ctx context.Context, codeID uint64) (int, error)
	// VerifyEmail marks the user verified, marks codeID used and purges
	// every other unused code of the user in one step.
	VerifyEmail(ctx context.Context, userID, codeID uint64, at time.Time) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type VenueStore interface {
	CreateVenue(ctx context.Context, v *model.Venue) error
	GetVenue(ctx context.Context, id uint64) (model.Venue, error)
	GetVenueByName(ctx context.Context, name string) (model.Venue, error)
	// UpdateVenue also refreshes the cached label on referencing events.
	UpdateVenue(ctx context.Context, v *model.Venue) error
	DeleteVenue(ctx context.Context, id uint64) error
	ListVenues(ctx context.Context, f model.ListFilter) ([]model.Venue, int, error)
	CountEventsForVenue(ctx context.Context, venueID uint64) (int, error)
}

type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id uint64) error
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error)
}

type ReservationStore interface {
	// UpsertReservation inserts r keyed on (user, event).  When the pair
	// already exists only the quantity is updated.  r is overwritten with
	// the stored row and created reports which branch ran.
	UpsertReservation(ctx context.Context, r *model.Reservation) (created bool, err error)
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservationsForUser(ctx context.Context, userID uint64) ([]model.ReservationWithEvent, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.ReservationRow, int, error)
	// UpdateReservation writes status, quantity and the approval and
	// cancellation columns.  The ticket code is never written.
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

type CheckInStore interface {
	GetCheckIn(ctx context.Context, reservationID uint64) (model.ReservationCheckIn, error)
	// CreateCheckIn returns repository.ErrAlreadyCheckedIn when the
	// reservation already has a check-in.
	CreateCheckIn(ctx context.Context, c *model.ReservationCheckIn) error
}

type AuditStore interface {
	InsertAudit(ctx context.Context, a *model.AuditLog) error
	ListAudit(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int, error)
}

type StatsStore interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// Store is the union of every store, as implemented by memstore.
type Store interface {
	UserStore
	VerificationStore
	TokenStore
	VenueStore
	EventStore
	ReservationStore
	CheckInStore
	AuditStore
	StatsStore
}
