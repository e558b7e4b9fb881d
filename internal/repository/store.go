package repository

import "database/sql"

// Store bundles every MySQL repository behind one value so it can be
// handed to the services as a single store.
type Store struct {
	*UserRepo
	*VerificationRepo
	*TokenRepo
	*VenueRepo
	*EventRepo
	*ReservationRepo
	*CheckInRepo
	*AuditRepo
	*StatsRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		UserRepo:         NewUserRepo(db),
		VerificationRepo: NewVerificationRepo(db),
		TokenRepo:        NewTokenRepo(db),
		VenueRepo:        NewVenueRepo(db),
		EventRepo:        NewEventRepo(db),
		ReservationRepo:  NewReservationRepo(db),
		CheckInRepo:      NewCheckInRepo(db),
		AuditRepo:        NewAuditRepo(db),
		StatsRepo:        NewStatsRepo(db),
	}
}
