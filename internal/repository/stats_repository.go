package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// StatsRepo computes dashboard aggregates with plain COUNT queries.
type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

func (r *StatsRepo) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE email_verified_at IS NOT NULL),
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM venues),
		(SELECT COUNT(*) FROM reservations),
		(SELECT COUNT(*) FROM reservations WHERE status = 'CONFIRMED'),
		(SELECT COUNT(*) FROM reservations WHERE status = 'WAITLIST'),
		(SELECT COUNT(*) FROM reservations WHERE status = 'CANCELLED'),
		(SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE status = 'CONFIRMED'),
		(SELECT COUNT(*) FROM reservation_check_ins)`).Scan(
		&s.Users, &s.VerifiedUsers, &s.Events, &s.Venues, &s.Reservations,
		&s.ReservationsConfirmed, &s.ReservationsWaitlist, &s.ReservationsCancelled,
		&s.TicketsConfirmed, &s.CheckIns)
	if err != nil {
		return model.Stats{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.slug, e.title,
		       COUNT(r.id),
		       COALESCE(SUM(CASE WHEN r.status = 'CONFIRMED' THEN r.quantity ELSE 0 END), 0),
		       COUNT(ci.id)
		  FROM events e
		  LEFT JOIN reservations r ON r.event_id = e.id
		  LEFT JOIN reservation_check_ins ci ON ci.reservation_id = r.id
		 GROUP BY e.id, e.slug, e.title
		 ORDER BY e.id`)
	if err != nil {
		return model.Stats{}, err
	}
	defer rows.Close()
	s.PerEvent, err = scanEventStats(rows)
	return s, err
}

func scanEventStats(rows *sql.Rows) ([]model.EventStats, error) {
	out := []model.EventStats{}
	for rows.Next() {
		var es model.EventStats
		if err := rows.Scan(&es.EventID, &es.Slug, &es.Title, &es.Reservations, &es.Tickets, &es.CheckIns); err != nil {
			return nil, err
		}
		out = append(out, es)
	}
	return out, rows.Err()
}
