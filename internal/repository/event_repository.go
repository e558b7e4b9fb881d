package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// EventRepo provides CRUD operations for program events.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `e.id,e.slug,e.title,e.description,e.track,e.day,e.day_label,e.time_label,
	e.is_free,e.requires_registration,e.starts_at,e.ends_at,e.venue_id,e.venue_label,e.created_at,e.updated_at`

// eventDest returns scan destinations for eventColumns and a finish
// func that copies nullable columns into e.
func eventDest(e *model.Event) ([]any, func()) {
	var (
		desc, track, day, dayLabel, timeLabel, vLabel sql.NullString
		starts, ends                                  sql.NullTime
		venueID                                       sql.NullInt64
	)
	dest := []any{&e.ID, &e.Slug, &e.Title, &desc, &track, &day, &dayLabel, &timeLabel,
		&e.IsFree, &e.RequiresRegistration, &starts, &ends, &venueID, &vLabel, &e.CreatedAt, &e.UpdatedAt}
	return dest, func() {
		e.Description, e.Track, e.Day = nullString(desc), nullString(track), nullString(day)
		e.DayLabel, e.TimeLabel, e.VenueLabel = nullString(dayLabel), nullString(timeLabel), nullString(vLabel)
		e.StartsAt, e.EndsAt = nullTime(starts), nullTime(ends)
		e.VenueID = nullUint64(venueID)
	}
}

func scanEvent(s rowScanner) (model.Event, error) {
	var e model.Event
	dest, finish := eventDest(&e)
	if err := s.Scan(dest...); err != nil {
		return model.Event{}, err
	}
	finish()
	return e, nil
}

func eventWriteErr(err error) error {
	switch {
	case duplicateKey(err, "uq_events_slug"):
		return ErrDuplicateSlug
	case isDuplicate(err):
		return ErrConflict
	}
	return err
}

func (r *EventRepo) CreateEvent(ctx context.Context, e *model.Event) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (slug,title,description,track,day,day_label,time_label,is_free,requires_registration,
		                     starts_at,ends_at,venue_id,venue_label,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.Slug, e.Title, e.Description, e.Track, e.Day, e.DayLabel, e.TimeLabel, e.IsFree, e.RequiresRegistration,
		e.StartsAt, e.EndsAt, e.VenueID, e.VenueLabel, now, now)
	if err != nil {
		return eventWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID, e.CreatedAt, e.UpdatedAt = uint64(id), now, now
	return nil
}

func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events e WHERE e.id=?", id))
	return e, notFound(err)
}

func (r *EventRepo) GetEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events e WHERE e.slug=? LIMIT 1", slug))
	return e, notFound(err)
}

func (r *EventRepo) UpdateEvent(ctx context.Context, e *model.Event) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET slug=?, title=?, description=?, track=?, day=?, day_label=?, time_label=?, is_free=?,
		        requires_registration=?, starts_at=?, ends_at=?, venue_id=?, venue_label=?, updated_at=?
		  WHERE id=?`,
		e.Slug, e.Title, e.Description, e.Track, e.Day, e.DayLabel, e.TimeLabel, e.IsFree,
		e.RequiresRegistration, e.StartsAt, e.EndsAt, e.VenueID, e.VenueLabel, e.UpdatedAt, e.ID)
	if err != nil {
		return eventWriteErr(err)
	}
	return affected(res, nil)
}

// DeleteEvent removes an event; its reservations and check-ins cascade.
func (r *EventRepo) DeleteEvent(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM events WHERE id=?", id))
}

// ListEvents returns events in program order (day, start time, title).
func (r *EventRepo) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	f.ListFilter = f.ListFilter.Normalize()
	var (
		conds []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		conds = append(conds, "(e.title LIKE ? OR e.slug LIKE ? OR e.description LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Track != "" {
		conds = append(conds, "e.track = ?")
		args = append(args, f.Track)
	}
	if f.Day != "" {
		conds = append(conds, "e.day = ?")
		args = append(args, f.Day)
	}
	if f.VenueID != 0 {
		conds = append(conds, "e.venue_id = ?")
		args = append(args, f.VenueID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events e"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events e"+where+
			" ORDER BY e.day IS NULL, e.day, e.starts_at IS NULL, e.starts_at, e.title LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
