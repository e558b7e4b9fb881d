package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  A user
// holds at most one reservation per event, enforced by the
// uq_reservations_user_event key.  All timestamp fields are stored in
// UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id,r.user_id,r.event_id,r.status,r.quantity,r.ticket_code,
	r.approved_by_id,r.cancelled_by_id,r.cancelled_at,r.cancel_reason,r.created_at,r.updated_at`

// reservationDest returns scan destinations for reservationColumns and a
// finish func that copies nullable columns into res.
func reservationDest(res *model.Reservation) ([]any, func()) {
	var (
		approved, cancelledBy sql.NullInt64
		cancelledAt           sql.NullTime
		reason                sql.NullString
	)
	dest := []any{&res.ID, &res.UserID, &res.EventID, &res.Status, &res.Quantity, &res.TicketCode,
		&approved, &cancelledBy, &cancelledAt, &reason, &res.CreatedAt, &res.UpdatedAt}
	return dest, func() {
		res.ApprovedByID = nullUint64(approved)
		res.CancelledByID = nullUint64(cancelledBy)
		res.CancelledAt = nullTime(cancelledAt)
		res.CancelReason = nullString(reason)
	}
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var res model.Reservation
	dest, finish := reservationDest(&res)
	if err := s.Scan(dest...); err != nil {
		return model.Reservation{}, err
	}
	finish()
	return res, nil
}

// UpsertReservation inserts res, or on a duplicate (user_id, event_id)
// updates only the quantity of the existing row.  Both branches run in
// one transaction and res is reloaded from the stored row, so an
// existing ticket code and status always win over the values passed in.
func (r *ReservationRepo) UpsertReservation(ctx context.Context, res *model.Reservation) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	created := true
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, event_id, status, quantity, ticket_code, approved_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.EventID, res.Status, res.Quantity, res.TicketCode, res.ApprovedByID, now, now)
	switch {
	case err == nil:
	case duplicateKey(err, "uq_reservations_user_event"):
		created = false
		if _, err := tx.ExecContext(ctx,
			"UPDATE reservations SET quantity=?, updated_at=? WHERE user_id=? AND event_id=?",
			res.Quantity, now, res.UserID, res.EventID); err != nil {
			return false, err
		}
	case isDuplicate(err):
		// ticket code collision; astronomically unlikely
		return false, ErrConflict
	default:
		return false, missingParent(err)
	}

	stored, err := scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.user_id=? AND r.event_id=?",
		res.UserID, res.EventID))
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	*res = stored
	return created, nil
}

func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.id=?", id))
	return res, notFound(err)
}

// ListReservationsForUser returns the user's reservations joined with
// their events, soonest event first.
func (r *ReservationRepo) ListReservationsForUser(ctx context.Context, userID uint64) ([]model.ReservationWithEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationColumns+", "+eventColumns+
			` FROM reservations r JOIN events e ON e.id = r.event_id
			 WHERE r.user_id = ?
			 ORDER BY e.starts_at IS NULL, e.starts_at, r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReservationWithEvent
	for rows.Next() {
		var item model.ReservationWithEvent
		dest, finish := reservationDest(&item.Reservation)
		evDest, evFinish := eventDest(&item.Event)
		if err := rows.Scan(append(dest, evDest...)...); err != nil {
			return nil, err
		}
		finish()
		evFinish()
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListReservations is the back-office listing with holder and event
// columns, newest first.
func (r *ReservationRepo) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.ReservationRow, int, error) {
	f.ListFilter = f.ListFilter.Normalize()
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "r.status = ?")
		args = append(args, f.Status)
	}
	if f.EventID != 0 {
		conds = append(conds, "r.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.UserID != 0 {
		conds = append(conds, "r.user_id = ?")
		args = append(args, f.UserID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		conds = append(conds, "(u.email LIKE ? OR u.name LIKE ? OR e.title LIKE ? OR r.ticket_code = ?)")
		args = append(args, like, like, like, q)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	const from = ` FROM reservations r
		JOIN users u ON u.id = r.user_id
		JOIN events e ON e.id = r.event_id
		LEFT JOIN reservation_check_ins ci ON ci.reservation_id = r.id`

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationColumns+", u.email, u.name, e.slug, e.title, ci.scanned_at"+from+where+
			" ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ReservationRow
	for rows.Next() {
		var (
			row       model.ReservationRow
			name      sql.NullString
			scannedAt sql.NullTime
		)
		dest, finish := reservationDest(&row.Reservation)
		dest = append(dest, &row.UserEmail, &name, &row.EventSlug, &row.EventTitle, &scannedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		finish()
		row.UserName = nullString(name)
		row.CheckedInAt = nullTime(scannedAt)
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// UpdateReservation writes the mutable columns.  ticket_code is not
// part of the statement.
func (r *ReservationRepo) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	res.UpdatedAt = time.Now().UTC()
	return affected(r.db.ExecContext(ctx,
		`UPDATE reservations
		    SET status=?, quantity=?, approved_by_id=?, cancelled_by_id=?, cancelled_at=?, cancel_reason=?, updated_at=?
		  WHERE id=?`,
		res.Status, res.Quantity, res.ApprovedByID, res.CancelledByID, res.CancelledAt, res.CancelReason,
		res.UpdatedAt, res.ID))
}

func (r *ReservationRepo) DeleteReservation(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id))
}
