package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// CheckInRepo records ticket scans.  uq_check_ins_reservation makes the
// insert the single linearization point for concurrent scans.
type CheckInRepo struct{ db *sql.DB }

func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

func (r *CheckInRepo) GetCheckIn(ctx context.Context, reservationID uint64) (model.ReservationCheckIn, error) {
	var (
		c       model.ReservationCheckIn
		scanner sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, reservation_id, scanned_by_id, scanned_at FROM reservation_check_ins WHERE reservation_id=?",
		reservationID).Scan(&c.ID, &c.ReservationID, &scanner, &c.ScannedAt)
	if err != nil {
		return model.ReservationCheckIn{}, notFound(err)
	}
	c.ScannedByID = nullUint64(scanner)
	return c, nil
}

// CreateCheckIn inserts c.  A second insert for the same reservation
// fails with ErrAlreadyCheckedIn.
func (r *CheckInRepo) CreateCheckIn(ctx context.Context, c *model.ReservationCheckIn) error {
	if c.ScannedAt.IsZero() {
		c.ScannedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reservation_check_ins (reservation_id, scanned_by_id, scanned_at) VALUES (?,?,?)",
		c.ReservationID, c.ScannedByID, c.ScannedAt.UTC())
	if err != nil {
		if duplicateKey(err, "uq_check_ins_reservation") {
			return ErrAlreadyCheckedIn
		}
		return missingParent(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}
