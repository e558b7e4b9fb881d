package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// VenueRepo provides CRUD operations for venues.  Venues are shared by
// events and are never deleted while an event references them.
type VenueRepo struct{ db *sql.DB }

func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

const venueColumns = "id,name,label,address,city,country,map_url,embed_url,created_at,updated_at"

func scanVenue(s rowScanner) (model.Venue, error) {
	var (
		v                                        model.Venue
		address, city, country, mapURL, embedURL sql.NullString
	)
	if err := s.Scan(&v.ID, &v.Name, &v.Label, &address, &city, &country, &mapURL, &embedURL, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return model.Venue{}, err
	}
	v.Address, v.City, v.Country = nullString(address), nullString(city), nullString(country)
	v.MapURL, v.EmbedURL = nullString(mapURL), nullString(embedURL)
	return v, nil
}

func venueWriteErr(err error) error {
	switch {
	case duplicateKey(err, "uq_venues_name"):
		return ErrDuplicateVenue
	case isDuplicate(err):
		return ErrConflict
	}
	return err
}

func (r *VenueRepo) CreateVenue(ctx context.Context, v *model.Venue) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO venues (name,label,address,city,country,map_url,embed_url,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		v.Name, v.Label, v.Address, v.City, v.Country, v.MapURL, v.EmbedURL, now, now)
	if err != nil {
		return venueWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID, v.CreatedAt, v.UpdatedAt = uint64(id), now, now
	return nil
}

func (r *VenueRepo) GetVenue(ctx context.Context, id uint64) (model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, "SELECT "+venueColumns+" FROM venues WHERE id=?", id))
	return v, notFound(err)
}

func (r *VenueRepo) GetVenueByName(ctx context.Context, name string) (model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, "SELECT "+venueColumns+" FROM venues WHERE name=? LIMIT 1", name))
	return v, notFound(err)
}

// UpdateVenue writes v and refreshes venue_label on every event that
// points at it, inside one transaction.
func (r *VenueRepo) UpdateVenue(ctx context.Context, v *model.Venue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	v.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE venues SET name=?, label=?, address=?, city=?, country=?, map_url=?, embed_url=?, updated_at=?
		 WHERE id=?`,
		v.Name, v.Label, v.Address, v.City, v.Country, v.MapURL, v.EmbedURL, v.UpdatedAt, v.ID)
	if err != nil {
		return venueWriteErr(err)
	}
	if err := affected(res, nil); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE events SET venue_label=? WHERE venue_id=?", v.Label, v.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteVenue removes an unreferenced venue.  The reference check and
// the delete share a transaction; the RESTRICT foreign key catches any
// event inserted concurrently.
func (r *VenueRepo) DeleteVenue(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var refs int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE venue_id=? FOR UPDATE", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrVenueInUse
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM venues WHERE id=?", id)
	if mysqlCode(err) == errRowIsReferenced {
		return ErrVenueInUse
	}
	if err := affected(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *VenueRepo) CountEventsForVenue(ctx context.Context, venueID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE venue_id=?", venueID).Scan(&n)
	return n, err
}

func (r *VenueRepo) ListVenues(ctx context.Context, f model.ListFilter) ([]model.Venue, int, error) {
	f = f.Normalize()
	where := ""
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		where = " WHERE name LIKE ? OR label LIKE ? OR city LIKE ?"
		args = append(args, like, like, like)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+venueColumns+" FROM venues"+where+" ORDER BY name ASC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}
