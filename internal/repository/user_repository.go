package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,phone,password_hash,role,email_verified_at,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		name     sql.NullString
		verified sql.NullTime
	)
	err := s.Scan(&u.ID, &name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Name = nullString(name)
	u.EmailVerifiedAt = nullTime(verified)
	return u, nil
}

// userWriteErr classifies unique-key violations on users.
func userWriteErr(err error) error {
	switch {
	case duplicateKey(err, "uq_users_email"):
		return ErrDuplicateEmail
	case duplicateKey(err, "uq_users_phone"):
		return ErrDuplicatePhone
	case isDuplicate(err):
		return ErrConflict
	}
	return err
}

// CreateUser inserts u and fills its ID and timestamps.  The email is
// normalized to lower case.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,email,phone,password_hash,role,email_verified_at,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.EmailVerifiedAt, now, now)
	if err != nil {
		return userWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID, u.CreatedAt, u.UpdatedAt = uint64(id), now, now
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// UpdateUser writes every mutable column of u.
func (r *UserRepo) UpdateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, phone=?, password_hash=?, role=?, email_verified_at=?, updated_at=? WHERE id=?",
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.EmailVerifiedAt, u.UpdatedAt, u.ID)
	if err != nil {
		return userWriteErr(err)
	}
	return affected(res, nil)
}

// DeleteUser removes a user; reservations, codes and tokens cascade.
func (r *UserRepo) DeleteUser(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}

// ListUsers returns one page of users matching f.Query on name, email
// or phone, newest first, plus the total match count.
func (r *UserRepo) ListUsers(ctx context.Context, f model.ListFilter) ([]model.User, int, error) {
	f = f.Normalize()
	where := ""
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		where = " WHERE name LIKE ? OR email LIKE ? OR phone LIKE ?"
		args = append(args, like, like, like)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullUint64(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	v := uint64(ni.Int64)
	return &v
}
