package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// VerificationRepo stores hashed email verification codes.
type VerificationRepo struct{ DB *sql.DB }

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{DB: db} }

// CreateCode inserts c and fills its ID.
func (r *VerificationRepo) CreateCode(ctx context.Context, c *model.EmailVerificationCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO email_verification_codes (user_id, code_hash, expires_at, created_at) VALUES (?,?,?,?)",
		c.UserID, c.CodeHash, c.ExpiresAt.UTC(), c.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// LatestUnusedCode returns the most recently issued unused code.
func (r *VerificationRepo) LatestUnusedCode(ctx context.Context, userID uint64) (model.EmailVerificationCode, error) {
	var (
		c    model.EmailVerificationCode
		used sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, expires_at, used_at, attempts, created_at
		   FROM email_verification_codes
		  WHERE user_id=? AND used_at IS NULL
		  ORDER BY created_at DESC, id DESC LIMIT 1`, userID).
		Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &used, &c.Attempts, &c.CreatedAt)
	if err != nil {
		return model.EmailVerificationCode{}, notFound(err)
	}
	c.UsedAt = nullTime(used)
	return c, nil
}

// RecordFailedAttempt counts one wrong guess against codeID and
// returns the new total.  The increment happens in the database so
// concurrent guesses are all counted.
func (r *VerificationRepo) RecordFailedAttempt(ctx context.Context, codeID uint64) (int, error) {
	if err := affected(r.DB.ExecContext(ctx,
		"UPDATE email_verification_codes SET attempts=attempts+1 WHERE id=? AND used_at IS NULL", codeID)); err != nil {
		return 0, err
	}
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT attempts FROM email_verification_codes WHERE id=?", codeID).Scan(&n)
	return n, notFound(err)
}

// VerifyEmail marks the user verified, consumes codeID and deletes the
// user's remaining unused codes in one transaction.
func (r *VerificationRepo) VerifyEmail(ctx context.Context, userID, codeID uint64, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	at = at.UTC()
	if err := affected(tx.ExecContext(ctx,
		"UPDATE users SET email_verified_at=?, updated_at=? WHERE id=?", at, at, userID)); err != nil {
		return err
	}
	if err := affected(tx.ExecContext(ctx,
		"UPDATE email_verification_codes SET used_at=? WHERE id=? AND user_id=? AND used_at IS NULL",
		at, codeID, userID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM email_verification_codes WHERE user_id=? AND used_at IS NULL", userID); err != nil {
		return err
	}
	return tx.Commit()
}
