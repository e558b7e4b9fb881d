package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens by SHA-256 hash; raw tokens never reach
// the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, tokenHash, exp.UTC(), time.Now().UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// ConsumeRefresh revokes an active token and returns its owner.  The
// conditional UPDATE is the single-use guard: of two concurrent
// rotations of the same token only one sees a row affected, the other
// gets ErrNotFound exactly like an expired or unknown token.
func (r *TokenRepo) ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=?
		  WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?`,
		now, tokenHash, now)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNotFound
	}
	var userID uint64
	err = r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? LIMIT 1", tokenHash).Scan(&userID)
	if err != nil {
		return 0, notFound(err)
	}
	return userID, nil
}

// RevokeByHash marks one token revoked; unknown hashes are not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		time.Now().UTC(), tokenHash)
	return err
}

// RevokeAllForUser ends every session of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		time.Now().UTC(), userID)
	return err
}
