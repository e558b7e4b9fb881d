package model

import "time"

// User represents an account as stored in the `users` table.  Each
// field corresponds to a column.  Handlers never serialize this struct
// directly because it carries the password hash; they build response
// types from it instead.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Name            – optional display name.
//  Email           – unique, lower-cased email address.
//  Phone           – unique phone number.
//  PasswordHash    – bcrypt hashed password.
//  Role            – USER, ADMIN or APPROVER.
//  EmailVerifiedAt – when the email was confirmed; nil blocks login.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64     // users.id
	Name            *string    // users.name (nullable)
	Email           string     // users.email
	Phone           string     // users.phone
	PasswordHash    string     // users.password_hash
	Role            Role       // users.role
	EmailVerifiedAt *time.Time // users.email_verified_at (nullable)
	CreatedAt       time.Time  // users.created_at
	UpdatedAt       time.Time  // users.updated_at
}

// Verified reports whether the user confirmed their email address.
func (u *User) Verified() bool { return u.EmailVerifiedAt != nil }

// EmailVerificationCode models a row in `email_verification_codes`.
// The plain six digit code is never stored; only its SHA‑256 hash.
type EmailVerificationCode struct {
	ID        uint64     // email_verification_codes.id
	UserID    uint64     // email_verification_codes.user_id
	CodeHash  string     // email_verification_codes.code_hash
	ExpiresAt time.Time  // email_verification_codes.expires_at
	UsedAt    *time.Time // email_verification_codes.used_at (nullable)
	Attempts  int        // email_verification_codes.attempts (wrong guesses)
	CreatedAt time.Time  // email_verification_codes.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// ListFilter carries the common paging and search options of the
// back-office list endpoints.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

// Normalize clamps paging values into a sane window.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
