package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

// AuthConfig holds the session settings taken from config.Config.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Session is the credential pair returned by login and refresh.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// RegisterInput is the self-service signup form.
type RegisterInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
}

// AuthService implements registration with email verification and
// the session lifecycle.
type AuthService struct {
	users    UserStore
	codes    VerificationStore
	tokens   TokenStore
	notifier notify.Notifier
	cfg      AuthConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewAuthService(users UserStore, codes VerificationStore, tokens TokenStore, n notify.Notifier, cfg AuthConfig, log *slog.Logger) *AuthService {
	return &AuthService{users: users, codes: codes, tokens: tokens, notifier: n, cfg: cfg, log: log, now: time.Now}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizePhone drops spaces, dashes and parentheses.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func validPhone(s string) bool {
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 6 || len(digits) > 20 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Register creates an unverified USER account and sends it a
// verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := NormalizeEmail(in.Email)
	phone := NormalizePhone(in.Phone)
	switch {
	case !validEmail(email):
		return model.User{}, newError(KindInvalidInput, "invalid_email", "a valid email address is required")
	case !validPhone(phone):
		return model.User{}, newError(KindInvalidInput, "invalid_phone", "a valid phone number is required")
	case len(in.Password) < utils.MinPasswordLen:
		return model.User{}, newError(KindInvalidInput, "weak_password", "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, internal("hash password", err)
	}
	u := model.User{Email: email, Phone: phone, PasswordHash: hash, Role: model.RoleUser}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = &name
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		metrics.AuthRegistrationsTotal.WithLabelValues("rejected").Inc()
		return model.User{}, userConflict(err, "create user")
	}
	metrics.AuthRegistrationsTotal.WithLabelValues("ok").Inc()

	if err := s.issueCode(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// ResendCode issues a fresh code to an unverified account.  Unknown
// emails get NotFound; verified accounts get InvalidState.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return notFoundOr(err, "user_not_found", "no account with this email", "load user")
	}
	if u.Verified() {
		return newError(KindInvalidState, "already_verified", "email address is already verified")
	}
	return s.issueCode(ctx, u)
}

// issueCode stores a fresh code and hands it to the notifier.  Only
// storage failures are returned; a failed delivery is logged and the
// account owner can ask again.
func (s *AuthService) issueCode(ctx context.Context, u model.User) error {
	code, err := utils.NewVerificationCode()
	if err != nil {
		return internal("generate code", err)
	}
	rec := model.EmailVerificationCode{
		UserID:    u.ID,
		CodeHash:  utils.HashVerificationCode(code),
		ExpiresAt: s.now().UTC().Add(utils.VerificationCodeTTL),
	}
	if err := s.codes.CreateCode(ctx, &rec); err != nil {
		return internal("store code", err)
	}
	msg := notify.CodeMessage{Email: u.Email, Code: code, ExpiresAt: rec.ExpiresAt}
	if u.Name != nil {
		msg.Name = *u.Name
	}
	err = s.notifier.NotifyVerificationCode(ctx, msg)
	metrics.EmailsTotal.WithLabelValues("verification_code", metrics.Result(err)).Inc()
	if err != nil {
		s.log.WarnContext(ctx, "verification code delivery failed", "user_id", u.ID, "err", err)
	}
	return nil
}

// VerifyEmail checks code against the newest unused code of the
// account and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (model.User, error) {
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return model.User{}, notFoundOr(err, "user_not_found", "no account with this email", "load user")
	}
	if u.Verified() {
		return u, nil
	}
	rec, err := s.codes.LatestUnusedCode(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, newError(KindInvalidInput, "invalid_code", "verification code is invalid")
		}
		return model.User{}, internal("load code", err)
	}
	locked := newError(KindInvalidState, "too_many_attempts", "too many wrong codes; request a new one")
	if rec.Attempts >= utils.MaxCodeAttempts {
		return model.User{}, locked
	}
	now := s.now().UTC()
	if !utils.VerificationCodeMatches(rec.CodeHash, strings.TrimSpace(code)) {
		n, err := s.codes.RecordFailedAttempt(ctx, rec.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.User{}, internal("record attempt", err)
		}
		if n >= utils.MaxCodeAttempts {
			s.log.WarnContext(ctx, "verification code locked", "user_id", u.ID)
			return model.User{}, locked
		}
		return model.User{}, newError(KindInvalidInput, "invalid_code", "verification code is invalid")
	}
	if now.After(rec.ExpiresAt) {
		return model.User{}, newError(KindExpired, "code_expired", "verification code has expired")
	}
	if err := s.codes.VerifyEmail(ctx, u.ID, rec.ID, now); err != nil {
		return model.User{}, internal("verify email", err)
	}
	u.EmailVerifiedAt = &now
	return u, nil
}

// Login checks credentials and opens a session.  Unverified accounts
// are told so only after the password matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	badCreds := newError(KindUnauthorized, "invalid_credentials", "email or password is incorrect")
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return Session{}, badCreds
		}
		return Session{}, internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return Session{}, badCreds
	}
	if !u.Verified() {
		metrics.AuthLoginsTotal.WithLabelValues("email_not_verified").Inc()
		return Session{}, newError(KindForbidden, "email_not_verified", "verify your email address before signing in")
	}
	sess, err := s.issueSession(ctx, u)
	metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	return sess, err
}

// Refresh rotates a refresh token: the presented token is consumed and
// a new pair is issued.  A token can be rotated once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	invalid := newError(KindUnauthorized, "invalid_refresh", "refresh token is invalid or expired")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid
	}
	uid, err := s.tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, invalid
		}
		return Session{}, internal("consume refresh", err)
	}
	u, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, invalid
		}
		return Session{}, internal("load user", err)
	}
	return s.issueSession(ctx, u)
}

// Logout revokes one refresh token when raw is given, otherwise every
// token of userID.  With neither there is nothing to do.
func (s *AuthService) Logout(ctx context.Context, userID uint64, raw string) error {
	if raw = strings.TrimSpace(raw); raw != "" {
		if err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internal("revoke refresh", err)
		}
		return nil
	}
	if userID != 0 {
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return internal("revoke sessions", err)
		}
	}
	return nil
}

// Me loads the account behind a session.
func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	if userID == 0 {
		return model.User{}, newError(KindUnauthorized, "unauthorized", "sign in required")
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, newError(KindUnauthorized, "unauthorized", "account no longer exists")
		}
		return model.User{}, internal("load user", err)
	}
	return u, nil
}

func (s *AuthService) issueSession(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, internal("issue access token", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, internal("issue refresh token", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, internal("store refresh token", err)
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// userConflict maps unique-key sentinels of the users table.
func userConflict(err error, op string) *Error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return &Error{Kind: KindConflict, Reason: "email_taken", Message: "an account with this email already exists", Err: err}
	case errors.Is(err, repository.ErrDuplicatePhone):
		return &Error{Kind: KindConflict, Reason: "phone_taken", Message: "an account with this phone number already exists", Err: err}
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Reason: "user_not_found", Message: "user not found", Err: err}
	default:
		return internal(op, err)
	}
}
