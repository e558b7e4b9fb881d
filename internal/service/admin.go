package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

// AdminService is the back-office.  Every method expects an ADMIN
// actor and records one audit entry per successful mutation.
type AdminService struct {
	store      Store
	audit      *AuditWriter
	issuer     *TicketIssuer
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time
}

func NewAdminService(store Store, audit *AuditWriter, issuer *TicketIssuer, bcryptCost int, log *slog.Logger) *AdminService {
	return &AdminService{store: store, audit: audit, issuer: issuer, bcryptCost: bcryptCost, log: log, now: time.Now}
}

func requireAdmin(actor Actor) error {
	if !actor.Role.IsAdmin() {
		return newError(KindForbidden, "forbidden", "administrator role required")
	}
	return nil
}

// ----- users -----

// UserInput is the admin user form.  On update an empty Password keeps
// the current one and a nil Verified leaves verification untouched.
type UserInput struct {
	Name     *string
	Email    string
	Phone    string
	Password string
	Role     model.Role
	Verified *bool
}

func userMeta(u model.User) model.Meta {
	return model.Meta{"email": u.Email, "phone": u.Phone, "role": u.Role.String(), "verified": u.Verified()}
}

func (s *AdminService) applyUserInput(u *model.User, in UserInput, creating bool) error {
	email, phone := NormalizeEmail(in.Email), NormalizePhone(in.Phone)
	if !validEmail(email) {
		return newError(KindInvalidInput, "invalid_email", "a valid email address is required")
	}
	if !validPhone(phone) {
		return newError(KindInvalidInput, "invalid_phone", "a valid phone number is required")
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return newError(KindInvalidInput, "invalid_role", "role must be USER, APPROVER or ADMIN")
	}
	if creating || in.Password != "" {
		if len(in.Password) < utils.MinPasswordLen {
			return newError(KindInvalidInput, "weak_password", "password must be at least 8 characters")
		}
		hash, err := utils.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return internal("hash password", err)
		}
		u.PasswordHash = hash
	}
	u.Name = trimmedOrNil(in.Name)
	u.Email, u.Phone, u.Role = email, phone, role
	if in.Verified != nil {
		switch {
		case *in.Verified && u.EmailVerifiedAt == nil:
			now := s.now().UTC()
			u.EmailVerifiedAt = &now
		case !*in.Verified:
			u.EmailVerifiedAt = nil
		}
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actor Actor, f model.ListFilter) ([]model.User, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	items, total, err := s.store.ListUsers(ctx, f.Normalize())
	if err != nil {
		return nil, 0, internal("list users", err)
	}
	return items, total, nil
}

func (s *AdminService) GetUser(ctx context.Context, actor Actor, id uint64) (model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return model.User{}, err
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, "user_not_found", "user not found", "load user")
	}
	return u, nil
}

func (s *AdminService) CreateUser(ctx context.Context, actor Actor, in UserInput) (model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return model.User{}, err
	}
	var u model.User
	if err := s.applyUserInput(&u, in, true); err != nil {
		return model.User{}, err
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return model.User{}, userConflict(err, "create user")
	}
	s.audit.Record(ctx, actor.ID, model.ActionCreate, model.EntityUser, u.ID, userMeta(u))
	return u, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, actor Actor, id uint64, in UserInput) (model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return model.User{}, err
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, "user_not_found", "user not found", "load user")
	}
	if id == actor.ID && in.Role != "" && !in.Role.IsAdmin() {
		return model.User{}, newError(KindInvalidState, "cannot_demote_self", "you cannot remove your own administrator role")
	}
	if err := s.applyUserInput(&u, in, false); err != nil {
		return model.User{}, err
	}
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return model.User{}, userConflict(err, "update user")
	}
	s.audit.Record(ctx, actor.ID, model.ActionUpdate, model.EntityUser, u.ID, userMeta(u))
	return u, nil
}

// DeleteUser removes an account and, by cascade, its reservations.
// Administrators cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actor Actor, id uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return newError(KindInvalidState, "cannot_delete_self", "you cannot delete your own account")
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "user_not_found", "user not found", "load user")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return notFoundOr(err, "user_not_found", "user not found", "delete user")
	}
	s.audit.Record(ctx, actor.ID, model.ActionDelete, model.EntityUser, id, model.Meta{"email": u.Email, "role": u.Role.String()})
	return nil
}

// ----- read-only -----

func (s *AdminService) ListAudit(ctx context.Context, actor Actor, f model.AuditFilter) ([]model.AuditLog, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.audit.List(ctx, f)
}

func (s *AdminService) Stats(ctx context.Context, actor Actor) (model.Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Stats{}, err
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return model.Stats{}, internal("load stats", err)
	}
	return st, nil
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
