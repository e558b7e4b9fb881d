// Package memstore is an in-process implementation of every store
// interface.  It backs STORAGE_DRIVER=memory and the service tests.
// A single mutex serializes all access, which gives the same guarantees
// as the MySQL unique keys: one reservation per (user, event) and one
// check-in per reservation.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
)

type refreshToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// Store holds all tables in maps keyed by primary key.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq uint64

	users        map[uint64]model.User
	codes        map[uint64]model.EmailVerificationCode
	tokens       map[string]refreshToken
	venues       map[uint64]model.Venue
	events       map[uint64]model.Event
	reservations map[uint64]model.Reservation
	checkIns     map[uint64]model.ReservationCheckIn // by reservation id
	audit        []model.AuditLog
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		users:        make(map[uint64]model.User),
		codes:        make(map[uint64]model.EmailVerificationCode),
		tokens:       make(map[string]refreshToken),
		venues:       make(map[uint64]model.Venue),
		events:       make(map[uint64]model.Event),
		reservations: make(map[uint64]model.Reservation),
		checkIns:     make(map[uint64]model.ReservationCheckIn),
	}
}

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

func contains(field *string, q string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), q)
}

func page[T any](items []T, f model.ListFilter) []T {
	if f.Offset >= len(items) {
		return []T{}
	}
	end := f.Offset + f.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[f.Offset:end]
}

// ----- users -----

func (s *Store) userConflict(u model.User) error {
	for _, other := range s.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
		if other.Phone == u.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.ID = 0
	if err := s.userConflict(*u); err != nil {
		return err
	}
	now := s.now()
	u.ID, u.CreatedAt, u.UpdatedAt = s.nextID(), now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.userConflict(*u); err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = old.CreatedAt, s.now()
	s.users[u.ID] = *u
	return nil
}

// DeleteUser cascades like the foreign keys: reservations, their
// check-ins, codes and refresh tokens go with the user.
func (s *Store) DeleteUser(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	for rid, r := range s.reservations {
		if r.UserID == id {
			s.deleteReservationLocked(rid)
			continue
		}
		if r.ApprovedByID != nil && *r.ApprovedByID == id {
			r.ApprovedByID = nil
		}
		if r.CancelledByID != nil && *r.CancelledByID == id {
			r.CancelledByID = nil
		}
		s.reservations[rid] = r
	}
	for rid, c := range s.checkIns {
		if c.ScannedByID != nil && *c.ScannedByID == id {
			c.ScannedByID = nil
			s.checkIns[rid] = c
		}
	}
	for cid, c := range s.codes {
		if c.UserID == id {
			delete(s.codes, cid)
		}
	}
	for h, t := range s.tokens {
		if t.userID == id {
			delete(s.tokens, h)
		}
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context, f model.ListFilter) ([]model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f = f.Normalize()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.User
	for _, u := range s.users {
		if q != "" && !contains(u.Name, q) && !strings.Contains(u.Email, q) && !strings.Contains(u.Phone, q) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f), len(out), nil
}

// ----- verification codes -----

func (s *Store) CreateCode(_ context.Context, c *model.EmailVerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.ID = s.nextID()
	s.codes[c.ID] = *c
	return nil
}

func (s *Store) LatestUnusedCode(_ context.Context, userID uint64) (model.EmailVerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  model.EmailVerificationCode
		found bool
	)
	for _, c := range s.codes {
		if c.UserID != userID || c.UsedAt != nil {
			continue
		}
		if !found || c.CreatedAt.After(best.CreatedAt) || (c.CreatedAt.Equal(best.CreatedAt) && c.ID > best.ID) {
			best, found = c, true
		}
	}
	if !found {
		return model.EmailVerificationCode{}, repository.ErrNotFound
	}
	return best, nil
}

func (s *Store) RecordFailedAttempt(_ context.Context, codeID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeID]
	if !ok || c.UsedAt != nil {
		return 0, repository.ErrNotFound
	}
	c.Attempts++
	s.codes[codeID] = c
	return c.Attempts, nil
}

func (s *Store) VerifyEmail(_ context.Context, userID, codeID uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	c, ok := s.codes[codeID]
	if !ok || c.UserID != userID || c.UsedAt != nil {
		return repository.ErrNotFound
	}
	at = at.UTC()
	u.EmailVerifiedAt, u.UpdatedAt = &at, at
	s.users[userID] = u
	c.UsedAt = &at
	s.codes[codeID] = c
	for id, other := range s.codes {
		if other.UserID == userID && other.UsedAt == nil {
			delete(s.codes, id)
		}
	}
	return nil
}

// ----- refresh tokens -----

func (s *Store) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; ok {
		return repository.ErrConflict
	}
	s.tokens[tokenHash] = refreshToken{userID: userID, exp: exp.UTC()}
	return nil
}

func (s *Store) ConsumeRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || !s.now().Before(t.exp) {
		return 0, repository.ErrNotFound
	}
	t.revoked = true
	s.tokens[tokenHash] = t
	return t.userID, nil
}

func (s *Store) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *Store) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
			s.tokens[h] = t
		}
	}
	return nil
}
