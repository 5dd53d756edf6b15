package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatdesk/internal/apperr"
	"chatdesk/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps users, sessions and reset requests in process memory.
// It backs STORE=memory and the service tests. A single mutex serialises
// every call; WithinTx holds it for the whole unit and restores a snapshot
// when the unit fails.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	sessions map[string]models.Session
	resets   map[string]models.PasswordReset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]models.User),
		sessions: make(map[string]models.Session),
		resets:   make(map[string]models.PasswordReset),
	}
}

type memTxKey struct{}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memTxKey{}).(*MemoryStore)
	return owner == s
}

func (s *MemoryStore) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, sessions, resets := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.users, s.sessions, s.resets = users, sessions, resets
			panic(p)
		}
		if err != nil {
			s.users, s.sessions, s.resets = users, sessions, resets
		}
	}()

	return fn(context.WithValue(ctx, memTxKey{}, s))
}

func (s *MemoryStore) snapshot() (map[uuid.UUID]models.User, map[string]models.Session, map[string]models.PasswordReset) {
	users := make(map[uuid.UUID]models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	sessions := make(map[string]models.Session, len(s.sessions))
	for k, v := range s.sessions {
		sessions[k] = v
	}
	resets := make(map[string]models.PasswordReset, len(s.resets))
	for k, v := range s.resets {
		resets[k] = v
	}
	return users, sessions, resets
}

func (s *MemoryStore) Users() *MemoryUsers                  { return &MemoryUsers{s: s} }
func (s *MemoryStore) Sessions() *MemorySessions            { return &MemorySessions{s: s} }
func (s *MemoryStore) PasswordResets() *MemoryPasswordResets { return &MemoryPasswordResets{s: s} }

type MemoryUsers struct{ s *MemoryStore }

func (r *MemoryUsers) Create(ctx context.Context, user *models.User) error {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return apperr.Conflict("username already taken")
		}
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *MemoryUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error) {
	defer r.s.lock(ctx)()

	var usernameTaken, emailTaken bool
	for _, u := range r.s.users {
		if u.Username == username {
			usernameTaken = true
		}
		if strings.EqualFold(u.Email, email) {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (r *MemoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *MemoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.Username == username })
}

func (r *MemoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *MemoryUsers) find(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if match(u) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *MemoryUsers) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.LastLoginAt = &at
	r.s.users[id] = u
	return nil
}

func (r *MemoryUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.s.users[id] = u
	return nil
}

func (r *MemoryUsers) UpdateProfile(ctx context.Context, id uuid.UUID, input models.ProfileUpdate) (int64, error) {
	defer r.s.lock(ctx)()

	if input.Empty() {
		return 0, apperr.Validation("no fields to update")
	}
	u, ok := r.s.users[id]
	if !ok {
		return 0, nil
	}
	if input.Email != nil {
		for otherID, other := range r.s.users {
			if otherID != id && strings.EqualFold(other.Email, *input.Email) {
				return 0, apperr.Conflict("email already registered")
			}
		}
		u.Email = *input.Email
	}
	if input.DisplayName != nil {
		v := *input.DisplayName
		u.DisplayName = &v
	}
	if input.Phone != nil {
		v := *input.Phone
		u.Phone = &v
	}
	r.s.users[id] = u
	return 1, nil
}

// SetStatus is used by tests and admin tooling to deactivate an account.
func (r *MemoryUsers) SetStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Status = status
	r.s.users[id] = u
	return nil
}

type MemorySessions struct{ s *MemoryStore }

func (r *MemorySessions) Create(ctx context.Context, sess *models.Session) error {
	defer r.s.lock(ctx)()

	if _, dup := r.s.sessions[sess.Token]; dup {
		return apperr.Conflict("duplicate value")
	}
	r.s.sessions[sess.Token] = *sess
	return nil
}

func (r *MemorySessions) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	defer r.s.lock(ctx)()

	sess, ok := r.s.sessions[token]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &sess, nil
}

func (r *MemorySessions) DeleteByToken(ctx context.Context, token string) (int64, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.sessions[token]; !ok {
		return 0, nil
	}
	delete(r.s.sessions, token)
	return 1, nil
}

func (r *MemorySessions) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for token, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (r *MemorySessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for token, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.s.sessions, token)
			n++
		}
	}
	return n, nil
}

type MemoryPasswordResets struct{ s *MemoryStore }

func (r *MemoryPasswordResets) Create(ctx context.Context, p *models.PasswordReset) error {
	defer r.s.lock(ctx)()

	if _, dup := r.s.resets[p.Token]; dup {
		return apperr.Conflict("duplicate value")
	}
	r.s.resets[p.Token] = *p
	return nil
}

func (r *MemoryPasswordResets) GetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.resets[token]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

// GetByTokenForUpdate relies on WithinTx holding the store lock.
func (r *MemoryPasswordResets) GetByTokenForUpdate(ctx context.Context, token string) (*models.PasswordReset, error) {
	return r.GetByToken(ctx, token)
}

func (r *MemoryPasswordResets) MarkConsumed(ctx context.Context, id uuid.UUID) (int64, error) {
	defer r.s.lock(ctx)()

	for token, p := range r.s.resets {
		if p.ID == id && !p.Consumed {
			p.Consumed = true
			r.s.resets[token] = p
			return 1, nil
		}
	}
	return 0, nil
}

func (r *MemoryPasswordResets) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for token, p := range r.s.resets {
		if !p.ExpiresAt.After(now) {
			delete(r.s.resets, token)
			n++
		}
	}
	return n, nil
}

func cloneUser(u models.User) models.User {
	if u.Phone != nil {
		v := *u.Phone
		u.Phone = &v
	}
	if u.DisplayName != nil {
		v := *u.DisplayName
		u.DisplayName = &v
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		u.LastLoginAt = &v
	}
	return u
}
