package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatdesk/internal/models"
	"chatdesk/internal/repository"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentReset struct {
	to       string
	username string
	token    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentReset
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentReset{to: to, username: username, token: token})
	return nil
}

func (m *captureMailer) last(t *testing.T) sentReset {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no reset mail captured")
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	store    *repository.MemoryStore
	clock    *fakeClock
	creds    *CredentialStore
	sessions *SessionLedger
	resets   *ResetLedger
	mailer   *captureMailer
	auth     *AuthService
}

func newFixture(t *testing.T, opts AuthOptions) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	clock := newFakeClock()
	users := store.Users()

	f := &fixture{store: store, clock: clock, mailer: &captureMailer{}}
	f.creds = NewCredentialStore(users, store, clock.Now)
	f.sessions = NewSessionLedger(store.Sessions(), clock.Now, DefaultSessionTTL)
	f.resets = NewResetLedger(users, store.PasswordResets(), store.Sessions(), store, clock.Now, DefaultResetTTL)
	f.auth = NewAuthService(f.creds, f.sessions, f.resets, f.mailer, opts)
	return f
}

func (f *fixture) register(t *testing.T, username, password, email string) {
	t.Helper()
	_, err := f.creds.Register(context.Background(), models.Registration{
		Username: username,
		Password: password,
		Email:    email,
	})
	require.NoError(t, err)
}
