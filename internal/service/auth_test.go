package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oakline/ledger/internal/models"
	"github.com/oakline/ledger/internal/service"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	return u, nil
}

type memSessions struct {
	ttl      time.Duration
	sessions map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{ttl: time.Hour, sessions: make(map[string]models.Session)}
}

func (m *memSessions) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	token := uuid.New().String()
	expiresAt := time.Now().Add(m.ttl)
	m.sessions[token] = models.Session{UserID: userID, ExpiresAt: expiresAt}
	return token, expiresAt, nil
}

func (m *memSessions) Lookup(ctx context.Context, token string) (*models.Session, error) {
	s, ok := m.sessions[token]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, service.ErrUnauthenticated
	}
	return &s, nil
}

func (m *memSessions) Destroy(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func newAuthFixture(t *testing.T) (*service.AuthService, *memSessions, *memAuditor) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}

	users := &memUsers{byEmail: map[string]*models.User{
		"alice@example.com":   {ID: 7, Email: "alice@example.com", PasswordHash: string(hash), IsActive: true},
		"mallory@example.com": {ID: 8, Email: "mallory@example.com", PasswordHash: string(hash), IsActive: false},
	}}
	sessions := newMemSessions()
	auditor := &memAuditor{}
	return service.NewAuthService(users, sessions, auditor), sessions, auditor
}

func TestLoginSuccess(t *testing.T) {
	auth, sessions, auditor := newAuthFixture(t)

	token, expiresAt, err := auth.Login(context.Background(), "alice@example.com", "hunter22!", models.RequestMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	sess, err := sessions.Lookup(context.Background(), token)
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if sess.UserID != 7 {
		t.Fatalf("session principal = %d, want 7", sess.UserID)
	}

	if got := auditor.byAction(models.AuditLogin); len(got) != 1 {
		t.Fatalf("expected 1 login audit entry, got %d", len(got))
	}
}

func TestLoginRejections(t *testing.T) {
	auth, sessions, _ := newAuthFixture(t)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "nope"},
		{"unknown user", "bob@example.com", "hunter22!"},
		{"inactive user", "mallory@example.com", "hunter22!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := auth.Login(context.Background(), tc.email, tc.password, models.RequestMeta{})
			if !errors.Is(err, service.ErrUnauthenticated) {
				t.Fatalf("error = %v, want ErrUnauthenticated", err)
			}
		})
	}

	if len(sessions.sessions) != 0 {
		t.Fatalf("rejected logins created %d sessions", len(sessions.sessions))
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	auth, sessions, auditor := newAuthFixture(t)

	token, _, err := auth.Login(context.Background(), "alice@example.com", "hunter22!", models.RequestMeta{})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := auth.Logout(context.Background(), token, models.RequestMeta{}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := sessions.Lookup(context.Background(), token); err == nil {
		t.Fatal("session survived logout")
	}
	if got := auditor.byAction(models.AuditLogout); len(got) != 1 {
		t.Fatalf("expected 1 logout audit entry, got %d", len(got))
	}

	// Logging out an unknown token is a no-op.
	if err := auth.Logout(context.Background(), "bogus", models.RequestMeta{}); err != nil {
		t.Fatalf("logout of unknown token errored: %v", err)
	}
}
