package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oakline/ledger/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserStore resolves login credentials to principals.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore is the external session provider: opaque token in, principal
// out. Sessions live outside the process so multiple instances share them.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error)
	Lookup(ctx context.Context, token string) (*models.Session, error)
	Destroy(ctx context.Context, token string) error
}

// AuthService authenticates principals and manages their sessions. The
// transfer service itself never sees credentials, only resolved principal ids.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	audit    Auditor
}

func NewAuthService(users UserStore, sessions SessionStore, audit Auditor) *AuthService {
	return &AuthService{users: users, sessions: sessions, audit: audit}
}

// Login verifies credentials and opens a session. Bad credentials, unknown
// users and deactivated users are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, meta models.RequestMeta) (string, time.Time, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil || user == nil || !user.IsActive {
		return "", time.Time{}, ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrUnauthenticated
	}

	token, expiresAt, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session create failed: %w", err)
	}

	entry := models.AuditEntry{
		ActorID:      user.ID,
		SessionID:    token,
		Action:       models.AuditLogin,
		ResourceType: "user",
		ResourceID:   fmt.Sprintf("%d", user.ID),
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Description:  "User logged in successfully",
	}
	if aerr := s.audit.Record(ctx, entry); aerr != nil {
		log.Printf("WARNING: audit write failed for login: %v", aerr)
	}

	return token, expiresAt, nil
}

// Logout destroys the session behind the token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string, meta models.RequestMeta) error {
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("session destroy failed: %w", err)
	}

	entry := models.AuditEntry{
		ActorID:      sess.UserID,
		SessionID:    token,
		Action:       models.AuditLogout,
		ResourceType: "user",
		ResourceID:   fmt.Sprintf("%d", sess.UserID),
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Description:  "User logged out",
	}
	if aerr := s.audit.Record(ctx, entry); aerr != nil {
		log.Printf("WARNING: audit write failed for logout: %v", aerr)
	}
	return nil
}
