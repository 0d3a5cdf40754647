package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/oakline/ledger/internal/models"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	tokenKey     contextKey = "token"
)

// requireSession resolves the session token (cookie or bearer header) to a
// principal before the handler runs. No token or an unknown/expired token
// yields 401 with no further processing.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sess, err := h.sessions.Lookup(r.Context(), token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, sess.UserID)
		ctx = context.WithValue(ctx, tokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie("session"); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func principalFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(principalKey).(int64)
	return id
}

func requestMeta(r *http.Request) models.RequestMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}
	token, _ := r.Context().Value(tokenKey).(string)
	return models.RequestMeta{
		SessionID: token,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
