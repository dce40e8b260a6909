// Package middleware provides HTTP middleware for the dashboard API
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kwabenadev/chopdesk/internal/services/session"
)

// SessionCookie is the browser cookie carrying the local session token
const SessionCookie = "chopdesk_session"

// Auth gates dashboard routes on the session lifecycle: a local JWT proves
// the browser completed login, and the session manager must still be in the
// matching state.
type Auth struct {
	secret   []byte
	duration time.Duration
	sessions *session.Manager
}

// NewAuth creates the auth middleware
func NewAuth(secret string, duration time.Duration, sessions *session.Manager) *Auth {
	return &Auth{secret: []byte(secret), duration: duration, sessions: sessions}
}

// GenerateToken mints a local session JWT for the browser after full
// authentication.
func (a *Auth) GenerateToken(subject string) (string, time.Time, error) {
	expires := time.Now().Add(a.duration)
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": expires.Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	return signed, expires, err
}

// RequireAuth admits only requests with a valid local token and a fully
// authenticated session.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.tokenValid(r) || !a.sessions.IsAuthenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePending2FA admits the verify route: the session must hold a token
// but not yet have passed the second factor.
func (a *Auth) RequirePending2FA(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.sessions.State() != session.StatePendingOTP {
			http.Error(w, "No login awaiting verification", http.StatusConflict)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) tokenValid(r *http.Request) bool {
	tokenStr := ""
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenStr == "" {
		return false
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	return err == nil && token.Valid
}
