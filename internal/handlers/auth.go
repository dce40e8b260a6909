package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kwabenadev/chopdesk/internal/middleware"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/session"
)

type loginRequest struct {
	Identifier string              `json:"identifier"`
	Secret     string              `json:"secret"`
	Channel    models.LoginChannel `json:"channel"`
}

// Login handles the first authentication factor
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if req.Identifier == "" || req.Secret == "" {
		h.writeError(w, http.StatusBadRequest, "identifier and password required")
		return
	}
	if req.Channel != models.ChannelEmail && req.Channel != models.ChannelPhone {
		h.writeError(w, http.StatusBadRequest, "channel must be email or phone")
		return
	}

	err := h.sessions.Login(r.Context(), req.Identifier, req.Secret, req.Channel)
	if err != nil {
		var lockout *session.LockoutError
		switch {
		case errors.As(err, &lockout):
			h.writeError(w, http.StatusTooManyRequests, lockout.Error())
		case errors.Is(err, session.ErrTransitionInFlight):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.writeError(w, http.StatusBadGateway, "login could not be completed, try again")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "otp_sent"})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// VerifyOTP handles the second authentication factor and, on success, sets
// the browser session cookie.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	err := h.sessions.VerifyOTP(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidOTPFormat),
			errors.Is(err, session.ErrIncorrectOTP):
			h.writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, session.ErrRoleNotAllowed):
			h.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, session.ErrTransitionInFlight):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrNoPendingLogin):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusUnauthorized, session.ErrVerificationFailed.Error())
		}
		return
	}

	profile := h.sessions.Profile()
	token, expires, err := h.auth.GenerateToken(profile.ID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"profile": profile,
	})
}

// Logout clears the session and the browser cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// SessionInfo reports the auth lifecycle state for route gating
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":        h.sessions.State(),
		"unread_count": h.notifications.UnreadCount(),
	}
	if profile := h.sessions.Profile(); profile != nil {
		resp["profile"] = profile
	}
	h.writeJSON(w, http.StatusOK, resp)
}
