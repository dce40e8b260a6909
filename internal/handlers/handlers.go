// Package handlers implements the dashboard's JSON API
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/config"
	"github.com/kwabenadev/chopdesk/internal/middleware"
	"github.com/kwabenadev/chopdesk/internal/services/notify"
	"github.com/kwabenadev/chopdesk/internal/services/session"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

// Handler carries the services the API endpoints need
type Handler struct {
	cfg           *config.Config
	store         storage.Store
	client        *api.Client
	sessions      *session.Manager
	notifications *notify.Store
	alerts        *notify.Alerts
	auth          *middleware.Auth
}

// New creates the handler set
func New(
	cfg *config.Config,
	store storage.Store,
	client *api.Client,
	sessions *session.Manager,
	notifications *notify.Store,
	alerts *notify.Alerts,
	auth *middleware.Auth,
) *Handler {
	return &Handler{
		cfg:           cfg,
		store:         store,
		client:        client,
		sessions:      sessions,
		notifications: notifications,
		alerts:        alerts,
		auth:          auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// selectedBranch returns the persisted branch id, if any
func (h *Handler) selectedBranch() string {
	raw, ok, err := h.store.Get(storage.KeySelectedBranch)
	if err != nil || !ok {
		return ""
	}
	return string(raw)
}
