package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListNotifications returns the notification list, most recent first
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.notifications.List(),
		"unread_count":  h.notifications.UnreadCount(),
	})
}

// MarkNotificationRead marks one notification read. Idempotent.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	h.notifications.MarkAsRead(chi.URLParam(r, "id"))
	h.writeJSON(w, http.StatusOK, map[string]int{"unread_count": h.notifications.UnreadCount()})
}

// RemoveNotification dismisses one notification. Idempotent.
func (h *Handler) RemoveNotification(w http.ResponseWriter, r *http.Request) {
	h.notifications.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearNotifications empties the notification list
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// ListAlerts returns the displayable incoming-order alerts. An empty list
// tells the UI to close the alert surface.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.alerts.Displayable()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"open":   len(alerts) > 0,
	})
}

// AcceptAlert accepts an incoming order
func (h *Handler) AcceptAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Accept(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// DeclineAlert declines an incoming order
func (h *Handler) DeclineAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Decline(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}
