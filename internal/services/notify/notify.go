// Package notify keeps the dashboard's notification list and the separate
// incoming-order alert surface.
package notify

import (
	"encoding/json"
	"sync"

	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

// Store holds user-facing notifications, most recent first, and persists the
// full list on every mutation.
type Store struct {
	mu      sync.RWMutex
	store   storage.Store
	entries []models.Notification
}

// NewStore creates a store hydrated from durable storage. Absent or corrupt
// persisted data yields an empty list; it never fails initialization.
func NewStore(store storage.Store) *Store {
	s := &Store{store: store}
	raw, ok, err := store.Get(storage.KeyNotifications)
	if err == nil && ok {
		var entries []models.Notification
		if json.Unmarshal(raw, &entries) == nil {
			s.entries = entries
		}
	}
	return s
}

// Add synthesizes a new unread notification and prepends it to the list
func (s *Store) Add(nt models.NotificationType, message string) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := models.NewNotification(nt, message)
	s.entries = append([]models.Notification{n}, s.entries...)
	s.persist()
	return n
}

// MarkAsRead marks a notification read. Unknown ids are a no-op.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			if !s.entries[i].Read {
				s.entries[i].Read = true
				s.persist()
			}
			return
		}
	}
}

// Remove deletes a notification. Unknown ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.persist()
			return
		}
	}
}

// ClearAll empties the list
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persist()
}

// List returns the notifications, most recent first
func (s *Store) List() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.entries))
	copy(out, s.entries)
	return out
}

// UnreadCount is derived from the list, never tracked independently
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for i := range s.entries {
		if !s.entries[i].Read {
			count++
		}
	}
	return count
}

// persist writes the full list; callers hold the lock
func (s *Store) persist() {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return
	}
	_ = s.store.Set(storage.KeyNotifications, raw)
}
