// Package ratelimit throttles repeated failed logins per identifier.
//
// This is advisory, client-side throttling only: records live in the local
// client-state store, so clearing that store bypasses the limiter. It does
// not replace the upstream's own rate limiting.
package ratelimit

import (
	"encoding/json"
	"time"

	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

const (
	// MaxAttempts is the failed-attempt threshold that triggers a lockout
	MaxAttempts = 5
	// LockoutDuration is how long an identifier stays locked
	LockoutDuration = 5 * time.Minute
	// AttemptWindow is how long failed attempts count before decaying
	AttemptWindow = 24 * time.Hour
)

// Status is the result of a rate-limit check
type Status struct {
	Limited     bool
	WaitMinutes int
}

// Limiter tracks failed login attempts per identifier
type Limiter struct {
	store storage.Store
	now   func() time.Time
}

// NewLimiter creates a limiter over the given store
func NewLimiter(store storage.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// IsLimited is a pure read of the current lock state for an identifier
func (l *Limiter) IsLimited(identifier string) Status {
	rec := l.load(identifier)
	if rec == nil {
		return Status{}
	}
	now := l.now()
	if !rec.Locked(now) {
		return Status{}
	}
	wait := int(rec.LockedUntil.Sub(now).Round(time.Minute) / time.Minute)
	if wait < 1 {
		wait = 1
	}
	return Status{Limited: true, WaitMinutes: wait}
}

// RecordFailure increments the attempt counter for an identifier, decaying
// counts older than the attempt window and locking at the threshold. It
// returns the new count.
//
// A failure recorded while already locked does not extend the lockout:
// callers check IsLimited before attempting a login, so a locked
// identifier's record stays frozen until the window expires.
func (l *Limiter) RecordFailure(identifier string) int {
	now := l.now()
	rec := l.load(identifier)
	if rec == nil {
		rec = &models.RateLimitRecord{}
	}
	if rec.Locked(now) {
		return rec.Attempts
	}
	if !rec.LastAttemptTime.IsZero() && now.Sub(rec.LastAttemptTime) > AttemptWindow {
		rec.Attempts = 0
	}
	rec.Attempts++
	rec.LastAttemptTime = now
	if rec.Attempts >= MaxAttempts {
		rec.LockedUntil = now.Add(LockoutDuration)
	}
	l.save(identifier, rec)
	return rec.Attempts
}

// Reset clears the record for an identifier, called on successful login
func (l *Limiter) Reset(identifier string) {
	_ = l.store.Delete(storage.RateLimitPrefix + identifier)
}

func (l *Limiter) load(identifier string) *models.RateLimitRecord {
	raw, ok, err := l.store.Get(storage.RateLimitPrefix + identifier)
	if err != nil || !ok {
		return nil
	}
	var rec models.RateLimitRecord
	if json.Unmarshal(raw, &rec) != nil {
		// Corrupt record: treat as absent rather than failing logins
		return nil
	}
	return &rec
}

func (l *Limiter) save(identifier string, rec *models.RateLimitRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = l.store.Set(storage.RateLimitPrefix+identifier, raw)
}
