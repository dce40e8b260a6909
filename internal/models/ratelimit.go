package models

import "time"

// RateLimitRecord tracks failed login attempts for one identifier
type RateLimitRecord struct {
	Attempts        int       `json:"attempts"`
	LastAttemptTime time.Time `json:"last_attempt_time"`
	LockedUntil     time.Time `json:"locked_until,omitempty"`
}

// Locked reports whether the record is inside an active lockout window
func (r *RateLimitRecord) Locked(now time.Time) bool {
	return now.Before(r.LockedUntil)
}
