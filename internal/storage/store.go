// Package storage provides the durable client-state store
package storage

// Well-known keys. These are the only values the dashboard expects to
// survive a restart.
const (
	KeyAuthToken        = "authToken"
	KeyTwoFactor        = "2faVerified"
	KeyUserProfile      = "userProfile"
	KeyLoginPhoneNumber = "loginPhoneNumber"
	KeyNotifications    = "notifications"
	KeySelectedBranch   = "selectedBranchId"

	// Rate-limit records are stored per identifier under this prefix
	RateLimitPrefix = "rateLimit_"
)

// Store is a key-value view over durable client state. The sqlite
// implementation backs production; the in-memory one backs tests. Concurrent
// writers to the same key are last-write-wins.
type Store interface {
	// Get returns the stored value and whether the key exists
	Get(key string) ([]byte, bool, error)
	// Set writes the value for a key, replacing any previous value
	Set(key string, value []byte) error
	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(key string) error
	// Keys returns all keys with the given prefix
	Keys(prefix string) ([]string, error)
	// Clear removes every key
	Clear() error
}
