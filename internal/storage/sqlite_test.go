package storage

import "testing"

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, ok, _ := s.Get(KeyAuthToken); ok {
		t.Error("Expected missing key to report absent")
	}

	if err := s.Set(KeyAuthToken, []byte("tok-123")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	value, ok, err := s.Get(KeyAuthToken)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok || string(value) != "tok-123" {
		t.Errorf("Expected tok-123, got %q (present=%v)", value, ok)
	}

	// Set replaces the previous value
	if err := s.Set(KeyAuthToken, []byte("tok-456")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	value, _, _ = s.Get(KeyAuthToken)
	if string(value) != "tok-456" {
		t.Errorf("Expected tok-456 after overwrite, got %q", value)
	}

	if err := s.Delete(KeyAuthToken); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok, _ := s.Get(KeyAuthToken); ok {
		t.Error("Expected key gone after delete")
	}
}

func TestSQLiteStore_KeysByPrefix(t *testing.T) {
	s := newTestSQLiteStore(t)

	_ = s.Set(RateLimitPrefix+"kwame@x.test", []byte("{}"))
	_ = s.Set(RateLimitPrefix+"0241234567", []byte("{}"))
	_ = s.Set(KeyAuthToken, []byte("tok"))

	keys, err := s.Keys(RateLimitPrefix)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 rate-limit keys, got %v", keys)
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	s := newTestSQLiteStore(t)

	_ = s.Set(KeyAuthToken, []byte("tok"))
	_ = s.Set(KeyTwoFactor, []byte("true"))
	if err := s.Clear(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok, _ := s.Get(KeyAuthToken); ok {
		t.Error("Expected store empty after clear")
	}
}
