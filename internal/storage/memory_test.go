package storage

import "testing"

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, ok, _ := s.Get("missing"); ok {
		t.Error("Expected missing key to report absent")
	}

	if err := s.Set(KeyAuthToken, []byte("tok")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	v, ok, err := s.Get(KeyAuthToken)
	if err != nil || !ok {
		t.Fatalf("Expected key present, got ok=%v err=%v", ok, err)
	}
	if string(v) != "tok" {
		t.Errorf("Expected tok, got %s", v)
	}

	if err := s.Delete(KeyAuthToken); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok, _ := s.Get(KeyAuthToken); ok {
		t.Error("Expected deleted key to report absent")
	}

	// Deleting again is a no-op
	if err := s.Delete(KeyAuthToken); err != nil {
		t.Errorf("Expected no-op delete, got %v", err)
	}
}

func TestMemoryStore_KeysPrefix(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set(RateLimitPrefix+"a@example.com", []byte("{}"))
	_ = s.Set(RateLimitPrefix+"b@example.com", []byte("{}"))
	_ = s.Set(KeyNotifications, []byte("[]"))

	keys, err := s.Keys(RateLimitPrefix)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 rate-limit keys, got %d", len(keys))
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set("a", []byte("1"))
	_ = s.Set("b", []byte("2"))

	if err := s.Clear(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if keys, _ := s.Keys(""); len(keys) != 0 {
		t.Errorf("Expected empty store, got %d keys", len(keys))
	}
}
