package auth

import "testing"

func TestPendingSecretCache(t *testing.T) {
	c := NewPendingSecretCache()

	if _, ok := c.Peek("key_a"); ok {
		t.Fatal("empty cache should have no pending secret")
	}

	c.Put("key_a", "secret-1")

	got, ok := c.Peek("key_a")
	if !ok {
		t.Fatal("expected pending secret after Put")
	}
	if got != "secret-1" {
		t.Errorf("got %q, want %q", got, "secret-1")
	}

	// Peek is non-destructive: the secret stays until acknowledged.
	got, ok = c.Peek("key_a")
	if !ok || got != "secret-1" {
		t.Errorf("second Peek got (%q, %v), want (%q, true)", got, ok, "secret-1")
	}
}

func TestPendingSecretCacheOverwrite(t *testing.T) {
	c := NewPendingSecretCache()

	c.Put("key_a", "secret-1")
	c.Put("key_a", "secret-2")

	got, ok := c.Peek("key_a")
	if !ok {
		t.Fatal("expected pending secret")
	}
	if got != "secret-2" {
		t.Errorf("got %q, want the newer %q", got, "secret-2")
	}
}

func TestPendingSecretCacheAcknowledgeIdempotent(t *testing.T) {
	c := NewPendingSecretCache()

	c.Put("key_a", "secret-1")
	c.Acknowledge("key_a")

	if _, ok := c.Peek("key_a"); ok {
		t.Error("secret should be gone after Acknowledge")
	}

	// Acknowledging again, or acknowledging an unknown key, is a no-op.
	c.Acknowledge("key_a")
	c.Acknowledge("key_never_issued")

	if _, ok := c.Peek("key_a"); ok {
		t.Error("secret must not reappear")
	}
}
