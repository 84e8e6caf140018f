package auth

import "sync"

// PendingSecretCache holds the plaintext secret of a freshly issued or
// regenerated API key, keyed by key_id, exactly until the owning user
// acknowledges having saved it. It is the only place a plaintext secret
// lives after issuance returns.
//
// The cache is process-scoped by design: a restart before acknowledgment
// loses the plaintext and the only recovery path is regeneration. Deployments
// that need pending secrets to survive restarts or span instances would need
// an external store; that is a known limitation, not solved here.
type PendingSecretCache struct {
	mu      sync.Mutex
	secrets map[string]string
}

// NewPendingSecretCache creates an empty cache.
func NewPendingSecretCache() *PendingSecretCache {
	return &PendingSecretCache{secrets: make(map[string]string)}
}

// Put registers the plaintext secret for a key_id, overwriting any stale
// entry from a previous issuance of the same key.
func (c *PendingSecretCache) Put(keyID, plaintext string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[keyID] = plaintext
}

// Peek returns the pending plaintext for a key_id without consuming it, so a
// dashboard can render repeatedly before acknowledgment. The second return
// is false when no secret is pending.
func (c *PendingSecretCache) Peek(keyID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plaintext, ok := c.secrets[keyID]
	return plaintext, ok
}

// Acknowledge drops the pending plaintext for a key_id. It is idempotent:
// acknowledging an absent or already-acknowledged key is a no-op. Once
// acknowledged, the plaintext is unrecoverable.
func (c *PendingSecretCache) Acknowledge(keyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.secrets, keyID)
}
