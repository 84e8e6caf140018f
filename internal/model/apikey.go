package model

import "time"

// APIKey is a long-lived credential bound to exactly one user. The public
// KeyID identifies the key on the wire ("Bearer key_id:key_secret"); the
// secret itself is never stored, only its bcrypt hash.
//
// SecretViewed tracks the one-time-reveal protocol: it starts false on
// issuance and regeneration, and flips to true once the owner acknowledges
// having saved the plaintext secret. After that the plaintext is gone for
// good and the only recovery is regeneration.
type APIKey struct {
	ID            int64      `json:"id" db:"id"`
	KeyID         string     `json:"key_id" db:"key_id"`
	KeySecretHash string     `json:"-" db:"key_secret_hash"` // bcrypt, never expose
	OwnerID       int64      `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	SecretViewed  bool       `json:"secret_viewed" db:"secret_viewed"`
	LastUsed      *time.Time `json:"last_used,omitempty" db:"last_used"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the key has an expiry set and it has passed.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
