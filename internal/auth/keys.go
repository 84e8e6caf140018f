package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

// Keys issues, verifies, regenerates, and revokes API key credentials. Only
// bcrypt hashes of secrets reach the store; the plaintext of a freshly
// generated secret is handed to the injected PendingSecretCache and returned
// to the caller exactly once.
//
// A single RWMutex gives verification a consistent view of the key table:
// Verify holds the read lock across lookup and comparison, while Issue,
// Regenerate, Revoke, and AcknowledgeSecret hold the write lock across the
// hash swap and the cache mutation. A secret invalidated by Regenerate or
// Revoke therefore never verifies after those calls return, and Peek never
// observes a half-applied swap.
type Keys struct {
	mu      sync.RWMutex
	store   *store.Store
	pending *PendingSecretCache
	logger  *slog.Logger
}

// NewKeys creates the API key service.
func NewKeys(st *store.Store, pending *PendingSecretCache, logger *slog.Logger) *Keys {
	return &Keys{store: st, pending: pending, logger: logger}
}

// randomToken returns a URL-safe token built from n random bytes.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates a new API key for a user. The key_id is a public, loggable
// identifier; the secret is an independent, higher-entropy value returned in
// plaintext exactly once and retrievable through the pending cache until
// acknowledged.
func (k *Keys) Issue(ctx context.Context, ownerID int64, name string, expiresAt *time.Time) (keyID, secret string, err error) {
	idToken, err := randomToken(16)
	if err != nil {
		return "", "", err
	}
	keyID = "key_" + idToken

	secret, err = randomToken(32)
	if err != nil {
		return "", "", err
	}

	secretHash, err := HashPassword(secret)
	if err != nil {
		return "", "", fmt.Errorf("hash api key secret: %w", err)
	}

	key := &model.APIKey{
		KeyID:         keyID,
		KeySecretHash: secretHash,
		OwnerID:       ownerID,
		Name:          name,
		SecretViewed:  false,
		ExpiresAt:     expiresAt,
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.CreateAPIKey(ctx, key); err != nil {
		return "", "", fmt.Errorf("create api key: %w", err)
	}
	k.pending.Put(keyID, secret)

	k.logger.Info("api key issued", "key_id", keyID, "owner_id", ownerID)
	return keyID, secret, nil
}

// Verify authenticates a key_id/secret pair and returns the owning user.
// Expiry is checked before the secret is ever compared. Any inability to
// confirm the key — including storage errors — fails closed as ErrUnknownKey.
// On success the last_used timestamp is updated best-effort in the
// background; a dropped update never fails the authentication.
func (k *Keys) Verify(ctx context.Context, keyID, secret string) (model.User, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, err := k.store.GetAPIKeyByKeyID(ctx, keyID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			k.logger.Error("api key lookup failed", "key_id", keyID, "error", err)
		}
		return model.User{}, ErrUnknownKey
	}

	if key.Expired(time.Now()) {
		return model.User{}, ErrExpiredKey
	}

	if !CheckPassword(key.KeySecretHash, secret) {
		k.logger.Warn("invalid secret for api key", "key_id", keyID)
		return model.User{}, ErrInvalidSecret
	}

	owner, err := k.store.GetUserByID(ctx, key.OwnerID)
	if err != nil {
		k.logger.Error("owner lookup failed for api key", "key_id", keyID, "error", err)
		return model.User{}, ErrUnknownKey
	}

	// Fire and forget: last_used is an observability signal, not a
	// correctness-bearing field. Detached from the request context so an
	// aborted request doesn't cancel it.
	go func() {
		if err := k.store.TouchAPIKeyLastUsed(context.Background(), keyID); err != nil {
			k.logger.Debug("last_used update dropped", "key_id", keyID, "error", err)
		}
	}()

	return *owner, nil
}

// Regenerate replaces a key's secret. The stored hash swap, the
// secret_viewed reset, and the pending-cache overwrite happen under the write
// lock, so no concurrent Verify accepts the old secret once Regenerate has
// returned and no Peek sees a stale entry.
func (k *Keys) Regenerate(ctx context.Context, keyID string) (string, error) {
	secret, err := randomToken(32)
	if err != nil {
		return "", err
	}
	secretHash, err := HashPassword(secret)
	if err != nil {
		return "", fmt.Errorf("hash api key secret: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.ReplaceAPIKeySecret(ctx, keyID, secretHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnknownKey
		}
		return "", fmt.Errorf("replace api key secret: %w", err)
	}
	k.pending.Put(keyID, secret)

	k.logger.Info("api key secret regenerated", "key_id", keyID)
	return secret, nil
}

// Revoke deletes the key record and purges any pending secret. key_ids are
// never reused, so Verify fails with ErrUnknownKey for this key_id
// permanently.
func (k *Keys) Revoke(ctx context.Context, keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.DeleteAPIKey(ctx, keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownKey
		}
		return fmt.Errorf("delete api key: %w", err)
	}
	k.pending.Acknowledge(keyID)

	k.logger.Info("api key revoked", "key_id", keyID)
	return nil
}

// AcknowledgeSecret marks the key's secret as viewed and drops the pending
// plaintext. It is idempotent: acknowledging an unknown or already-viewed
// key_id is a no-op, never an error. After acknowledgment only the
// irreversible hash remains anywhere in the system.
func (k *Keys) AcknowledgeSecret(ctx context.Context, keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.MarkAPIKeySecretViewed(ctx, keyID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("mark api key viewed: %w", err)
		}
	}
	k.pending.Acknowledge(keyID)
	return nil
}

// PendingSecret returns the not-yet-acknowledged plaintext for a key_id, if
// any. Non-destructive.
func (k *Keys) PendingSecret(keyID string) (string, bool) {
	return k.pending.Peek(keyID)
}
