package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestKeys(t *testing.T) (*Keys, *store.Store) {
	t.Helper()
	st, err := store.New("") // in-memory
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewKeys(st, NewPendingSecretCache(), discardLogger()), st
}

func createOwner(t *testing.T, st *store.Store, username string) *model.User {
	t.Helper()
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &model.User{Username: username, PasswordHash: hash, Role: model.RoleUser}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestIssueAndVerify(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, secret, err := keys.Issue(ctx, owner.ID, "Kitchen Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(keyID, "key_") {
		t.Errorf("key_id %q should carry the key_ prefix", keyID)
	}
	if secret == "" {
		t.Fatal("expected a non-empty secret")
	}
	if strings.Contains(keyID, secret) || strings.Contains(secret, keyID) {
		t.Error("secret must be independent of key_id")
	}

	// The store never sees the plaintext.
	stored, err := st.GetAPIKeyByKeyID(ctx, keyID)
	if err != nil {
		t.Fatalf("GetAPIKeyByKeyID: %v", err)
	}
	if stored.KeySecretHash == secret {
		t.Error("store must hold a hash, not the plaintext secret")
	}
	if stored.SecretViewed {
		t.Error("new key should start unviewed")
	}

	user, err := keys.Verify(ctx, keyID, secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.ID != owner.ID {
		t.Errorf("got owner ID %d, want %d", user.ID, owner.ID)
	}
}

func TestVerifyFailures(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, secret, err := keys.Issue(ctx, owner.ID, "Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := keys.Verify(ctx, "key_nonexistent", secret); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("unknown key_id: got %v, want ErrUnknownKey", err)
	}
	if _, err := keys.Verify(ctx, keyID, "wrong-secret"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("wrong secret: got %v, want ErrInvalidSecret", err)
	}
}

func TestVerifyExpiredKey(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	past := time.Now().Add(-time.Hour)
	keyID, secret, err := keys.Issue(ctx, owner.ID, "Expired", &past)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Expiry is checked before the secret, so even the correct secret
	// reports expiry, and a wrong one reveals nothing.
	if _, err := keys.Verify(ctx, keyID, secret); !errors.Is(err, ErrExpiredKey) {
		t.Errorf("correct secret: got %v, want ErrExpiredKey", err)
	}
	if _, err := keys.Verify(ctx, keyID, "wrong"); !errors.Is(err, ErrExpiredKey) {
		t.Errorf("wrong secret: got %v, want ErrExpiredKey", err)
	}
}

func TestRegenerateInvalidatesOldSecret(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, oldSecret, err := keys.Issue(ctx, owner.ID, "Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := keys.AcknowledgeSecret(ctx, keyID); err != nil {
		t.Fatalf("AcknowledgeSecret: %v", err)
	}

	newSecret, err := keys.Regenerate(ctx, keyID)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if newSecret == oldSecret {
		t.Fatal("regenerate returned the old secret")
	}

	if _, err := keys.Verify(ctx, keyID, oldSecret); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("old secret after regenerate: got %v, want ErrInvalidSecret", err)
	}
	if _, err := keys.Verify(ctx, keyID, newSecret); err != nil {
		t.Errorf("new secret after regenerate: %v", err)
	}

	// Regeneration restarts the one-time-reveal window.
	stored, _ := st.GetAPIKeyByKeyID(ctx, keyID)
	if stored.SecretViewed {
		t.Error("regenerate must reset secret_viewed")
	}
	pending, ok := keys.PendingSecret(keyID)
	if !ok || pending != newSecret {
		t.Errorf("pending secret got (%q, %v), want the new secret", pending, ok)
	}

	if _, err := keys.Regenerate(ctx, "key_nonexistent"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("regenerate unknown key: got %v, want ErrUnknownKey", err)
	}
}

func TestRegenerateAtomicUnderConcurrentVerify(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, oldSecret, err := keys.Issue(ctx, owner.ID, "Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Hammer the old secret and the pending cache while the swap runs. Every
	// in-flight Verify must see either the pre-swap state (old secret valid)
	// or the post-swap state (ErrInvalidSecret), never anything in between,
	// and a pending plaintext must be peekable throughout.
	start := make(chan struct{})
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := keys.Verify(ctx, keyID, oldSecret); err != nil && !errors.Is(err, ErrInvalidSecret) {
					t.Errorf("Verify during regenerate: %v", err)
					return
				}
				if _, ok := keys.PendingSecret(keyID); !ok {
					t.Error("pending secret vanished during regenerate")
					return
				}
			}
		}()
	}

	close(start)
	newSecret, err := keys.Regenerate(ctx, keyID)
	close(stop)
	wg.Wait()
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	// Once Regenerate has returned, the old secret never verifies again.
	if _, err := keys.Verify(ctx, keyID, oldSecret); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("old secret after regenerate returned: got %v, want ErrInvalidSecret", err)
	}
	if _, err := keys.Verify(ctx, keyID, newSecret); err != nil {
		t.Errorf("new secret after regenerate: %v", err)
	}
	if pending, ok := keys.PendingSecret(keyID); !ok || pending != newSecret {
		t.Errorf("pending secret got (%q, %v), want the new secret", pending, ok)
	}
}

func TestRevoke(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, secret, err := keys.Issue(ctx, owner.ID, "Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := keys.Revoke(ctx, keyID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := keys.Verify(ctx, keyID, secret); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("verify after revoke: got %v, want ErrUnknownKey", err)
	}
	if _, ok := keys.PendingSecret(keyID); ok {
		t.Error("revoke must purge the pending secret")
	}

	if err := keys.Revoke(ctx, keyID); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("double revoke: got %v, want ErrUnknownKey", err)
	}
}

func TestAcknowledgeSecret(t *testing.T) {
	keys, st := newTestKeys(t)
	ctx := context.Background()
	owner := createOwner(t, st, "alice")

	keyID, secret, err := keys.Issue(ctx, owner.ID, "Display", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	pending, ok := keys.PendingSecret(keyID)
	if !ok || pending != secret {
		t.Fatalf("pending secret got (%q, %v), want the issued secret", pending, ok)
	}

	if err := keys.AcknowledgeSecret(ctx, keyID); err != nil {
		t.Fatalf("AcknowledgeSecret: %v", err)
	}

	if _, ok := keys.PendingSecret(keyID); ok {
		t.Error("pending secret must be gone after acknowledgment")
	}
	stored, _ := st.GetAPIKeyByKeyID(ctx, keyID)
	if !stored.SecretViewed {
		t.Error("expected secret_viewed true after acknowledgment")
	}

	// Idempotent, including for key_ids that never existed.
	if err := keys.AcknowledgeSecret(ctx, keyID); err != nil {
		t.Errorf("second acknowledge: %v", err)
	}
	if err := keys.AcknowledgeSecret(ctx, "key_never_issued"); err != nil {
		t.Errorf("acknowledge unknown key: %v", err)
	}

	// The key still verifies after acknowledgment.
	if _, err := keys.Verify(ctx, keyID, secret); err != nil {
		t.Errorf("verify after acknowledge: %v", err)
	}
}
