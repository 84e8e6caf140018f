package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

// Verifier checks username/password pairs against stored password hashes.
type Verifier struct {
	store  *store.Store
	logger *slog.Logger
}

// NewVerifier creates a Verifier backed by the given store.
func NewVerifier(st *store.Store, logger *slog.Logger) *Verifier {
	return &Verifier{store: st, logger: logger}
}

// VerifyPassword looks up the user by exact username match and compares the
// password against the stored bcrypt hash. Unknown usernames and wrong
// passwords are indistinguishable to the caller: both return
// ErrInvalidCredentials, so the endpoint cannot be used to enumerate
// usernames. Storage errors fail closed the same way. No timestamps are
// touched on the user record.
func (v *Verifier) VerifyPassword(ctx context.Context, username, password string) (model.User, error) {
	user, err := v.store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			v.logger.Error("user lookup failed", "username", username, "error", err)
		}
		return model.User{}, ErrInvalidCredentials
	}

	if !CheckPassword(user.PasswordHash, password) {
		v.logger.Warn("failed session auth", "username", username)
		return model.User{}, ErrInvalidCredentials
	}

	return *user, nil
}
