package auth

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
)

// Resolver inspects an inbound Authorization header, selects a credential
// scheme, and produces an authenticated Principal. It enforces no role
// policy; its only question is "was a valid identity proven, via a method
// this endpoint permits."
type Resolver struct {
	verifier *Verifier
	keys     *Keys
	logger   *slog.Logger
}

// NewResolver creates a Resolver dispatching to the given verifier and key
// service.
func NewResolver(verifier *Verifier, keys *Keys, logger *slog.Logger) *Resolver {
	return &Resolver{verifier: verifier, keys: keys, logger: logger}
}

func methodAllowed(methods []Method, m Method) bool {
	for _, allowed := range methods {
		if allowed == m {
			return true
		}
	}
	return false
}

// Resolve parses the Authorization header value and authenticates it using
// one of the allowed methods:
//
//	Basic  <base64(username:password)>  -> session
//	Bearer <key_id>:<key_secret>        -> api_key
//
// A missing header is ErrMissingCredentials; an unrecognized scheme, or a
// recognized scheme outside methods, is ErrUnsupportedMethod; a payload that
// doesn't decode or lacks its ':' separator is ErrMalformedCredentials.
func (r *Resolver) Resolve(ctx context.Context, header string, methods []Method) (Principal, error) {
	if header == "" {
		return Principal{}, ErrMissingCredentials
	}
	if len(methods) == 0 {
		methods = AllMethods
	}

	switch {
	case strings.HasPrefix(header, "Basic "):
		if !methodAllowed(methods, MethodSession) {
			return Principal{}, ErrUnsupportedMethod
		}
		return r.resolveSession(ctx, strings.TrimPrefix(header, "Basic "))

	case strings.HasPrefix(header, "Bearer "):
		if !methodAllowed(methods, MethodAPIKey) {
			return Principal{}, ErrUnsupportedMethod
		}
		return r.resolveAPIKey(ctx, strings.TrimPrefix(header, "Bearer "))

	default:
		return Principal{}, ErrUnsupportedMethod
	}
}

func (r *Resolver) resolveSession(ctx context.Context, payload string) (Principal, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Principal{}, ErrMalformedCredentials
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Principal{}, ErrMalformedCredentials
	}

	user, err := r.verifier.VerifyPassword(ctx, username, password)
	if err != nil {
		return Principal{}, err
	}

	r.logger.Debug("session auth successful", "username", user.Username)
	return Principal{User: user, Method: MethodSession}, nil
}

func (r *Resolver) resolveAPIKey(ctx context.Context, token string) (Principal, error) {
	keyID, secret, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok {
		return Principal{}, ErrMalformedCredentials
	}

	user, err := r.keys.Verify(ctx, keyID, secret)
	if err != nil {
		return Principal{}, err
	}

	r.logger.Debug("api key auth successful", "username", user.Username, "key_id", keyID)
	return Principal{User: user, Method: MethodAPIKey}, nil
}
