package auth

import "errors"

// Authentication failures. All of these collapse to a single 401 response
// with generic hint text; the distinction exists for logging and tests only,
// never for the caller. This is deliberate to prevent credential probing.
var (
	ErrMissingCredentials   = errors.New("missing credentials")
	ErrMalformedCredentials = errors.New("malformed credentials")
	ErrUnsupportedMethod    = errors.New("unsupported authentication method")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnknownKey           = errors.New("unknown api key")
	ErrExpiredKey           = errors.New("api key expired")
	ErrInvalidSecret        = errors.New("invalid api key secret")
)

// Authorization failures. These collapse to 403.
var (
	ErrInsufficientRole = errors.New("insufficient role")
	ErrNotOwner         = errors.New("not the resource owner")
)

// IsUnauthenticated reports whether err is an identity failure, i.e. one that
// maps to HTTP 401.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrMalformedCredentials) ||
		errors.Is(err, ErrUnsupportedMethod) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUnknownKey) ||
		errors.Is(err, ErrExpiredKey) ||
		errors.Is(err, ErrInvalidSecret)
}

// IsForbidden reports whether err is a policy failure, i.e. one that maps to
// HTTP 403.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrInsufficientRole) || errors.Is(err, ErrNotOwner)
}
