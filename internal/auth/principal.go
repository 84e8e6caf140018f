package auth

import "github.com/skycastd/skycast/internal/model"

// Method identifies which credential scheme proved a request's identity.
type Method string

const (
	// MethodSession is username/password sent as a Basic credential header.
	MethodSession Method = "session"
	// MethodAPIKey is a key_id:key_secret pair sent as a Bearer header.
	MethodAPIKey Method = "api_key"
)

// AllMethods is the default method set for protected endpoints.
var AllMethods = []Method{MethodSession, MethodAPIKey}

// Principal is the resolved identity for a single request: the authenticated
// user and the method that proved it. It lives for the duration of one
// request and is never persisted.
type Principal struct {
	User   model.User
	Method Method
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.User.Role == model.RoleAdmin
}
