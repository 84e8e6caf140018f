package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
)

type contextKeyAuth string

// principalKey is the context key under which the resolved principal crosses
// the middleware boundary. Handlers read it once via GetPrincipal and pass
// the value explicitly from there; it is never stored anywhere shared.
const principalKey contextKeyAuth = "auth_principal"

const (
	sessionRealm = `Basic realm="Weather Display"`
	apiKeyRealm  = `Bearer realm="Weather Display API"`
)

// Policy declares what a protected endpoint accepts: which credential schemes
// may prove identity, and which roles may proceed. The zero value of Methods
// means both schemes; the zero value of Roles means any authenticated user.
type Policy struct {
	Methods []auth.Method
	Roles   []model.Role
}

// DefaultPolicy accepts both credential schemes and any role.
func DefaultPolicy() Policy {
	return Policy{Methods: auth.AllMethods}
}

// AdminOnly accepts both credential schemes and requires the admin role.
func AdminOnly() Policy {
	return Policy{Methods: auth.AllMethods, Roles: []model.Role{model.RoleAdmin}}
}

// Authenticate returns an HTTP middleware enforcing the given policy: it runs
// the resolver over the Authorization header, then the role half of the
// authorization gate. Ownership checks need the resource and therefore stay
// in handlers, applied to the same principal.
//
// Identity failures produce 401 with WWW-Authenticate challenges for each
// allowed method and a body that never reveals which check failed. Role
// failures produce 403 naming the required roles.
func Authenticate(resolver *auth.Resolver, policy Policy) func(http.Handler) http.Handler {
	methods := policy.Methods
	if len(methods) == 0 {
		methods = auth.AllMethods
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"), methods)
			if err != nil {
				writeUnauthenticated(w, methods)
				return
			}

			recordAuth(r, principal)

			if err := auth.RequireRole(principal, policy.Roles...); err != nil {
				writeInsufficientRole(w, policy.Roles)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context. The
// second return is false for unauthenticated requests, which only happens if
// a handler was mounted without Authenticate.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

func writeUnauthenticated(w http.ResponseWriter, methods []auth.Method) {
	var challenges []string
	for _, m := range methods {
		switch m {
		case auth.MethodSession:
			challenges = append(challenges, sessionRealm)
		case auth.MethodAPIKey:
			challenges = append(challenges, apiKeyRealm)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", strings.Join(challenges, ", "))
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Success: false,
		Error:   "Authentication required",
		Hint:    "Use Basic Auth (username:password) or Bearer token (key_id:key_secret)",
	})
}

func writeInsufficientRole(w http.ResponseWriter, roles []model.Role) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Success: false,
		Error:   "Insufficient permissions. Required role: " + strings.Join(names, ", "),
	})
}
