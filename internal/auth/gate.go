package auth

import "github.com/skycastd/skycast/internal/model"

// The authorization gate is a set of pure functions over the resolved
// Principal. Nothing here blocks or mutates state, which keeps policy
// decisions trivially testable and impossible to reorder relative to
// identity resolution.

// Authorize evaluates role and ownership policy for a request. If roles is
// non-empty the principal must hold one of them; if resourceOwnerID is
// non-nil the principal must own the resource or be an admin.
func Authorize(p Principal, roles []model.Role, resourceOwnerID *int64) error {
	if err := RequireRole(p, roles...); err != nil {
		return err
	}
	if resourceOwnerID != nil {
		return RequireOwner(p, *resourceOwnerID)
	}
	return nil
}

// RequireRole fails with ErrInsufficientRole unless the principal's role is a
// member of roles. An empty role set means any authenticated identity passes.
func RequireRole(p Principal, roles ...model.Role) error {
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if p.User.Role == role {
			return nil
		}
	}
	return ErrInsufficientRole
}

// RequireOwner fails with ErrNotOwner unless the principal owns the resource
// or holds the admin role.
func RequireOwner(p Principal, resourceOwnerID int64) error {
	if p.User.ID == resourceOwnerID || p.IsAdmin() {
		return nil
	}
	return ErrNotOwner
}
