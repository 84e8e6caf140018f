package auth

import (
	"errors"
	"testing"

	"github.com/skycastd/skycast/internal/model"
)

func userPrincipal(id int64) Principal {
	return Principal{User: model.User{ID: id, Username: "user", Role: model.RoleUser}, Method: MethodSession}
}

func adminPrincipal(id int64) Principal {
	return Principal{User: model.User{ID: id, Username: "admin", Role: model.RoleAdmin}, Method: MethodSession}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		p       Principal
		roles   []model.Role
		wantErr error
	}{
		{"empty role set passes any principal", userPrincipal(1), nil, nil},
		{"user holds user role", userPrincipal(1), []model.Role{model.RoleUser}, nil},
		{"admin holds admin role", adminPrincipal(1), []model.Role{model.RoleAdmin}, nil},
		{"user lacks admin role", userPrincipal(1), []model.Role{model.RoleAdmin}, ErrInsufficientRole},
		{"admin does not implicitly hold user role", adminPrincipal(1), []model.Role{model.RoleUser}, ErrInsufficientRole},
		{"either role accepted", userPrincipal(1), []model.Role{model.RoleAdmin, model.RoleUser}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.p, tt.roles...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	tests := []struct {
		name    string
		p       Principal
		ownerID int64
		wantErr error
	}{
		{"owner passes", userPrincipal(7), 7, nil},
		{"non-owner fails", userPrincipal(7), 8, ErrNotOwner},
		{"admin bypasses ownership", adminPrincipal(1), 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireOwner(tt.p, tt.ownerID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	ownerID := int64(7)

	// Role check runs before ownership: a principal failing both reports
	// the role failure.
	err := Authorize(userPrincipal(1), []model.Role{model.RoleAdmin}, &ownerID)
	if !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("got %v, want ErrInsufficientRole", err)
	}

	if err := Authorize(userPrincipal(7), nil, &ownerID); err != nil {
		t.Errorf("owner with no role constraint: %v", err)
	}
	if err := Authorize(userPrincipal(1), nil, &ownerID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("got %v, want ErrNotOwner", err)
	}
	if err := Authorize(userPrincipal(1), nil, nil); err != nil {
		t.Errorf("no constraints: %v", err)
	}

	for _, err := range []error{ErrInsufficientRole, ErrNotOwner} {
		if !IsForbidden(err) {
			t.Errorf("%v should map to 403", err)
		}
		if IsUnauthenticated(err) {
			t.Errorf("%v must not map to 401", err)
		}
	}
}
