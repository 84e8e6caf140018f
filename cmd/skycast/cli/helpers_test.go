package cli

import (
	"testing"

	"github.com/skycastd/skycast/internal/model"
)

func TestHasAdminAccount(t *testing.T) {
	tests := []struct {
		name  string
		users []model.User
		want  bool
	}{
		{"no users", nil, false},
		{"only regular users", []model.User{{Username: "alice", Role: model.RoleUser}}, false},
		{"admin present", []model.User{
			{Username: "alice", Role: model.RoleUser},
			{Username: "root", Role: model.RoleAdmin},
		}, true},
		{"unknown role does not count", []model.User{{Username: "x", Role: model.Role("Admin")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasAdminAccount(tt.users); got != tt.want {
				t.Errorf("hasAdminAccount = %v, want %v", got, tt.want)
			}
		})
	}
}
