package session

import (
	"testing"

	"github.com/canteraproject/cantera/core/profile"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name            string
		role            string
		requiresProfile bool
		want            Destination
	}{
		{name: "admin", role: profile.RoleAdmin, want: DestAdminArea},
		{name: "coach", role: profile.RoleCoach, want: DestCoachArea},
		{name: "student with profile", role: profile.RoleStudent, want: DestStudentArea},
		{name: "student without profile", role: profile.RoleStudent, requiresProfile: true, want: DestProfileCompletion},
		{name: "admin never sent to completion", role: profile.RoleAdmin, requiresProfile: true, want: DestAdminArea},
		{name: "coach never sent to completion", role: profile.RoleCoach, requiresProfile: true, want: DestCoachArea},
		{name: "unknown role", role: "superuser", want: DestLogin},
		{name: "empty role", role: "", want: DestLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.role, tt.requiresProfile); got != tt.want {
				t.Errorf("Route(%q, %v) = %q; want %q", tt.role, tt.requiresProfile, got, tt.want)
			}
		})
	}
}
