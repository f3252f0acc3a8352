package session

import "github.com/canteraproject/cantera/core/profile"

// Destination is the top-level area a session lands on after login.
type Destination string

const (
	DestProfileCompletion Destination = "profile-completion"
	DestAdminArea         Destination = "admin-area"
	DestCoachArea         Destination = "coach-area"
	DestStudentArea       Destination = "student-area"
	DestLogin             Destination = "login"
)

// Route decides where a session lands given its resolved role and profile
// state. It is evaluated once per login. An unrecognized role forces
// re-authentication.
func Route(role string, requiresProfile bool) Destination {
	if requiresProfile && role == profile.RoleStudent {
		return DestProfileCompletion
	}
	switch role {
	case profile.RoleAdmin:
		return DestAdminArea
	case profile.RoleCoach:
		return DestCoachArea
	case profile.RoleStudent:
		return DestStudentArea
	}
	return DestLogin
}
