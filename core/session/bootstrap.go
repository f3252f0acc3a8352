package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/profile"
)

// Session is the resolved state of a freshly signed-in account.
type Session struct {
	Account         account.Account `json:"account"`
	Profile         profile.Profile `json:"profile"`
	Role            string          `json:"role"`
	RequiresProfile bool            `json:"requires_profile"`
}

type Bootstrapper struct {
	profiles *profile.Service
}

func NewBootstrapper(profiles *profile.Service) *Bootstrapper {
	return &Bootstrapper{profiles: profiles}
}

// Bootstrap resolves the profile and role for a signed-in account.
//
// A missing or incomplete profile sets RequiresProfile; any other store
// failure propagates (fail closed) so the caller can surface it instead of
// silently sending the user to profile completion.
func (b *Bootstrapper) Bootstrap(ctx context.Context, acct account.Account) (Session, error) {
	sess := Session{Account: acct}

	prof, err := b.profiles.GetByAuthID(ctx, acct.ID)
	if err != nil {
		if errors.Cause(err) != profile.ErrNotFound {
			return Session{}, errors.Wrap(err, "finding profile by auth ID")
		}
		sess.RequiresProfile = true
		sess.Role = roleOrDefault(acct.Metadata.RoleHint)
		return sess, nil
	}

	sess.Profile = prof
	sess.RequiresProfile = !prof.Completed
	sess.Role = prof.Role
	if sess.Role == "" {
		sess.Role = roleOrDefault(acct.Metadata.RoleHint)
	}
	return sess, nil
}

func roleOrDefault(hint string) string {
	switch hint {
	case profile.RoleAdmin, profile.RoleCoach, profile.RoleStudent:
		return hint
	}
	return profile.RoleStudent
}
