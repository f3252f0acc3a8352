package main

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/profile"
)

// addAdmin creates a confirmed admin account with a completed profile so the
// holder can sign in straight to the dashboard.
func (cli *commandLine) addAdmin(email, pwd, firstName, lastName string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	acct, err := cli.accountSvc.AdminCreate(ctx, email, pwd, account.Metadata{
		RoleHint:  profile.RoleAdmin,
		FirstName: firstName,
		LastName:  lastName,
		CreatedBy: "admin-cli",
	}, true /* emailConfirm */)
	if err != nil {
		return err
	}

	if _, err = cli.profileSvc.Create(ctx, profile.NewProfile{
		AuthID:    acct.ID,
		Email:     email,
		Role:      profile.RoleAdmin,
		Status:    profile.StatusActive,
		Completed: true,
		FirstName: firstName,
		LastName:  lastName,
	}); err != nil {
		// compensate so the command can be retried
		if dErr := cli.accountSvc.Delete(ctx, acct.ID); dErr != nil {
			return pkgerrors.Wrapf(err, "creating profile (account %s left orphaned: %v)", acct.ID, dErr)
		}
		return pkgerrors.Wrap(err, "creating profile")
	}

	std.Printf("admin %s created", email)
	return nil
}
