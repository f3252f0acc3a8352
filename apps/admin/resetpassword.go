package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	if err := cli.accountSvc.ResetPassword(context.Background(), email, pwd); err != nil {
		return err
	}
	std.Printf("password reset for %s", email)
	return nil
}
