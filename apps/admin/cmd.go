package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/profile"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	accountSvc *account.Service
	profileSvc *profile.Service
	feeSvc     *fee.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addadmin -email EMAIL [-firstname NAME] [-lastname NAME] - create an admin account (password prompted)")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password (password prompted)")
	fmt.Println("  generatefees -period YYYY-MM -due YYYY-MM-DD [-amount CENTS] - create the month's pending fees for all students")
	fmt.Println("  migrate [up|down|status|version ...] - run database migrations")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminFirstName := addAdminCmd.String("firstname", "", "The admin's first name.")
	addAdminLastName := addAdminCmd.String("lastname", "", "The admin's last name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	generateFeesCmd := flag.NewFlagSet("generatefees", flag.ExitOnError)
	generateFeesPeriod := generateFeesCmd.String("period", "", "The billing period, YYYY-MM.")
	generateFeesAmount := generateFeesCmd.Int64("amount", 0, "The fee amount in minor units. Defaults to the configured amount.")
	generateFeesDue := generateFeesCmd.String("due", "", "The due date, YYYY-MM-DD.")

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminEmail, pwd, *addAdminFirstName, *addAdminLastName)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	case "generatefees":
		if err := generateFeesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *generateFeesPeriod == "" || *generateFeesDue == "" {
			generateFeesCmd.Usage()
			return errHelp
		}
		due, err := time.Parse("2006-01-02", *generateFeesDue)
		if err != nil {
			return err
		}
		return cli.generateFees(*generateFeesPeriod, *generateFeesAmount, due)
	case "migrate":
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
