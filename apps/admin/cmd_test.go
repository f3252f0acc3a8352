package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
	emailsvc "github.com/canteraproject/cantera/services/email"
	pdfsvc "github.com/canteraproject/cantera/services/pdf"
	whatsappsvc "github.com/canteraproject/cantera/services/whatsapp"
	inmemdb "github.com/canteraproject/cantera/storage/database/inmem"
	"github.com/canteraproject/cantera/storage/sessions"
	testutil "github.com/canteraproject/cantera/tests"
)

var (
	acctRepo account.Repository
	profRepo profile.Repository
	stRepo   student.Repository
	feeRepo  fee.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	conf := testutil.NewTestConfig()

	db := inmemdb.NewDB()
	acctRepo = inmemdb.NewAccountRepository(db)
	profRepo = inmemdb.NewProfileRepository(db)
	stRepo = inmemdb.NewStudentRepository(db)
	feeRepo = inmemdb.NewFeeRepository(db)

	profileSvc := profile.NewService(profRepo)
	studentSvc := student.NewService(stRepo, profileSvc)

	return &commandLine{
		db:         &sqlx.DB{},
		accountSvc: account.NewService(acctRepo, sessions.NewInmemStore(), conf),
		profileSvc: profileSvc,
		feeSvc: fee.NewService(
			feeRepo,
			studentSvc,
			emailsvc.NewConsoleServiceMock(),
			whatsappsvc.NewConsoleServiceMock(),
			pdfsvc.NewReceiptGenerator(),
			testutil.Logger{},
			conf,
		),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "defaults to up", args: []string{"migrate"}},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Errorf("cli.run() expected error %v%s", tt.wantErr, tt.wantErrStr)
				}
				return
			}
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			} else {
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"addadmin", "-email", "boss@test.cantera"}, wantErr: errHelp},
		{name: "ok", args: []string{"addadmin", "-email", "boss@test.cantera", "-firstname", "Big", "-lastname", "Boss"}, extra: extra{pwd: "s3cret"}},
		{name: "duplicate email", args: []string{"addadmin", "-email", "boss@test.cantera"}, extra: extra{pwd: "s3cret"}, wantErr: account.ErrDuplicateAccount},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if pkgerrors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			ctx := context.Background()
			acct, err := acctRepo.GetAccountByEmail(ctx, "boss@test.cantera")
			if err != nil {
				t.Fatalf("GetAccountByEmail() failed: %v", err)
			}
			if err = acct.CheckPassword("s3cret"); err != nil {
				t.Errorf("CheckPassword() failed: %v", err)
			}
			prof, err := profRepo.GetProfileByAuthID(ctx, acct.ID)
			if err != nil {
				t.Fatalf("GetProfileByAuthID() failed: %v", err)
			}
			if prof.Role != profile.RoleAdmin || !prof.Completed {
				t.Errorf("profile = %+v; want completed admin", prof)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	acct := testutil.CreateAccount(t, acctRepo, "awe@test.cantera", "mdr", profile.RoleStudent)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "awe@test.cantera"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.cantera"}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-email", "awe@test.cantera"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := acctRepo.GetAccountByID(context.Background(), acct.ID)
				if err != nil {
					t.Fatalf("GetAccountByID() failed: %v", err)
				}
				if err = refreshed.CheckPassword("lmao"); err != nil {
					t.Error("failed to update new password")
				}
			} else if pkgerrors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_generateFees(t *testing.T) {
	cli := setup(t)

	prof := testutil.CreateProfile(t, profRepo, "", "kid@test.cantera", profile.RoleStudent, true)
	st := testutil.CreateStudent(t, stRepo, prof.ID, "Leo", "Aimar", "sub-12")

	tests := []cliTest{
		{name: "no args", args: []string{"generatefees"}, wantErr: errHelp},
		{name: "missing due date", args: []string{"generatefees", "-period", "2026-03"}, wantErr: errHelp},
		{name: "bad due date", args: []string{"generatefees", "-period", "2026-03", "-due", "soon"}, wantErrStr: `parsing time "soon" as "2006-01-02": cannot parse "soon" as "2006"`},
		{name: "ok", args: []string{"generatefees", "-period", "2026-03", "-due", "2026-03-15"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				fees, err := feeRepo.QueryFees(context.Background(), &fee.QueryFilter{StudentID: st.ID, Period: "2026-03"}, nil)
				if err != nil {
					t.Fatalf("QueryFees() failed: %v", err)
				}
				if len(fees) != 1 {
					t.Fatalf("fees = %d; want 1", len(fees))
				}
				if fees[0].Amount != testutil.NewTestConfig().Fees.DefaultAmount {
					t.Errorf("Amount = %d; want configured default", fees[0].Amount)
				}
			} else if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" && err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		})
	}
}
