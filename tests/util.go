package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
)

// NewTestConfig installs a self-contained configuration so tests never
// depend on the environment or a config/.env file.
func NewTestConfig() *core.Config {
	core.Conf = &core.Config{
		AppName:          "Cantera",
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		WorkDir:          core.Getwd(),
		DefaultFromEmail: mail.Address{Name: "Cantera", Address: "noreply@test.cantera"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			SessionTTL:                10 * time.Minute,
		},
		Fees: core.FeesConfig{
			Currency:      "ARS",
			DefaultAmount: 15000,
		},
	}
	return core.Conf
}

// Logger discards everything. Fatal panics instead of exiting so a test
// can observe it.
type Logger struct{}

func (l Logger) Debug(msg string, args ...interface{}) {}
func (l Logger) Info(msg string, args ...interface{})  {}
func (l Logger) Warn(msg string, args ...interface{})  {}
func (l Logger) Error(msg string, args ...interface{}) {}
func (l Logger) Fatal(msg string, args ...interface{}) { panic(msg) }

var _ core.Logger = (*Logger)(nil)

func CreateAccount(t *testing.T, repo account.Repository, email, pwd, roleHint string) account.Account {
	t.Helper()

	now := time.Now().UTC()
	acct := account.Account{
		Email:          email,
		Metadata:       account.Metadata{RoleHint: roleHint},
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acct, err := repo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acct
}

func CreateProfile(t *testing.T, repo profile.Repository, authID, email, role string, completed bool) profile.Profile {
	t.Helper()

	now := time.Now().UTC()
	prof := profile.Profile{
		AuthID:    authID,
		Email:     email,
		Role:      role,
		Status:    profile.StatusActive,
		Completed: completed,
		FirstName: "Test",
		LastName:  "Profile",
		CreatedAt: now,
		UpdatedAt: now,
	}
	prof, err := repo.CreateProfile(context.Background(), prof)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func CreateStudent(t *testing.T, repo student.Repository, profileID, firstName, lastName, category string) student.Student {
	t.Helper()

	now := time.Now().UTC()
	st := student.Student{
		ProfileID:      profileID,
		FirstName:      firstName,
		LastName:       lastName,
		DOB:            now.AddDate(-12, 0, 0),
		Category:       category,
		PaymentStatus:  profile.StatusMoroso,
		ParentName:     "Parent " + lastName,
		ParentPhone:    "+5491100000000",
		EnrollmentDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	st.QRCode = student.NewQRCode(st.ID, now)
	st, err := repo.CreateStudent(context.Background(), st)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func CreateFee(t *testing.T, repo fee.Repository, studentID, period, status string, amount int64, dueDate time.Time) fee.Fee {
	t.Helper()

	now := time.Now().UTC()
	f := fee.Fee{
		StudentID: studentID,
		Amount:    amount,
		Currency:  "ARS",
		Period:    period,
		DueDate:   dueDate,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f, err := repo.CreateFee(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return f
}
