package registration

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
)

// ErrPartialRegistration is returned when a registration step failed AND the
// compensating cleanup of earlier steps failed too, leaving orphaned records
// behind. It must be surfaced distinctly so an operator can repair by hand.
var ErrPartialRegistration = errors.New("registration failed and cleanup of partial records also failed")

// StudentRegistration is the full self-service enrollment form: credentials
// plus student personal data, written across account, profile and student
// records in one coordinated flow.
type StudentRegistration struct {
	Email           string    `json:"email" validate:"required,email"`
	Password        string    `json:"password" validate:"required,min=6"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string    `json:"first_name" validate:"required"`
	LastName        string    `json:"last_name" validate:"required"`
	DOB             time.Time `json:"date_of_birth" validate:"required,studentage"`
	Phone           string    `json:"phone"`
	ParentName      string    `json:"parent_name" validate:"required"`
	ParentPhone     string    `json:"parent_phone" validate:"required"`
	ParentEmail     string    `json:"parent_email" validate:"omitempty,email"`
	Address         string    `json:"address"`
	Category        string    `json:"category" validate:"required"`
	Notes           string    `json:"notes"`
}

func (sr *StudentRegistration) Validate(validate *validator.Validate) error {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	sr.FirstName = core.CleanString(sr.FirstName)
	sr.LastName = core.CleanString(sr.LastName)
	sr.ParentName = core.CleanString(sr.ParentName)
	sr.ParentEmail = core.CleanString(sr.ParentEmail, true /* lower */)
	return validate.Struct(sr)
}

type Service struct {
	accounts *account.Service
	profiles *profile.Service
	students *student.Service
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(
	accounts *account.Service,
	profiles *profile.Service,
	students *student.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		students: students,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// Register runs the account -> profile -> student creation saga. The three
// writes are not transactional; on failure of a later step the earlier
// steps are compensated with deletes.
func (svc *Service) Register(ctx context.Context, reg StudentRegistration) (student.Student, error) {
	acct, err := svc.accounts.AdminCreate(ctx, reg.Email, reg.Password, account.Metadata{
		RoleHint:  profile.RoleStudent,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}, true /* emailConfirm */)
	if err != nil {
		if pkgerrors.Cause(err) == account.ErrDuplicateAccount {
			return student.Student{}, core.NewValidationError(account.ErrDuplicateAccount,
				core.FieldError{Field: "email", Error: account.ErrDuplicateAccount.Error()})
		}
		return student.Student{}, pkgerrors.Wrap(err, "creating account")
	}

	prof, err := svc.profiles.Create(ctx, profile.NewProfile{
		AuthID:      acct.ID,
		Email:       acct.Email,
		Role:        profile.RoleStudent,
		Status:      profile.StatusMoroso,
		Completed:   true,
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		DOB:         reg.DOB,
		Phone:       reg.Phone,
		ParentName:  reg.ParentName,
		ParentPhone: reg.ParentPhone,
		ParentEmail: reg.ParentEmail,
		Address:     reg.Address,
		Category:    reg.Category,
		Notes:       reg.Notes,
	})
	if err != nil {
		return student.Student{}, svc.compensate(ctx, pkgerrors.Wrap(err, "creating profile"), acct.ID, "")
	}

	st, err := svc.students.Create(ctx, student.NewStudent{
		ProfileID:   prof.ID,
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		DOB:         reg.DOB,
		Category:    reg.Category,
		Phone:       reg.Phone,
		ParentName:  reg.ParentName,
		ParentPhone: reg.ParentPhone,
		ParentEmail: reg.ParentEmail,
		Address:     reg.Address,
		Notes:       reg.Notes,
	})
	if err != nil {
		return student.Student{}, svc.compensate(ctx, pkgerrors.Wrap(err, "creating student"), acct.ID, prof.ID)
	}

	// welcome mail is best-effort
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: reg.FirstName + " " + reg.LastName, Address: acct.Email}},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{"Name": reg.FirstName, "Category": reg.Category},
	})

	return st, nil
}

// compensate deletes the records created by earlier saga steps. Each delete
// is attempted independently so one failure does not leave further orphans
// behind. When any cleanup fails the original error is folded into
// ErrPartialRegistration so the caller knows orphans remain.
func (svc *Service) compensate(ctx context.Context, cause error, accountID, profileID string) error {
	var cleanupErrs []error
	if profileID != "" {
		if err := svc.profiles.Delete(ctx, profileID); err != nil {
			cleanupErrs = append(cleanupErrs, pkgerrors.Wrap(err, "deleting profile"))
		}
	}
	if accountID != "" {
		if err := svc.accounts.Delete(ctx, accountID); err != nil {
			cleanupErrs = append(cleanupErrs, pkgerrors.Wrap(err, "deleting account"))
		}
	}
	if len(cleanupErrs) > 0 {
		for _, err := range cleanupErrs {
			svc.logger.Error(fmt.Sprintf("registration cleanup failed: %v (after: %v)", err, cause), err)
		}
		return pkgerrors.Wrap(ErrPartialRegistration, cause.Error())
	}
	return cause
}
