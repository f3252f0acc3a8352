package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoSession          = errors.New("session not found")
)

type (
	Repository interface {
		// CreateAccount fails with ErrDuplicateAccount when the email is taken.
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		SetLastLogin(ctx context.Context, acct Account) (Account, error)
		DeleteAccount(ctx context.Context, id string) error
	}

	// SessionStore holds opaque session ids for signed-in accounts.
	// DeleteSession of an absent session is not an error.
	SessionStore interface {
		PutSession(ctx context.Context, sessionID, accountID string, ttl time.Duration) error
		GetSession(ctx context.Context, sessionID string) (string, error) // ErrNoSession when absent
		DeleteSession(ctx context.Context, sessionID string) error
	}

	Service struct {
		repo     Repository
		sessions SessionStore
		conf     *core.Config
	}
)

func NewService(repo Repository, sessions SessionStore, conf *core.Config) *Service {
	return &Service{repo: repo, sessions: sessions, conf: conf}
}

// SignUp registers a new credential record. It deliberately does NOT create
// a Profile: that is deferred until the first login's profile completion.
func (svc *Service) SignUp(ctx context.Context, na NewAccount) (Account, error) {
	now := time.Now().UTC()
	roleHint := na.RoleHint
	if roleHint == "" {
		roleHint = "student"
	}
	acct := Account{
		Email:     na.Email,
		Metadata:  Metadata{RoleHint: roleHint},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, pkgerrors.Wrap(err, "setting password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		if pkgerrors.Cause(err) == ErrDuplicateAccount {
			return Account{}, core.NewValidationError(ErrDuplicateAccount,
				core.FieldError{Field: "email", Error: ErrDuplicateAccount.Error()})
		}
		return Account{}, pkgerrors.Wrap(err, "creating account")
	}
	return acct, nil
}

// AdminCreate registers a pre-confirmed account on behalf of an admin or the
// registration flow. Unlike SignUp, a duplicate email is returned raw so the
// caller can decide how to surface it.
func (svc *Service) AdminCreate(ctx context.Context, email, password string, meta Metadata, emailConfirm bool) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Email:          core.CleanString(email, true /* lower */),
		Metadata:       meta,
		EmailConfirmed: emailConfirm,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := acct.SetPassword(password); err != nil {
		return Account{}, pkgerrors.Wrap(err, "setting password")
	}
	return svc.repo.CreateAccount(ctx, acct)
}

// SignIn authenticates an account and opens a session.
// It returns the account and the opaque session id.
func (svc *Service) SignIn(ctx context.Context, email, password string) (Account, string, error) {
	email = core.CleanString(email, true /* lower */)

	acct, err := svc.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Account{}, "", ErrInvalidCredentials
		}
		return Account{}, "", pkgerrors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(password); err != nil {
		return Account{}, "", ErrInvalidCredentials
	}

	acct.LastLogin = time.Now().UTC()
	acct, err = svc.repo.SetLastLogin(ctx, acct)
	if err != nil {
		return Account{}, "", pkgerrors.Wrap(err, "setting lastLogin")
	}

	sessionID := uuid.New().String()
	if err = svc.sessions.PutSession(ctx, sessionID, acct.ID, svc.conf.Server.SessionTTL); err != nil {
		return Account{}, "", pkgerrors.Wrap(err, "opening session")
	}
	return acct, sessionID, nil
}

// SignOut closes a session. Signing out an already-closed session is a no-op.
func (svc *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return pkgerrors.Wrap(svc.sessions.DeleteSession(ctx, sessionID), "closing session")
}

// GetSessionAccount returns the account behind an open session,
// or ErrNotAuthenticated.
func (svc *Service) GetSessionAccount(ctx context.Context, sessionID string) (Account, error) {
	if sessionID == "" {
		return Account{}, ErrNotAuthenticated
	}
	accountID, err := svc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNoSession {
			return Account{}, ErrNotAuthenticated
		}
		return Account{}, pkgerrors.Wrap(err, "looking up session")
	}
	acct, err := svc.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Account{}, ErrNotAuthenticated
		}
		return Account{}, pkgerrors.Wrap(err, "finding account by ID")
	}
	return acct, nil
}

// ResetPassword replaces the password of the account behind email.
func (svc *Service) ResetPassword(ctx context.Context, email, password string) error {
	acct, err := svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = acct.SetPassword(password); err != nil {
		return pkgerrors.Wrap(err, "setting password")
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acct)
	return err
}

// GetByID returns an account by its id.
func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

// Delete removes a credential record. Used by the registration
// coordinator to compensate partial failures.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAccount(ctx, id)
}
