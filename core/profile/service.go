package profile

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
)

var (
	// errors
	ErrNotFound      = errors.New("profile not found")
	ErrProfileExists = errors.New("a profile already exists for this account")
	ErrEmailExists   = errors.New("a profile with this email already exists")
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfileByID(ctx context.Context, id string) (Profile, error)
		GetProfileByAuthID(ctx context.Context, authID string) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string) (Profile, error)
		// QueryProfiles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name or email.
		QueryProfiles(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		UpdateProfile(ctx context.Context, prof Profile, completed *bool) (Profile, error)
		DeleteProfilesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewProfile) (Profile, error) {
	now := time.Now().UTC()
	status := np.Status
	if status == "" {
		status = StatusActive
	}
	prof := Profile{
		AuthID:      np.AuthID,
		Email:       np.Email,
		Role:        np.Role,
		Status:      status,
		Completed:   np.Completed,
		FirstName:   np.FirstName,
		LastName:    np.LastName,
		DOB:         np.DOB,
		Phone:       np.Phone,
		ParentName:  np.ParentName,
		ParentPhone: np.ParentPhone,
		ParentEmail: np.ParentEmail,
		Address:     np.Address,
		Category:    np.Category,
		Notes:       np.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProfile(ctx, prof)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfileByID(ctx, id)
}

func (svc *Service) GetByAuthID(ctx context.Context, authID string) (Profile, error) {
	return svc.repo.GetProfileByAuthID(ctx, authID)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, filter, ordering)
}

// ExistsByEmail reports whether a profile with this email exists.
// A "no rows" condition is not an error: it means "does not exist".
func (svc *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(err, "finding profile by email")
	}
	return true, nil
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	orig, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if up.Email != "" {
		orig.Email = up.Email
	}
	if up.Role != "" {
		orig.Role = up.Role
	}
	if up.Status != "" {
		orig.Status = up.Status
	}
	orig.FirstName = up.FirstName
	orig.LastName = up.LastName
	orig.DOB = up.DOB
	orig.Phone = up.Phone
	orig.ParentName = up.ParentName
	orig.ParentPhone = up.ParentPhone
	orig.ParentEmail = up.ParentEmail
	orig.Address = up.Address
	orig.Category = up.Category
	orig.Notes = up.Notes
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, orig, up.Completed)
}

// Complete fills in a student's personal data after their first login and
// marks the profile completed. The profile row is created here when sign-up
// deferred it.
func (svc *Service) Complete(ctx context.Context, authID, email string, cp CompleteProfile) (Profile, error) {
	completed := true

	prof, err := svc.repo.GetProfileByAuthID(ctx, authID)
	if err != nil {
		if pkgerrors.Cause(err) != ErrNotFound {
			return Profile{}, pkgerrors.Wrap(err, "finding profile by auth ID")
		}
		return svc.Create(ctx, NewProfile{
			AuthID:      authID,
			Email:       core.CleanString(email, true /* lower */),
			Role:        RoleStudent,
			Status:      StatusMoroso,
			Completed:   completed,
			FirstName:   cp.FirstName,
			LastName:    cp.LastName,
			DOB:         cp.DOB,
			Phone:       cp.Phone,
			ParentName:  cp.ParentName,
			ParentPhone: cp.ParentPhone,
			ParentEmail: cp.ParentEmail,
			Address:     cp.Address,
			Category:    cp.Category,
			Notes:       cp.Notes,
		})
	}

	prof.FirstName = cp.FirstName
	prof.LastName = cp.LastName
	prof.DOB = cp.DOB
	prof.Phone = cp.Phone
	prof.ParentName = cp.ParentName
	prof.ParentPhone = cp.ParentPhone
	prof.ParentEmail = cp.ParentEmail
	prof.Address = cp.Address
	prof.Category = cp.Category
	prof.Notes = cp.Notes
	prof.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, prof, &completed)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteProfilesByID(ctx, ids...)
}
