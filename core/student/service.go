package student

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/profile"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrStudentExists = errors.New("a student already exists for this profile")
)

// Contact is the reachable contact information for a student, used by
// notification senders.
type Contact struct {
	Name        string
	Email       string
	Phone       string
	ParentEmail string
	ParentPhone string
}

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByProfileID(ctx context.Context, profileID string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on first/last name.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		profiles *profile.Service
	}
)

func NewService(repo Repository, profiles *profile.Service) *Service {
	return &Service{repo: repo, profiles: profiles}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	st := Student{
		ProfileID:      ns.ProfileID,
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		DOB:            ns.DOB,
		Category:       ns.Category,
		PaymentStatus:  profile.StatusMoroso,
		Phone:          ns.Phone,
		ParentName:     ns.ParentName,
		ParentPhone:    ns.ParentPhone,
		ParentEmail:    ns.ParentEmail,
		Address:        ns.Address,
		Notes:          ns.Notes,
		EnrollmentDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		return Student{}, err
	}

	// the QR credential embeds the student id, so it is assigned post-insert
	st.QRCode = NewQRCode(st.ID, now)
	st.UpdatedAt = now
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByProfileID(ctx context.Context, profileID string) (Student, error) {
	return svc.repo.GetStudentByProfileID(ctx, profileID)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	orig.FirstName = us.FirstName
	orig.LastName = us.LastName
	orig.DOB = us.DOB
	orig.Category = us.Category
	orig.PaymentStatus = us.PaymentStatus
	orig.Phone = us.Phone
	orig.ParentName = us.ParentName
	orig.ParentPhone = us.ParentPhone
	orig.ParentEmail = us.ParentEmail
	orig.Address = us.Address
	orig.Notes = us.Notes
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}

// QRCodePNG renders a student's QR credential as a PNG image.
func (svc *Service) QRCodePNG(ctx context.Context, id string, size int) ([]byte, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(st.QRCode, qrcode.Medium, size)
	return png, pkgerrors.Wrap(err, "encoding QR code")
}

// StudentContact resolves the contact information for a student, falling
// back to guardian details. The email comes from the linked profile.
func (svc *Service) StudentContact(ctx context.Context, id string) (Contact, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	c := Contact{
		Name:        st.FullName(),
		Phone:       st.Phone,
		ParentEmail: st.ParentEmail,
		ParentPhone: st.ParentPhone,
	}
	prof, err := svc.profiles.GetByID(ctx, st.ProfileID)
	if err != nil {
		if pkgerrors.Cause(err) != profile.ErrNotFound {
			return Contact{}, pkgerrors.Wrap(err, "finding profile by ID")
		}
		// orphaned student row: guardian contact only
		c.Email = st.ParentEmail
		return c, nil
	}
	c.Email = prof.Email
	if c.Email == "" {
		c.Email = st.ParentEmail
	}
	if c.Phone == "" {
		c.Phone = st.ParentPhone
	}
	return c, nil
}
