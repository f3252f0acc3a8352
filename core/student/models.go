package student

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canteraproject/cantera/core"
)

// Student is the enrollment record backing attendance and fee tracking.
// It is linked to a Profile; the profile carries the account email while
// the student row carries the football-school specifics.
type Student struct {
	ID             string    `json:"id"`
	ProfileID      string    `json:"profile_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DOB            time.Time `json:"date_of_birth"`
	Category       string    `json:"category"`
	PaymentStatus  string    `json:"payment_status"` // active | moroso
	Phone          string    `json:"phone,omitempty"`
	ParentName     string    `json:"parent_name"`
	ParentPhone    string    `json:"parent_phone"`
	ParentEmail    string    `json:"parent_email,omitempty"`
	Address        string    `json:"address,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	QRCode         string    `json:"qr_code"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// NewQRCode derives the printable QR credential string for a student.
func NewQRCode(studentID string, now time.Time) string {
	id := studentID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("QR-%s-%d", id, now.Unix())
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	ProfileID   string    `json:"profile_id" validate:"required"`
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name" validate:"required"`
	DOB         time.Time `json:"date_of_birth" validate:"required,studentage"`
	Category    string    `json:"category" validate:"required"`
	Phone       string    `json:"phone"`
	ParentName  string    `json:"parent_name" validate:"required"`
	ParentPhone string    `json:"parent_phone" validate:"required"`
	ParentEmail string    `json:"parent_email" validate:"omitempty,email"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what may be modified on an existing Student.
// Empty fields keep their previous value.
type UpdateStudent struct {
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	DOB           time.Time `json:"date_of_birth" validate:"omitempty,studentage"`
	Category      string    `json:"category"`
	PaymentStatus string    `json:"payment_status" validate:"omitempty,oneof=active moroso"`
	Phone         string    `json:"phone"`
	ParentName    string    `json:"parent_name"`
	ParentPhone   string    `json:"parent_phone"`
	ParentEmail   string    `json:"parent_email" validate:"omitempty,email"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.FirstName); name != "" {
		us.FirstName = name
	} else {
		us.FirstName = orig.FirstName
	}
	if name := core.CleanString(us.LastName); name != "" {
		us.LastName = name
	} else {
		us.LastName = orig.LastName
	}
	if us.DOB.IsZero() {
		us.DOB = orig.DOB
	}
	if us.Category == "" {
		us.Category = orig.Category
	}
	if us.PaymentStatus == "" {
		us.PaymentStatus = orig.PaymentStatus
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search        string `query:"search"`
	Category      string `query:"category"`
	PaymentStatus string `query:"payment_status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.PaymentStatus == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
