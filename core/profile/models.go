package profile

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canteraproject/cantera/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleCoach   = "coach"
	RoleStudent = "student"
)

// Statuses. "moroso" marks a delinquent payer, the enrollment default
// until the first fee is settled.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusMoroso   = "moroso"
)

var (
	AllRoles    = []string{RoleAdmin, RoleCoach, RoleStudent}
	AllStatuses = []string{StatusActive, StatusInactive, StatusMoroso}
)

// Profile is the application-level user record, linked one-to-one to an
// Account via AuthID. Email is duplicated from the Account for query
// convenience and must be kept in sync on account changes.
type Profile struct {
	ID        string    `json:"id"`
	AuthID    string    `json:"auth_id,omitempty"` // empty until linked
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Completed bool      `json:"profile_completed"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	DOB       time.Time `json:"date_of_birth,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	// guardian contact, for student profiles
	ParentName  string    `json:"parent_name,omitempty"`
	ParentPhone string    `json:"parent_phone,omitempty"`
	ParentEmail string    `json:"parent_email,omitempty"`
	Address     string    `json:"address,omitempty"`
	Category    string    `json:"category,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p *Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p *Profile) IsCoach() bool   { return p.Role == RoleCoach }
func (p *Profile) IsStudent() bool { return p.Role == RoleStudent }

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	AuthID      string    `json:"auth_id"`
	Email       string    `json:"email" validate:"required,email"`
	Role        string    `json:"role" validate:"required,role"`
	Status      string    `json:"status" validate:"omitempty,oneof=active inactive moroso"`
	Completed   bool      `json:"profile_completed"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DOB         time.Time `json:"date_of_birth" validate:"omitempty,studentage"`
	Phone       string    `json:"phone"`
	ParentName  string    `json:"parent_name"`
	ParentPhone string    `json:"parent_phone"`
	ParentEmail string    `json:"parent_email" validate:"omitempty,email"`
	Address     string    `json:"address"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes"`
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.ParentEmail = core.CleanString(np.ParentEmail, true /* lower */)
	return validate.Struct(np)
}

// UpdateProfile defines what information may be provided to modify an
// existing Profile. Empty fields keep their previous value: partial
// updates merge, last write wins.
type UpdateProfile struct {
	Email       string    `json:"email" validate:"omitempty,email"`
	Role        string    `json:"role" validate:"omitempty,role"`
	Status      string    `json:"status" validate:"omitempty,oneof=active inactive moroso"`
	Completed   *bool     `json:"profile_completed"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DOB         time.Time `json:"date_of_birth" validate:"omitempty,studentage"`
	Phone       string    `json:"phone"`
	ParentName  string    `json:"parent_name"`
	ParentPhone string    `json:"parent_phone"`
	ParentEmail string    `json:"parent_email" validate:"omitempty,email"`
	Address     string    `json:"address"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes"`
}

func (up *UpdateProfile) Validate(orig Profile, validate *validator.Validate) error {
	if email := core.CleanString(up.Email, true /* lower */); email != "" {
		up.Email = email
	} else {
		up.Email = orig.Email
	}
	if up.Role == "" {
		up.Role = orig.Role
	}
	if up.Status == "" {
		up.Status = orig.Status
	}
	if name := core.CleanString(up.FirstName); name != "" {
		up.FirstName = name
	} else {
		up.FirstName = orig.FirstName
	}
	if name := core.CleanString(up.LastName); name != "" {
		up.LastName = name
	} else {
		up.LastName = orig.LastName
	}
	if up.DOB.IsZero() {
		up.DOB = orig.DOB
	}
	return validate.Struct(up)
}

// CompleteProfile is the self-service profile completion submitted by a
// student after their first login.
type CompleteProfile struct {
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name" validate:"required"`
	DOB         time.Time `json:"date_of_birth" validate:"required,studentage"`
	Phone       string    `json:"phone"`
	ParentName  string    `json:"parent_name" validate:"required"`
	ParentPhone string    `json:"parent_phone" validate:"required"`
	ParentEmail string    `json:"parent_email" validate:"omitempty,email"`
	Address     string    `json:"address"`
	Category    string    `json:"category" validate:"required"`
	Notes       string    `json:"notes"`
}

func (cp *CompleteProfile) Validate(validate *validator.Validate) error {
	cp.FirstName = core.CleanString(cp.FirstName)
	cp.LastName = core.CleanString(cp.LastName)
	cp.ParentName = core.CleanString(cp.ParentName)
	cp.ParentEmail = core.CleanString(cp.ParentEmail, true /* lower */)
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Role      string `query:"role"`
	Status    string `query:"status"`
	Category  string `query:"category"`
	Completed *bool  `query:"profile_completed"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Status == "" && qf.Category == "" && qf.Completed == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
