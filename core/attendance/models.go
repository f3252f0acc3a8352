package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Record is a per-date, per-student presence mark. (StudentID, Date) is the
// composite key: re-marking overwrites, there is no history of prior values.
type Record struct {
	StudentID string    `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (r *Record) Validate(validate *validator.Validate) error {
	// normalize to a date, dropping the time-of-day part
	r.Date = r.Date.UTC().Truncate(24 * time.Hour)
	return validate.Struct(r)
}

type QueryFilter struct {
	StudentID string    `query:"student_id"`
	Date      time.Time `query:"date"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.Date.IsZero() && qf.From.IsZero() && qf.To.IsZero()
}
