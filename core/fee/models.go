package fee

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canteraproject/cantera/core"
)

// Statuses. The stored lifecycle is
// pending -> pending_approval -> paid | rejected, with waived as an admin
// override. "overdue" is derived from the due date and never stored.
const (
	StatusPending         = "pending"
	StatusPendingApproval = "pending_approval"
	StatusPaid            = "paid"
	StatusRejected        = "rejected"
	StatusWaived          = "waived"
	StatusOverdue         = "overdue"
)

// Fee is a billing obligation for a student for a given month period.
// Fees are a historical ledger: they are never deleted except by explicit
// admin action.
type Fee struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Period          string    `json:"period"` // YYYY-MM
	DueDate         time.Time `json:"due_date"`
	Status          string    `json:"status"`
	PaymentDate     time.Time `json:"payment_date,omitempty"`
	ProofRef        string    `json:"payment_proof_url,omitempty"`
	ProofFilename   string    `json:"payment_proof_filename,omitempty"`
	ReceiptNumber   string    `json:"receipt_number,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	ApprovedBy      string    `json:"approved_by,omitempty"`
	ApprovedAt      time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// IsOverdue reports whether an unpaid fee is past its due date.
func (f *Fee) IsOverdue(now time.Time) bool {
	return f.Status == StatusPending && !f.DueDate.IsZero() && now.After(f.DueDate)
}

// EffectiveStatus is the stored status with "overdue" derived on top.
func (f *Fee) EffectiveStatus(now time.Time) string {
	if f.IsOverdue(now) {
		return StatusOverdue
	}
	return f.Status
}

// NewReceiptNumber derives the receipt reference stamped on approval.
func NewReceiptNumber(feeID, period string) string {
	id := feeID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("REC-%s-%s", period, id)
}

// NewFee contains information needed to create a new Fee.
type NewFee struct {
	StudentID string    `json:"student_id" validate:"required"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	Currency  string    `json:"currency" validate:"omitempty,len=3"`
	Period    string    `json:"period" validate:"required,period"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.Period = core.CleanString(nf.Period)
	return validate.Struct(nf)
}

type QueryFilter struct {
	StudentID string    `query:"student_id"`
	Period    string    `query:"period"`
	Status    string    `query:"status"`
	DueFrom   time.Time `query:"due_from"`
	DueTo     time.Time `query:"due_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.Period == "" && qf.Status == "" && qf.DueFrom.IsZero() && qf.DueTo.IsZero()
}
