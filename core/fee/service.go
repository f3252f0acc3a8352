package fee

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/student"
)

var (
	// errors
	ErrNotFound          = errors.New("fee not found")
	ErrDuplicateFee      = errors.New("a fee for this student and period already exists")
	ErrInvalidTransition = errors.New("fee is not in a state that allows this operation")
)

type (
	Repository interface {
		// CreateFee fails with ErrDuplicateFee when a fee for the same
		// (student, period) already exists.
		CreateFee(ctx context.Context, f Fee) (Fee, error)
		GetFeeByID(ctx context.Context, id string) (Fee, error)
		// QueryFees applies AND operation on available QueryFilter fields.
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
		// TransitionFee persists f's mutable fields guarded on the current
		// stored status being `from`; it fails with ErrInvalidTransition when
		// the row has moved on. Beyond that guard the write is last-write-wins.
		TransitionFee(ctx context.Context, f Fee, from string) (Fee, error)
		DeleteFeesByID(ctx context.Context, ids ...string) error
	}

	// ReceiptGenerator renders a payment receipt document for a paid fee.
	ReceiptGenerator interface {
		PaymentReceipt(f Fee, studentName string) (*bytes.Buffer, error)
	}

	Service struct {
		repo     Repository
		students *student.Service
		mailSvc  core.EmailService
		textSvc  core.TextService
		receipts ReceiptGenerator
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	students *student.Service,
	mailSvc core.EmailService,
	textSvc core.TextService,
	receipts ReceiptGenerator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		textSvc:  textSvc,
		receipts: receipts,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *Service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	now := time.Now().UTC()
	currency := nf.Currency
	if currency == "" {
		currency = svc.conf.Fees.Currency
	}
	f := Fee{
		StudentID: nf.StudentID,
		Amount:    nf.Amount,
		Currency:  currency,
		Period:    nf.Period,
		DueDate:   nf.DueDate,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateFee(ctx, f)
}

// GenerateMonthly creates the pending fee of a given period for every
// enrolled student. Students that already have a fee for the period are
// skipped with a warning: bulk generation is safe to re-run.
func (svc *Service) GenerateMonthly(ctx context.Context, period string, amount int64, dueDate time.Time) (int, error) {
	if amount <= 0 {
		amount = svc.conf.Fees.DefaultAmount
	}
	students, err := svc.students.Query(ctx, nil, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "querying students")
	}

	var created int
	for _, st := range students {
		_, err := svc.Create(ctx, NewFee{
			StudentID: st.ID,
			Amount:    amount,
			Period:    period,
			DueDate:   dueDate,
		})
		if err != nil {
			if pkgerrors.Cause(err) == ErrDuplicateFee {
				svc.logger.Warn(fmt.Sprintf("fee %s already exists for student %s, skipping", period, st.ID))
				continue
			}
			return created, pkgerrors.Wrapf(err, "creating fee for student %s", st.ID)
		}
		created++
	}
	return created, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Fee, error) {
	return svc.repo.GetFeeByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error) {
	return svc.repo.QueryFees(ctx, filter, ordering)
}

// RecordProof attaches a student's proof of payment and moves the fee to
// pending_approval. The proof itself is not verified here; that is the
// admin's approval call.
func (svc *Service) RecordProof(ctx context.Context, feeID, proofRef, proofFilename string) (Fee, error) {
	f, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Fee{}, err
	}
	if f.Status != StatusPending {
		return Fee{}, ErrInvalidTransition
	}
	f.Status = StatusPendingApproval
	f.ProofRef = proofRef
	f.ProofFilename = proofFilename
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.TransitionFee(ctx, f, StatusPending)
}

// Approve marks a fee paid, stamping payment date, approver and receipt
// number. Receipt and confirmation notifications are best-effort: their
// failure is logged and never rolls back the status change.
func (svc *Service) Approve(ctx context.Context, feeID, approverID string) (Fee, error) {
	f, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Fee{}, err
	}
	if f.Status != StatusPendingApproval {
		return Fee{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	f.Status = StatusPaid
	f.PaymentDate = now
	f.ApprovedBy = approverID
	f.ApprovedAt = now
	f.ReceiptNumber = NewReceiptNumber(f.ID, f.Period)
	f.UpdatedAt = now

	f, err = svc.repo.TransitionFee(ctx, f, StatusPendingApproval)
	if err != nil {
		return Fee{}, err
	}

	svc.sendPaymentConfirmation(ctx, f)
	return f, nil
}

// Reject refuses a submitted proof of payment. A non-empty reason is
// required so the student knows what to fix.
func (svc *Service) Reject(ctx context.Context, feeID, approverID, reason string) (Fee, error) {
	if core.CleanString(reason) == "" {
		return Fee{}, core.NewValidationError(errors.New("a rejection reason is required"),
			core.FieldError{Field: "rejection_reason", Error: "this field is required"})
	}

	f, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Fee{}, err
	}
	if f.Status != StatusPendingApproval {
		return Fee{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	f.Status = StatusRejected
	f.RejectionReason = core.CleanString(reason)
	f.ApprovedBy = approverID
	f.ApprovedAt = now
	f.UpdatedAt = now
	return svc.repo.TransitionFee(ctx, f, StatusPendingApproval)
}

// Waive writes off a fee. A paid fee cannot be waived; waiving is terminal.
func (svc *Service) Waive(ctx context.Context, feeID, approverID string) (Fee, error) {
	f, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Fee{}, err
	}
	if f.Status == StatusPaid || f.Status == StatusWaived {
		return Fee{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	from := f.Status
	f.Status = StatusWaived
	f.ApprovedBy = approverID
	f.ApprovedAt = now
	f.UpdatedAt = now
	return svc.repo.TransitionFee(ctx, f, from)
}

// SendReminder notifies the student of an outstanding fee. It does not
// change the fee's state and is only allowed while the fee is pending
// (including derived-overdue).
func (svc *Service) SendReminder(ctx context.Context, feeID string) error {
	f, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return err
	}
	switch f.EffectiveStatus(time.Now()) {
	case StatusPending, StatusOverdue:
	default:
		return ErrInvalidTransition
	}

	contact, err := svc.students.StudentContact(ctx, f.StudentID)
	if err != nil {
		return pkgerrors.Wrap(err, "resolving student contact")
	}

	if contact.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: contact.Name, Address: contact.Email}},
			Subject:      "Payment reminder",
			TemplateName: "payment-reminder",
			TemplateData: reminderData(f, contact.Name),
		})
	}
	if contact.Phone != "" {
		svc.textSvc.SendTexts(&core.TextMessage{
			Phone: contact.Phone,
			Body: fmt.Sprintf("Hi %s, your %s fee of %s %d is due on %s.",
				contact.Name, f.Period, f.Currency, f.Amount, f.DueDate.Format("2006-01-02")),
		})
	}
	return nil
}

// Delete removes fees from the ledger. Explicit admin action only.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteFeesByID(ctx, ids...)
}

func (svc *Service) sendPaymentConfirmation(ctx context.Context, f Fee) {
	contact, err := svc.students.StudentContact(ctx, f.StudentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("resolving contact for fee %s: %v", f.ID, err), err)
		return
	}
	if contact.Email == "" {
		svc.logger.Warn(fmt.Sprintf("no email on file for student %s, skipping confirmation", f.StudentID))
		return
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: contact.Name, Address: contact.Email}},
		Subject:      "Payment confirmed",
		TemplateName: "payment-confirmation",
		TemplateData: confirmationData(f, contact.Name),
	}

	if svc.receipts != nil {
		receipt, err := svc.receipts.PaymentReceipt(f, contact.Name)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("generating receipt for fee %s: %v", f.ID, err), err)
		} else if err = msg.Attach(receipt, "receipt-"+f.Period+".pdf", "application/pdf"); err != nil {
			svc.logger.Error(fmt.Sprintf("attaching receipt for fee %s: %v", f.ID, err), err)
		}
	}

	svc.mailSvc.SendMessages(msg)

	if contact.Phone != "" {
		svc.textSvc.SendTexts(&core.TextMessage{
			Phone: contact.Phone,
			Body: fmt.Sprintf("Hi %s, your %s payment of %s %d was confirmed. Receipt: %s.",
				contact.Name, f.Period, f.Currency, f.Amount, f.ReceiptNumber),
		})
	}
}

func reminderData(f Fee, name string) map[string]interface{} {
	return map[string]interface{}{
		"Name":     name,
		"Period":   f.Period,
		"Amount":   f.Amount,
		"Currency": f.Currency,
		"DueDate":  f.DueDate.Format("2006-01-02"),
	}
}

func confirmationData(f Fee, name string) map[string]interface{} {
	return map[string]interface{}{
		"Name":          name,
		"Period":        f.Period,
		"Amount":        f.Amount,
		"Currency":      f.Currency,
		"PaymentDate":   f.PaymentDate.Format("2006-01-02"),
		"ReceiptNumber": f.ReceiptNumber,
	}
}
