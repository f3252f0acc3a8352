package fee_test

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
	emailsvc "github.com/canteraproject/cantera/services/email"
	pdfsvc "github.com/canteraproject/cantera/services/pdf"
	whatsappsvc "github.com/canteraproject/cantera/services/whatsapp"
	inmemdb "github.com/canteraproject/cantera/storage/database/inmem"
	testutil "github.com/canteraproject/cantera/tests"
)

type feeFixture struct {
	db         *inmemdb.DB
	svc        *fee.Service
	studentSvc *student.Service
	st         student.Student
}

func setupFee(t *testing.T) *feeFixture {
	t.Helper()
	testutil.NewTestConfig()
	emailsvc.ClearSentMessages()
	whatsappsvc.ClearSentTexts()

	db := inmemdb.NewDB()
	profileSvc := profile.NewService(inmemdb.NewProfileRepository(db))
	studentSvc := student.NewService(inmemdb.NewStudentRepository(db), profileSvc)
	svc := fee.NewService(
		inmemdb.NewFeeRepository(db),
		studentSvc,
		emailsvc.NewConsoleServiceMock(),
		whatsappsvc.NewConsoleServiceMock(),
		pdfsvc.NewReceiptGenerator(),
		testutil.Logger{},
		core.Conf,
	)

	prof := testutil.CreateProfile(t, inmemdb.NewProfileRepository(db), "", "kid@test.cantera", profile.RoleStudent, true)
	st := testutil.CreateStudent(t, inmemdb.NewStudentRepository(db), prof.ID, "Leo", "Aimar", "sub-12")

	return &feeFixture{db: db, svc: svc, studentSvc: studentSvc, st: st}
}

func TestService_Create(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()

	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	f, err := fix.svc.Create(ctx, fee.NewFee{StudentID: fix.st.ID, Amount: 15000, Period: "2026-03", DueDate: due})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if f.Status != fee.StatusPending {
		t.Errorf("Status = %q; want %q", f.Status, fee.StatusPending)
	}
	if f.Currency != core.Conf.Fees.Currency {
		t.Errorf("Currency = %q; want default %q", f.Currency, core.Conf.Fees.Currency)
	}

	// one fee per student per period
	_, err = fix.svc.Create(ctx, fee.NewFee{StudentID: fix.st.ID, Amount: 15000, Period: "2026-03", DueDate: due})
	if err != fee.ErrDuplicateFee {
		t.Errorf("Create() dup error = %v; want %v", err, fee.ErrDuplicateFee)
	}
}

func TestService_Lifecycle(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()

	due := time.Now().UTC().AddDate(0, 1, 0)
	f, err := fix.svc.Create(ctx, fee.NewFee{StudentID: fix.st.ID, Amount: 15000, Period: "2026-04", DueDate: due})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// approve before proof is invalid
	if _, err = fix.svc.Approve(ctx, f.ID, "admin-1"); err != fee.ErrInvalidTransition {
		t.Errorf("Approve() on pending error = %v; want %v", err, fee.ErrInvalidTransition)
	}

	f, err = fix.svc.RecordProof(ctx, f.ID, "https://bucket/proof.jpg", "proof.jpg")
	if err != nil {
		t.Fatalf("RecordProof() failed: %v", err)
	}
	if f.Status != fee.StatusPendingApproval {
		t.Errorf("Status = %q; want %q", f.Status, fee.StatusPendingApproval)
	}

	// proof cannot be re-recorded while awaiting approval
	if _, err = fix.svc.RecordProof(ctx, f.ID, "x", "x"); err != fee.ErrInvalidTransition {
		t.Errorf("RecordProof() twice error = %v; want %v", err, fee.ErrInvalidTransition)
	}

	f, err = fix.svc.Approve(ctx, f.ID, "admin-1")
	if err != nil {
		t.Fatalf("Approve() failed: %v", err)
	}
	if f.Status != fee.StatusPaid {
		t.Errorf("Status = %q; want %q", f.Status, fee.StatusPaid)
	}
	if f.PaymentDate.IsZero() || f.ApprovedAt.IsZero() || f.ApprovedBy != "admin-1" {
		t.Errorf("approval stamps missing: %+v", f)
	}
	if f.ReceiptNumber == "" {
		t.Error("ReceiptNumber not set on approval")
	}

	// confirmation attempt must have been made
	if len(emailsvc.SentMessages) == 0 {
		t.Error("no payment confirmation email sent")
	} else if msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]; !msg.HasAttachments() {
		t.Error("confirmation email has no receipt attachment")
	}

	// terminal
	if _, err = fix.svc.Waive(ctx, f.ID, "admin-1"); err != fee.ErrInvalidTransition {
		t.Errorf("Waive() on paid error = %v; want %v", err, fee.ErrInvalidTransition)
	}
}

func TestService_Reject(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()

	f := testutil.CreateFee(t, inmemdb.NewFeeRepository(fix.db), fix.st.ID, "2026-05", fee.StatusPendingApproval, 15000, time.Now().AddDate(0, 1, 0))

	// reason is required
	_, err := fix.svc.Reject(ctx, f.ID, "admin-1", "  ")
	if _, ok := pkgerrors.Cause(err).(*core.ValidationError); !ok {
		t.Fatalf("Reject() without reason error = %v; want ValidationError", err)
	}

	f, err = fix.svc.Reject(ctx, f.ID, "admin-1", "blurry photo")
	if err != nil {
		t.Fatalf("Reject() failed: %v", err)
	}
	if f.Status != fee.StatusRejected || f.RejectionReason != "blurry photo" {
		t.Errorf("Reject() = %+v", f)
	}

	// a rejected fee cannot be approved
	if _, err = fix.svc.Approve(ctx, f.ID, "admin-1"); err != fee.ErrInvalidTransition {
		t.Errorf("Approve() on rejected error = %v; want %v", err, fee.ErrInvalidTransition)
	}
}

func TestService_Waive(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()

	f := testutil.CreateFee(t, inmemdb.NewFeeRepository(fix.db), fix.st.ID, "2026-06", fee.StatusPending, 15000, time.Now().AddDate(0, 1, 0))

	f, err := fix.svc.Waive(ctx, f.ID, "admin-1")
	if err != nil {
		t.Fatalf("Waive() failed: %v", err)
	}
	if f.Status != fee.StatusWaived {
		t.Errorf("Status = %q; want %q", f.Status, fee.StatusWaived)
	}
	if _, err = fix.svc.Waive(ctx, f.ID, "admin-1"); err != fee.ErrInvalidTransition {
		t.Errorf("Waive() twice error = %v; want %v", err, fee.ErrInvalidTransition)
	}
}

func TestService_GenerateMonthly(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()

	profRepo := inmemdb.NewProfileRepository(fix.db)
	stRepo := inmemdb.NewStudentRepository(fix.db)
	prof2 := testutil.CreateProfile(t, profRepo, "", "kid2@test.cantera", profile.RoleStudent, true)
	testutil.CreateStudent(t, stRepo, prof2.ID, "Juan", "Base", "sub-14")

	due := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	created, err := fix.svc.GenerateMonthly(ctx, "2026-07", 0, due)
	if err != nil {
		t.Fatalf("GenerateMonthly() failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d; want 2", created)
	}

	// amount defaulted from config
	fees, err := fix.svc.Query(ctx, &fee.QueryFilter{Period: "2026-07"}, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	for _, f := range fees {
		if f.Amount != core.Conf.Fees.DefaultAmount {
			t.Errorf("Amount = %d; want %d", f.Amount, core.Conf.Fees.DefaultAmount)
		}
	}

	// re-run skips existing fees
	created, err = fix.svc.GenerateMonthly(ctx, "2026-07", 0, due)
	if err != nil {
		t.Fatalf("GenerateMonthly() re-run failed: %v", err)
	}
	if created != 0 {
		t.Errorf("re-run created = %d; want 0", created)
	}
}

func TestService_SendReminder(t *testing.T) {
	fix := setupFee(t)
	ctx := context.Background()
	feeRepo := inmemdb.NewFeeRepository(fix.db)

	pending := testutil.CreateFee(t, feeRepo, fix.st.ID, "2026-08", fee.StatusPending, 15000, time.Now().AddDate(0, 1, 0))
	paid := testutil.CreateFee(t, feeRepo, fix.st.ID, "2026-09", fee.StatusPaid, 15000, time.Now().AddDate(0, 2, 0))

	if err := fix.svc.SendReminder(ctx, pending.ID); err != nil {
		t.Fatalf("SendReminder() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent emails = %d; want 1", len(emailsvc.SentMessages))
	}
	if len(whatsappsvc.SentTexts) != 1 {
		t.Errorf("sent texts = %d; want 1", len(whatsappsvc.SentTexts))
	}

	if err := fix.svc.SendReminder(ctx, paid.ID); err != fee.ErrInvalidTransition {
		t.Errorf("SendReminder() on paid error = %v; want %v", err, fee.ErrInvalidTransition)
	}
}

func TestFee_EffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		f    fee.Fee
		want string
	}{
		{name: "pending before due", f: fee.Fee{Status: fee.StatusPending, DueDate: now.AddDate(0, 0, 1)}, want: fee.StatusPending},
		{name: "pending past due", f: fee.Fee{Status: fee.StatusPending, DueDate: now.AddDate(0, 0, -1)}, want: fee.StatusOverdue},
		{name: "paid past due", f: fee.Fee{Status: fee.StatusPaid, DueDate: now.AddDate(0, 0, -1)}, want: fee.StatusPaid},
		{name: "awaiting approval past due", f: fee.Fee{Status: fee.StatusPendingApproval, DueDate: now.AddDate(0, 0, -1)}, want: fee.StatusPendingApproval},
		{name: "no due date", f: fee.Fee{Status: fee.StatusPending}, want: fee.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus() = %q; want %q", got, tt.want)
			}
		})
	}
}
