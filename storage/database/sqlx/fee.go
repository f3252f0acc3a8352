package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/fee"
)

type feeRow struct {
	ID              string      `db:"id"`
	StudentID       string      `db:"student_id"`
	Amount          int64       `db:"amount"`
	Currency        string      `db:"currency"`
	Period          string      `db:"period"`
	DueDate         time.Time   `db:"due_date"`
	Status          string      `db:"status"`
	PaymentDate     null.Time   `db:"payment_date"`
	ProofRef        string      `db:"payment_proof_url"`
	ProofFilename   string      `db:"payment_proof_filename"`
	ReceiptNumber   string      `db:"receipt_number"`
	RejectionReason string      `db:"rejection_reason"`
	ApprovedBy      null.String `db:"approved_by"`
	ApprovedAt      null.Time   `db:"approved_at"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo feeRepository) pack(f fee.Fee) feeRow {
	return feeRow{
		ID:              f.ID,
		StudentID:       f.StudentID,
		Amount:          f.Amount,
		Currency:        f.Currency,
		Period:          f.Period,
		DueDate:         f.DueDate.UTC(),
		Status:          f.Status,
		PaymentDate:     null.NewTime(f.PaymentDate.UTC(), !f.PaymentDate.IsZero()),
		ProofRef:        f.ProofRef,
		ProofFilename:   f.ProofFilename,
		ReceiptNumber:   f.ReceiptNumber,
		RejectionReason: f.RejectionReason,
		ApprovedBy:      null.NewString(f.ApprovedBy, f.ApprovedBy != ""),
		ApprovedAt:      null.NewTime(f.ApprovedAt.UTC(), !f.ApprovedAt.IsZero()),
		CreatedAt:       f.CreatedAt.UTC(),
		UpdatedAt:       f.UpdatedAt.UTC(),
	}
}

func (repo feeRepository) unpack(row feeRow) fee.Fee {
	return fee.Fee{
		ID:              row.ID,
		StudentID:       row.StudentID,
		Amount:          row.Amount,
		Currency:        strings.TrimRight(row.Currency, " "),
		Period:          row.Period,
		DueDate:         row.DueDate,
		Status:          row.Status,
		PaymentDate:     row.PaymentDate.Time,
		ProofRef:        row.ProofRef,
		ProofFilename:   row.ProofFilename,
		ReceiptNumber:   row.ReceiptNumber,
		RejectionReason: row.RejectionReason,
		ApprovedBy:      row.ApprovedBy.String,
		ApprovedAt:      row.ApprovedAt.Time,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (repo feeRepository) unpackSlice(rows []feeRow) []fee.Fee {
	fees := make([]fee.Fee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, repo.unpack(row))
	}
	return fees
}

// trapNoRowsErr maps psql "no rows" err to fee.ErrNotFound
func (repo feeRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fee.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo feeRepository) CreateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	f.ID = uuid.New().String()
	row := repo.pack(f)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO fees (id, student_id, amount, currency, period, due_date, status, payment_date,
		                  payment_proof_url, payment_proof_filename, receipt_number, rejection_reason,
		                  approved_by, approved_at, created_at, updated_at)
		VALUES (:id, :student_id, :amount, :currency, :period, :due_date, :status, :payment_date,
		        :payment_proof_url, :payment_proof_filename, :receipt_number, :rejection_reason,
		        :approved_by, :approved_at, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fee.Fee{}, fee.ErrDuplicateFee
		}
		return fee.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return repo.unpack(row), nil
}

func (repo feeRepository) GetFeeByID(ctx context.Context, id string) (fee.Fee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return fee.Fee{}, fee.ErrNotFound
	}
	var row feeRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM fees WHERE id = $1", id); err != nil {
		return fee.Fee{}, repo.trapNoRowsErr(err, "finding fee by ID")
	}
	return repo.unpack(row), nil
}

func (repo feeRepository) QueryFees(ctx context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering) ([]fee.Fee, error) {
	query := "SELECT * FROM fees"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			conds = append(conds, "student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.Period != "" {
			conds = append(conds, "period = ?")
			args = append(args, filter.Period)
		}
		if filter.Status != "" {
			conds = append(conds, "status = ?")
			args = append(args, filter.Status)
		}
		if !filter.DueFrom.IsZero() {
			conds = append(conds, "due_date >= ?")
			args = append(args, filter.DueFrom.UTC())
		}
		if !filter.DueTo.IsZero() {
			conds = append(conds, "due_date <= ?")
			args = append(args, filter.DueTo.UTC())
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "due_date DESC")

	var rows []feeRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	return repo.unpackSlice(rows), nil
}

func (repo feeRepository) TransitionFee(ctx context.Context, f fee.Fee, from string) (fee.Fee, error) {
	row := repo.pack(f)
	res, err := repo.db.ExecContext(ctx, `
		UPDATE fees SET status = $1, payment_date = $2, payment_proof_url = $3, payment_proof_filename = $4,
		       receipt_number = $5, rejection_reason = $6, approved_by = $7, approved_at = $8, updated_at = $9
		WHERE id = $10 AND status = $11`,
		row.Status, row.PaymentDate, row.ProofRef, row.ProofFilename,
		row.ReceiptNumber, row.RejectionReason, row.ApprovedBy, row.ApprovedAt, row.UpdatedAt,
		row.ID, from)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "transitioning fee")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "transitioning fee")
	}
	if n == 0 {
		// the row either moved on from `from` or does not exist
		if _, err = repo.GetFeeByID(ctx, f.ID); err != nil {
			return fee.Fee{}, err
		}
		return fee.Fee{}, fee.ErrInvalidTransition
	}
	return repo.unpack(row), nil
}

func (repo feeRepository) DeleteFeesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In("DELETE FROM fees WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting fees")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting fees")
	}
	return nil
}
