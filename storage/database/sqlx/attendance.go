package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/attendance"
)

type attendanceRow struct {
	StudentID string    `db:"student_id"`
	Date      time.Time `db:"date"`
	Present   bool      `db:"present"`
	Notes     string    `db:"notes"`
	UpdatedAt time.Time `db:"updated_at"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) pack(rec attendance.Record) attendanceRow {
	return attendanceRow{
		StudentID: rec.StudentID,
		Date:      rec.Date.UTC(),
		Present:   rec.Present,
		Notes:     rec.Notes,
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) unpack(row attendanceRow) attendance.Record {
	return attendance.Record{
		StudentID: row.StudentID,
		Date:      row.Date,
		Present:   row.Present,
		Notes:     row.Notes,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record) error {
	for _, rec := range records {
		row := repo.pack(rec)
		_, err := repo.db.NamedExecContext(ctx, `
			INSERT INTO attendance (student_id, date, present, notes, updated_at)
			VALUES (:student_id, :date, :present, :notes, :updated_at)
			ON CONFLICT (student_id, date)
			DO UPDATE SET present = EXCLUDED.present, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`, row)
		if err != nil {
			return errors.Wrap(err, "upserting attendance record")
		}
	}
	return nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Record, error) {
	query := "SELECT * FROM attendance"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			conds = append(conds, "student_id = ?")
			args = append(args, filter.StudentID)
		}
		if !filter.Date.IsZero() {
			conds = append(conds, "date = ?")
			args = append(args, filter.Date.UTC())
		}
		if !filter.From.IsZero() {
			conds = append(conds, "date >= ?")
			args = append(args, filter.From.UTC())
		}
		if !filter.To.IsZero() {
			conds = append(conds, "date <= ?")
			args = append(args, filter.To.UTC())
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, student_id ASC"

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unpack(row))
	}
	return records, nil
}
