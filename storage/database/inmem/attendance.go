package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/canteraproject/cantera/core/attendance"
)

type attendanceKey struct {
	studentID string
	date      time.Time
}

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, rec := range records {
		rec := rec
		repo.db.table[attendanceKey{rec.StudentID, rec.Date}] = &rec
	}
	return nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []attendance.Record
	for _, rec := range repo.db.table {
		if matchRecord(*rec, filter) {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].StudentID < records[j].StudentID
	})
	return records, nil
}

func matchRecord(rec attendance.Record, filter *attendance.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != "" && rec.StudentID != filter.StudentID {
		return false
	}
	if !filter.Date.IsZero() && !rec.Date.Equal(filter.Date) {
		return false
	}
	if !filter.From.IsZero() && rec.Date.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.Date.After(filter.To) {
		return false
	}
	return true
}
