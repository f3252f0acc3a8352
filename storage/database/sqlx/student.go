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
	"github.com/canteraproject/cantera/core/student"
)

type studentRow struct {
	ID             string    `db:"id"`
	ProfileID      string    `db:"user_id"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	DOB            null.Time `db:"dob"`
	Category       string    `db:"category"`
	PaymentStatus  string    `db:"payment_status"`
	Phone          string    `db:"phone"`
	ParentName     string    `db:"parent_name"`
	ParentPhone    string    `db:"parent_phone"`
	ParentEmail    string    `db:"parent_email"`
	Address        string    `db:"address"`
	Notes          string    `db:"notes"`
	EnrollmentDate null.Time `db:"enrollment_date"`
	QRCode         string    `db:"qr_code"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) pack(st student.Student) studentRow {
	return studentRow{
		ID:             st.ID,
		ProfileID:      st.ProfileID,
		FirstName:      st.FirstName,
		LastName:       st.LastName,
		DOB:            null.NewTime(st.DOB.UTC(), !st.DOB.IsZero()),
		Category:       st.Category,
		PaymentStatus:  st.PaymentStatus,
		Phone:          st.Phone,
		ParentName:     st.ParentName,
		ParentPhone:    st.ParentPhone,
		ParentEmail:    st.ParentEmail,
		Address:        st.Address,
		Notes:          st.Notes,
		EnrollmentDate: null.NewTime(st.EnrollmentDate.UTC(), !st.EnrollmentDate.IsZero()),
		QRCode:         st.QRCode,
		CreatedAt:      st.CreatedAt.UTC(),
		UpdatedAt:      st.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) unpack(row studentRow) student.Student {
	return student.Student{
		ID:             row.ID,
		ProfileID:      row.ProfileID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		DOB:            row.DOB.Time,
		Category:       row.Category,
		PaymentStatus:  row.PaymentStatus,
		Phone:          row.Phone,
		ParentName:     row.ParentName,
		ParentPhone:    row.ParentPhone,
		ParentEmail:    row.ParentEmail,
		Address:        row.Address,
		Notes:          row.Notes,
		EnrollmentDate: row.EnrollmentDate.Time,
		QRCode:         row.QRCode,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (repo studentRepository) unpackSlice(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unpack(row))
	}
	return students
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.New().String()
	row := repo.pack(st)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO students (id, user_id, first_name, last_name, dob, category, payment_status, phone,
		                      parent_name, parent_phone, parent_email, address, notes, enrollment_date,
		                      qr_code, created_at, updated_at)
		VALUES (:id, :user_id, :first_name, :last_name, :dob, :category, :payment_status, :phone,
		        :parent_name, :parent_phone, :parent_email, :address, :notes, :enrollment_date,
		        :qr_code, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM students WHERE id = $1", id); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "finding student by ID")
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) GetStudentByProfileID(ctx context.Context, profileID string) (student.Student, error) {
	if _, err := uuid.Parse(profileID); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM students WHERE user_id = $1", profileID); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "finding student by profile ID")
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	query := "SELECT * FROM students"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(first_name ILIKE ? OR last_name ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.Category != "" {
			conds = append(conds, "category = ?")
			args = append(args, filter.Category)
		}
		if filter.PaymentStatus != "" {
			conds = append(conds, "payment_status = ?")
			args = append(args, filter.PaymentStatus)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "last_name ASC, first_name ASC")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.unpackSlice(rows), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	row := repo.pack(st)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE students SET first_name = :first_name, last_name = :last_name, dob = :dob,
		       category = :category, payment_status = :payment_status, phone = :phone,
		       parent_name = :parent_name, parent_phone = :parent_phone, parent_email = :parent_email,
		       address = :address, notes = :notes, enrollment_date = :enrollment_date,
		       qr_code = :qr_code, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In("DELETE FROM students WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting students")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
