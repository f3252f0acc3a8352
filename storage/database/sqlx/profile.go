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
	"github.com/canteraproject/cantera/core/profile"
)

type profileRow struct {
	ID          string      `db:"id"`
	AuthID      null.String `db:"auth_id"`
	Email       string      `db:"email"`
	Role        string      `db:"role"`
	Status      string      `db:"status"`
	Completed   bool        `db:"profile_completed"`
	FirstName   string      `db:"first_name"`
	LastName    string      `db:"last_name"`
	DOB         null.Time   `db:"dob"`
	Phone       string      `db:"phone"`
	ParentName  string      `db:"parent_name"`
	ParentPhone string      `db:"parent_phone"`
	ParentEmail string      `db:"parent_email"`
	Address     string      `db:"address"`
	Category    string      `db:"category"`
	Notes       string      `db:"notes"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) pack(prof profile.Profile) profileRow {
	return profileRow{
		ID:          prof.ID,
		AuthID:      null.NewString(prof.AuthID, prof.AuthID != ""),
		Email:       prof.Email,
		Role:        prof.Role,
		Status:      prof.Status,
		Completed:   prof.Completed,
		FirstName:   prof.FirstName,
		LastName:    prof.LastName,
		DOB:         null.NewTime(prof.DOB.UTC(), !prof.DOB.IsZero()),
		Phone:       prof.Phone,
		ParentName:  prof.ParentName,
		ParentPhone: prof.ParentPhone,
		ParentEmail: prof.ParentEmail,
		Address:     prof.Address,
		Category:    prof.Category,
		Notes:       prof.Notes,
		CreatedAt:   prof.CreatedAt.UTC(),
		UpdatedAt:   prof.UpdatedAt.UTC(),
	}
}

func (repo profileRepository) unpack(row profileRow) profile.Profile {
	return profile.Profile{
		ID:          row.ID,
		AuthID:      row.AuthID.String,
		Email:       row.Email,
		Role:        row.Role,
		Status:      row.Status,
		Completed:   row.Completed,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		DOB:         row.DOB.Time,
		Phone:       row.Phone,
		ParentName:  row.ParentName,
		ParentPhone: row.ParentPhone,
		ParentEmail: row.ParentEmail,
		Address:     row.Address,
		Category:    row.Category,
		Notes:       row.Notes,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo profileRepository) unpackSlice(rows []profileRow) []profile.Profile {
	profs := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, repo.unpack(row))
	}
	return profs
}

// trapNoRowsErr maps psql "no rows" err to profile.ErrNotFound
func (repo profileRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return profile.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo profileRepository) CreateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	prof.ID = uuid.New().String()
	row := repo.pack(prof)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO users (id, auth_id, email, role, status, profile_completed, first_name, last_name, dob,
		                   phone, parent_name, parent_phone, parent_email, address, category, notes, created_at, updated_at)
		VALUES (:id, :auth_id, :email, :role, :status, :profile_completed, :first_name, :last_name, :dob,
		        :phone, :parent_name, :parent_phone, :parent_email, :address, :category, :notes, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return repo.unpack(row), nil
}

func (repo profileRepository) GetProfileByID(ctx context.Context, id string) (profile.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return profile.Profile{}, profile.ErrNotFound
	}
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return profile.Profile{}, repo.trapNoRowsErr(err, "finding profile by ID")
	}
	return repo.unpack(row), nil
}

func (repo profileRepository) GetProfileByAuthID(ctx context.Context, authID string) (profile.Profile, error) {
	if _, err := uuid.Parse(authID); err != nil {
		return profile.Profile{}, profile.ErrNotFound
	}
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM users WHERE auth_id = $1", authID); err != nil {
		return profile.Profile{}, repo.trapNoRowsErr(err, "finding profile by auth ID")
	}
	return repo.unpack(row), nil
}

func (repo profileRepository) GetProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM users WHERE email = $1", email); err != nil {
		return profile.Profile{}, repo.trapNoRowsErr(err, "finding profile by email")
	}
	return repo.unpack(row), nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, ordering []core.DBOrdering) ([]profile.Profile, error) {
	query := "SELECT * FROM users"
	var conds []string
	var args []interface{}

	if filter != nil {
		// profiles with a name or email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)")
			args = append(args, val, val, val)
		}
		if filter.Role != "" {
			conds = append(conds, "role = ?")
			args = append(args, filter.Role)
		}
		if filter.Status != "" {
			conds = append(conds, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.Category != "" {
			conds = append(conds, "category = ?")
			args = append(args, filter.Category)
		}
		if filter.Completed != nil {
			conds = append(conds, "profile_completed = ?")
			args = append(args, *filter.Completed)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "created_at DESC")

	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return repo.unpackSlice(rows), nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile, completed *bool) (profile.Profile, error) {
	if completed != nil {
		prof.Completed = *completed
	} else {
		// preserve the stored flag
		orig, err := repo.GetProfileByID(ctx, prof.ID)
		if err != nil {
			return profile.Profile{}, err
		}
		prof.Completed = orig.Completed
	}

	row := repo.pack(prof)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE users SET auth_id = :auth_id, email = :email, role = :role, status = :status,
		       profile_completed = :profile_completed, first_name = :first_name, last_name = :last_name,
		       dob = :dob, phone = :phone, parent_name = :parent_name, parent_phone = :parent_phone,
		       parent_email = :parent_email, address = :address, category = :category, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo profileRepository) DeleteProfilesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return nil
}

// orderBy renders an ORDER BY clause, falling back to a default ordering.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		if dflt == "" {
			return ""
		}
		return " ORDER BY " + dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
