package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/canteraproject/cantera/core/account"
)

// uniqueViolation is the psql error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type accountRow struct {
	ID             string           `db:"id"`
	Email          string           `db:"email"`
	PasswordHash   []byte           `db:"password_hash"`
	Metadata       account.Metadata `db:"metadata"`
	EmailConfirmed bool             `db:"email_confirmed"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
	LastLogin      null.Time        `db:"last_login"`
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo accountRepository) pack(acct account.Account) accountRow {
	return accountRow{
		ID:             acct.ID,
		Email:          acct.Email,
		PasswordHash:   acct.PasswordHash,
		Metadata:       acct.Metadata,
		EmailConfirmed: acct.EmailConfirmed,
		CreatedAt:      acct.CreatedAt.UTC(),
		UpdatedAt:      acct.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(acct.LastLogin.UTC(), !acct.LastLogin.IsZero()),
	}
}

func (repo accountRepository) unpack(row accountRow) account.Account {
	return account.Account{
		ID:             row.ID,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		Metadata:       row.Metadata,
		EmailConfirmed: row.EmailConfirmed,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		LastLogin:      row.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.ID = uuid.New().String()
	row := repo.pack(acct)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, metadata, email_confirmed, created_at, updated_at, last_login)
		VALUES (:id, :email, :password_hash, :metadata, :email_confirmed, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrDuplicateAccount
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return repo.unpack(row), nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Account{}, account.ErrNotFound
	}
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM accounts WHERE id = $1", id); err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by ID")
	}
	return repo.unpack(row), nil
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM accounts WHERE email = $1", email); err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by email")
	}
	return repo.unpack(row), nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	row := repo.pack(acct)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE accounts
		SET email = :email, password_hash = :password_hash, metadata = :metadata,
			email_confirmed = :email_confirmed, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrDuplicateAccount
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo accountRepository) SetLastLogin(ctx context.Context, acct account.Account) (account.Account, error) {
	row := repo.pack(acct)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE accounts SET last_login = :last_login, updated_at = :updated_at WHERE id = :id`, row)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account last login")
	}
	return repo.unpack(row), nil
}

func (repo accountRepository) DeleteAccount(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return nil
}
