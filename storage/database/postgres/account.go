package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core/account"
)

type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toAccountRow(acc account.Account) accountRow {
	return accountRow{
		ID:           acc.ID,
		Email:        acc.Email,
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (row accountRow) account() account.Account {
	return account.Account{
		ID:           row.ID,
		Email:        row.Email,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	q := "SELECT EXISTS(SELECT 1 FROM account WHERE email = $1 AND NOT (id::text = ANY($2)))"
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc.ID = newID()
	q := `INSERT INTO account (id, email, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :email, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toAccountRow(acc)); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var (
		row accountRow
		err error
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return account.Account{}, account.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM account WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM account WHERE email = $1", filter.Email)
	default:
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "finding account")
	}
	return row.account(), nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := `UPDATE account SET email = :email, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toAccountRow(acc))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if err = checkAffected(res, account.ErrNotFound); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}
