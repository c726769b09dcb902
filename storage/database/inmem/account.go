package inmem

import (
	"context"

	"github.com/trezcool/council/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.accounts}
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.rows {
		if acc.Email == email && !isExcluded(acc.ID, excludedIDs) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.rows {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acc.ID = newID()
	repo.db.rows = append(repo.db.rows, &acc)
	return acc, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID == "" && filter.Email == "" {
		return account.Account{}, account.ErrNotFound
	}
	for _, acc := range repo.db.rows {
		if (filter.ID != "" && acc.ID == filter.ID) || (filter.ID == "" && acc.Email == filter.Email) {
			return *acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, a := range repo.db.rows {
		if a.ID == acc.ID {
			repo.db.rows[i] = &acc
			return acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, ex := range excludedIDs {
		if ex == id {
			return true
		}
	}
	return false
}
