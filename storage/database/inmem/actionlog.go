package inmem

import (
	"context"

	"github.com/trezcool/council/core/actionlog"
)

type actionLogRepository struct {
	db *actionLogTable
}

var _ actionlog.Repository = (*actionLogRepository)(nil) // interface compliance check

func NewActionLogRepository(db *DB) actionlog.Repository {
	return &actionLogRepository{db: db.actionLogs}
}

func (repo *actionLogRepository) CreateEntry(_ context.Context, e actionlog.Entry) (actionlog.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = newID()
	repo.db.rows = append(repo.db.rows, &e)
	return e, nil
}

func (repo *actionLogRepository) QueryEntries(_ context.Context, filter actionlog.QueryFilter) ([]actionlog.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]actionlog.Entry, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- { // newest first
		e := repo.db.rows[i]
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		entries = append(entries, *e)
		if filter.Limit > 0 && len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}
