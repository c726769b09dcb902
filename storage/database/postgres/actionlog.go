package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/actionlog"
)

type actionLogRepository struct {
	db *sqlx.DB
}

var _ actionlog.Repository = (*actionLogRepository)(nil) // interface compliance check

func NewActionLogRepository(db *sqlx.DB) actionlog.Repository {
	return &actionLogRepository{db: db}
}

func (repo *actionLogRepository) CreateEntry(ctx context.Context, e actionlog.Entry) (actionlog.Entry, error) {
	e.ID = newID()
	q := `INSERT INTO action_log (id, actor_id, action, target_type, target_id, details, created_at)
		VALUES (:id, :actor_id, :action, :target_type, :target_id, :details, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return actionlog.Entry{}, errors.Wrap(err, "inserting action log entry")
	}
	return e, nil
}

func (repo *actionLogRepository) QueryEntries(ctx context.Context, filter actionlog.QueryFilter) ([]actionlog.Entry, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ActorID != "" {
		if !validID(filter.ActorID) {
			return []actionlog.Entry{}, nil
		}
		where = append(where, "actor_id = "+arg(filter.ActorID))
	}
	if filter.Action != "" {
		where = append(where, "action = "+arg(filter.Action))
	}
	if filter.TargetType != "" {
		where = append(where, "target_type = "+arg(filter.TargetType))
	}

	q := "SELECT * FROM action_log"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + arg(filter.Limit)
	}

	entries := make([]actionlog.Entry, 0)
	if err := repo.db.SelectContext(ctx, &entries, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying action log")
	}
	return entries, nil
}
