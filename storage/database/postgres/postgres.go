// Package postgres implements the domain repositories on PostgreSQL with sqlx.
package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/storage/database"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to the repository's not found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// validID reports whether id can be compared to a UUID column without a syntax error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

// checkAffected returns notFound when res affected no rows.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// inTx runs fn in a transaction, rolled back if fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// NewRepositories returns all repositories backed by db.
func NewRepositories(db *sqlx.DB) database.Repositories {
	return database.Repositories{
		Accounts:      NewAccountRepository(db),
		Profiles:      NewProfileRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Polls:         NewPollRepository(db),
		Ideas:         NewIdeaRepository(db),
		Events:        NewEventRepository(db),
		Bluten:        NewBlutenRepository(db),
		ActionLogs:    NewActionLogRepository(db),
	}
}
