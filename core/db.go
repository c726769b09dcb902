package core

import (
	"context"
	"database/sql"
	"strings"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in `allowed`, so user input never reaches SQL as-is.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	clean := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		field := strings.ToLower(ord.Field)
		for _, a := range allowed {
			if field == a {
				clean = append(clean, DBOrdering{Field: field, Ascending: ord.Ascending})
				break
			}
		}
	}
	return clean
}
