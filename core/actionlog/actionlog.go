// Package actionlog keeps the audit trail of moderation actions.
package actionlog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
)

// Actions
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionOpen       = "open"
	ActionClose      = "close"
	ActionPublish    = "publish"
	ActionUnpublish  = "unpublish"
	ActionSetRole    = "set_role"
	ActionSetStatus  = "set_status"
	ActionDeactivate = "deactivate"
	ActionReactivate = "reactivate"
)

type Entry struct {
	ID         string    `json:"id" db:"id"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	Action     string    `json:"action" db:"action"`
	TargetType string    `json:"target_type" db:"target_type"`
	TargetID   string    `json:"target_id" db:"target_id"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
}

type QueryFilter struct {
	ActorID    string `query:"actor_id"`
	Action     string `query:"action"`
	TargetType string `query:"target_type"`
	Limit      int    `query:"limit"`
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		// QueryEntries returns entries matching all set filter fields, newest first.
		QueryEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
	}

	// Recorder records moderation actions.
	Recorder interface {
		Record(ctx context.Context, actorID, action, targetType, targetID, details string)
	}

	Service interface {
		Recorder
		Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// Record stores an entry. Failures are logged, they never fail the recorded action.
func (svc *service) Record(ctx context.Context, actorID, action, targetType, targetID, details string) {
	_, err := svc.repo.CreateEntry(ctx, Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		svc.logger.Error("recording action", errors.Wrapf(err, "%s %s %s", action, targetType, targetID))
	}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return svc.repo.QueryEntries(ctx, filter)
}
