package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/event"
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = newID()
	q := `INSERT INTO event (id, title, description, location, starts_at, application_deadline, capacity, is_open, created_at)
		VALUES (:id, :title, :description, :location, :starts_at, :application_deadline, :capacity, :is_open, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var e event.Event
	if err := repo.db.GetContext(ctx, &e, "SELECT * FROM event WHERE id = $1", id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return e, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, now time.Time) ([]event.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Upcoming {
		args = append(args, now)
		where = append(where, "starts_at > $"+strconv.Itoa(len(args)))
	}
	if filter.OpenOnly {
		where = append(where, "is_open")
	}

	q := "SELECT * FROM event"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY starts_at"

	events := make([]event.Event, 0)
	if err := repo.db.SelectContext(ctx, &events, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	q := `UPDATE event SET title = :title, description = :description, location = :location, starts_at = :starts_at,
		application_deadline = :application_deadline, capacity = :capacity, is_open = :is_open
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, e)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	if !validID(id) {
		return event.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM event WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return checkAffected(res, event.ErrNotFound)
}

func (repo *eventRepository) CreateApplication(ctx context.Context, a event.Application) (event.Application, error) {
	a.ID = newID()
	q := `INSERT INTO event_application (id, event_id, profile_id, motivation, status, created_at, updated_at)
		VALUES (:id, :event_id, :profile_id, :motivation, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, a); err != nil {
		if isUniqueViolation(err) {
			return event.Application{}, event.ErrAlreadyApplied
		}
		return event.Application{}, errors.Wrap(err, "inserting application")
	}
	return a, nil
}

func (repo *eventRepository) GetApplication(ctx context.Context, id string) (event.Application, error) {
	if !validID(id) {
		return event.Application{}, event.ErrApplicationNotFound
	}
	var a event.Application
	if err := repo.db.GetContext(ctx, &a, "SELECT * FROM event_application WHERE id = $1", id); err != nil {
		return event.Application{}, trapNoRowsErr(err, event.ErrApplicationNotFound, "finding application")
	}
	return a, nil
}

func (repo *eventRepository) QueryApplications(ctx context.Context, filter event.ApplicationFilter) ([]event.Application, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.EventID != "" {
		where = append(where, "event_id::text = "+arg(filter.EventID))
	}
	if filter.ProfileID != "" {
		where = append(where, "profile_id::text = "+arg(filter.ProfileID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}

	q := "SELECT * FROM event_application"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	apps := make([]event.Application, 0)
	if err := repo.db.SelectContext(ctx, &apps, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	return apps, nil
}

func (repo *eventRepository) UpdateApplication(ctx context.Context, a event.Application) (event.Application, error) {
	q := "UPDATE event_application SET motivation = :motivation, status = :status, updated_at = :updated_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return event.Application{}, errors.Wrap(err, "updating application")
	}
	if err = checkAffected(res, event.ErrApplicationNotFound); err != nil {
		return event.Application{}, err
	}
	return a, nil
}
