package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/council/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.events}
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = newID()
	repo.db.events = append(repo.db.events, &e)
	return e, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.events {
		if e.ID == id {
			return *e, nil
		}
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter, now time.Time) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]event.Event, 0, len(repo.db.events))
	for _, e := range repo.db.events {
		if filter.Upcoming && !e.StartsAt.After(now) {
			continue
		}
		if filter.OpenOnly && !e.IsOpen {
			continue
		}
		events = append(events, *e)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.events {
		if orig.ID == e.ID {
			repo.db.events[i] = &e
			return e, nil
		}
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	found := false
	events := repo.db.events[:0]
	for _, e := range repo.db.events {
		if e.ID == id {
			found = true
			continue
		}
		events = append(events, e)
	}
	if !found {
		return event.ErrNotFound
	}
	repo.db.events = events

	apps := repo.db.apps[:0]
	for _, a := range repo.db.apps {
		if a.EventID != id {
			apps = append(apps, a)
		}
	}
	repo.db.apps = apps
	return nil
}

func (repo *eventRepository) CreateApplication(_ context.Context, a event.Application) (event.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, app := range repo.db.apps {
		if app.EventID == a.EventID && app.ProfileID == a.ProfileID {
			return event.Application{}, event.ErrAlreadyApplied
		}
	}
	a.ID = newID()
	repo.db.apps = append(repo.db.apps, &a)
	return a, nil
}

func (repo *eventRepository) GetApplication(_ context.Context, id string) (event.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.apps {
		if a.ID == id {
			return *a, nil
		}
	}
	return event.Application{}, event.ErrApplicationNotFound
}

func (repo *eventRepository) QueryApplications(_ context.Context, filter event.ApplicationFilter) ([]event.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	apps := make([]event.Application, 0)
	for _, a := range repo.db.apps {
		if filter.EventID != "" && a.EventID != filter.EventID {
			continue
		}
		if filter.ProfileID != "" && a.ProfileID != filter.ProfileID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		apps = append(apps, *a)
	}
	return apps, nil
}

func (repo *eventRepository) UpdateApplication(_ context.Context, a event.Application) (event.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.apps {
		if orig.ID == a.ID {
			repo.db.apps[i] = &a
			return a, nil
		}
	}
	return event.Application{}, event.ErrApplicationNotFound
}
