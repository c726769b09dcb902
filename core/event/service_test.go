package event_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/profile"
	emailsvc "github.com/trezcool/council/services/email"
	"github.com/trezcool/council/storage/database/inmem"
	"github.com/trezcool/council/tests"
)

var ctx = context.Background()

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(testutil.NewLoggerMock(), true)
	os.Exit(m.Run())
}

type testEnv struct {
	svc     event.Service
	mailSvc *emailsvc.ConsoleServiceMock
	admin   profile.Profile
	ben     profile.Profile
	carla   profile.Profile
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLoggerMock()
	repos := inmem.NewRepositories(inmem.Open())
	profileSvc := profile.NewService(repos.Profiles)

	env := &testEnv{mailSvc: emailsvc.NewConsoleServiceMock(logger, conf)}
	accountSvc := account.NewService(repos.Accounts, profileSvc, env.mailSvc, logger, conf)
	env.svc = event.NewService(repos.Events, accountSvc, profileSvc, env.mailSvc, logger)

	_, env.admin = testutil.CreateMember(t, repos.Accounts, repos.Profiles, "Anna", "anna@test.de", "", profile.RoleAdmin)
	_, env.ben = testutil.CreateMember(t, repos.Accounts, repos.Profiles, "Ben", "ben@test.de", "", profile.RoleStudent)
	_, env.carla = testutil.CreateMember(t, repos.Accounts, repos.Profiles, "Carla", "carla@test.de", "", profile.RoleStudent)
	return env
}

func (env *testEnv) create(t *testing.T, ne event.NewEvent) event.Event {
	t.Helper()
	if ne.Title == "" {
		ne.Title = "Class trip"
	}
	if ne.StartsAt.IsZero() {
		ne.StartsAt = time.Now().Add(72 * time.Hour)
	}
	e, err := env.svc.Create(ctx, env.admin, ne)
	require.NoError(t, err)
	return e
}

func TestService_Create(t *testing.T) {
	env := setup(t)

	_, err := env.svc.Create(ctx, env.ben, event.NewEvent{Title: "Party", StartsAt: time.Now().Add(time.Hour)})
	assert.Equal(t, event.ErrForbidden, err)

	e := env.create(t, event.NewEvent{})
	assert.True(t, e.IsOpen, "events are open by default")
	assert.False(t, e.ApplicationDeadline.Valid)

	closed := false
	e = env.create(t, event.NewEvent{IsOpen: &closed})
	assert.False(t, e.IsOpen)
}

func TestService_Query(t *testing.T) {
	env := setup(t)
	later := env.create(t, event.NewEvent{Title: "later", StartsAt: time.Now().Add(48 * time.Hour)})
	soon := env.create(t, event.NewEvent{Title: "soon", StartsAt: time.Now().Add(time.Hour)})
	env.create(t, event.NewEvent{Title: "past", StartsAt: time.Now().Add(-time.Hour)})

	events, err := env.svc.Query(ctx, event.QueryFilter{Upcoming: true})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, soon.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)

	events, err = env.svc.Query(ctx, event.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	e := env.create(t, event.NewEvent{})

	_, err := env.svc.Update(ctx, env.ben, e.ID, event.UpdateEvent{Title: "Mine"})
	assert.Equal(t, event.ErrForbidden, err)

	capacity, location := 20, "  Berlin "
	e, err = env.svc.Update(ctx, env.admin, e.ID, event.UpdateEvent{Capacity: &capacity, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, 20, e.Capacity)
	assert.Equal(t, "Berlin", e.Location)
	assert.Equal(t, "Class trip", e.Title)

	afterStart := e.StartsAt.Add(time.Hour)
	_, err = env.svc.Update(ctx, env.admin, e.ID, event.UpdateEvent{ApplicationDeadline: &afterStart})
	assert.Error(t, err, "the deadline must precede the start")
}

func TestService_Apply(t *testing.T) {
	env := setup(t)
	past := time.Now().Add(-time.Minute)
	closed := false

	tests := []struct {
		name    string
		event   event.NewEvent
		wantErr error
	}{
		{name: "open", event: event.NewEvent{}},
		{name: "closed", event: event.NewEvent{IsOpen: &closed}, wantErr: event.ErrClosed},
		{name: "deadline passed", event: event.NewEvent{ApplicationDeadline: &past}, wantErr: event.ErrClosed},
		{name: "started", event: event.NewEvent{StartsAt: past}, wantErr: event.ErrClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := env.create(t, tt.event)
			a, err := env.svc.Apply(ctx, env.ben, e.ID, event.NewApplication{Motivation: "Count me in"})
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, event.StatusPending, a.Status)
			assert.Equal(t, env.ben.ID, a.ProfileID)

			_, err = env.svc.Apply(ctx, env.ben, e.ID, event.NewApplication{})
			assert.Equal(t, event.ErrAlreadyApplied, err)
		})
	}

	_, err := env.svc.Apply(ctx, env.ben, "nope", event.NewApplication{})
	assert.Equal(t, event.ErrNotFound, err)
}

func TestService_SetStatus(t *testing.T) {
	env := setup(t)
	e := env.create(t, event.NewEvent{Capacity: 1})

	ben, err := env.svc.Apply(ctx, env.ben, e.ID, event.NewApplication{})
	require.NoError(t, err)
	carla, err := env.svc.Apply(ctx, env.carla, e.ID, event.NewApplication{})
	require.NoError(t, err)

	_, err = env.svc.SetStatus(ctx, env.ben, ben.ID, event.StatusAccepted)
	assert.Equal(t, event.ErrForbidden, err)

	ben, err = env.svc.SetStatus(ctx, env.admin, ben.ID, event.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, event.StatusAccepted, ben.Status)

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ben@test.de", sent[0].To[0].Address)
	assert.Equal(t, "Ben", sent[0].To[0].Name)

	t.Run("capacity reached", func(t *testing.T) {
		_, err := env.svc.SetStatus(ctx, env.admin, carla.ID, event.StatusAccepted)
		assert.Equal(t, event.ErrFull, err)

		_, err = env.svc.Apply(ctx, env.admin, e.ID, event.NewApplication{})
		assert.Equal(t, event.ErrFull, err)
	})

	t.Run("unchanged status sends nothing", func(t *testing.T) {
		env.mailSvc.Reset()
		_, err := env.svc.SetStatus(ctx, env.admin, ben.ID, event.StatusAccepted)
		require.NoError(t, err)
		assert.Empty(t, env.mailSvc.SentMessages())
	})

	t.Run("rejecting frees a seat", func(t *testing.T) {
		_, err := env.svc.SetStatus(ctx, env.admin, ben.ID, event.StatusRejected)
		require.NoError(t, err)
		carla, err := env.svc.SetStatus(ctx, env.admin, carla.ID, event.StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, event.StatusAccepted, carla.Status)
	})

	apps, err := env.svc.ListForEvent(ctx, env.admin, e.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 2)
	mine, err := env.svc.ListMine(ctx, env.carla)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, event.StatusAccepted, mine[0].Status)
}

func TestService_Delete(t *testing.T) {
	env := setup(t)
	e := env.create(t, event.NewEvent{})
	_, err := env.svc.Apply(ctx, env.ben, e.ID, event.NewApplication{})
	require.NoError(t, err)

	assert.Equal(t, event.ErrForbidden, env.svc.Delete(ctx, env.ben, e.ID))
	require.NoError(t, env.svc.Delete(ctx, env.admin, e.ID))

	mine, err := env.svc.ListMine(ctx, env.ben)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
