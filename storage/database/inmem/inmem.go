// Package inmem implements the domain repositories in memory.
// Tables are slices kept in insertion order; every table has its own lock.
package inmem

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
	"github.com/trezcool/council/storage/database"
)

type (
	DB struct {
		accounts      *accountTable
		profiles      *profileTable
		announcements *announcementTable
		polls         *pollTable
		ideas         *ideaTable
		events        *eventTable
		bluten        *blutenTable
		actionLogs    *actionLogTable
	}

	accountTable struct {
		sync.RWMutex
		rows []*account.Account
	}

	profileTable struct {
		sync.RWMutex
		rows []*profile.Profile
	}

	announcementTable struct {
		sync.RWMutex
		rows []*announcement.Announcement
	}

	pollTable struct {
		sync.RWMutex
		polls   []*poll.Poll
		options []*poll.Option
		votes   []*poll.Vote
	}

	ideaTable struct {
		sync.RWMutex
		ideas    []*idea.Idea
		likes    map[string]map[string]bool // {idea_id: {profile_id: true}}
		comments []*idea.Comment
	}

	eventTable struct {
		sync.RWMutex
		events []*event.Event
		apps   []*event.Application
	}

	blutenTable struct {
		sync.RWMutex
		rows []*bluten.Post
	}

	actionLogTable struct {
		sync.RWMutex
		rows []*actionlog.Entry
	}
)

func Open() *DB {
	return &DB{
		accounts:      &accountTable{},
		profiles:      &profileTable{},
		announcements: &announcementTable{},
		polls:         &pollTable{},
		ideas:         &ideaTable{likes: make(map[string]map[string]bool)},
		events:        &eventTable{},
		bluten:        &blutenTable{},
		actionLogs:    &actionLogTable{},
	}
}

// NewRepositories returns all repositories backed by db.
func NewRepositories(db *DB) database.Repositories {
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

func newID() string {
	return uuid.New().String()
}
