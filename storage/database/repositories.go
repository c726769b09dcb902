package database

import (
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
)

// Repositories groups the repositories of one storage backend.
type Repositories struct {
	Accounts      account.Repository
	Profiles      profile.Repository
	Announcements announcement.Repository
	Polls         poll.Repository
	Ideas         idea.Repository
	Events        event.Repository
	Bluten        bluten.Repository
	ActionLogs    actionlog.Repository
}
