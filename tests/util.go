package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

// LoggerMock records logged messages instead of printing them.
type LoggerMock struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

func NewLoggerMock() *LoggerMock {
	return &LoggerMock{}
}

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the logged entries of level (all entries if level is empty).
func (l *LoggerMock) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			res = append(res, e)
		}
	}
	return res
}

func CreateAccount(t *testing.T, repo account.Repository, email, pwd string, isActive bool) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acc := account.Account{
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateProfile(t *testing.T, repo profile.Repository, id, name, role string, class ...string) profile.Profile {
	t.Helper()
	now := time.Now().UTC()
	p := profile.Profile{
		ID:        id,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(class) > 0 {
		p.Class = null.StringFrom(class[0])
	}
	p, err := repo.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

// CreateMember creates an active account with its profile.
func CreateMember(t *testing.T, accounts account.Repository, profiles profile.Repository, name, email, pwd, role string) (account.Account, profile.Profile) {
	t.Helper()
	acc := CreateAccount(t, accounts, email, pwd, true)
	return acc, CreateProfile(t, profiles, acc.ID, name, role)
}
