package inmem

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core/poll"
)

type pollRepository struct {
	db *pollTable
}

var _ poll.Repository = (*pollRepository)(nil) // interface compliance check

func NewPollRepository(db *DB) poll.Repository {
	return &pollRepository{db: db.polls}
}

func (repo *pollRepository) CreatePoll(_ context.Context, p poll.Poll) (poll.Poll, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = newID()
	options := make([]poll.Option, 0, len(p.Options))
	for _, o := range p.Options {
		o.ID = newID()
		o.PollID = p.ID
		o.Votes = 0
		opt := o
		repo.db.options = append(repo.db.options, &opt)
		options = append(options, o)
	}
	p.Options = nil
	repo.db.polls = append(repo.db.polls, &p)

	res := p
	res.Options = options
	return res, nil
}

// withResults returns a copy of p with options, vote counts and the vote of viewerID. The caller holds the lock.
func (repo *pollRepository) withResults(p poll.Poll, viewerID string) poll.Poll {
	counts := make(map[string]int)
	for _, v := range repo.db.votes {
		if v.PollID != p.ID {
			continue
		}
		counts[v.OptionID]++
		if viewerID != "" && v.ProfileID == viewerID {
			p.MyVote = null.StringFrom(v.OptionID)
		}
	}

	p.Options = make([]poll.Option, 0)
	p.TotalVotes = 0
	for _, o := range repo.db.options {
		if o.PollID == p.ID {
			opt := *o
			opt.Votes = counts[o.ID]
			p.TotalVotes += opt.Votes
			p.Options = append(p.Options, opt)
		}
	}
	return p
}

func (repo *pollRepository) GetPoll(_ context.Context, id, viewerID string) (poll.Poll, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.polls {
		if p.ID == id {
			return repo.withResults(*p, viewerID), nil
		}
	}
	return poll.Poll{}, poll.ErrNotFound
}

func (repo *pollRepository) QueryPolls(_ context.Context, viewerID string) ([]poll.Poll, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	polls := make([]poll.Poll, 0, len(repo.db.polls))
	for i := len(repo.db.polls) - 1; i >= 0; i-- { // newest first
		polls = append(polls, repo.withResults(*repo.db.polls[i], viewerID))
	}
	return polls, nil
}

func (repo *pollRepository) SaveVote(_ context.Context, v poll.Vote) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, vote := range repo.db.votes {
		if vote.PollID == v.PollID && vote.ProfileID == v.ProfileID {
			vote.OptionID = v.OptionID
			vote.CreatedAt = v.CreatedAt
			return nil
		}
	}
	repo.db.votes = append(repo.db.votes, &v)
	return nil
}

func (repo *pollRepository) SetPollOpen(_ context.Context, id string, open bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, p := range repo.db.polls {
		if p.ID == id {
			p.IsOpen = open
			return nil
		}
	}
	return poll.ErrNotFound
}

func (repo *pollRepository) DeletePoll(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	found := false
	polls := repo.db.polls[:0]
	for _, p := range repo.db.polls {
		if p.ID == id {
			found = true
			continue
		}
		polls = append(polls, p)
	}
	if !found {
		return poll.ErrNotFound
	}
	repo.db.polls = polls

	options := repo.db.options[:0]
	for _, o := range repo.db.options {
		if o.PollID != id {
			options = append(options, o)
		}
	}
	repo.db.options = options

	votes := repo.db.votes[:0]
	for _, v := range repo.db.votes {
		if v.PollID != id {
			votes = append(votes, v)
		}
	}
	repo.db.votes = votes
	return nil
}
