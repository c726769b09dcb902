package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core/poll"
)

type pollRepository struct {
	db *sqlx.DB
}

var _ poll.Repository = (*pollRepository)(nil) // interface compliance check

func NewPollRepository(db *sqlx.DB) poll.Repository {
	return &pollRepository{db: db}
}

func (repo *pollRepository) CreatePoll(ctx context.Context, p poll.Poll) (poll.Poll, error) {
	p.ID = newID()
	for i := range p.Options {
		p.Options[i].ID = newID()
		p.Options[i].PollID = p.ID
	}

	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO poll (id, author_id, question, is_open, closes_at, created_at)
			VALUES (:id, :author_id, :question, :is_open, :closes_at, :created_at)`
		if _, err := tx.NamedExecContext(ctx, q, p); err != nil {
			return errors.Wrap(err, "inserting poll")
		}
		q = "INSERT INTO poll_option (id, poll_id, label, position) VALUES (:id, :poll_id, :label, :position)"
		for _, o := range p.Options {
			if _, err := tx.NamedExecContext(ctx, q, o); err != nil {
				return errors.Wrap(err, "inserting poll option")
			}
		}
		return nil
	})
	if err != nil {
		return poll.Poll{}, err
	}
	return p, nil
}

func (repo *pollRepository) GetPoll(ctx context.Context, id, viewerID string) (poll.Poll, error) {
	if !validID(id) {
		return poll.Poll{}, poll.ErrNotFound
	}
	var p poll.Poll
	if err := repo.db.GetContext(ctx, &p, "SELECT * FROM poll WHERE id = $1", id); err != nil {
		return poll.Poll{}, trapNoRowsErr(err, poll.ErrNotFound, "finding poll")
	}
	polls := []poll.Poll{p}
	if err := repo.fillResults(ctx, polls, viewerID); err != nil {
		return poll.Poll{}, err
	}
	return polls[0], nil
}

func (repo *pollRepository) QueryPolls(ctx context.Context, viewerID string) ([]poll.Poll, error) {
	polls := make([]poll.Poll, 0)
	if err := repo.db.SelectContext(ctx, &polls, "SELECT * FROM poll ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying polls")
	}
	if err := repo.fillResults(ctx, polls, viewerID); err != nil {
		return nil, err
	}
	return polls, nil
}

// fillResults loads the options with their vote counts, and the vote of viewerID, of all polls.
func (repo *pollRepository) fillResults(ctx context.Context, polls []poll.Poll, viewerID string) error {
	if len(polls) == 0 {
		return nil
	}
	ids := make([]string, 0, len(polls))
	idx := make(map[string]int, len(polls))
	for i, p := range polls {
		ids = append(ids, p.ID)
		idx[p.ID] = i
		polls[i].Options = make([]poll.Option, 0)
	}

	var options []poll.Option
	q := `SELECT o.id, o.poll_id, o.label, o.position, COUNT(v.option_id) AS votes
		FROM poll_option o LEFT JOIN poll_vote v ON v.option_id = o.id
		WHERE o.poll_id = ANY($1)
		GROUP BY o.id ORDER BY o.position`
	if err := repo.db.SelectContext(ctx, &options, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying poll options")
	}
	for _, o := range options {
		i := idx[o.PollID]
		polls[i].Options = append(polls[i].Options, o)
		polls[i].TotalVotes += o.Votes
	}

	if !validID(viewerID) {
		return nil
	}
	var votes []poll.Vote
	q = "SELECT * FROM poll_vote WHERE profile_id = $1 AND poll_id = ANY($2)"
	if err := repo.db.SelectContext(ctx, &votes, q, viewerID, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying viewer votes")
	}
	for _, v := range votes {
		polls[idx[v.PollID]].MyVote = null.StringFrom(v.OptionID)
	}
	return nil
}

func (repo *pollRepository) SaveVote(ctx context.Context, v poll.Vote) error {
	q := `INSERT INTO poll_vote (poll_id, profile_id, option_id, created_at)
		VALUES (:poll_id, :profile_id, :option_id, :created_at)
		ON CONFLICT (poll_id, profile_id) DO UPDATE SET option_id = EXCLUDED.option_id, created_at = EXCLUDED.created_at`
	_, err := repo.db.NamedExecContext(ctx, q, v)
	return errors.Wrap(err, "upserting vote")
}

func (repo *pollRepository) SetPollOpen(ctx context.Context, id string, open bool) error {
	if !validID(id) {
		return poll.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "UPDATE poll SET is_open = $1 WHERE id = $2", open, id)
	if err != nil {
		return errors.Wrap(err, "updating poll")
	}
	return checkAffected(res, poll.ErrNotFound)
}

func (repo *pollRepository) DeletePoll(ctx context.Context, id string) error {
	if !validID(id) {
		return poll.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM poll WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting poll")
	}
	return checkAffected(res, poll.ErrNotFound)
}
