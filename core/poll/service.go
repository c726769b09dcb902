package poll

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/profile"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("poll not found")
	ErrPollClosed    = core.NewConflictError("poll is closed")
	ErrInvalidOption = core.NewValidationError(nil, core.FieldError{Field: "option_id", Error: "invalid option"})
	ErrForbidden     = core.NewPermissionError("only admins can manage polls")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreatePoll stores the poll and its options.
		CreatePoll(ctx context.Context, p Poll) (Poll, error)
		// GetPoll returns the poll with its options, vote counts and the vote of viewerID.
		GetPoll(ctx context.Context, id, viewerID string) (Poll, error)
		// QueryPolls returns all polls, newest first, like GetPoll.
		QueryPolls(ctx context.Context, viewerID string) ([]Poll, error)
		// SaveVote replaces any previous vote of the voter on the poll.
		SaveVote(ctx context.Context, v Vote) error
		SetPollOpen(ctx context.Context, id string, open bool) error
		DeletePoll(ctx context.Context, id string) error
	}

	Service interface {
		Query(ctx context.Context, viewer profile.Profile) ([]Poll, error)
		Get(ctx context.Context, viewer profile.Profile, id string) (Poll, error)
		Create(ctx context.Context, author profile.Profile, np NewPoll) (Poll, error)
		Vote(ctx context.Context, voter profile.Profile, id, optionID string) (Poll, error)
		SetOpen(ctx context.Context, actor profile.Profile, id string, open bool) (Poll, error)
		Delete(ctx context.Context, actor profile.Profile, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context, viewer profile.Profile) ([]Poll, error) {
	return svc.repo.QueryPolls(ctx, viewer.ID)
}

func (svc *service) Get(ctx context.Context, viewer profile.Profile, id string) (Poll, error) {
	return svc.repo.GetPoll(ctx, id, viewer.ID)
}

func (svc *service) Create(ctx context.Context, author profile.Profile, np NewPoll) (Poll, error) {
	if !author.IsAdmin() {
		return Poll{}, ErrForbidden
	}
	p := Poll{
		AuthorID:  author.ID,
		Question:  np.Question,
		IsOpen:    true,
		CreatedAt: nowFunc().UTC(),
		Options:   make([]Option, 0, len(np.Options)),
	}
	if np.ClosesAt != nil {
		p.ClosesAt = null.TimeFrom(np.ClosesAt.UTC())
	}
	for i, label := range np.Options {
		p.Options = append(p.Options, Option{Label: label, Position: i})
	}
	p, err := svc.repo.CreatePoll(ctx, p)
	return p, errors.Wrap(err, "creating poll")
}

// Vote casts (or replaces) the vote of voter. Closed polls reject votes with ErrPollClosed.
func (svc *service) Vote(ctx context.Context, voter profile.Profile, id, optionID string) (Poll, error) {
	p, err := svc.repo.GetPoll(ctx, id, voter.ID)
	if err != nil {
		return Poll{}, err
	}
	now := nowFunc()
	if !p.AcceptsVotes(now) {
		return Poll{}, ErrPollClosed
	}
	if !p.hasOption(optionID) {
		return Poll{}, ErrInvalidOption
	}

	v := Vote{PollID: p.ID, ProfileID: voter.ID, OptionID: optionID, CreatedAt: now.UTC()}
	if err = svc.repo.SaveVote(ctx, v); err != nil {
		return Poll{}, errors.Wrap(err, "saving vote")
	}
	p, err = svc.repo.GetPoll(ctx, id, voter.ID)
	return p, errors.Wrap(err, "refreshing poll")
}

func (svc *service) SetOpen(ctx context.Context, actor profile.Profile, id string, open bool) (Poll, error) {
	if !actor.IsAdmin() {
		return Poll{}, ErrForbidden
	}
	if err := svc.repo.SetPollOpen(ctx, id, open); err != nil {
		return Poll{}, err
	}
	p, err := svc.repo.GetPoll(ctx, id, actor.ID)
	return p, errors.Wrap(err, "refreshing poll")
}

func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return svc.repo.DeletePoll(ctx, id)
}
