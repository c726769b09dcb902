package poll

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
)

type Poll struct {
	ID         string    `json:"id" db:"id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	Question   string    `json:"question" db:"question"`
	IsOpen     bool      `json:"is_open" db:"is_open"`
	ClosesAt   null.Time `json:"closes_at" db:"closes_at"`   // UTC
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	Options    []Option  `json:"options" db:"-"`
	TotalVotes int       `json:"total_votes" db:"-"`
	// MyVote is the option the viewer voted for.
	MyVote null.String `json:"my_vote" db:"-"`
}

// AcceptsVotes reports whether votes can be cast at t.
func (p Poll) AcceptsVotes(t time.Time) bool {
	if !p.IsOpen {
		return false
	}
	return !p.ClosesAt.Valid || t.Before(p.ClosesAt.Time)
}

func (p Poll) hasOption(id string) bool {
	for _, o := range p.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

type Option struct {
	ID       string `json:"id" db:"id"`
	PollID   string `json:"poll_id" db:"poll_id"`
	Label    string `json:"label" db:"label"`
	Position int    `json:"position" db:"position"`
	Votes    int    `json:"votes" db:"votes"`
}

type Vote struct {
	PollID    string    `json:"poll_id" db:"poll_id"`
	ProfileID string    `json:"profile_id" db:"profile_id"`
	OptionID  string    `json:"option_id" db:"option_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewPoll contains information needed to create a new Poll.
type NewPoll struct {
	Question string     `json:"question" validate:"required,notblank,max=300"`
	Options  []string   `json:"options" validate:"required,min=2,max=20,dive,required,notblank,max=200"`
	ClosesAt *time.Time `json:"closes_at"`
}

func (np *NewPoll) Validate(validate *validator.Validate) error {
	np.Question = core.CleanString(np.Question)
	for i := range np.Options {
		np.Options[i] = core.CleanString(np.Options[i])
	}
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.ClosesAt != nil && !np.ClosesAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "closes_at", Error: "must be in the future"})
	}
	return nil
}

type CastVote struct {
	OptionID string `json:"option_id" validate:"required"`
}

func (cv *CastVote) Validate(validate *validator.Validate) error {
	cv.OptionID = core.CleanString(cv.OptionID)
	return validate.Struct(cv)
}

type SetOpen struct {
	IsOpen *bool `json:"is_open" validate:"required"`
}

func (so *SetOpen) Validate(validate *validator.Validate) error { return validate.Struct(so) }
