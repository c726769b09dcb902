package event

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
)

// Application statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Event struct {
	ID                  string    `json:"id" db:"id"`
	Title               string    `json:"title" db:"title"`
	Description         string    `json:"description" db:"description"`
	Location            string    `json:"location" db:"location"`
	StartsAt            time.Time `json:"starts_at" db:"starts_at"`                       // UTC
	ApplicationDeadline null.Time `json:"application_deadline" db:"application_deadline"` // UTC
	// Capacity is the maximum number of accepted applications; 0 means unlimited.
	Capacity  int       `json:"capacity" db:"capacity"`
	IsOpen    bool      `json:"is_open" db:"is_open"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// AcceptsApplications reports whether applications can be submitted at t.
func (e Event) AcceptsApplications(t time.Time) bool {
	if !e.IsOpen || !t.Before(e.StartsAt) {
		return false
	}
	return !e.ApplicationDeadline.Valid || t.Before(e.ApplicationDeadline.Time)
}

type Application struct {
	ID         string    `json:"id" db:"id"`
	EventID    string    `json:"event_id" db:"event_id"`
	ProfileID  string    `json:"profile_id" db:"profile_id"`
	Motivation string    `json:"motivation" db:"motivation"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewEvent contains information needed to create an Event.
type NewEvent struct {
	Title               string     `json:"title" validate:"required,notblank,max=200"`
	Description         string     `json:"description" validate:"max=10000"`
	Location            string     `json:"location" validate:"max=200"`
	StartsAt            time.Time  `json:"starts_at" validate:"required"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
	Capacity            int        `json:"capacity" validate:"min=0"`
	IsOpen              *bool      `json:"is_open"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return validateDeadline(ne.StartsAt, ne.ApplicationDeadline)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Title               string     `json:"title" validate:"omitempty,max=200"`
	Description         *string    `json:"description" validate:"omitempty,max=10000"`
	Location            *string    `json:"location" validate:"omitempty,max=200"`
	StartsAt            *time.Time `json:"starts_at"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
	Capacity            *int       `json:"capacity" validate:"omitempty,min=0"`
	IsOpen              *bool      `json:"is_open"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	return validate.Struct(ue)
}

func validateDeadline(startsAt time.Time, deadline *time.Time) error {
	if deadline != nil && deadline.After(startsAt) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "application_deadline",
			Error: "must not be after the start of the event",
		})
	}
	return nil
}

type NewApplication struct {
	Motivation string `json:"motivation" validate:"max=2000"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.Motivation = core.CleanString(na.Motivation)
	return validate.Struct(na)
}

type SetStatus struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}

func (ss *SetStatus) Validate(validate *validator.Validate) error {
	ss.Status = core.CleanString(ss.Status, true /* lower */)
	return validate.Struct(ss)
}

type QueryFilter struct {
	// Upcoming keeps events starting after now.
	Upcoming bool `query:"upcoming"`
	OpenOnly bool `query:"open"`
}

type ApplicationFilter struct {
	EventID   string
	ProfileID string
	Status    string
}
