package event

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("event not found")
	ErrApplicationNotFound = core.NewNotFoundError("application not found")
	ErrAlreadyApplied      = core.NewConflictError("you already applied to this event")
	ErrClosed              = core.NewConflictError("event is closed for applications")
	ErrFull                = core.NewConflictError("event is full")
	ErrForbidden           = core.NewPermissionError("only admins can manage events")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		// QueryEvents returns events by start date, soonest first.
		QueryEvents(ctx context.Context, filter QueryFilter, now time.Time) ([]Event, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		// DeleteEvent also deletes its applications.
		DeleteEvent(ctx context.Context, id string) error

		// CreateApplication returns ErrAlreadyApplied if the profile already applied to the event.
		CreateApplication(ctx context.Context, a Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		// QueryApplications applies AND operation on available ApplicationFilter fields, oldest first.
		QueryApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)
		UpdateApplication(ctx context.Context, a Application) (Application, error)
	}

	// AccountGetter finds the account (and so the email address) behind a profile.
	AccountGetter interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service interface {
		Query(ctx context.Context, filter QueryFilter) ([]Event, error)
		Get(ctx context.Context, id string) (Event, error)
		Create(ctx context.Context, actor profile.Profile, ne NewEvent) (Event, error)
		Update(ctx context.Context, actor profile.Profile, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, actor profile.Profile, id string) error

		Apply(ctx context.Context, applicant profile.Profile, eventID string, na NewApplication) (Application, error)
		ListMine(ctx context.Context, applicant profile.Profile) ([]Application, error)
		ListForEvent(ctx context.Context, actor profile.Profile, eventID string) ([]Application, error)
		// SetStatus changes the status of an application and mails the applicant.
		SetStatus(ctx context.Context, actor profile.Profile, applicationID, status string) (Application, error)
	}

	service struct {
		repo     Repository
		accounts AccountGetter
		profiles profile.Service
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, accounts AccountGetter, profiles profile.Service, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:     repo,
		accounts: accounts,
		profiles: profiles,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, nowFunc().UTC())
}

func (svc *service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) Create(ctx context.Context, actor profile.Profile, ne NewEvent) (Event, error) {
	if !actor.IsAdmin() {
		return Event{}, ErrForbidden
	}
	e := Event{
		Title:       ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		Capacity:    ne.Capacity,
		IsOpen:      ne.IsOpen == nil || *ne.IsOpen,
		CreatedAt:   nowFunc().UTC(),
	}
	if ne.ApplicationDeadline != nil {
		e.ApplicationDeadline = null.TimeFrom(ne.ApplicationDeadline.UTC())
	}
	e, err := svc.repo.CreateEvent(ctx, e)
	return e, errors.Wrap(err, "creating event")
}

func (svc *service) Update(ctx context.Context, actor profile.Profile, id string, ue UpdateEvent) (Event, error) {
	if !actor.IsAdmin() {
		return Event{}, ErrForbidden
	}
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}

	if ue.Title != "" {
		e.Title = ue.Title
	}
	if ue.Description != nil {
		e.Description = core.CleanString(*ue.Description)
	}
	if ue.Location != nil {
		e.Location = core.CleanString(*ue.Location)
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.ApplicationDeadline != nil {
		e.ApplicationDeadline = null.TimeFrom(ue.ApplicationDeadline.UTC())
	}
	if ue.Capacity != nil {
		e.Capacity = *ue.Capacity
	}
	if ue.IsOpen != nil {
		e.IsOpen = *ue.IsOpen
	}
	if e.ApplicationDeadline.Valid {
		if err = validateDeadline(e.StartsAt, &e.ApplicationDeadline.Time); err != nil {
			return Event{}, err
		}
	}

	e, err = svc.repo.UpdateEvent(ctx, e)
	return e, errors.Wrap(err, "updating event")
}

func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) Apply(ctx context.Context, applicant profile.Profile, eventID string, na NewApplication) (Application, error) {
	e, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Application{}, err
	}
	now := nowFunc().UTC()
	if !e.AcceptsApplications(now) {
		return Application{}, ErrClosed
	}
	full, err := svc.isFull(ctx, e)
	if err != nil {
		return Application{}, err
	}
	if full {
		return Application{}, ErrFull
	}

	a, err := svc.repo.CreateApplication(ctx, Application{
		EventID:    e.ID,
		ProfileID:  applicant.ID,
		Motivation: na.Motivation,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if err == ErrAlreadyApplied {
			return Application{}, err
		}
		return Application{}, errors.Wrap(err, "creating application")
	}
	return a, nil
}

// isFull reports whether the accepted applications reached the capacity of e.
func (svc *service) isFull(ctx context.Context, e Event) (bool, error) {
	if e.Capacity == 0 {
		return false, nil
	}
	accepted, err := svc.repo.QueryApplications(ctx, ApplicationFilter{EventID: e.ID, Status: StatusAccepted})
	if err != nil {
		return false, errors.Wrap(err, "counting accepted applications")
	}
	return len(accepted) >= e.Capacity, nil
}

func (svc *service) ListMine(ctx context.Context, applicant profile.Profile) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, ApplicationFilter{ProfileID: applicant.ID})
}

func (svc *service) ListForEvent(ctx context.Context, actor profile.Profile, eventID string) ([]Application, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := svc.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryApplications(ctx, ApplicationFilter{EventID: eventID})
}

func (svc *service) SetStatus(ctx context.Context, actor profile.Profile, applicationID, status string) (Application, error) {
	if !actor.IsAdmin() {
		return Application{}, ErrForbidden
	}
	a, err := svc.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if a.Status == status {
		return a, nil
	}

	e, err := svc.repo.GetEvent(ctx, a.EventID)
	if err != nil {
		return Application{}, errors.Wrap(err, "finding event")
	}
	if status == StatusAccepted {
		full, err := svc.isFull(ctx, e)
		if err != nil {
			return Application{}, err
		}
		if full {
			return Application{}, ErrFull
		}
	}

	a.Status = status
	a.UpdatedAt = nowFunc().UTC()
	if a, err = svc.repo.UpdateApplication(ctx, a); err != nil {
		return Application{}, errors.Wrap(err, "updating application")
	}
	svc.notifyApplicant(ctx, e, a)
	return a, nil
}

func (svc *service) notifyApplicant(ctx context.Context, e Event, a Application) {
	acc, err := svc.accounts.GetByID(ctx, a.ProfileID)
	if err != nil {
		svc.logger.Error("finding applicant account", errors.Wrap(err, a.ProfileID))
		return
	}
	name := acc.Email
	if p, err := svc.profiles.Get(ctx, a.ProfileID); err == nil && p.Name != "" {
		name = p.Name
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: acc.Email}},
		Subject:      "Your application for " + e.Title,
		TemplateName: "application_status",
		TemplateData: map[string]interface{}{
			"Name":   name,
			"Event":  e.Title,
			"Status": a.Status,
		},
	})
}
