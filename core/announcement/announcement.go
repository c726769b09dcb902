package announcement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/profile"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("announcement not found")
	ErrForbidden = core.NewPermissionError("only admins and teachers can publish announcements")
)

type Announcement struct {
	ID        string    `json:"id" db:"id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Pinned    bool      `json:"pinned" db:"pinned"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewAnnouncement contains information needed to publish an Announcement.
type NewAnnouncement struct {
	Title  string `json:"title" validate:"required,notblank,max=200"`
	Body   string `json:"body" validate:"required,notblank,max=10000"`
	Pinned bool   `json:"pinned"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	return validate.Struct(na)
}

// UpdateAnnouncement defines what information may be provided to modify an existing Announcement.
type UpdateAnnouncement struct {
	Title  string `json:"title" validate:"omitempty,max=200"`
	Body   string `json:"body" validate:"omitempty,max=10000"`
	Pinned *bool  `json:"pinned"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Body = core.CleanString(ua.Body)
	return validate.Struct(ua)
}

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		// QueryAnnouncements returns pinned announcements first, then newest first.
		QueryAnnouncements(ctx context.Context) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	Service interface {
		Query(ctx context.Context) ([]Announcement, error)
		Get(ctx context.Context, id string) (Announcement, error)
		Create(ctx context.Context, author profile.Profile, na NewAnnouncement) (Announcement, error)
		Update(ctx context.Context, actor profile.Profile, id string, ua UpdateAnnouncement) (Announcement, error)
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

func (svc *service) Query(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx)
}

func (svc *service) Get(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *service) Create(ctx context.Context, author profile.Profile, na NewAnnouncement) (Announcement, error) {
	if !author.IsStaff() {
		return Announcement{}, ErrForbidden
	}
	now := time.Now().UTC()
	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		AuthorID:  author.ID,
		Title:     na.Title,
		Body:      na.Body,
		Pinned:    na.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return a, errors.Wrap(err, "creating announcement")
}

// canEdit: admins edit everything, teachers their own announcements.
func canEdit(actor profile.Profile, a Announcement) bool {
	return actor.IsAdmin() || (actor.IsTeacher() && a.AuthorID == actor.ID)
}

func (svc *service) Update(ctx context.Context, actor profile.Profile, id string, ua UpdateAnnouncement) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !canEdit(actor, a) {
		return Announcement{}, ErrForbidden
	}
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Body != "" {
		a.Body = ua.Body
	}
	if ua.Pinned != nil {
		a.Pinned = *ua.Pinned
	}
	a.UpdatedAt = time.Now().UTC()
	a, err = svc.repo.UpdateAnnouncement(ctx, a)
	return a, errors.Wrap(err, "updating announcement")
}

func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(actor, a) {
		return ErrForbidden
	}
	return errors.Wrap(svc.repo.DeleteAnnouncement(ctx, id), "deleting announcement")
}
