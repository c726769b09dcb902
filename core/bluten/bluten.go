package bluten

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
	ErrNotFound  = core.NewNotFoundError("post not found")
	ErrForbidden = core.NewPermissionError("only admins can moderate posts")
)

// Post is a short message addressed to someone of the school. Posts are visible once published by an admin.
type Post struct {
	ID          string    `json:"id" db:"id"`
	AuthorID    string    `json:"author_id" db:"author_id"`
	Recipient   string    `json:"recipient" db:"recipient"`
	Message     string    `json:"message" db:"message"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewPost struct {
	Recipient string `json:"recipient" validate:"required,notblank,max=100"`
	Message   string `json:"message" validate:"required,notblank,max=1000"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Recipient = core.CleanString(np.Recipient)
	np.Message = core.CleanString(np.Message)
	return validate.Struct(np)
}

type SetPublished struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

func (sp *SetPublished) Validate(validate *validator.Validate) error { return validate.Struct(sp) }

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPost(ctx context.Context, id string) (Post, error)
		// QueryPosts returns posts newest first; only published ones if publishedOnly.
		QueryPosts(ctx context.Context, publishedOnly bool) ([]Post, error)
		UpdatePost(ctx context.Context, p Post) (Post, error)
		DeletePost(ctx context.Context, id string) error
	}

	Service interface {
		Published(ctx context.Context) ([]Post, error)
		All(ctx context.Context, actor profile.Profile) ([]Post, error)
		Create(ctx context.Context, author profile.Profile, np NewPost) (Post, error)
		SetPublished(ctx context.Context, actor profile.Profile, id string, published bool) (Post, error)
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

func (svc *service) Published(ctx context.Context) ([]Post, error) {
	return svc.repo.QueryPosts(ctx, true)
}

func (svc *service) All(ctx context.Context, actor profile.Profile) ([]Post, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return svc.repo.QueryPosts(ctx, false)
}

// Create stores an unpublished post.
func (svc *service) Create(ctx context.Context, author profile.Profile, np NewPost) (Post, error) {
	p, err := svc.repo.CreatePost(ctx, Post{
		AuthorID:  author.ID,
		Recipient: np.Recipient,
		Message:   np.Message,
		CreatedAt: time.Now().UTC(),
	})
	return p, errors.Wrap(err, "creating post")
}

func (svc *service) SetPublished(ctx context.Context, actor profile.Profile, id string, published bool) (Post, error) {
	if !actor.IsAdmin() {
		return Post{}, ErrForbidden
	}
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	p.IsPublished = published
	p, err = svc.repo.UpdatePost(ctx, p)
	return p, errors.Wrap(err, "updating post")
}

func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return svc.repo.DeletePost(ctx, id)
}
