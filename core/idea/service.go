package idea

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
	ErrNotFound        = core.NewNotFoundError("idea not found")
	ErrCommentNotFound = core.NewNotFoundError("comment not found")
	ErrForbidden       = core.NewPermissionError("only the author or an admin can delete this")
	ErrInvalidParent   = core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "parent comment does not belong to this idea"})

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateIdea(ctx context.Context, i Idea) (Idea, error)
		// GetIdea returns the idea with its like count and whether viewerID likes it.
		GetIdea(ctx context.Context, id, viewerID string) (Idea, error)
		// QueryIdeas returns all ideas newest first, like GetIdea.
		QueryIdeas(ctx context.Context, viewerID string) ([]Idea, error)
		// DeleteIdea also deletes its likes and comments.
		DeleteIdea(ctx context.Context, id string) error

		// SetLike is idempotent.
		SetLike(ctx context.Context, ideaID, profileID string, liked bool) error

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id string) (Comment, error)
		// QueryComments returns the flat comments of an idea, oldest first.
		QueryComments(ctx context.Context, ideaID string) ([]Comment, error)
		DeleteComments(ctx context.Context, ids ...string) error
	}

	Service interface {
		Query(ctx context.Context, viewer profile.Profile) ([]Idea, error)
		Get(ctx context.Context, viewer profile.Profile, id string) (Idea, error)
		Create(ctx context.Context, author profile.Profile, ni NewIdea) (Idea, error)
		Delete(ctx context.Context, actor profile.Profile, id string) error

		Like(ctx context.Context, viewer profile.Profile, id string) (LikeState, error)
		Unlike(ctx context.Context, viewer profile.Profile, id string) (LikeState, error)

		Thread(ctx context.Context, ideaID string) ([]*Comment, error)
		Comment(ctx context.Context, author profile.Profile, ideaID string, nc NewComment) (Comment, error)
		// DeleteComment deletes the comment and all its replies. It returns the idea ID of the comment.
		DeleteComment(ctx context.Context, actor profile.Profile, id string) (string, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context, viewer profile.Profile) ([]Idea, error) {
	return svc.repo.QueryIdeas(ctx, viewer.ID)
}

func (svc *service) Get(ctx context.Context, viewer profile.Profile, id string) (Idea, error) {
	return svc.repo.GetIdea(ctx, id, viewer.ID)
}

func (svc *service) Create(ctx context.Context, author profile.Profile, ni NewIdea) (Idea, error) {
	i, err := svc.repo.CreateIdea(ctx, Idea{
		AuthorID:  author.ID,
		Title:     ni.Title,
		Body:      ni.Body,
		CreatedAt: nowFunc().UTC(),
	})
	return i, errors.Wrap(err, "creating idea")
}

func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	i, err := svc.repo.GetIdea(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && i.AuthorID != actor.ID {
		return ErrForbidden
	}
	return errors.Wrap(svc.repo.DeleteIdea(ctx, id), "deleting idea")
}

func (svc *service) Like(ctx context.Context, viewer profile.Profile, id string) (LikeState, error) {
	return svc.setLike(ctx, viewer, id, true)
}

func (svc *service) Unlike(ctx context.Context, viewer profile.Profile, id string) (LikeState, error) {
	return svc.setLike(ctx, viewer, id, false)
}

func (svc *service) setLike(ctx context.Context, viewer profile.Profile, id string, liked bool) (LikeState, error) {
	if _, err := svc.repo.GetIdea(ctx, id, viewer.ID); err != nil {
		return LikeState{}, err
	}
	if err := svc.repo.SetLike(ctx, id, viewer.ID, liked); err != nil {
		return LikeState{}, errors.Wrap(err, "setting like")
	}
	i, err := svc.repo.GetIdea(ctx, id, viewer.ID)
	if err != nil {
		return LikeState{}, errors.Wrap(err, "refreshing idea")
	}
	return LikeState{Liked: i.Liked, LikeCount: i.LikeCount}, nil
}

func (svc *service) Thread(ctx context.Context, ideaID string) ([]*Comment, error) {
	if _, err := svc.repo.GetIdea(ctx, ideaID, ""); err != nil {
		return nil, err
	}
	comments, err := svc.repo.QueryComments(ctx, ideaID)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return BuildThread(comments), nil
}

func (svc *service) Comment(ctx context.Context, author profile.Profile, ideaID string, nc NewComment) (Comment, error) {
	if _, err := svc.repo.GetIdea(ctx, ideaID, author.ID); err != nil {
		return Comment{}, err
	}

	c := Comment{
		IdeaID:    ideaID,
		AuthorID:  author.ID,
		Body:      nc.Body,
		CreatedAt: nowFunc().UTC(),
	}
	if nc.ParentID != "" {
		parent, err := svc.repo.GetComment(ctx, nc.ParentID)
		if err != nil {
			if err == ErrCommentNotFound {
				return Comment{}, ErrInvalidParent
			}
			return Comment{}, err
		}
		if parent.IdeaID != ideaID {
			return Comment{}, ErrInvalidParent
		}
		c.ParentID = null.StringFrom(parent.ID)
	}

	c, err := svc.repo.CreateComment(ctx, c)
	return c, errors.Wrap(err, "creating comment")
}

func (svc *service) DeleteComment(ctx context.Context, actor profile.Profile, id string) (string, error) {
	c, err := svc.repo.GetComment(ctx, id)
	if err != nil {
		return "", err
	}
	if !actor.IsAdmin() && c.AuthorID != actor.ID {
		return "", ErrForbidden
	}

	comments, err := svc.repo.QueryComments(ctx, c.IdeaID)
	if err != nil {
		return "", errors.Wrap(err, "querying comments")
	}
	err = svc.repo.DeleteComments(ctx, subtree(comments, c.ID)...)
	return c.IdeaID, errors.Wrap(err, "deleting comments")
}
