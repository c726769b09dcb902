package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/idea"
)

type ideaRepository struct {
	db *sqlx.DB
}

var _ idea.Repository = (*ideaRepository)(nil) // interface compliance check

func NewIdeaRepository(db *sqlx.DB) idea.Repository {
	return &ideaRepository{db: db}
}

// selectIdeas expects the viewer ID as $1.
const selectIdeas = `SELECT i.id, i.author_id, i.title, i.body, i.created_at,
	(SELECT COUNT(*) FROM idea_like l WHERE l.idea_id = i.id) AS like_count,
	EXISTS(SELECT 1 FROM idea_like l WHERE l.idea_id = i.id AND l.profile_id::text = $1) AS liked
	FROM idea i`

func (repo *ideaRepository) CreateIdea(ctx context.Context, i idea.Idea) (idea.Idea, error) {
	i.ID = newID()
	q := `INSERT INTO idea (id, author_id, title, body, created_at)
		VALUES (:id, :author_id, :title, :body, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, i); err != nil {
		return idea.Idea{}, errors.Wrap(err, "inserting idea")
	}
	return i, nil
}

func (repo *ideaRepository) GetIdea(ctx context.Context, id, viewerID string) (idea.Idea, error) {
	if !validID(id) {
		return idea.Idea{}, idea.ErrNotFound
	}
	var i idea.Idea
	if err := repo.db.GetContext(ctx, &i, selectIdeas+" WHERE i.id = $2", viewerID, id); err != nil {
		return idea.Idea{}, trapNoRowsErr(err, idea.ErrNotFound, "finding idea")
	}
	return i, nil
}

func (repo *ideaRepository) QueryIdeas(ctx context.Context, viewerID string) ([]idea.Idea, error) {
	ideas := make([]idea.Idea, 0)
	if err := repo.db.SelectContext(ctx, &ideas, selectIdeas+" ORDER BY i.created_at DESC", viewerID); err != nil {
		return nil, errors.Wrap(err, "querying ideas")
	}
	return ideas, nil
}

func (repo *ideaRepository) DeleteIdea(ctx context.Context, id string) error {
	if !validID(id) {
		return idea.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM idea WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting idea")
	}
	return checkAffected(res, idea.ErrNotFound)
}

func (repo *ideaRepository) SetLike(ctx context.Context, ideaID, profileID string, liked bool) error {
	var err error
	if liked {
		_, err = repo.db.ExecContext(ctx,
			"INSERT INTO idea_like (idea_id, profile_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", ideaID, profileID)
	} else {
		_, err = repo.db.ExecContext(ctx,
			"DELETE FROM idea_like WHERE idea_id = $1 AND profile_id = $2", ideaID, profileID)
	}
	return errors.Wrap(err, "setting like")
}

func (repo *ideaRepository) CreateComment(ctx context.Context, c idea.Comment) (idea.Comment, error) {
	c.ID = newID()
	q := `INSERT INTO comment (id, idea_id, author_id, parent_id, body, created_at)
		VALUES (:id, :idea_id, :author_id, :parent_id, :body, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, c); err != nil {
		return idea.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo *ideaRepository) GetComment(ctx context.Context, id string) (idea.Comment, error) {
	if !validID(id) {
		return idea.Comment{}, idea.ErrCommentNotFound
	}
	var c idea.Comment
	if err := repo.db.GetContext(ctx, &c, "SELECT * FROM comment WHERE id = $1", id); err != nil {
		return idea.Comment{}, trapNoRowsErr(err, idea.ErrCommentNotFound, "finding comment")
	}
	return c, nil
}

func (repo *ideaRepository) QueryComments(ctx context.Context, ideaID string) ([]idea.Comment, error) {
	comments := make([]idea.Comment, 0)
	if !validID(ideaID) {
		return comments, nil
	}
	q := "SELECT * FROM comment WHERE idea_id = $1 ORDER BY created_at, id"
	if err := repo.db.SelectContext(ctx, &comments, q, ideaID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return comments, nil
}

func (repo *ideaRepository) DeleteComments(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM comment WHERE id::text = ANY($1)", pq.Array(ids))
	return errors.Wrap(err, "deleting comments")
}
