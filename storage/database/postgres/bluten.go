package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/bluten"
)

type blutenRepository struct {
	db *sqlx.DB
}

var _ bluten.Repository = (*blutenRepository)(nil) // interface compliance check

func NewBlutenRepository(db *sqlx.DB) bluten.Repository {
	return &blutenRepository{db: db}
}

func (repo *blutenRepository) CreatePost(ctx context.Context, p bluten.Post) (bluten.Post, error) {
	p.ID = newID()
	q := `INSERT INTO bluten_post (id, author_id, recipient, message, is_published, created_at)
		VALUES (:id, :author_id, :recipient, :message, :is_published, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, p); err != nil {
		return bluten.Post{}, errors.Wrap(err, "inserting post")
	}
	return p, nil
}

func (repo *blutenRepository) GetPost(ctx context.Context, id string) (bluten.Post, error) {
	if !validID(id) {
		return bluten.Post{}, bluten.ErrNotFound
	}
	var p bluten.Post
	if err := repo.db.GetContext(ctx, &p, "SELECT * FROM bluten_post WHERE id = $1", id); err != nil {
		return bluten.Post{}, trapNoRowsErr(err, bluten.ErrNotFound, "finding post")
	}
	return p, nil
}

func (repo *blutenRepository) QueryPosts(ctx context.Context, publishedOnly bool) ([]bluten.Post, error) {
	q := "SELECT * FROM bluten_post"
	if publishedOnly {
		q += " WHERE is_published"
	}
	q += " ORDER BY created_at DESC"

	posts := make([]bluten.Post, 0)
	if err := repo.db.SelectContext(ctx, &posts, q); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	return posts, nil
}

func (repo *blutenRepository) UpdatePost(ctx context.Context, p bluten.Post) (bluten.Post, error) {
	q := "UPDATE bluten_post SET recipient = :recipient, message = :message, is_published = :is_published WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return bluten.Post{}, errors.Wrap(err, "updating post")
	}
	if err = checkAffected(res, bluten.ErrNotFound); err != nil {
		return bluten.Post{}, err
	}
	return p, nil
}

func (repo *blutenRepository) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return bluten.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM bluten_post WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return checkAffected(res, bluten.ErrNotFound)
}
