package inmem

import (
	"context"

	"github.com/trezcool/council/core/bluten"
)

type blutenRepository struct {
	db *blutenTable
}

var _ bluten.Repository = (*blutenRepository)(nil) // interface compliance check

func NewBlutenRepository(db *DB) bluten.Repository {
	return &blutenRepository{db: db.bluten}
}

func (repo *blutenRepository) CreatePost(_ context.Context, p bluten.Post) (bluten.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = newID()
	repo.db.rows = append(repo.db.rows, &p)
	return p, nil
}

func (repo *blutenRepository) GetPost(_ context.Context, id string) (bluten.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.rows {
		if p.ID == id {
			return *p, nil
		}
	}
	return bluten.Post{}, bluten.ErrNotFound
}

func (repo *blutenRepository) QueryPosts(_ context.Context, publishedOnly bool) ([]bluten.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	posts := make([]bluten.Post, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- { // newest first
		if p := repo.db.rows[i]; !publishedOnly || p.IsPublished {
			posts = append(posts, *p)
		}
	}
	return posts, nil
}

func (repo *blutenRepository) UpdatePost(_ context.Context, p bluten.Post) (bluten.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.rows {
		if orig.ID == p.ID {
			repo.db.rows[i] = &p
			return p, nil
		}
	}
	return bluten.Post{}, bluten.ErrNotFound
}

func (repo *blutenRepository) DeletePost(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, p := range repo.db.rows {
		if p.ID == id {
			repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
			return nil
		}
	}
	return bluten.ErrNotFound
}
