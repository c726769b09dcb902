package inmem

import (
	"context"

	"github.com/trezcool/council/core/idea"
)

type ideaRepository struct {
	db *ideaTable
}

var _ idea.Repository = (*ideaRepository)(nil) // interface compliance check

func NewIdeaRepository(db *DB) idea.Repository {
	return &ideaRepository{db: db.ideas}
}

func (repo *ideaRepository) CreateIdea(_ context.Context, i idea.Idea) (idea.Idea, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	i.ID = newID()
	i.LikeCount = 0
	i.Liked = false
	repo.db.ideas = append(repo.db.ideas, &i)
	return i, nil
}

// withLikes returns a copy of i with its like count and whether viewerID likes it. The caller holds the lock.
func (repo *ideaRepository) withLikes(i idea.Idea, viewerID string) idea.Idea {
	likes := repo.db.likes[i.ID]
	i.LikeCount = len(likes)
	i.Liked = viewerID != "" && likes[viewerID]
	return i
}

func (repo *ideaRepository) GetIdea(_ context.Context, id, viewerID string) (idea.Idea, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, i := range repo.db.ideas {
		if i.ID == id {
			return repo.withLikes(*i, viewerID), nil
		}
	}
	return idea.Idea{}, idea.ErrNotFound
}

func (repo *ideaRepository) QueryIdeas(_ context.Context, viewerID string) ([]idea.Idea, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ideas := make([]idea.Idea, 0, len(repo.db.ideas))
	for n := len(repo.db.ideas) - 1; n >= 0; n-- { // newest first
		ideas = append(ideas, repo.withLikes(*repo.db.ideas[n], viewerID))
	}
	return ideas, nil
}

func (repo *ideaRepository) DeleteIdea(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	found := false
	ideas := repo.db.ideas[:0]
	for _, i := range repo.db.ideas {
		if i.ID == id {
			found = true
			continue
		}
		ideas = append(ideas, i)
	}
	if !found {
		return idea.ErrNotFound
	}
	repo.db.ideas = ideas
	delete(repo.db.likes, id)

	comments := repo.db.comments[:0]
	for _, c := range repo.db.comments {
		if c.IdeaID != id {
			comments = append(comments, c)
		}
	}
	repo.db.comments = comments
	return nil
}

func (repo *ideaRepository) SetLike(_ context.Context, ideaID, profileID string, liked bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	likes, ok := repo.db.likes[ideaID]
	if !ok {
		likes = make(map[string]bool)
		repo.db.likes[ideaID] = likes
	}
	if liked {
		likes[profileID] = true
	} else {
		delete(likes, profileID)
	}
	return nil
}

func (repo *ideaRepository) CreateComment(_ context.Context, c idea.Comment) (idea.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	c.Replies = nil
	repo.db.comments = append(repo.db.comments, &c)
	return c, nil
}

func (repo *ideaRepository) GetComment(_ context.Context, id string) (idea.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.comments {
		if c.ID == id {
			return *c, nil
		}
	}
	return idea.Comment{}, idea.ErrCommentNotFound
}

func (repo *ideaRepository) QueryComments(_ context.Context, ideaID string) ([]idea.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	comments := make([]idea.Comment, 0)
	for _, c := range repo.db.comments {
		if c.IdeaID == ideaID {
			comments = append(comments, *c)
		}
	}
	return comments, nil
}

func (repo *ideaRepository) DeleteComments(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	comments := repo.db.comments[:0]
	for _, c := range repo.db.comments {
		if !contains(ids, c.ID) {
			comments = append(comments, c)
		}
	}
	repo.db.comments = comments
	return nil
}
