package idea

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
)

type Idea struct {
	ID        string    `json:"id" db:"id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	LikeCount int       `json:"like_count" db:"like_count"`
	// Liked is true when the viewer likes the idea.
	Liked bool `json:"liked" db:"liked"`
}

type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type Comment struct {
	ID        string      `json:"id" db:"id"`
	IdeaID    string      `json:"idea_id" db:"idea_id"`
	AuthorID  string      `json:"author_id" db:"author_id"`
	ParentID  null.String `json:"parent_id" db:"parent_id"`
	Body      string      `json:"body" db:"body"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	Replies   []*Comment  `json:"replies" db:"-"`
}

// NewIdea contains information needed to submit an Idea.
type NewIdea struct {
	Title string `json:"title" validate:"required,notblank,max=200"`
	Body  string `json:"body" validate:"required,notblank,max=5000"`
}

func (ni *NewIdea) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Body = core.CleanString(ni.Body)
	return validate.Struct(ni)
}

type NewComment struct {
	Body     string `json:"body" validate:"required,notblank,max=2000"`
	ParentID string `json:"parent_id"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Body = core.CleanString(nc.Body)
	nc.ParentID = core.CleanString(nc.ParentID)
	return validate.Struct(nc)
}

// BuildThread nests flat comments under their parents.
// Siblings keep the order of comments, which repositories return oldest first.
// Comments whose parent is missing are dropped.
func BuildThread(comments []Comment) []*Comment {
	nodes := make(map[string]*Comment, len(comments))
	for i := range comments {
		c := comments[i]
		c.Replies = []*Comment{}
		nodes[c.ID] = &c
	}

	roots := make([]*Comment, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if !c.ParentID.Valid {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[c.ParentID.String]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}
	return roots
}

// subtree returns the ids of the comment rootID and all its descendants.
func subtree(comments []Comment, rootID string) []string {
	children := make(map[string][]string)
	for _, c := range comments {
		if c.ParentID.Valid {
			children[c.ParentID.String] = append(children[c.ParentID.String], c.ID)
		}
	}

	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}
