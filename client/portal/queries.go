package portal

import (
	"context"

	"github.com/sendgrid/rest"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/client/optimistic"
	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
)

// Cache keys share their prefix with the live feed topics, so that a topic invalidates its keys.
var (
	announcementsKey = core.TopicAnnouncements
	pollsKey         = core.TopicPolls
	ideasKey         = core.TopicIdeas
	eventsKey        = core.TopicEvents
)

func commentsKey(ideaID string) string {
	return core.TopicIdeas + ":" + ideaID + ":comments"
}

func (c *Client) Announcements(ctx context.Context) ([]announcement.Announcement, error) {
	return fetchCached[[]announcement.Announcement](ctx, c, announcementsKey, "/announcements")
}

// Polls returns the polls with their vote counts and the vote of the signed in user.
func (c *Client) Polls(ctx context.Context) ([]poll.Poll, error) {
	return fetchCached[[]poll.Poll](ctx, c, pollsKey, "/polls")
}

// Vote casts (or moves) the vote of the signed in user. The cached polls show it right away,
// and are rolled back when the API rejects it, e.g. with "poll is closed" once a poll closed.
func (c *Client) Vote(ctx context.Context, pollID, optionID string) error {
	apply := func(polls []poll.Poll) []poll.Poll {
		return castVote(polls, pollID, optionID)
	}
	return optimistic.Mutate(ctx, c.cache, pollsKey, apply, func(ctx context.Context) error {
		return c.authSend(ctx, rest.Post, "/polls/"+pollID+"/vote", poll.CastVote{OptionID: optionID}, nil)
	})
}

// castVote returns a copy of polls with the vote of the viewer moved to optionID.
func castVote(polls []poll.Poll, pollID, optionID string) []poll.Poll {
	next := make([]poll.Poll, len(polls))
	copy(next, polls)
	for i := range next {
		p := next[i]
		if p.ID != pollID {
			continue
		}
		options := make([]poll.Option, len(p.Options))
		copy(options, p.Options)
		for j := range options {
			if p.MyVote.Valid && options[j].ID == p.MyVote.String {
				options[j].Votes--
			}
			if options[j].ID == optionID {
				options[j].Votes++
			}
		}
		if !p.MyVote.Valid {
			p.TotalVotes++
		}
		p.Options = options
		p.MyVote = null.StringFrom(optionID)
		next[i] = p
	}
	return next
}

func (c *Client) Ideas(ctx context.Context) ([]idea.Idea, error) {
	return fetchCached[[]idea.Idea](ctx, c, ideasKey, "/ideas")
}

func (c *Client) CreateIdea(ctx context.Context, ni idea.NewIdea) (idea.Idea, error) {
	var i idea.Idea
	if err := c.authSend(ctx, rest.Post, "/ideas", ni, &i); err != nil {
		return idea.Idea{}, err
	}
	c.cache.Invalidate(ideasKey)
	return i, nil
}

// ToggleLike likes the idea, or unlikes it if the signed in user already does.
// The cached ideas reflect the toggle before the API answers and are rolled back on failure.
func (c *Client) ToggleLike(ctx context.Context, ideaID string) (idea.LikeState, error) {
	ideas, err := c.Ideas(ctx)
	if err != nil {
		return idea.LikeState{}, err
	}
	liked := false
	for _, i := range ideas {
		if i.ID == ideaID {
			liked = i.Liked
			break
		}
	}

	method := rest.Post
	if liked {
		method = rest.Delete
	}
	var state idea.LikeState
	apply := func(ideas []idea.Idea) []idea.Idea {
		next := make([]idea.Idea, len(ideas))
		copy(next, ideas)
		for i := range next {
			if next[i].ID == ideaID {
				next[i].Liked, next[i].LikeCount = optimistic.ToggleLike(next[i].Liked, next[i].LikeCount)
			}
		}
		return next
	}
	err = optimistic.Mutate(ctx, c.cache, ideasKey, apply, func(ctx context.Context) error {
		return c.authSend(ctx, method, "/ideas/"+ideaID+"/like", nil, &state)
	})
	return state, err
}

// Comments returns the comment thread of an idea: top level comments with nested replies.
func (c *Client) Comments(ctx context.Context, ideaID string) ([]*idea.Comment, error) {
	return fetchCached[[]*idea.Comment](ctx, c, commentsKey(ideaID), "/ideas/"+ideaID+"/comments")
}

func (c *Client) Comment(ctx context.Context, ideaID string, nc idea.NewComment) (idea.Comment, error) {
	var cm idea.Comment
	if err := c.authSend(ctx, rest.Post, "/ideas/"+ideaID+"/comments", nc, &cm); err != nil {
		return idea.Comment{}, err
	}
	c.cache.Invalidate(commentsKey(ideaID))
	return cm, nil
}

func (c *Client) Events(ctx context.Context) ([]event.Event, error) {
	return fetchCached[[]event.Event](ctx, c, eventsKey, "/events?upcoming=true")
}

// Apply sends an application to an event.
func (c *Client) Apply(ctx context.Context, eventID, motivation string) (event.Application, error) {
	var a event.Application
	err := c.authSend(ctx, rest.Post, "/events/"+eventID+"/applications", event.NewApplication{Motivation: motivation}, &a)
	return a, err
}

func (c *Client) MyApplications(ctx context.Context) ([]event.Application, error) {
	var apps []event.Application
	err := c.authSend(ctx, rest.Get, "/me/applications", nil, &apps)
	return apps, err
}
