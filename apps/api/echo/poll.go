package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/poll"
)

func (s *server) registerPollAPI(api, admin *echo.Group) {
	api.GET("/polls", s.listPolls, s.jwt)
	api.POST("/polls", s.createPoll, s.jwt)
	api.POST("/polls/:id/vote", s.votePoll, s.jwt)

	admin.PATCH("/polls/:id", s.setPollOpen)
	admin.DELETE("/polls/:id", s.deletePoll)
}

// listPolls is cached per viewer since the payload carries their vote.
func (s *server) listPolls(ctx echo.Context) error {
	viewer, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	return s.cachedList(ctx, viewerKey(core.TopicPolls, viewer.ID), func() (interface{}, error) {
		return s.PollSvc.Query(ctx.Request().Context(), viewer)
	})
}

func (s *server) createPoll(ctx echo.Context) error {
	author, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var np poll.NewPoll
	if err = ctx.Bind(&np); err != nil {
		return err
	}
	if err = np.Validate(s.Validate); err != nil {
		return err
	}

	p, err := s.PollSvc.Create(ctx.Request().Context(), author, np)
	if err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), author.ID, actionlog.ActionCreate, "poll", p.ID, p.Question)
	s.invalidate(ctx, core.TopicPolls)
	return ctx.JSON(http.StatusCreated, p)
}

// votePoll answers 409 {"error": "poll is closed"} once the poll stopped accepting votes.
func (s *server) votePoll(ctx echo.Context) error {
	voter, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var cv poll.CastVote
	if err = ctx.Bind(&cv); err != nil {
		return err
	}
	if err = cv.Validate(s.Validate); err != nil {
		return err
	}

	p, err := s.PollSvc.Vote(ctx.Request().Context(), voter, ctx.Param("id"), cv.OptionID)
	if err != nil {
		return err
	}
	s.invalidate(ctx, core.TopicPolls)
	return ctx.JSON(http.StatusOK, p)
}

func (s *server) setPollOpen(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var so poll.SetOpen
	if err = ctx.Bind(&so); err != nil {
		return err
	}
	if err = so.Validate(s.Validate); err != nil {
		return err
	}

	p, err := s.PollSvc.SetOpen(ctx.Request().Context(), actor, ctx.Param("id"), *so.IsOpen)
	if err != nil {
		return err
	}
	action := actionlog.ActionClose
	if p.IsOpen {
		action = actionlog.ActionOpen
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, action, "poll", p.ID, "")
	s.invalidate(ctx, core.TopicPolls)
	return ctx.JSON(http.StatusOK, p)
}

func (s *server) deletePoll(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = s.PollSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionDelete, "poll", id, "")
	s.invalidate(ctx, core.TopicPolls)
	return ctx.NoContent(http.StatusNoContent)
}
