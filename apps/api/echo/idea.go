package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/idea"
)

func (s *server) registerIdeaAPI(api, admin *echo.Group) {
	g := api.Group("/ideas", s.jwt)
	g.GET("", s.listIdeas)
	g.POST("", s.createIdea)
	g.GET("/:id", s.getIdea)
	g.DELETE("/:id", s.deleteIdea)
	g.POST("/:id/like", s.likeIdea)
	g.DELETE("/:id/like", s.unlikeIdea)
	g.GET("/:id/comments", s.listComments)
	g.POST("/:id/comments", s.createComment)
	api.DELETE("/comments/:id", s.deleteComment, s.jwt)

	admin.DELETE("/ideas/:id", s.deleteIdea)
	admin.DELETE("/comments/:id", s.deleteComment)
}

func (s *server) listIdeas(ctx echo.Context) error {
	viewer, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	ideas, err := s.IdeaSvc.Query(ctx.Request().Context(), viewer)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ideas)
}

func (s *server) getIdea(ctx echo.Context) error {
	viewer, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	i, err := s.IdeaSvc.Get(ctx.Request().Context(), viewer, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, i)
}

func (s *server) createIdea(ctx echo.Context) error {
	author, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var ni idea.NewIdea
	if err = ctx.Bind(&ni); err != nil {
		return err
	}
	if err = ni.Validate(s.Validate); err != nil {
		return err
	}

	i, err := s.IdeaSvc.Create(ctx.Request().Context(), author, ni)
	if err != nil {
		return err
	}
	s.invalidate(ctx, core.TopicIdeas)
	return ctx.JSON(http.StatusCreated, i)
}

func (s *server) deleteIdea(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = s.IdeaSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	s.recordModeration(ctx, actor, actionlog.ActionDelete, "idea", id)
	s.invalidate(ctx, core.TopicIdeas)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) likeIdea(ctx echo.Context) error {
	return s.setIdeaLike(ctx, true)
}

func (s *server) unlikeIdea(ctx echo.Context) error {
	return s.setIdeaLike(ctx, false)
}

// setIdeaLike is idempotent and returns the resulting {liked, like_count}.
func (s *server) setIdeaLike(ctx echo.Context, liked bool) error {
	viewer, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var state idea.LikeState
	if liked {
		state, err = s.IdeaSvc.Like(ctx.Request().Context(), viewer, ctx.Param("id"))
	} else {
		state, err = s.IdeaSvc.Unlike(ctx.Request().Context(), viewer, ctx.Param("id"))
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, core.TopicIdeas)
	return ctx.JSON(http.StatusOK, state)
}

// listComments returns the comment tree of an idea.
func (s *server) listComments(ctx echo.Context) error {
	thread, err := s.IdeaSvc.Thread(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, thread)
}

func (s *server) createComment(ctx echo.Context) error {
	author, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var nc idea.NewComment
	if err = ctx.Bind(&nc); err != nil {
		return err
	}
	if err = nc.Validate(s.Validate); err != nil {
		return err
	}

	c, err := s.IdeaSvc.Comment(ctx.Request().Context(), author, ctx.Param("id"), nc)
	if err != nil {
		return err
	}
	s.invalidate(ctx, commentsTopic(c.IdeaID))
	return ctx.JSON(http.StatusCreated, c)
}

func (s *server) deleteComment(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	ideaID, err := s.IdeaSvc.DeleteComment(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	s.recordModeration(ctx, actor, actionlog.ActionDelete, "comment", id)
	s.invalidate(ctx, commentsTopic(ideaID))
	return ctx.NoContent(http.StatusNoContent)
}

func commentsTopic(ideaID string) string {
	return core.TopicIdeas + ":" + ideaID + ":comments"
}
