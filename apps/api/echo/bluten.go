package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/bluten"
)

var publishedBlutenKey = core.TopicBluten + ":published"

func (s *server) registerBlutenAPI(api, admin *echo.Group) {
	api.GET("/bluten", s.listPublishedBluten, s.jwt)
	api.POST("/bluten", s.createBluten, s.jwt)

	admin.GET("/bluten", s.listAllBluten)
	admin.PATCH("/bluten/:id", s.setBlutenPublished)
	admin.DELETE("/bluten/:id", s.deleteBluten)
}

func (s *server) listPublishedBluten(ctx echo.Context) error {
	return s.cachedList(ctx, publishedBlutenKey, func() (interface{}, error) {
		return s.BlutenSvc.Published(ctx.Request().Context())
	})
}

// createBluten stores the post unpublished until an admin reviews it.
func (s *server) createBluten(ctx echo.Context) error {
	author, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var np bluten.NewPost
	if err = ctx.Bind(&np); err != nil {
		return err
	}
	if err = np.Validate(s.Validate); err != nil {
		return err
	}

	p, err := s.BlutenSvc.Create(ctx.Request().Context(), author, np)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (s *server) listAllBluten(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	posts, err := s.BlutenSvc.All(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (s *server) setBlutenPublished(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var sp bluten.SetPublished
	if err = ctx.Bind(&sp); err != nil {
		return err
	}
	if err = sp.Validate(s.Validate); err != nil {
		return err
	}

	p, err := s.BlutenSvc.SetPublished(ctx.Request().Context(), actor, ctx.Param("id"), *sp.IsPublished)
	if err != nil {
		return err
	}
	action := actionlog.ActionUnpublish
	if p.IsPublished {
		action = actionlog.ActionPublish
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, action, "bluten_post", p.ID, "")
	s.invalidate(ctx, core.TopicBluten)
	return ctx.JSON(http.StatusOK, p)
}

func (s *server) deleteBluten(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = s.BlutenSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionDelete, "bluten_post", id, "")
	s.invalidate(ctx, core.TopicBluten)
	return ctx.NoContent(http.StatusNoContent)
}
