package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
)

func (s *server) registerAnnouncementAPI(api, admin *echo.Group) {
	api.GET("/announcements", s.listAnnouncements, s.jwt)
	api.POST("/announcements", s.createAnnouncement, s.jwt)
	// teachers manage their own announcements
	api.PUT("/announcements/:id", s.updateAnnouncement, s.jwt)
	api.DELETE("/announcements/:id", s.deleteAnnouncement, s.jwt)

	admin.PUT("/announcements/:id", s.updateAnnouncement)
	admin.DELETE("/announcements/:id", s.deleteAnnouncement)
}

func (s *server) listAnnouncements(ctx echo.Context) error {
	return s.cachedList(ctx, core.TopicAnnouncements, func() (interface{}, error) {
		return s.AnnouncementSvc.Query(ctx.Request().Context())
	})
}

func (s *server) createAnnouncement(ctx echo.Context) error {
	author, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var na announcement.NewAnnouncement
	if err = ctx.Bind(&na); err != nil {
		return err
	}
	if err = na.Validate(s.Validate); err != nil {
		return err
	}

	a, err := s.AnnouncementSvc.Create(ctx.Request().Context(), author, na)
	if err != nil {
		return err
	}
	s.recordModeration(ctx, author, actionlog.ActionCreate, "announcement", a.ID)
	s.invalidate(ctx, core.TopicAnnouncements)
	return ctx.JSON(http.StatusCreated, a)
}

func (s *server) updateAnnouncement(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var ua announcement.UpdateAnnouncement
	if err = ctx.Bind(&ua); err != nil {
		return err
	}
	if err = ua.Validate(s.Validate); err != nil {
		return err
	}

	a, err := s.AnnouncementSvc.Update(ctx.Request().Context(), actor, ctx.Param("id"), ua)
	if err != nil {
		return err
	}
	s.recordModeration(ctx, actor, actionlog.ActionUpdate, "announcement", a.ID)
	s.invalidate(ctx, core.TopicAnnouncements)
	return ctx.JSON(http.StatusOK, a)
}

func (s *server) deleteAnnouncement(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = s.AnnouncementSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	s.recordModeration(ctx, actor, actionlog.ActionDelete, "announcement", id)
	s.invalidate(ctx, core.TopicAnnouncements)
	return ctx.NoContent(http.StatusNoContent)
}
