package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/event"
)

func (s *server) registerEventAPI(api, admin *echo.Group) {
	api.GET("/events", s.listEvents, s.jwt)
	api.GET("/events/:id", s.getEvent, s.jwt)
	api.POST("/events/:id/applications", s.applyToEvent, s.jwt)
	api.GET("/me/applications", s.listMyApplications, s.jwt)

	admin.POST("/events", s.createEvent)
	admin.PUT("/events/:id", s.updateEvent)
	admin.DELETE("/events/:id", s.deleteEvent)
	admin.GET("/events/:id/applications", s.listEventApplications)
	admin.PATCH("/applications/:id", s.setApplicationStatus)
}

func (s *server) listEvents(ctx echo.Context) error {
	var filter event.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return err
	}
	key := fmt.Sprintf("%s:upcoming=%t:open=%t", core.TopicEvents, filter.Upcoming, filter.OpenOnly)
	return s.cachedList(ctx, key, func() (interface{}, error) {
		return s.EventSvc.Query(ctx.Request().Context(), filter)
	})
}

func (s *server) getEvent(ctx echo.Context) error {
	e, err := s.EventSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (s *server) applyToEvent(ctx echo.Context) error {
	applicant, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var na event.NewApplication
	if err = ctx.Bind(&na); err != nil {
		return err
	}
	if err = na.Validate(s.Validate); err != nil {
		return err
	}

	a, err := s.EventSvc.Apply(ctx.Request().Context(), applicant, ctx.Param("id"), na)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (s *server) listMyApplications(ctx echo.Context) error {
	applicant, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	apps, err := s.EventSvc.ListMine(ctx.Request().Context(), applicant)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (s *server) createEvent(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var ne event.NewEvent
	if err = ctx.Bind(&ne); err != nil {
		return err
	}
	if err = ne.Validate(s.Validate); err != nil {
		return err
	}

	e, err := s.EventSvc.Create(ctx.Request().Context(), actor, ne)
	if err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionCreate, "event", e.ID, e.Title)
	s.invalidate(ctx, core.TopicEvents)
	return ctx.JSON(http.StatusCreated, e)
}

func (s *server) updateEvent(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var ue event.UpdateEvent
	if err = ctx.Bind(&ue); err != nil {
		return err
	}
	if err = ue.Validate(s.Validate); err != nil {
		return err
	}

	e, err := s.EventSvc.Update(ctx.Request().Context(), actor, ctx.Param("id"), ue)
	if err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionUpdate, "event", e.ID, e.Title)
	s.invalidate(ctx, core.TopicEvents)
	return ctx.JSON(http.StatusOK, e)
}

func (s *server) deleteEvent(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = s.EventSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionDelete, "event", id, "")
	s.invalidate(ctx, core.TopicEvents)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) listEventApplications(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	apps, err := s.EventSvc.ListForEvent(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (s *server) setApplicationStatus(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var ss event.SetStatus
	if err = ctx.Bind(&ss); err != nil {
		return err
	}
	if err = ss.Validate(s.Validate); err != nil {
		return err
	}

	a, err := s.EventSvc.SetStatus(ctx.Request().Context(), actor, ctx.Param("id"), ss.Status)
	if err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionSetStatus, "application", a.ID, a.Status)
	return ctx.JSON(http.StatusOK, a)
}
