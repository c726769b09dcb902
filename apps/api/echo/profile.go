package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/profile"
)

func (s *server) registerProfileAPI(api, admin *echo.Group) {
	api.GET("/profile", s.ownProfile, s.jwt)
	api.PUT("/profile", s.updateOwnProfile, s.jwt)

	admin.GET("/profiles", s.listProfiles)
	admin.PUT("/profiles/:id/role", s.setProfileRole)
}

// ownProfile answers 404 until the caller's profile is provisioned; clients poll it.
func (s *server) ownProfile(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (s *server) updateOwnProfile(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var up profile.UpdateProfile
	if err = ctx.Bind(&up); err != nil {
		return err
	}
	if err = up.Validate(s.Validate); err != nil {
		return err
	}

	prof, err = s.ProfileSvc.Update(ctx.Request().Context(), prof.ID, up)
	if err != nil {
		return err
	}
	s.invalidate(ctx, core.TopicProfiles)
	return ctx.JSON(http.StatusOK, prof)
}

func (s *server) listProfiles(ctx echo.Context) error {
	var filter profile.QueryFilter
	if err := ctx.Bind(&filter); err != nil { // query params on GET
		return err
	}
	filter.Clean()

	var ord Ordering
	if err := ord.Bind(ctx, profile.OrderingFields...); err != nil {
		return err
	}

	profs, err := s.ProfileSvc.Query(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (s *server) setProfileRole(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, s.ProfileSvc)
	if err != nil {
		return err
	}

	var sr profile.SetRole
	if err = ctx.Bind(&sr); err != nil {
		return err
	}
	if err = sr.Validate(s.Validate); err != nil {
		return err
	}

	prof, err := s.ProfileSvc.SetRole(ctx.Request().Context(), actor, ctx.Param("id"), sr.Role)
	if err != nil {
		return err
	}
	s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, actionlog.ActionSetRole, "profile", prof.ID, sr.Role)
	s.invalidate(ctx, core.TopicProfiles)
	return ctx.JSON(http.StatusOK, prof)
}
