package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/profile"
)

func (s *server) registerActionLogAPI(admin *echo.Group) {
	admin.GET("/action-logs", s.listActionLogs)
}

func (s *server) listActionLogs(ctx echo.Context) error {
	var filter actionlog.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return err
	}
	entries, err := s.ActionLogSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

// recordModeration records the action when taken by an admin.
func (s *server) recordModeration(ctx echo.Context, actor profile.Profile, action, targetType, targetID string) {
	if actor.IsAdmin() {
		s.ActionLogSvc.Record(ctx.Request().Context(), actor.ID, action, targetType, targetID, "")
	}
}
