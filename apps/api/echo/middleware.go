package echoapi

import (
	"github.com/labstack/echo/v4"
)

// requireAdmin reads the caller's profile row, the only source of truth for roles.
func (s *server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		prof, err := getContextProfile(ctx, s.ProfileSvc)
		if err != nil {
			if isProfileMissing(err) {
				return errHttpForbidden
			}
			return err
		}
		if !prof.IsAdmin() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
