package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/account"
)

func (s *server) registerAccountAPI(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/signup", s.signUp)
	g.POST("/login", s.login)
	g.POST("/refresh", s.refresh, s.jwt)
	g.POST("/password-reset", s.passwordReset)
	g.POST("/password-reset-confirm", s.passwordResetConfirm)
}

// signUp creates the account. The profile is provisioned in the background.
func (s *server) signUp(ctx echo.Context) error {
	var su account.SignUp
	if err := ctx.Bind(&su); err != nil {
		return err
	}
	if err := su.Validate(s.Validate, s.AccountSvc); err != nil {
		return err
	}

	acc, err := s.AccountSvc.SignUp(ctx.Request().Context(), su)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (s *server) login(ctx echo.Context) error {
	var l account.Login
	if err := ctx.Bind(&l); err != nil {
		return err
	}
	if err := l.Validate(s.Validate); err != nil {
		return err
	}

	acc, err := s.AccountSvc.Authenticate(ctx.Request().Context(), l.Email, l.Password)
	if err != nil {
		return err
	}
	session, err := newSession(GetAccountClaims(acc, s.Conf), s.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *server) refresh(ctx echo.Context) error {
	session, err := s.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session)
}

// passwordReset never reveals whether the email is known.
func (s *server) passwordReset(ctx echo.Context) error {
	var pr account.PasswordResetRequest
	if err := ctx.Bind(&pr); err != nil {
		return err
	}
	if err := pr.Validate(s.Validate); err != nil {
		return err
	}

	if err := s.AccountSvc.RequestPasswordReset(ctx.Request().Context(), pr.Email); err != nil && err != account.ErrNotFound {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.NoContent(http.StatusOK)
}

func (s *server) passwordResetConfirm(ctx echo.Context) error {
	var rp account.ResetPassword
	if err := ctx.Bind(&rp); err != nil {
		return err
	}
	if err := rp.Validate(s.Validate); err != nil {
		return err
	}

	if err := s.AccountSvc.ResetPassword(ctx.Request().Context(), rp); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}
