package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

var (
	tokenContextKey   = "accountToken"
	contextProfileKey = "profile"
)

// Claims represents the authorization claims transmitted via a JWT.
// Roles are deliberately absent: authorization always reads the profile row.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

func GetAccountClaims(acc account.Account, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   acc.ID,
			Audience:  "Council",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acc.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func newSession(claims *Claims, conf *core.Config) (account.Session, error) {
	token, err := GenerateToken(claims, conf)
	if err != nil {
		return account.Session{}, err
	}
	return account.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   time.Unix(claims.ExpiresAt, 0).UTC(),
		Subject:     claims.Subject,
		Email:       claims.Email,
	}, nil
}

func (s *server) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(s.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextProfile loads the caller's profile row once per request.
// It fails with profile.ErrNotFound while the profile is being provisioned.
func getContextProfile(ctx echo.Context, svc profile.Service) (profile.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(profile.Profile); ok {
		return prof, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Profile{}, err
	}

	prof, err := svc.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return profile.Profile{}, err
	}
	ctx.Set(contextProfileKey, prof)
	return prof, nil
}

func (s *server) refreshToken(ctx echo.Context) (account.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Session{}, err
	}

	acc, err := s.AccountSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if err == account.ErrNotFound {
			return account.Session{}, errUnauthorized
		}
		return account.Session{}, errors.Wrap(err, "finding account by ID")
	}

	// check if account is still active
	if !acc.IsActive {
		return account.Session{}, account.ErrDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return account.Session{}, errRefreshExpired
	}

	session, err := newSession(GetAccountClaims(acc, s.Conf, claims.OrigIssuedAt), s.Conf)
	return session, errors.Wrap(err, "generating token")
}
