package echoapi

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
	storagesvc "github.com/trezcool/council/services/storage"
)

type (
	// LiveHub broadcasts invalidation topics to websocket clients.
	LiveHub interface {
		core.Broadcaster
		ServeConn(conn *websocket.Conn)
	}

	FileStore interface {
		Save(ctx context.Context, r io.Reader) (storagesvc.File, error)
		Path(name string) (string, error)
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		AccountSvc      account.Service
		ProfileSvc      profile.Service
		AnnouncementSvc announcement.Service
		PollSvc         poll.Service
		IdeaSvc         idea.Service
		EventSvc        event.Service
		BlutenSvc       bluten.Service
		ActionLogSvc    actionlog.Service

		Cache core.Cache
		Live  LiveHub
		Files FileStore
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		ServerDeps
		app      *echo.Echo
		jwt      echo.MiddlewareFunc
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug && !s.Conf.TestMode

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	s.jwt = middleware.JWTWithConfig(s.jwtConfig())
	admin := api.Group("/admin", s.jwt, s.requireAdmin)

	s.registerAccountAPI(api)
	s.registerProfileAPI(api, admin)
	s.registerAnnouncementAPI(api, admin)
	s.registerPollAPI(api, admin)
	s.registerIdeaAPI(api, admin)
	s.registerEventAPI(api, admin)
	s.registerBlutenAPI(api, admin)
	s.registerActionLogAPI(admin)
	s.registerFileAPI(api)
	s.registerLiveAPI(api)
}

func (s *server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks main to gracefully shut the server down.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.Conf.AppName+" API!")
}
