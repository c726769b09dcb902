package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/council/apps/api/echo"
	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
	cachesvc "github.com/trezcool/council/services/cache"
	emailsvc "github.com/trezcool/council/services/email"
	livesvc "github.com/trezcool/council/services/live"
	logsvc "github.com/trezcool/council/services/logger"
	storagesvc "github.com/trezcool/council/services/storage"
	"github.com/trezcool/council/storage/database"
	"github.com/trezcool/council/storage/database/inmem"
	"github.com/trezcool/council/storage/database/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		log.Fatalf("setting up local logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local.Named("API"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(local.Named("DB"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	cache, closeCache, err := setUpCache(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	defer closeCache()

	hub := livesvc.NewHub(logger)
	defer hub.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	profileSvc := profile.NewService(repos.Profiles)
	accountSvc := account.NewService(repos.Accounts, profileSvc, mailSvc, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, !conf.Debug)

	account.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			AccountSvc:      accountSvc,
			ProfileSvc:      profileSvc,
			AnnouncementSvc: announcement.NewService(repos.Announcements),
			PollSvc:         poll.NewService(repos.Polls),
			IdeaSvc:         idea.NewService(repos.Ideas),
			EventSvc:        event.NewService(repos.Events, accountSvc, profileSvc, mailSvc, logger),
			BlutenSvc:       bluten.NewService(repos.Bluten),
			ActionLogSvc:    actionlog.NewService(repos.ActionLogs, logger),
			Cache:           cache,
			Live:            hub,
			Files:           storagesvc.NewLocalStore(conf),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		accountSvc.Wait()
	}
}

// setUpRepositories returns the in-memory store when configured, Postgres otherwise.
func setUpRepositories(conf *core.Config) (database.Repositories, func() error, error) {
	if conf.InMemory {
		return inmem.NewRepositories(inmem.Open()), func() error { return nil }, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return database.Repositories{}, nil, errors.Wrap(err, "creating database")
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return database.Repositories{}, nil, errors.Wrap(err, "opening database")
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return database.Repositories{}, nil, errors.Wrap(err, "migrating database")
	}
	return postgres.NewRepositories(db), db.Close, nil
}

// setUpCache returns a redis cache when REDIS_URL is set, an in-memory one otherwise.
func setUpCache(conf *core.Config) (core.Cache, func(), error) {
	if conf.RedisURL == "" {
		return cachesvc.NewMemoryCache(), func() {}, nil
	}
	cache, client, err := cachesvc.NewRedisCache(context.Background(), conf.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return cache, func() { _ = client.Close() }, nil
}
