package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
	emailsvc "github.com/trezcool/council/services/email"
	logsvc "github.com/trezcool/council/services/logger"
	"github.com/trezcool/council/storage/database"
	"github.com/trezcool/council/storage/database/inmem"
	"github.com/trezcool/council/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		log.Fatalf("setting up local logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local.Named("ADMIN"), conf)
	logger.Enable(!conf.Debug)

	cli := commandLine{out: os.Stdout}
	validate, _ := core.NewValidator()
	cli.validate = validate

	// set up DB & services
	var repos database.Repositories
	if conf.InMemory {
		repos = inmem.NewRepositories(inmem.Open())
	} else {
		db, err := database.Open(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		cli.db = db.DB
		repos = postgres.NewRepositories(db)
	}
	cli.profileSvc = profile.NewService(repos.Profiles)
	cli.accountSvc = account.NewService(repos.Accounts, cli.profileSvc, emailsvc.NewConsoleService(logger, conf), logger, conf)

	err = cli.run(os.Args)
	if cli.db != nil {
		_ = cli.db.Close()
	}
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
