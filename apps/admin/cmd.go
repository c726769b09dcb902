package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
	"github.com/trezcool/council/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigration // mockable

	errHelp  = errors.New("help provided")
	errNoDB  = errors.New("migrations need the postgres store, unset IN_MEMORY")
	errNoPwd = errors.New("password cannot be empty")
)

type commandLine struct {
	db         *sql.DB // nil with the in-memory store
	accountSvc account.Service
	profileSvc profile.Service
	validate   *validator.Validate
	out        io.Writer
}

// run executes the command line args (program name included).
// A fresh command tree is built on every call so that flags never leak between runs.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                "admin",
		Short:              "School council administration",
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	if cli.out != nil {
		root.SetOut(cli.out)
		root.SetErr(cli.out)
	}

	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.setRoleCmd(),
	)
	return root
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPwd
	}
	return string(pwd), nil
}

// requireFlags prints the usage and returns errHelp when one of the flags is empty.
func requireFlags(cmd *cobra.Command, flags ...string) error {
	for _, name := range flags {
		if v, _ := cmd.Flags().GetString(name); v == "" {
			_ = cmd.Usage()
			return errHelp
		}
	}
	return nil
}
