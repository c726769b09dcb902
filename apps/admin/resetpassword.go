package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset an account's password; the new password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "email"); err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")

			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			if _, err = cli.accountSvc.SetPassword(context.Background(), email, pwd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password updated")
			return nil
		},
	}
	cmd.Flags().String("email", "", "The account email")
	return cmd
}
