package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/council/core/profile"
)

// operator is the actor of role changes made from the command line. It outranks everyone and owns no profile.
var operator = profile.Profile{Name: "operator", Role: profile.RoleAdmin}

func (cli *commandLine) setRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setrole",
		Short: "Change the role of an account's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "email", "role"); err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			role = strings.ToLower(strings.TrimSpace(role))
			if !profile.IsValidRole(role) {
				return fmt.Errorf("role must be one of %v", profile.AllRoles)
			}

			ctx := context.Background()
			acc, err := cli.accountSvc.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			p, err := cli.profileSvc.SetRole(ctx, operator, acc.ID, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, p.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "The account email")
	cmd.Flags().String("role", "", "One of admin, teacher, student")
	return cmd
}
