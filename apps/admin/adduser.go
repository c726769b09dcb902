package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an active account and its profile; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "email"); err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			isAdmin, _ := cmd.Flags().GetBool("admin")
			if err := cli.validate.Var(email, "email"); err != nil {
				return fmt.Errorf("%q is not a valid email address", email)
			}

			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			p, err := cli.addUser(context.Background(), email, name, pwd, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is ready\n", email, p.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "The account email")
	cmd.Flags().String("name", "", "The display name (defaults to the email)")
	cmd.Flags().Bool("admin", false, "Grant the admin role")
	return cmd
}

// addUser updates or creates an active account.Account, then makes sure its profile exists.
func (cli *commandLine) addUser(ctx context.Context, email, name, pwd string, isAdmin bool) (profile.Profile, error) {
	acc, err := cli.accountSvc.GetByEmail(ctx, email)
	switch err {
	case nil:
		if acc, err = cli.accountSvc.SetPassword(ctx, acc.Email, pwd); err != nil {
			return profile.Profile{}, err
		}
		if !acc.IsActive {
			if acc, err = cli.accountSvc.SetActive(ctx, acc.ID, true); err != nil {
				return profile.Profile{}, err
			}
		}
	case account.ErrNotFound:
		if acc, err = cli.accountSvc.CreateAccount(ctx, email, pwd); err != nil {
			return profile.Profile{}, err
		}
	default:
		return profile.Profile{}, err
	}

	if name = core.CleanString(name); name == "" {
		name = acc.Email
	}
	role := profile.RoleStudent
	if isAdmin {
		role = profile.RoleAdmin
	}

	p, err := cli.profileSvc.Get(ctx, acc.ID)
	if err == profile.ErrNotFound {
		return cli.profileSvc.Create(ctx, profile.Profile{ID: acc.ID, Name: name, Role: role})
	}
	if err != nil {
		return profile.Profile{}, err
	}
	if isAdmin && !p.IsAdmin() {
		return cli.profileSvc.SetRole(ctx, operator, p.ID, role)
	}
	return p, nil
}
