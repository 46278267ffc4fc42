package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ankur-foundation/ngo-portal/internal/rbac"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
)

func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Print every role with its description and permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRoles(cmd)
		},
	}
}

func printRoles(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tDESCRIPTION\tPERMISSIONS")
	for _, r := range rbac.Roles() {
		perms := rbac.PermissionsOf(r)
		names := make([]string, 0, len(perms))
		for _, p := range perms {
			names = append(names, p.String())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r, rbac.Description(r), strings.Join(names, ","))
	}
	return w.Flush()
}

func newSetRoleCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an existing user",
		Long: `Change the role of an existing user.

With AUTH_ROLE_SOURCE=store (the default) the change applies to the user's
next request; with AUTH_ROLE_SOURCE=token it applies after the next login.

Examples:
  portalctl set-role --email member@ankur.org --role SECRETARY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, ok := rbac.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			users := repository.NewUserRepo(db)
			u, err := users.GetByEmail(cmd.Context(), email)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}
			if u, err = users.SetRole(cmd.Context(), u.ID, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
