package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doctrack/internal/client/app"
	"doctrack/internal/client/remote"
	"doctrack/internal/domain/user"
)

func (c *cli) usersRemote(cmd *cobra.Command) (*remote.Client, error) {
	if c.app.Remote() == nil {
		return nil, app.ErrNoServer
	}
	if _, err := c.app.Session().Resume(cmd.Context()); err != nil {
		return nil, err
	}
	return c.app.Remote(), nil
}

func (c *cli) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage server accounts (admin)",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := c.usersRemote(cmd)
			if err != nil {
				return err
			}
			out, err := rc.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tROLE\tCREATED")
			for _, u := range out {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, c.formatTime(u.CreatedAt))
			}
			return tw.Flush()
		},
	}
	role := &cobra.Command{
		Use:   "role <username> <user|admin>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := user.Role(args[1])
			if !r.Valid() {
				return fmt.Errorf("%w: %q", user.ErrInvalidRole, args[1])
			}
			rc, err := c.usersRemote(cmd)
			if err != nil {
				return err
			}
			if err := rc.UpdateRole(cmd.Context(), args[0], r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], r)
			return nil
		},
	}
	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.usersRemote(cmd)
			if err != nil {
				return err
			}
			if err := rc.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	users.AddCommand(list, role, del)
	return users
}
