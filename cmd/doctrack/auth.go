package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doctrack/internal/client/session"
	"doctrack/internal/domain/user"
)

// readPassword takes the flag value, or the first line of stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", session.ErrMissingCredentials
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			s, err := c.app.Session().Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "username": s.Username, "role": s.Role})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.Username, s.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.app.Session().Resume(cmd.Context()); err != nil && !errors.Is(err, session.ErrExpired) {
				return err
			}
			c.app.SignOut(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var password, role string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account; a second admin needs an admin session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			// An admin session is optional here; it only matters for role=admin.
			_, _ = c.app.Session().Resume(cmd.Context())
			r := user.ParseRole(role)
			if err := c.app.Session().Register(cmd.Context(), args[0], pw, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", strings.TrimSpace(args[0]), r)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	cmd.Flags().StringVar(&role, "role", string(user.RoleUser), "user or admin")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.app.Session().Resume(cmd.Context())
			if err != nil {
				return err
			}
			role, err := c.app.Session().Role()
			if err != nil {
				return err
			}
			mode := "local-only"
			if c.cfg.Server != "" {
				mode = c.cfg.Server
			}
			if c.asJSON {
				return c.printJSON(cmd.OutOrStdout(), map[string]any{"username": s.Username, "role": role, "server": c.cfg.Server})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) on %s\n", s.Username, role, mode)
			return nil
		},
	}
}
