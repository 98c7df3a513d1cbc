package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"doctrack/internal/client/app"
	"doctrack/internal/client/session"
	"doctrack/internal/domain/document"
)

// watchCmd syncs in the background, reprints the list whenever the
// collection changes and exits on inactivity sign-out.
func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the document list live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			changed := make(chan struct{}, 1)
			c.app.Store().OnChange(func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			c.app.OnPull(func(updated bool) {
				if updated {
					fmt.Fprintf(cmd.ErrOrStderr(), "Updated from server at %s\n", c.app.Now().In(c.app.Location()).Format("15:04:05"))
				}
			})
			expired := make(chan struct{})
			go c.app.Session().Watch(ctx, func() { close(expired) })

			if !c.app.Online() {
				fmt.Fprintln(cmd.ErrOrStderr(), "local-only: no server reachable")
			}
			show := func(docs []document.Document) error {
				fmt.Fprintln(cmd.OutOrStdout())
				return c.printDocs(cmd.OutOrStdout(), docs)
			}
			docs, err := c.app.List(ctx, app.Filter{})
			if err != nil {
				return err
			}
			if err := show(docs); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-expired:
					fmt.Fprintln(cmd.ErrOrStderr(), "Signed out after inactivity")
					return nil
				case <-changed:
					// Redraws are not user activity.
					docs, err := c.app.Snapshot(ctx, app.Filter{})
					if errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrNotSignedIn) {
						fmt.Fprintln(cmd.ErrOrStderr(), "Signed out after inactivity")
						return nil
					}
					if err != nil {
						return err
					}
					if err := show(docs); err != nil {
						return err
					}
				}
			}
		},
	}
}
