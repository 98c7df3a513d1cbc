package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doctrack/internal/domain/document"
)

// docAction builds a one-argument command that runs op and prints the result.
func (c *cli) docAction(use, short string, op func(cmd *cobra.Command, cn string) (document.Document, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <control-number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			d, err := op(cmd, args[0])
			if err != nil {
				return err
			}
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <control-number> <status>",
		Short: "Set the document status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			if err := c.session(cmd); err != nil {
				return err
			}
			d, err := c.app.SetStatus(cmd.Context(), args[0], s)
			if err != nil {
				return err
			}
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
	return cmd
}

func (c *cli) winsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wins <control-number> <wins-status>",
		Short: "Set the WINS status (approved, pending, rejected)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := parseWins(joinArgs(args[1:]))
			if err != nil {
				return err
			}
			if err := c.session(cmd); err != nil {
				return err
			}
			d, err := c.app.SetWinsStatus(cmd.Context(), args[0], w)
			if err != nil {
				return err
			}
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
}

func (c *cli) notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <control-number> <text...>",
		Short: "Replace the notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			d, err := c.app.EditNotes(cmd.Context(), args[0], joinArgs(args[1:]))
			if err != nil {
				return err
			}
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
}

func (c *cli) forwardCmd() *cobra.Command {
	return c.docAction("forward", "Forward to an admin for acknowledgement", func(cmd *cobra.Command, cn string) (document.Document, error) {
		return c.app.Forward(cmd.Context(), cn)
	})
}

func (c *cli) receiveCmd() *cobra.Command {
	return c.docAction("receive", "Acknowledge a forwarded document (admin)", func(cmd *cobra.Command, cn string) (document.Document, error) {
		return c.app.Receive(cmd.Context(), cn)
	})
}

func (c *cli) returnCmd() *cobra.Command {
	var reason string
	cmd := c.docAction("return", "Return a received document to its sender (admin)", func(cmd *cobra.Command, cn string) (document.Document, error) {
		return c.app.Return(cmd.Context(), cn, reason)
	})
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why it is being returned")
	return cmd
}

func (c *cli) simpleAction(use, short, done string, op func(cmd *cobra.Command, cn string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <control-number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			if err := op(cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return nil
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return c.simpleAction("delete", "Move a document to the archive (admin)", "Deleted", func(cmd *cobra.Command, cn string) error {
		return c.app.Delete(cmd.Context(), cn)
	})
}

func (c *cli) restoreCmd() *cobra.Command {
	return c.simpleAction("restore", "Bring a document back from the archive (admin)", "Restored", func(cmd *cobra.Command, cn string) error {
		return c.app.Restore(cmd.Context(), cn)
	})
}

func (c *cli) purgeCmd() *cobra.Command {
	return c.simpleAction("purge", "Remove an archived document for good (admin)", "Purged", func(cmd *cobra.Command, cn string) error {
		return c.app.Purge(cmd.Context(), cn)
	})
}

func (c *cli) bulkCmd() *cobra.Command {
	bulk := &cobra.Command{
		Use:   "bulk",
		Short: "Apply an admin action to several documents",
	}
	report := func(cmd *cobra.Command, res document.BulkResult) error {
		if c.asJSON {
			skipped := make(map[string]string, len(res.Skipped))
			for cn, err := range res.Skipped {
				skipped[cn] = err.Error()
			}
			return c.printJSON(cmd.OutOrStdout(), map[string]any{"applied": res.Applied, "skipped": skipped})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d, skipped %d\n", res.AppliedCount(), res.SkippedCount())
		for cn, err := range res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", cn, err)
		}
		return nil
	}

	receive := &cobra.Command{
		Use:   "receive <control-number>...",
		Short: "Receive every listed forwarded document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			res, err := c.app.BulkReceive(cmd.Context(), args)
			if err != nil {
				return err
			}
			return report(cmd, res)
		},
	}
	del := &cobra.Command{
		Use:   "delete <control-number>...",
		Short: "Archive every listed document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			res, err := c.app.BulkDelete(cmd.Context(), args)
			if err != nil {
				return err
			}
			return report(cmd, res)
		},
	}
	var status string
	setStatus := &cobra.Command{
		Use:   "status --to <status> <control-number>...",
		Short: "Set the status of every listed document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseStatus(status)
			if err != nil {
				return err
			}
			if err := c.session(cmd); err != nil {
				return err
			}
			res, err := c.app.BulkUpdateStatus(cmd.Context(), args, s)
			if err != nil {
				return err
			}
			return report(cmd, res)
		},
	}
	setStatus.Flags().StringVar(&status, "to", "", "target status")
	_ = setStatus.MarkFlagRequired("to")

	bulk.AddCommand(receive, del, setStatus)
	return bulk
}
