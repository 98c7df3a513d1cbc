package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doctrack/internal/client/app"
	"doctrack/internal/client/csvio"
	"doctrack/internal/domain/document"
)

func (c *cli) printDocs(w io.Writer, docs []document.Document) error {
	if c.asJSON {
		if docs == nil {
			docs = []document.Document{}
		}
		return c.printJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTROL\tTITLE\tOWNER\tSTATUS\tWINS\tADMIN\tCREATED\tUPDATED")
	for _, d := range docs {
		admin := string(d.AdminStatus)
		if d.Forwarded {
			admin = "Forwarded"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ControlNumber, d.Title, d.Owner, d.Status, d.WinsStatus, admin,
			c.formatTime(d.CreatedAt), c.formatTime(d.UpdatedAt))
	}
	return tw.Flush()
}

func (c *cli) printDoc(w io.Writer, d document.Document) error {
	if c.asJSON {
		return c.printJSON(w, d)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("Control number", d.ControlNumber)
	row("Title", d.Title)
	row("Owner", d.Owner)
	row("Notes", d.Notes)
	row("Status", string(d.Status))
	row("WINS status", string(d.WinsStatus))
	if d.Forwarded {
		row("Forwarded", fmt.Sprintf("by %s at %s", d.ForwardedBy, c.formatTime(d.ForwardedAt)))
	}
	row("Admin status", string(d.AdminStatus))
	if d.ForwardedHandledBy != "" {
		row("Received", fmt.Sprintf("by %s at %s", d.ForwardedHandledBy, c.formatTime(d.ForwardedHandledAt)))
	}
	if d.ReturnedBy != "" {
		row("Returned", fmt.Sprintf("by %s at %s", d.ReturnedBy, c.formatTime(d.ReturnedAt)))
		row("Return reason", d.ReturnReason)
	}
	row("Created", c.formatTime(d.CreatedAt))
	row("Updated", c.formatTime(d.UpdatedAt))
	row("Deleted", c.formatTime(d.DeletedAt))
	return tw.Flush()
}

func (c *cli) listCmd() *cobra.Command {
	var query, status, wins string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			f := app.Filter{Query: query}
			if status != "" {
				s, err := parseStatus(status)
				if err != nil {
					return err
				}
				f.Status = s
			}
			if wins != "" {
				w, err := parseWins(wins)
				if err != nil {
					return err
				}
				f.WinsStatus = w
			}
			docs, err := c.app.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return c.printDocs(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "match control number, title, notes or owner")
	cmd.Flags().StringVar(&status, "status", "", "only this status")
	cmd.Flags().StringVar(&wins, "wins", "", "only this WINS status")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	var fromServer bool
	cmd := &cobra.Command{
		Use:   "show <control-number>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			get := c.app.Get
			if fromServer {
				get = c.app.RemoteGet
			}
			d, err := get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().BoolVar(&fromServer, "remote", false, "read the server's copy instead of the local one")
	return cmd
}

// docFlags are shared by create and edit.
type docFlags struct {
	controlNumber, title, owner, notes, status, wins, created string
}

func (f *docFlags) bind(cmd *cobra.Command, cnHelp string) {
	cmd.Flags().StringVar(&f.controlNumber, "cn", "", cnHelp)
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
	cmd.Flags().StringVar(&f.status, "status", "", "Revision, Routing, Approved or Rejected")
	cmd.Flags().StringVar(&f.wins, "wins", "", "Approved, Pending for Approve or Rejected")
	cmd.Flags().StringVar(&f.created, "created", "", `created date, "2006-01-02 15:04:05"`)
}

func (c *cli) parseCreated(s string) (int64, error) {
	ms := csvio.ParseDate(s, c.app.Location())
	if ms == 0 {
		return 0, fmt.Errorf("unreadable created date %q", s)
	}
	return ms, nil
}

func (c *cli) warnStale(w io.Writer, d document.Document) {
	if d.IsStale(c.app.Now()) {
		fmt.Fprintf(w, "warning: %s was created more than 10 years ago; check the date\n", d.ControlNumber)
	}
}

func (c *cli) createCmd() *cobra.Command {
	var f docFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			in := app.CreateInput{
				ControlNumber: f.controlNumber,
				Title:         f.title,
				Owner:         f.owner,
				Notes:         f.notes,
			}
			if f.status != "" {
				s, err := parseStatus(f.status)
				if err != nil {
					return err
				}
				in.Status = s
			}
			if f.wins != "" {
				w, err := parseWins(f.wins)
				if err != nil {
					return err
				}
				in.WinsStatus = w
			}
			if f.created != "" {
				ms, err := c.parseCreated(f.created)
				if err != nil {
					return err
				}
				in.CreatedAt = ms
			}
			d, err := c.app.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.warnStale(cmd.ErrOrStderr(), d)
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
	f.bind(cmd, "control number ECOM-YYYY-NNNN (generated when omitted)")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var f docFlags
	cmd := &cobra.Command{
		Use:   "edit <control-number>",
		Short: "Edit a document; --cn renames it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			var in app.EditInput
			fl := cmd.Flags()
			if fl.Changed("cn") {
				in.ControlNumber = &f.controlNumber
			}
			if fl.Changed("title") {
				in.Title = &f.title
			}
			if fl.Changed("owner") {
				in.Owner = &f.owner
			}
			if fl.Changed("notes") {
				in.Notes = &f.notes
			}
			if fl.Changed("status") {
				s, err := parseStatus(f.status)
				if err != nil {
					return err
				}
				in.Status = &s
			}
			if fl.Changed("wins") {
				w, err := parseWins(f.wins)
				if err != nil {
					return err
				}
				in.WinsStatus = &w
			}
			if fl.Changed("created") {
				ms, err := c.parseCreated(f.created)
				if err != nil {
					return err
				}
				in.CreatedAt = &ms
			}
			d, err := c.app.Edit(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			c.warnStale(cmd.ErrOrStderr(), d)
			return c.printDoc(cmd.OutOrStdout(), d)
		},
	}
	f.bind(cmd, "new control number")
	return cmd
}

func (c *cli) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "List deleted documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			docs, err := c.app.Archive(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printDocs(cmd.OutOrStdout(), docs)
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONTROL\tTITLE\tSTATUS\tDELETED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ControlNumber, d.Title, d.Status, c.formatTime(d.DeletedAt))
			}
			return tw.Flush()
		},
	}
}

func joinArgs(args []string) string { return strings.Join(args, " ") }
