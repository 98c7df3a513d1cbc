package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doctrack/internal/domain/document"
)

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Counts by status, WINS status and age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			st, err := c.app.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(cmd.OutOrStdout(), st)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n\n", st.Total)
			for _, s := range document.Statuses {
				fmt.Fprintf(tw, "%s\t%d\n", s, st.Status[s])
			}
			fmt.Fprintln(tw)
			for _, w := range document.WinsStatuses {
				fmt.Fprintf(tw, "WINS %s\t%d\n", w, st.Wins[w])
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "AGE\tOPEN\tAVG DAYS\t0-7\t8-30\t>30")
			for _, s := range []document.Status{document.StatusRevision, document.StatusRouting} {
				b := st.Age[s]
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s, b.Total, b.AvgDays, b.UpToWeek, b.UpToMonth, b.Older)
			}
			return tw.Flush()
		},
	}
}
