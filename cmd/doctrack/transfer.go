package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"doctrack/pkg/fsutil"
)

func (c *cli) importCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import documents from CSV (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := c.app.Import(cmd.Context(), f, overwrite)
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import complete: %d added, %d updated, %d skipped\n", res.Added, res.Updated, res.Skipped)
			keys := make([]string, 0, len(res.Rejected))
			for cn := range res.Rejected {
				keys = append(keys, cn)
			}
			sort.Strings(keys)
			for _, cn := range keys {
				fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %s: %v\n", cn, res.Rejected[cn])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace documents whose control number already exists")
	return cmd
}

// writeOut sends fn's output to path, or stdout when path is empty or "-".
func writeOut(cmd *cobra.Command, path string, fn func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Export active documents to CSV (admin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			return writeOut(cmd, firstArg(args), func(w io.Writer) error {
				return c.app.Export(cmd.Context(), w)
			})
		},
	}
}

func (c *cli) templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [file.csv]",
		Short: "Write an import template (admin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session(cmd); err != nil {
				return err
			}
			return writeOut(cmd, firstArg(args), func(w io.Writer) error {
				return c.app.Template(cmd.Context(), w)
			})
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
