package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"doctrack/internal/client/app"
	"doctrack/internal/config"
	"doctrack/internal/domain/document"
	"doctrack/internal/infrastructure/logging"
)

// cli carries what every command needs once the root pre-run has opened the
// client.
type cli struct {
	home     string
	server   string
	logLevel string
	asJSON   bool

	cfg *config.ClientConfig
	app *app.App
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "doctrack",
		Short:        "Track ECOM documents through revision, routing and admin hand-off",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&c.home, "home", "", "state directory (default $DOCTRACK_HOME or ~/.doctrack)")
	f.StringVar(&c.server, "server", "", "remote store URL (default $DOCTRACK_SERVER; empty is local-only)")
	f.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		c.loginCmd(), c.logoutCmd(), c.registerCmd(), c.whoamiCmd(),
		c.listCmd(), c.showCmd(), c.createCmd(), c.editCmd(),
		c.statusCmd(), c.winsCmd(), c.notesCmd(),
		c.forwardCmd(), c.receiveCmd(), c.returnCmd(),
		c.deleteCmd(), c.restoreCmd(), c.purgeCmd(), c.archiveCmd(),
		c.bulkCmd(), c.importCmd(), c.exportCmd(), c.templateCmd(),
		c.statsCmd(), c.watchCmd(), c.usersCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg := config.LoadClient()
	if c.home != "" {
		cfg.Home = c.home
	}
	if c.server != "" {
		cfg.Server = strings.TrimRight(c.server, "/")
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg
	c.log = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, true)
	slog.SetDefault(c.log)

	a, err := app.Open(cfg, c.log)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// session resumes the persisted sign-in and starts syncing for the command.
func (c *cli) session(cmd *cobra.Command) error {
	if _, err := c.app.Session().Resume(cmd.Context()); err != nil {
		return fmt.Errorf("%w (run `doctrack login`)", err)
	}
	return c.app.StartSync(cmd.Context())
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) formatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(c.app.Location()).Format("2006-01-02 15:04")
}

func parseStatus(s string) (document.Status, error) {
	for _, st := range document.Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", document.ErrInvalidStatus, s, joinStatuses())
}

// parseWins accepts the full label or its first word, so "pending" works.
func parseWins(s string) (document.WinsStatus, error) {
	s = strings.TrimSpace(s)
	for _, w := range document.WinsStatuses {
		if strings.EqualFold(string(w), s) || strings.EqualFold(strings.Fields(string(w))[0], s) {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", document.ErrInvalidWinsStatus, s)
}

func joinStatuses() string {
	out := make([]string, len(document.Statuses))
	for i, s := range document.Statuses {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}
