// Package cli implements the reinsdesk command line: one-shot commands, the
// line shell and the full-screen browser.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
	"github.com/atinyakov/ReinsDesk/internal/app"
	"github.com/atinyakov/ReinsDesk/internal/config"
	"github.com/atinyakov/ReinsDesk/internal/logger"
)

// App carries the state shared by every command of one invocation.
type App struct {
	ConfigFile string
	EnvFile    string
	Version    string
	BuildDate  string

	v    *viper.Viper
	opts *config.Options
	log  *logger.Logger
	core *app.App
	note *notifier
}

// NewRootCmd builds the reinsdesk command tree.
func NewRootCmd(version, buildDate string) *cobra.Command {
	a := &App{
		Version:   version,
		BuildDate: buildDate,
		v:         config.New(),
		log:       logger.New(),
	}

	cmd := &cobra.Command{
		Use:           "reinsdesk",
		Short:         "Terminal client for the REINS listing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in and list the first two pages
  reinsdesk login -u agent1
  reinsdesk properties list --pages 2

  # Filter the whole collection and print JSON
  reinsdesk properties list --all --prefecture Tokyo --max-rent 100000 --format json

  # Interactive use
  reinsdesk shell
  reinsdesk browse
`),
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.Close()
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.ConfigFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.EnvFile, "env-file", ".env", "dotenv file loaded before the environment")
	pf.String("api-url", "", "backend API base URL")
	pf.String("files-url", "", "base URL serving /files (default: API URL without /api)")
	pf.Duration("timeout", 0, "HTTP timeout")
	pf.String("ca", "", "CA certificate for HTTPS backends")
	pf.String("storage", "", "credential storage: file, sqlite, postgres or memory")
	pf.String("storage-dsn", "", "file path or database DSN for the credential storage")
	pf.Int("page-size", 0, "listing page size")
	pf.String("format", "", "output format: table or json")
	pf.Bool("pretty", false, "pretty-print JSON output")
	pf.String("log-level", "", "log level")
	pf.String("log-format", "", "log format: console or json")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newPropertiesCmd(a))
	cmd.AddCommand(newShellCmd(a))
	cmd.AddCommand(newBrowseCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// Execute runs the command tree and returns the process exit code. Errors
// already shown by the notification sink are not printed again.
func Execute(version, buildDate string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(version, buildDate)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !apiclient.Notified(err) && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		}
		return 1
	}
	return 0
}

func (a *App) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	opts, err := config.Load(a.v, a.ConfigFile, a.EnvFile)
	if err != nil {
		return err
	}
	a.opts = opts

	a.log = logger.New(logger.WithFormat(opts.Log.Format), logger.WithOutput("stderr"))
	if err := a.log.Init(opts.Log.Level); err != nil {
		return err
	}
	a.note = newNotifier(cmd.ErrOrStderr())
	return nil
}

// Core returns the composed client, building it on first use.
func (a *App) Core(cmd *cobra.Command) (*app.App, error) {
	if a.core != nil {
		return a.core, nil
	}
	c, err := app.New(cmd.Context(), a.opts, a.log.Log, a.note.Notify)
	if err != nil {
		return nil, err
	}
	a.core = c
	return c, nil
}

// Close releases the client if one was built.
func (a *App) Close() error {
	if a.log != nil {
		_ = a.log.Log.Sync()
	}
	if a.core == nil {
		return nil
	}
	err := a.core.Close()
	a.core = nil
	return err
}

func newVersionCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := map[string]string{"version": orNA(a.Version), "buildDate": orNA(a.BuildDate)}
			return a.write(cmd, v, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "ReinsDesk\nVersion: %s\nBuild Date: %s\n", v["version"], v["buildDate"])
				return err
			})
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
