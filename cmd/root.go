// Package cmd implements the command-line interface of the lead scraper.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"supplier_leads_scraper/internal/auth"
	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/config"
	"supplier_leads_scraper/internal/logger"
)

// Version is set at build time with -ldflags "-X supplier_leads_scraper/cmd.Version=...".
var Version = "dev"

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitNoBrowser   = 2
	ExitNotLoggedIn = 3
	ExitInterrupted = 130
)

// exitError carries an explicit process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, browser.ErrUnavailable):
		return ExitNoBrowser
	case errors.Is(err, auth.ErrNotAuthenticated):
		return ExitNotLoggedIn
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// rootOptions is the state shared by all subcommands.
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	debug   bool
	// open acquires the browser session. Tests replace it.
	open func(ctx context.Context, opts browser.Options) (browser.Session, error)
	now  func() time.Time
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree with a fresh configuration registry.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{v: viper.New(), open: browser.Open, now: time.Now})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "supplier-leads",
		Short: "Collect supplier leads from ThomasNet search results",
		Long: `Collect supplier leads from ThomasNet search results.

The scraper logs in through a visible browser window, pages through the search
results and writes every new company to a timestamped CSV or XLSX file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(opts),
		newCheckLoginCommand(opts),
		newHistoryCommand(opts),
		newVersionCommand(),
	)
	return root
}

// load resolves the configuration and builds the logger.
func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if o.debug {
		cfg.Logger.Level = "debug"
		cfg.Logger.Development = true
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

// bindFlags binds flags to configuration keys for the command being executed.
func (o *rootOptions) bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := o.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func browserOptions(cfg *config.Config, log logger.Logger) browser.Options {
	return browser.Options{
		Driver:          cfg.Browser.Driver,
		Headless:        cfg.Browser.Headless,
		ProfileDir:      cfg.Browser.ProfileDir,
		ExecPath:        cfg.Browser.ExecPath,
		UserAgent:       cfg.Browser.UserAgent,
		ClickSettle:     cfg.Browser.ClickSettle,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
		Logger:          log,
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "supplier-leads version %s\n", Version)
		},
	}
}
