package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"supplier_leads_scraper/internal/auth"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

func newCheckLoginCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-login",
		Short: "Open the browser profile and log in without scraping",
		Long: `Open the browser with the persistent profile, walk through the manual
login if needed and report whether the session is authenticated. The login is
kept in the profile directory for later runs.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.bindFlags(cmd.Flags(), map[string]string{
				"mode":   "login.mode",
				"strict": "login.strict",
				"driver": "browser.driver",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := cmd.Context()

			sess, err := opts.open(ctx, browserOptions(cfg, log))
			if err != nil {
				return &exitError{code: ExitNoBrowser, err: err}
			}
			defer func() {
				if cerr := sess.Close(); cerr != nil {
					log.Warn("Error closing browser", logger.Error(cerr))
				}
			}()

			checker := auth.NewChecker(cfg.Login.Strict, log, poll.Sleep)
			prompter := auth.NewPrompter(checker, cfg.Login, cmd.InOrStdin(), cmd.OutOrStdout(), log, poll.Sleep)
			if err := prompter.Ensure(ctx, sess); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[+] Logged in. Profile saved in %s\n", cfg.Browser.ProfileDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("mode", "prompt", "login interaction (prompt or enter)")
	f.Bool("strict", true, "reject pages that still show the login form")
	f.String("driver", "chromedp", "browser driver (chromedp or rod)")
	return cmd
}
