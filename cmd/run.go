package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"supplier_leads_scraper/internal/auth"
	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/collector"
	"supplier_leads_scraper/internal/config"
	"supplier_leads_scraper/internal/dedup"
	"supplier_leads_scraper/internal/ledger"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/output"
	"supplier_leads_scraper/internal/pagination"
	"supplier_leads_scraper/internal/poll"
	"supplier_leads_scraper/internal/report"
)

var runFlagKeys = map[string]string{
	"url":        "search.url",
	"max-leads":  "search.max_leads",
	"format":     "output.format",
	"output-dir": "output.dir",
	"driver":     "browser.driver",
	"headless":   "browser.headless",
	"login":      "login.enabled",
	"use-ledger": "dedup.use_ledger",
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the configured search and save new leads",
		Example: `  supplier-leads run
  supplier-leads run --url https://www.thomasnet.com/suppliers/... --max-leads 75 --format xlsx`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.bindFlags(cmd.Flags(), runFlagKeys)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			s := &scraper{
				cfg:   cfg,
				log:   log,
				in:    cmd.InOrStdin(),
				out:   cmd.OutOrStdout(),
				open:  opts.open,
				now:   opts.now,
				sleep: poll.Sleep,
			}
			return s.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("url", config.DefaultSearchURL, "search results URL")
	f.Int("max-leads", config.DefaultMaxLeads, "stop after this many new leads")
	f.String("format", output.FormatCSV, "output format (csv or xlsx)")
	f.String("output-dir", config.DefaultOutputDir, "output directory")
	f.String("driver", "chromedp", "browser driver (chromedp or rod)")
	f.Bool("headless", false, "run the browser without a window")
	f.Bool("login", true, "require a logged-in session before scraping")
	f.Bool("use-ledger", false, "also skip leads recorded in the ledger")
	return cmd
}

// scraper wires one scrape run together.
type scraper struct {
	cfg   *config.Config
	log   logger.Logger
	in    io.Reader
	out   io.Writer
	open  func(ctx context.Context, opts browser.Options) (browser.Session, error)
	now   func() time.Time
	sleep poll.Sleeper
}

func (s *scraper) run(ctx context.Context) (err error) {
	cfg := s.cfg
	started := s.now()
	runID := uuid.NewString()
	log := s.log.With(logger.String("run_id", runID))

	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintln(s.out, "   THOMASNET LEAD SCRAPER")
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintf(s.out, "[*] Search: %s\n", cfg.Search.URL)
	fmt.Fprintf(s.out, "[*] Max leads: %d\n", cfg.Search.MaxLeads)

	var led *ledger.Ledger
	if cfg.Ledger.Enabled {
		led, err = ledger.Open(ctx, cfg.Ledger.Path, log)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	idx, err := dedup.Load(cfg.Output.Dir, cfg.Output.Prefix)
	if err != nil {
		return err
	}
	log.Info("Loaded previous leads",
		logger.Int("count", idx.Len()),
		logger.String("source", idx.Source()))
	if cfg.Dedup.UseLedger && led != nil {
		keys, err := led.Keys(ctx)
		if err != nil {
			return err
		}
		log.Info("Merged ledger history", logger.Int("new_keys", idx.Seed(keys)))
	}

	outPath, err := output.RunPath(cfg.Output.Dir, cfg.Output.Prefix, started, cfg.Output.Format)
	if err != nil {
		return err
	}
	collOpts := collector.Options{
		Path:            outPath,
		MaxLeads:        cfg.Search.MaxLeads,
		CheckpointEvery: cfg.Collector.CheckpointEvery,
		Index:           idx,
		RunID:           runID,
		Logger:          log,
	}
	if led != nil {
		collOpts.Mirror = led
	}
	coll, err := collector.New(collOpts)
	if err != nil {
		return err
	}

	sess, err := s.open(ctx, browserOptions(cfg, log))
	if err != nil {
		return &exitError{code: ExitNoBrowser, err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("Error closing browser", logger.Error(cerr))
		}
	}()

	var res pagination.Result
	defer func() {
		if r := recover(); r != nil {
			log.Error("Scraper panicked", logger.Any("panic", r))
			err = fmt.Errorf("scraper panicked: %v", r)
		}

		path, ferr := coll.Finalize(ctx)
		if ferr != nil {
			log.Error("Failed to save leads", logger.Error(ferr))
			err = errors.Join(err, ferr)
		}

		if led != nil {
			rerr := led.RecordRun(context.WithoutCancel(ctx), ledger.Run{
				ID:         runID,
				SearchURL:  cfg.Search.URL,
				StartedAt:  started.UTC(),
				FinishedAt: s.now().UTC(),
				Reason:     string(res.Reason),
				Pages:      res.Pages,
				Leads:      coll.Len(),
				OutputPath: path,
			})
			if rerr != nil {
				log.Warn("Failed to record run", logger.Error(rerr))
			}
		}

		report.Render(s.out, report.Summary{
			RunID:    runID,
			Leads:    coll.Len(),
			Skipped:  coll.Skipped(),
			Pages:    res.Pages,
			Reloads:  res.Reloads,
			Reason:   string(res.Reason),
			Output:   path,
			Duration: s.now().Sub(started),
		})
	}()

	if cfg.Login.Enabled {
		checker := auth.NewChecker(cfg.Login.Strict, log, s.sleep)
		prompter := auth.NewPrompter(checker, cfg.Login, s.in, s.out, log, s.sleep)
		if err := prompter.Ensure(ctx, sess); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	fmt.Fprintln(s.out, "\n[*] Starting lead scraping process...")
	ctrl := pagination.New(sess, coll, pagination.NewConfig(cfg), log, pagination.WithSleeper(s.sleep))
	res, err = ctrl.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	return nil
}
