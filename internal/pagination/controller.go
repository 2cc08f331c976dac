// Package pagination drives the listing page loop: wait for the client-rendered
// results, collect them, click through to the next page and confirm the page
// state actually changed.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/config"
	"supplier_leads_scraper/internal/fingerprint"
	"supplier_leads_scraper/internal/lead"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

// Reason tells why a run stopped.
type Reason string

const (
	ReasonNoData     Reason = "no_data"
	ReasonCapReached Reason = "cap_reached"
	ReasonNoNextPage Reason = "no_next_page"
	ReasonCancelled  Reason = "cancelled"
)

// Result summarizes a run.
type Result struct {
	// Pages is the number of pages whose results were read.
	Pages   int
	Reason  Reason
	Reloads int
	Added   int
}

// Sink receives the records of every page.
type Sink interface {
	Offer(records []lead.Record) (added int, full bool)
	Checkpoint(page int) (string, error)
}

// Fingerprinter digests the current page state.
type Fingerprinter interface {
	Fingerprint(ctx context.Context) (string, bool)
}

// Config holds the loop's target, budgets and delays.
type Config struct {
	SearchURL string
	Rep       string

	Data   poll.Config
	Update poll.Config

	InitialDelay poll.Range
	PageDelay    poll.Range
	ReloadDelay  poll.Range
}

// NewConfig derives the loop configuration from the run configuration.
func NewConfig(cfg *config.Config) Config {
	p := cfg.Pagination
	return Config{
		SearchURL:    cfg.Search.URL,
		Rep:          cfg.Search.Rep,
		Data:         poll.Config{Attempts: p.DataAttempts, Interval: p.DataInterval},
		Update:       poll.Config{Attempts: p.UpdateAttempts, Interval: p.UpdateInterval, SleepFirst: true},
		InitialDelay: p.InitialDelay,
		PageDelay:    p.PageDelay,
		ReloadDelay:  p.ReloadDelay,
	}
}

// Controller runs the page loop over one browser session.
type Controller struct {
	sess  browser.Session
	sink  Sink
	cfg   Config
	log   logger.Logger
	fp    Fingerprinter
	sleep poll.Sleeper
	rng   *rand.Rand
}

// Option customizes a Controller.
type Option func(*Controller)

// WithSleeper replaces the real sleep.
func WithSleeper(s poll.Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithRand sets the source of the randomized delays.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithFingerprinter replaces the pageProps digest.
func WithFingerprinter(f Fingerprinter) Option {
	return func(c *Controller) { c.fp = f }
}

// New returns a controller reading from sess and feeding sink.
func New(sess browser.Session, sink Sink, cfg Config, log logger.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Controller{
		sess:  sess,
		sink:  sink,
		cfg:   cfg,
		log:   log,
		sleep: poll.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fp == nil {
		c.fp = fingerprint.New(sess, log)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// NextPageLocators lists the next-page controls to try from page, in order.
func NextPageLocators(page int) []string {
	next := page + 1
	return []string{
		fmt.Sprintf("//button[@aria-label='Results Page %d']", next),
		fmt.Sprintf("//button[text()='%d']", next),
		"//button[contains(text(), 'Next')]",
		"//a[contains(text(), 'Next')]",
		fmt.Sprintf("//a[text()='%d']", next),
	}
}

// Run opens the search page and walks the results until there is no data, no
// next page or the sink is full. Those stops return a nil error. Browser
// failures while reading a page are returned with the partial Result; a
// cancelled ctx returns ReasonCancelled and the context error.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	var res Result

	c.log.Info("Navigating to search page", logger.String("url", c.cfg.SearchURL))
	if err := c.sess.Navigate(ctx, c.cfg.SearchURL); err != nil {
		return c.stop(ctx, res, fmt.Errorf("open search page: %w", err))
	}
	if err := c.wait(ctx, "initial", c.cfg.InitialDelay); err != nil {
		return c.stop(ctx, res, err)
	}

	for page := 1; ; page++ {
		log := c.log.With(logger.Int("page", page))
		log.Info("Scraping page")

		state, found, err := c.awaitData(ctx)
		if err != nil {
			return c.stop(ctx, res, fmt.Errorf("page %d: read state: %w", page, err))
		}
		if !found {
			log.Warn("No companies found")
			res.Reason = ReasonNoData
			return res, nil
		}
		res.Pages = page

		records := lead.Extract(state, c.cfg.Rep)
		log.Info("Found companies", logger.Int("count", len(records)))
		added, full := c.sink.Offer(records)
		res.Added += added

		if _, err := c.sink.Checkpoint(page); err != nil {
			log.Warn("Checkpoint failed", logger.Error(err))
		}
		if full {
			log.Info("Reached lead target", logger.Int("leads", res.Added))
			res.Reason = ReasonCapReached
			return res, nil
		}

		before, _ := c.fp.Fingerprint(ctx)
		clicked, err := c.clickNext(ctx, log, page)
		if err != nil {
			return c.stop(ctx, res, err)
		}
		if !clicked {
			log.Info("No next page found")
			res.Reason = ReasonNoNextPage
			return res, nil
		}

		changed, err := poll.Until(ctx, c.cfg.Update, c.sleep, func(ctx context.Context) (bool, error) {
			after, ok := c.fp.Fingerprint(ctx)
			return ok && after != before, nil
		})
		if err != nil {
			return c.stop(ctx, res, err)
		}
		if changed {
			log.Debug("Page state updated")
		} else {
			log.Warn("Page state did not update, reloading")
			res.Reloads++
			if err := c.sess.Reload(ctx); err != nil {
				return c.stop(ctx, res, fmt.Errorf("page %d: %w", page, err))
			}
			if err := c.wait(ctx, "reload", c.cfg.ReloadDelay); err != nil {
				return c.stop(ctx, res, err)
			}
		}

		if err := c.wait(ctx, "page", c.cfg.PageDelay); err != nil {
			return c.stop(ctx, res, err)
		}
	}
}

// awaitData polls the page state until it lists companies.
func (c *Controller) awaitData(ctx context.Context) (lead.PageState, bool, error) {
	var state lead.PageState
	found, err := poll.Until(ctx, c.cfg.Data, c.sleep, func(ctx context.Context) (bool, error) {
		var s *lead.PageState
		if err := c.sess.Evaluate(ctx, browser.PagePropsScript, &s); err != nil {
			return false, err
		}
		if s == nil || len(s.Companies) == 0 {
			return false, nil
		}
		state = *s
		return true, nil
	})
	return state, found, err
}

// clickNext clicks the first next-page control that resolves. Lookup and
// click failures fall through to the next locator.
func (c *Controller) clickNext(ctx context.Context, log logger.Logger, page int) (bool, error) {
	for _, locator := range NextPageLocators(page) {
		el, err := c.sess.Find(ctx, locator)
		if err == nil && el != nil {
			err = c.sess.Click(ctx, el)
			if err == nil {
				log.Info("Clicked next page button", logger.String("locator", locator))
				return true, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if err != nil {
			log.Debug("Next page locator failed", logger.String("locator", locator), logger.Error(err))
		}
	}
	return false, nil
}

func (c *Controller) wait(ctx context.Context, what string, r poll.Range) error {
	d := r.Pick(c.rng)
	c.log.Debug("Waiting", logger.String("delay", what), logger.Duration("duration", d))
	return c.sleep(ctx, d)
}

// stop tags the result of an interrupted run.
func (c *Controller) stop(ctx context.Context, res Result, err error) (Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
		res.Reason = ReasonCancelled
		c.log.Warn("Scrape interrupted", logger.Int("pages", res.Pages))
		if ctxErr != nil {
			return res, ctxErr
		}
	}
	return res, err
}
