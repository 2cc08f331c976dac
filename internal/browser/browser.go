// Package browser defines the narrow capability set the scraper needs from a
// live browser and provides chromedp and rod backed sessions.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"supplier_leads_scraper/internal/logger"
)

// ErrUnavailable is returned by Open when no browser session can be acquired.
var ErrUnavailable = errors.New("browser session unavailable")

// ErrElementGone is returned by Click when the element no longer resolves.
var ErrElementGone = errors.New("element no longer present")

// Element is a resolved locator on the current page.
type Element struct {
	// Locator is the XPath expression the element was found with.
	Locator string
	Visible bool

	handle any
}

// Evaluator runs a JavaScript expression and decodes its JSON result into out.
// A nil out discards the result.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, out any) error
}

// Session is an exclusively owned browser tab.
type Session interface {
	Evaluator
	Navigate(ctx context.Context, url string) error
	// Find resolves an XPath locator. A missing element is (nil, nil).
	Find(ctx context.Context, xpath string) (*Element, error)
	// Click scrolls el into view, lets the page settle and clicks it.
	Click(ctx context.Context, el *Element) error
	Reload(ctx context.Context) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Options configures Open.
type Options struct {
	Driver          string
	Headless        bool
	ProfileDir      string
	ExecPath        string
	UserAgent       string
	ClickSettle     time.Duration
	NavigateTimeout time.Duration
	Logger          logger.Logger
}

func (o *Options) defaults() {
	if o.Driver == "" {
		o.Driver = "chromedp"
	}
	if o.ExecPath == "" {
		o.ExecPath = os.Getenv("CHROME_PATH")
	}
	if o.NavigateTimeout <= 0 {
		o.NavigateTimeout = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
}

// Open launches a browser and returns its session. The session outlives ctx
// cancellation: it is released only by Close, so results can still be flushed
// after an interrupt. Any launch failure wraps ErrUnavailable.
func Open(ctx context.Context, opts Options) (Session, error) {
	opts.defaults()
	ctx = context.WithoutCancel(ctx)

	var (
		s   Session
		err error
	)
	switch opts.Driver {
	case "chromedp":
		s, err = openChromedp(ctx, opts)
	case "rod":
		s, err = openRod(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrUnavailable, opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, opts.Driver, err)
	}

	opts.Logger.Info("Browser session started",
		logger.String("driver", opts.Driver),
		logger.Bool("headless", opts.Headless),
		logger.String("profile_dir", opts.ProfileDir))
	return s, nil
}
