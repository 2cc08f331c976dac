package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/config"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

// Login modes.
const (
	ModePrompt = "prompt"
	ModeEnter  = "enter"
)

const (
	enterAttempts = 3
	enterPause    = 3 * time.Second
)

const banner = "============================================================"

// Prompter asks the user to log in through the browser window and verifies it.
type Prompter struct {
	checker *Checker
	cfg     config.LoginConfig
	in      *bufio.Reader
	out     io.Writer
	log     logger.Logger
	sleep   poll.Sleeper

	// A single goroutine owns in. A line typed after a cancelled question
	// answers the next one.
	readOnce sync.Once
	lines    chan line
}

type line struct {
	text string
	err  error
}

// NewPrompter returns a Prompter reading answers from in and writing
// instructions to out.
func NewPrompter(
	checker *Checker,
	cfg config.LoginConfig,
	in io.Reader,
	out io.Writer,
	log logger.Logger,
	sleep poll.Sleeper,
) *Prompter {
	if log == nil {
		log = logger.NewNop()
	}
	if sleep == nil {
		sleep = poll.Sleep
	}
	return &Prompter{
		checker: checker,
		cfg:     cfg,
		in:      bufio.NewReader(in),
		out:     out,
		log:     log,
		sleep:   sleep,
		lines:   make(chan line),
	}
}

// Ensure returns nil once the session is logged in. When it is not, it opens
// the login page and runs the configured interaction. In prompt mode an
// unconfirmed login returns ErrNotAuthenticated; enter mode proceeds anyway.
func (p *Prompter) Ensure(ctx context.Context, sess browser.Session) error {
	if p.checker.IsAuthenticated(ctx, sess, p.cfg.SettleWait) {
		p.log.Info("Already logged in")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.printBanner()
	if p.cfg.URL != "" {
		if err := sess.Navigate(ctx, p.cfg.URL); err != nil {
			return fmt.Errorf("open login page: %w", err)
		}
	}

	switch p.cfg.Mode {
	case ModeEnter:
		return p.enter(ctx, sess)
	default:
		return p.prompt(ctx, sess)
	}
}

func (p *Prompter) printBanner() {
	fmt.Fprintln(p.out, "\n"+banner)
	fmt.Fprintln(p.out, "LOGIN TO THOMASNET REQUIRED")
	fmt.Fprintln(p.out, banner)
	fmt.Fprintln(p.out, "A Chrome window has opened.")
	fmt.Fprintln(p.out, "Please manually log in to ThomasNet in the browser.")
	if p.cfg.Mode == ModeEnter {
		fmt.Fprintln(p.out, "Once you're logged in, return here and press ENTER.")
	} else {
		fmt.Fprintln(p.out, "When ready, type 'done' and press ENTER to continue.")
		fmt.Fprintln(p.out, "Or type 'check' to verify if you're already logged in.")
	}
	fmt.Fprintln(p.out, banner)
}

func (p *Prompter) prompt(ctx context.Context, sess browser.Session) error {
	for {
		answer, err := p.ask(ctx, "\nType 'done' when logged in, or 'check' to verify login status: ")
		if err != nil {
			return err
		}

		switch answer {
		case "check":
			fmt.Fprintln(p.out, "Checking login status...")
			if p.checker.IsAuthenticated(ctx, sess, p.cfg.VerifyWait) {
				fmt.Fprintln(p.out, "✓ Login verified! You can proceed with scraping.")
			} else {
				fmt.Fprintln(p.out, "✗ Not logged in yet. Please complete the login process.")
			}

		case "done":
			fmt.Fprintln(p.out, "Verifying login status...")
			ok, err := p.verify(ctx, sess, p.cfg.Attempts, p.cfg.VerifyWait, p.cfg.RetryPause)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(p.out, "✓ Login verified! Proceeding with scraping...")
				return nil
			}

			retry, err := p.ask(ctx, "Login not detected. Try again? (y/n): ")
			if err != nil {
				return err
			}
			if retry != "y" {
				return ErrNotAuthenticated
			}

		default:
			fmt.Fprintln(p.out, "Please type either 'done' or 'check'")
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (p *Prompter) enter(ctx context.Context, sess browser.Session) error {
	if _, err := p.ask(ctx, "\nPress ENTER after you've successfully logged into ThomasNet..."); err != nil {
		return err
	}

	fmt.Fprintln(p.out, "Checking login status...")
	if err := p.sleep(ctx, p.cfg.SettleWait); err != nil {
		return err
	}
	ok, err := p.verify(ctx, sess, enterAttempts, 0, enterPause)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(p.out, "✓ Login verified! Proceeding with scraping...")
		return nil
	}

	fmt.Fprintln(p.out, "✗ Login not detected after multiple attempts.")
	p.log.Warn("Login not confirmed, continuing")
	return nil
}

// verify runs up to attempts checks, pausing between failed ones.
func (p *Prompter) verify(ctx context.Context, sess browser.Session, attempts int, wait, pause time.Duration) (bool, error) {
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.checker.IsAuthenticated(ctx, sess, wait) {
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "Still checking login status... (attempt %d/%d)\n", attempt, attempts)
		if err := p.sleep(ctx, pause); err != nil {
			return false, err
		}
	}
	return false, nil
}

// ask prints question and returns the trimmed, lower-cased answer. It stops
// waiting when ctx is done.
func (p *Prompter) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)
	p.readOnce.Do(func() { go p.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("%w: read answer: %v", ErrNotAuthenticated, io.EOF)
		}
		if l.err != nil && (!errors.Is(l.err, io.EOF) || l.text == "") {
			return "", fmt.Errorf("%w: read answer: %v", ErrNotAuthenticated, l.err)
		}
		return strings.ToLower(strings.TrimSpace(l.text)), nil
	}
}

func (p *Prompter) readLines() {
	defer close(p.lines)
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- line{text: text, err: err}
		if err != nil {
			return
		}
	}
}
