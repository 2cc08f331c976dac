package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	opts    Options
}

func openRod(ctx context.Context, opts Options) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("start-maximized")
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("create tab: %w", err)
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			opts.Logger.Warn("Failed to set user agent", logger.Error(err))
		}
	}

	return &rodSession{browser: b, page: page, lnch: l, opts: opts}, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigateTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigate %s: wait load: %w", url, err)
	}
	return nil
}

// Evaluate wraps the expression in a function, as rod requires, and moves the
// result across as a JSON string.
func (s *rodSession) Evaluate(ctx context.Context, script string, out any) error {
	fn := fmt.Sprintf(`() => { const v = (%s); return JSON.stringify(v === undefined ? null : v); }`, script)
	res, err := s.page.Context(ctx).Eval(fn)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), out); err != nil {
		return fmt.Errorf("evaluate: decode result: %w", err)
	}
	return nil
}

func (s *rodSession) Find(ctx context.Context, xpath string) (*Element, error) {
	has, el, err := s.page.Context(ctx).HasX(xpath)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", xpath, err)
	}
	if !has {
		return nil, nil
	}

	visible, err := el.Visible()
	if err != nil {
		return nil, fmt.Errorf("visibility %s: %w", xpath, err)
	}
	return &Element{Locator: xpath, Visible: visible, handle: el}, nil
}

func (s *rodSession) Click(ctx context.Context, el *Element) error {
	re, ok := el.handle.(*rod.Element)
	if !ok {
		found, err := s.Find(ctx, el.Locator)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("click %s: %w", el.Locator, ErrElementGone)
		}
		re = found.handle.(*rod.Element)
	}
	re = re.Context(ctx)

	if err := re.ScrollIntoView(); err != nil {
		return fmt.Errorf("click %s: scroll: %w", el.Locator, err)
	}
	if err := poll.Sleep(ctx, s.opts.ClickSettle); err != nil {
		return err
	}
	if _, err := re.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("click %s: %w", el.Locator, err)
	}
	return nil
}

func (s *rodSession) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigateTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("reload: wait load: %w", err)
	}
	return nil
}

func (s *rodSession) Location(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return info.URL, nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}

// Close closes the browser and kills the launched process. The profile
// directory is kept so the login survives between runs.
func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.lnch.Kill()
	return err
}
