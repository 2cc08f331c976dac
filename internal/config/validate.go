package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Search.URL == "" {
		return errors.New("search.url is required")
	}
	if u, err := url.Parse(c.Search.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("search.url %q is not an absolute URL", c.Search.URL)
	}
	if c.Search.MaxLeads <= 0 {
		return fmt.Errorf("search.max_leads must be positive, got %d", c.Search.MaxLeads)
	}

	switch c.Browser.Driver {
	case "chromedp", "rod":
	default:
		return fmt.Errorf("browser.driver must be chromedp or rod, got %q", c.Browser.Driver)
	}

	if c.Login.Enabled {
		switch c.Login.Mode {
		case "prompt", "enter":
		default:
			return fmt.Errorf("login.mode must be prompt or enter, got %q", c.Login.Mode)
		}
		if c.Login.Attempts <= 0 {
			return fmt.Errorf("login.attempts must be positive, got %d", c.Login.Attempts)
		}
	}

	p := c.Pagination
	if p.DataAttempts <= 0 || p.UpdateAttempts <= 0 {
		return errors.New("pagination attempt budgets must be positive")
	}
	for name, r := range map[string]struct{ min, max int64 }{
		"initial_delay": {int64(p.InitialDelay.Min), int64(p.InitialDelay.Max)},
		"page_delay":    {int64(p.PageDelay.Min), int64(p.PageDelay.Max)},
		"reload_delay":  {int64(p.ReloadDelay.Min), int64(p.ReloadDelay.Max)},
	} {
		if r.min < 0 || r.max < r.min {
			return fmt.Errorf("pagination.%s must satisfy 0 <= min <= max", name)
		}
	}

	if c.Output.Dir == "" || c.Output.Prefix == "" {
		return errors.New("output.dir and output.prefix are required")
	}
	switch c.Output.Format {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("output.format must be csv or xlsx, got %q", c.Output.Format)
	}

	if c.Collector.CheckpointEvery < 0 {
		return fmt.Errorf("collector.checkpoint_every must not be negative, got %d", c.Collector.CheckpointEvery)
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return errors.New("ledger.path is required when the ledger is enabled")
	}
	if c.Dedup.UseLedger && !c.Ledger.Enabled {
		return errors.New("dedup.use_ledger requires ledger.enabled")
	}
	return nil
}
