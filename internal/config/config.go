// Package config holds the scraper configuration and its loader.
package config

import (
	"time"

	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

// Config is the complete run configuration. It is built once at startup and
// passed explicitly into every component.
type Config struct {
	Search     SearchConfig     `mapstructure:"search"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Login      LoginConfig      `mapstructure:"login"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Output     OutputConfig     `mapstructure:"output"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Logger     logger.Config    `mapstructure:"logger"`
}

// SearchConfig describes what to scrape.
type SearchConfig struct {
	URL      string `mapstructure:"url"`
	MaxLeads int    `mapstructure:"max_leads"`
	// Rep is written verbatim into the rep column of every lead.
	Rep string `mapstructure:"rep"`
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	// Driver is "chromedp" or "rod".
	Driver     string `mapstructure:"driver"`
	Headless   bool   `mapstructure:"headless"`
	ProfileDir string `mapstructure:"profile_dir"`
	ExecPath   string `mapstructure:"exec_path"`
	UserAgent  string `mapstructure:"user_agent"`
	// ClickSettle is the pause between scrolling a control into view and clicking it.
	ClickSettle     time.Duration `mapstructure:"click_settle"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout"`
}

// LoginConfig controls the interactive login step.
type LoginConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	// Mode is "prompt" (done/check loop) or "enter" (single ENTER, then best effort).
	Mode string `mapstructure:"mode"`
	// Strict rejects pages that still show the login form and adds the logout-link indicator.
	Strict bool `mapstructure:"strict"`
	// SettleWait is the pause before a startup login check.
	SettleWait time.Duration `mapstructure:"settle_wait"`
	// VerifyWait is the pause before each check after the user reports being logged in.
	VerifyWait time.Duration `mapstructure:"verify_wait"`
	Attempts   int           `mapstructure:"attempts"`
	RetryPause time.Duration `mapstructure:"retry_pause"`
}

// PaginationConfig holds the polling budgets and delays of the page loop.
type PaginationConfig struct {
	DataAttempts   int           `mapstructure:"data_attempts"`
	DataInterval   time.Duration `mapstructure:"data_interval"`
	UpdateAttempts int           `mapstructure:"update_attempts"`
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	InitialDelay   poll.Range    `mapstructure:"initial_delay"`
	PageDelay      poll.Range    `mapstructure:"page_delay"`
	ReloadDelay    poll.Range    `mapstructure:"reload_delay"`
}

// OutputConfig controls where leads are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
	// Format is "csv" or "xlsx".
	Format string `mapstructure:"format"`
}

// CollectorConfig controls checkpointing.
type CollectorConfig struct {
	// CheckpointEvery writes a temp file whenever the lead count is a multiple of it. 0 disables.
	CheckpointEvery int `mapstructure:"checkpoint_every"`
}

// DedupConfig controls which history feeds the dedup index.
type DedupConfig struct {
	UseLedger bool `mapstructure:"use_ledger"`
}

// LedgerConfig controls the SQLite lead ledger.
type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
