package config

import (
	"github.com/spf13/viper"
)

// Default values. They reproduce the timings the target site was tuned against.
const (
	DefaultSearchURL       = "https://www.thomasnet.com/suppliers/northern-texas/all-cities/steel-79740205"
	DefaultMaxLeads        = 150
	DefaultRep             = "778002737"
	DefaultLoginURL        = "https://www.thomasnet.com/account/login"
	DefaultOutputDir       = "leads_output"
	DefaultOutputPrefix    = "thomasnet_leads"
	DefaultCheckpointEvery = 25
	DefaultProfileDir      = "thomasnet_browser_profile"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("search", map[string]any{
		"url":       DefaultSearchURL,
		"max_leads": DefaultMaxLeads,
		"rep":       DefaultRep,
	})

	v.SetDefault("browser", map[string]any{
		"driver":           "chromedp",
		"headless":         false,
		"profile_dir":      DefaultProfileDir,
		"exec_path":        "",
		"user_agent":       DefaultUserAgent,
		"click_settle":     "1s",
		"navigate_timeout": "60s",
	})

	v.SetDefault("login", map[string]any{
		"enabled":     true,
		"url":         DefaultLoginURL,
		"mode":        "prompt",
		"strict":      true,
		"settle_wait": "2s",
		"verify_wait": "60s",
		"attempts":    5,
		"retry_pause": "5s",
	})

	v.SetDefault("pagination", map[string]any{
		"data_attempts":   10,
		"data_interval":   "500ms",
		"update_attempts": 20,
		"update_interval": "500ms",
		"initial_delay":   map[string]any{"min": "5s", "max": "7s"},
		"page_delay":      map[string]any{"min": "4s", "max": "7s"},
		"reload_delay":    map[string]any{"min": "5s", "max": "7s"},
	})

	v.SetDefault("output", map[string]any{
		"dir":    DefaultOutputDir,
		"prefix": DefaultOutputPrefix,
		"format": "csv",
	})

	v.SetDefault("collector", map[string]any{
		"checkpoint_every": DefaultCheckpointEvery,
	})

	v.SetDefault("dedup", map[string]any{
		"use_ledger": false,
	})

	v.SetDefault("ledger", map[string]any{
		"enabled": true,
		"path":    "leads_output/leads.sqlite",
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"encoding":     "console",
		"development":  false,
		"output_paths": []string{"stderr"},
	})
}
