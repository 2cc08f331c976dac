// Package auth decides whether the browser session is logged in to the
// directory and walks the user through a manual login when it is not.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/poll"
)

// ErrNotAuthenticated is returned when the login could not be confirmed.
var ErrNotAuthenticated = errors.New("login not confirmed")

var (
	urlIndicators     = []string{"dashboard", "account", "profile"}
	loginFormTerms    = []string{"sign in", "email", "password"}
	contentIndicators = []string{"sign out", "logout", "my account", "dashboard"}

	elementIndicators = []string{
		"//a[contains(@href, 'account') and not(contains(@href, 'login'))]",
		"//button[contains(text(), 'Sign Out')]",
		"//a[contains(text(), 'Sign Out')]",
		"//*[contains(text(), 'My Account')]",
		"//*[contains(text(), 'Dashboard')]",
	}
	strictElementIndicators = append(elementIndicators[:len(elementIndicators):len(elementIndicators)],
		"//a[contains(@href, 'logout')]")
)

// Checker evaluates the authenticated-state heuristics against a session.
type Checker struct {
	strict bool
	log    logger.Logger
	sleep  poll.Sleeper
}

// NewChecker returns a Checker. Strict mode rejects pages that still show the
// login form, even under an account URL, and also looks for a logout link.
func NewChecker(strict bool, log logger.Logger, sleep poll.Sleeper) *Checker {
	if log == nil {
		log = logger.NewNop()
	}
	if sleep == nil {
		sleep = poll.Sleep
	}
	return &Checker{strict: strict, log: log, sleep: sleep}
}

// IsAuthenticated waits for wait, then inspects the current URL, the visible
// page text and a set of account elements. Any failure to read the page counts
// as not authenticated.
func (c *Checker) IsAuthenticated(ctx context.Context, sess browser.Session, wait time.Duration) bool {
	if err := c.sleep(ctx, wait); err != nil {
		return false
	}

	loc, err := sess.Location(ctx)
	if err != nil {
		c.log.Warn("Login check failed", logger.Error(err))
		return false
	}
	url := strings.ToLower(loc)

	html, err := sess.HTML(ctx)
	if err != nil {
		c.log.Warn("Login check failed", logger.Error(err))
		return false
	}
	text := VisibleText(html)

	if c.strict && strings.Contains(url, "login") && containsAny(text, loginFormTerms) {
		c.log.Info("Still on login page", logger.String("url", loc))
		return false
	}
	if containsAny(url, urlIndicators) {
		c.log.Info("Login detected via URL", logger.String("url", loc))
		return true
	}
	if containsAny(text, contentIndicators) {
		c.log.Info("Login detected via page content")
		return true
	}

	indicators := elementIndicators
	if c.strict {
		indicators = strictElementIndicators
	}
	for _, xpath := range indicators {
		el, err := sess.Find(ctx, xpath)
		if err != nil || el == nil || !el.Visible {
			continue
		}
		c.log.Info("Login detected via element", logger.String("locator", xpath))
		return true
	}

	c.log.Info("No clear login indicators found")
	return false
}

// VisibleText returns the lower-cased text content of an HTML document without
// scripts and styles.
func VisibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.ToLower(html)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.ToLower(strings.Join(strings.Fields(doc.Text()), " "))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
