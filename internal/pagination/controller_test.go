package pagination_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/browser/browsertest"
	"supplier_leads_scraper/internal/collector"
	"supplier_leads_scraper/internal/config"
	"supplier_leads_scraper/internal/dedup"
	"supplier_leads_scraper/internal/lead"
	"supplier_leads_scraper/internal/output"
	"supplier_leads_scraper/internal/pagination"
	"supplier_leads_scraper/internal/poll"
)

const searchURL = "https://www.thomasnet.com/suppliers/northern-texas/all-cities/steel-79740205"

type clock struct {
	slept []time.Duration
}

func (c *clock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	return nil
}

func (c *clock) count(d time.Duration) int {
	n := 0
	for _, s := range c.slept {
		if s == d {
			n++
		}
	}
	return n
}

// after returns the sleeps that followed the last sleep of d.
func (c *clock) after(d time.Duration) []time.Duration {
	for i := len(c.slept) - 1; i >= 0; i-- {
		if c.slept[i] == d {
			return c.slept[i+1:]
		}
	}
	return c.slept
}

// long returns the sleeps of at least a second, which are the randomized delays.
func (c *clock) long() []time.Duration {
	var out []time.Duration
	for _, s := range c.slept {
		if s >= time.Second {
			out = append(out, s)
		}
	}
	return out
}

func assertWithin(t *testing.T, d time.Duration, r poll.Range, msg string) {
	t.Helper()
	assert.GreaterOrEqual(t, d, r.Min, msg)
	assert.LessOrEqual(t, d, r.Max, msg)
}

func testConfig() pagination.Config {
	return pagination.Config{
		SearchURL:    searchURL,
		Rep:          "778002737",
		Data:         poll.Config{Attempts: 10, Interval: 500 * time.Millisecond},
		Update:       poll.Config{Attempts: 20, Interval: 500 * time.Millisecond, SleepFirst: true},
		InitialDelay: poll.Range{Min: 5 * time.Second, Max: 7 * time.Second},
		PageDelay:    poll.Range{Min: 4 * time.Second, Max: 7 * time.Second},
		ReloadDelay:  poll.Range{Min: 5 * time.Second, Max: 7 * time.Second},
	}
}

func companies(names ...string) any {
	cs := make([]browsertest.Company, len(names))
	for i, n := range names {
		cs[i] = browsertest.Company{Name: n, Phone: "555-" + n, City: "Dallas"}
	}
	return browsertest.Props(cs...)
}

func nextButton(page int) []string {
	return []string{pagination.NextPageLocators(page)[0]}
}

type harness struct {
	sess  *browsertest.Session
	coll  *collector.Collector
	clock *clock
	ctrl  *pagination.Controller
}

func newHarness(t *testing.T, sess *browsertest.Session, maxLeads int, idx *dedup.Index) *harness {
	t.Helper()

	coll, err := collector.New(collector.Options{
		Path:            filepath.Join(t.TempDir(), "thomasnet_leads_20250101_000000.csv"),
		MaxLeads:        maxLeads,
		CheckpointEvery: 25,
		Index:           idx,
	})
	require.NoError(t, err)

	clk := &clock{}
	ctrl := pagination.New(sess, coll, testConfig(), nil,
		pagination.WithSleeper(clk.sleep),
		pagination.WithRand(rand.New(rand.NewSource(1))),
	)
	return &harness{sess: sess, coll: coll, clock: clk, ctrl: ctrl}
}

func companyNames(records []lead.Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Company
	}
	return names
}

func TestRun_SinglePage(t *testing.T) {
	sess := browsertest.New(browsertest.Page{Props: companies("Acme", "Beta", "Gamma")})
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pagination.ReasonNoNextPage, res.Reason)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 3, res.Added)
	assert.Equal(t, []string{searchURL}, sess.Navigated)
	assert.Empty(t, sess.Clicked)

	path, err := h.coll.Finalize(context.Background())
	require.NoError(t, err)
	got, err := output.Read(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, lead.Record{
		Company:       "Acme",
		Address:       "Dallas",
		BusinessPhone: "555-Acme",
		Rep:           "778002737",
	}, got[0])

	require.NotEmpty(t, h.clock.slept)
	initial := h.clock.slept[0]
	assert.GreaterOrEqual(t, initial, 5*time.Second)
	assert.LessOrEqual(t, initial, 7*time.Second)
}

func TestRun_SkipsHistory(t *testing.T) {
	idx := dedup.New()
	idx.Add(lead.Key{Company: "Acme", Phone: "555-Acme"})

	sess := browsertest.New(browsertest.Page{Props: companies("Acme", "Beta", "Gamma")})
	h := newHarness(t, sess, 150, idx)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, []string{"Beta", "Gamma"}, companyNames(h.coll.Leads()))
}

func TestRun_StopsMidPageAtCap(t *testing.T) {
	sess := browsertest.New(
		browsertest.Page{Props: companies("A", "B", "C"), Next: nextButton(1)},
		browsertest.Page{Props: companies("D", "E", "F"), Next: nextButton(2)},
	)
	h := newHarness(t, sess, 4, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pagination.ReasonCapReached, res.Reason)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"A", "B", "C", "D"}, companyNames(h.coll.Leads()))
	assert.Len(t, sess.Clicked, 1, "no navigation once the cap is reached")
}

func TestRun_NoData(t *testing.T) {
	sess := browsertest.New(browsertest.Page{Props: browsertest.Props()})
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pagination.ReasonNoData, res.Reason)
	assert.Zero(t, res.Pages)
	assert.Equal(t, 10, sess.PropsEvals)
	assert.Equal(t, 9, h.clock.count(500*time.Millisecond))

	path, err := h.coll.Finalize(context.Background())
	require.NoError(t, err)
	got, err := output.Read(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRun_WaitsForLateData(t *testing.T) {
	sess := browsertest.New(browsertest.Page{Props: companies("Acme"), LoadAfter: 3})
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pagination.ReasonNoNextPage, res.Reason)
	assert.Equal(t, 4, sess.PropsEvals)
	assert.Equal(t, 1, res.Added)
}

func TestRun_StalePageReloadsOnce(t *testing.T) {
	sess := browsertest.New(
		browsertest.Page{Props: companies("A", "B", "C"), Next: nextButton(1)},
		browsertest.Page{Props: companies("D", "E", "F"), Stale: true},
	)
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pagination.ReasonNoNextPage, res.Reason)
	assert.Equal(t, 1, sess.Reloads)
	assert.Equal(t, 1, res.Reloads)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 22, sess.FingerprintEvals, "a baseline per page plus one full update budget")
	assert.Equal(t, 20, h.clock.count(500*time.Millisecond))
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, companyNames(h.coll.Leads()))

	cfg := testConfig()
	tail := h.clock.after(500 * time.Millisecond)
	require.Len(t, tail, 2, "reload settle then page delay")
	assertWithin(t, tail[0], cfg.ReloadDelay, "reload settle")
	assertWithin(t, tail[1], cfg.PageDelay, "page delay")
}

func TestRun_OneDelayBetweenPages(t *testing.T) {
	sess := browsertest.New(
		browsertest.Page{Props: companies("A"), Next: nextButton(1)},
		browsertest.Page{Props: companies("B")},
	)
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Zero(t, res.Reloads)

	cfg := testConfig()
	delays := h.clock.long()
	require.Len(t, delays, 2, "initial delay then one page delay")
	assertWithin(t, delays[0], cfg.InitialDelay, "initial delay")
	assertWithin(t, delays[1], cfg.PageDelay, "page delay")

	tail := h.clock.after(500 * time.Millisecond)
	require.Len(t, tail, 1)
	assert.Equal(t, delays[1], tail[0])
}

func TestRun_UpdateDetectedWithoutReload(t *testing.T) {
	sess := browsertest.New(
		browsertest.Page{Props: companies("A"), Next: nextButton(1)},
		browsertest.Page{Props: companies("B"), LoadAfter: 3},
	)
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sess.Reloads)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"A", "B"}, companyNames(h.coll.Leads()))
}

func TestRun_DuplicatesAcrossPages(t *testing.T) {
	sess := browsertest.New(
		browsertest.Page{Props: companies("A", "B"), Next: nextButton(1)},
		browsertest.Page{Props: companies("B", "C"), Next: nextButton(2)},
		browsertest.Page{Props: companies("C", "D")},
	)
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"A", "B", "C", "D"}, companyNames(h.coll.Leads()))
	assert.Equal(t, 2, h.coll.Skipped())
}

func TestRun_FallsBackThroughLocators(t *testing.T) {
	next := "//a[contains(text(), 'Next')]"
	sess := browsertest.New(
		browsertest.Page{Props: companies("A"), Next: []string{next}},
		browsertest.Page{Props: companies("B")},
	)
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{next}, sess.Clicked)
	assert.Equal(t, 2, res.Pages)
}

func TestRun_ClickFailureTriesNextLocator(t *testing.T) {
	locators := pagination.NextPageLocators(1)
	sess := browsertest.New(
		browsertest.Page{Props: companies("A"), Next: []string{locators[0], locators[2]}},
		browsertest.Page{Props: companies("B")},
	)
	failed := false
	sess.OnClick = func(el *browser.Element) {
		if el.Locator == locators[0] && !failed {
			failed = true
			sess.ClickErr = errors.New("element detached")
			return
		}
		sess.ClickErr = nil
	}
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{locators[0], locators[2]}, sess.Clicked)
	assert.Equal(t, 2, res.Pages)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := browsertest.New(
		browsertest.Page{Props: companies("A", "B"), Next: nextButton(1)},
		browsertest.Page{Props: companies("C")},
	)
	sess.OnClick = func(*browser.Element) { cancel() }
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, pagination.ReasonCancelled, res.Reason)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 2, h.coll.Len(), "leads collected before the interrupt are kept")
}

func TestRun_EvaluationFailure(t *testing.T) {
	sess := browsertest.New(browsertest.Page{Props: companies("A")})
	sess.EvalErr = errors.New("target crashed")
	h := newHarness(t, sess, 150, nil)

	res, err := h.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target crashed")
	assert.Empty(t, res.Reason)
}

func TestRun_NavigateFailure(t *testing.T) {
	sess := browsertest.New(browsertest.Page{Props: companies("A")})
	sess.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	h := newHarness(t, sess, 150, nil)

	_, err := h.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, sess.PropsEvals)
}

func TestRun_CheckpointsEveryInterval(t *testing.T) {
	pages := make([]browsertest.Page, 0, 3)
	for p := 1; p <= 3; p++ {
		names := make([]string, 25)
		for i := range names {
			names[i] = fmt.Sprintf("p%d-%d", p, i)
		}
		pages = append(pages, browsertest.Page{Props: companies(names...), Next: nextButton(p)})
	}
	sess := browsertest.New(pages...)
	h := newHarness(t, sess, 60, nil)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pagination.ReasonCapReached, res.Reason)

	for _, page := range []int{1, 2} {
		got, err := output.Read(output.CheckpointPath(h.coll.Path(), page))
		require.NoError(t, err)
		assert.Len(t, got, 25*page)
	}
	assert.NoFileExists(t, output.CheckpointPath(h.coll.Path(), 3))
}

func TestNextPageLocators(t *testing.T) {
	assert.Equal(t, []string{
		"//button[@aria-label='Results Page 3']",
		"//button[text()='3']",
		"//button[contains(text(), 'Next')]",
		"//a[contains(text(), 'Next')]",
		"//a[text()='3']",
	}, pagination.NextPageLocators(2))
}

func TestNewConfig(t *testing.T) {
	cfg := &config.Config{
		Search: config.SearchConfig{URL: searchURL, Rep: "42"},
		Pagination: config.PaginationConfig{
			DataAttempts: 10, DataInterval: 500 * time.Millisecond,
			UpdateAttempts: 20, UpdateInterval: 500 * time.Millisecond,
			PageDelay: poll.Range{Min: 4 * time.Second, Max: 7 * time.Second},
		},
	}

	pc := pagination.NewConfig(cfg)
	assert.Equal(t, searchURL, pc.SearchURL)
	assert.Equal(t, "42", pc.Rep)
	assert.False(t, pc.Data.SleepFirst)
	assert.True(t, pc.Update.SleepFirst)
	assert.Equal(t, 20, pc.Update.Attempts)
	assert.Equal(t, 7*time.Second, pc.PageDelay.Max)
}
