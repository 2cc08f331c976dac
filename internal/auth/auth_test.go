package auth_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplier_leads_scraper/internal/auth"
	"supplier_leads_scraper/internal/browser/browsertest"
	"supplier_leads_scraper/internal/config"
)

type sleeps struct {
	calls []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func session(url, html string, elements map[string]bool) *browsertest.Session {
	s := browsertest.New()
	s.URL = url
	s.HTMLContent = html
	s.Elements = elements
	return s
}

func TestIsAuthenticated(t *testing.T) {
	loginForm := `<html><body><form><label>Email</label><input type="password"></form></body></html>`

	tests := []struct {
		name     string
		strict   bool
		url      string
		html     string
		elements map[string]bool
		want     bool
	}{
		{
			name: "dashboard url",
			url:  "https://www.thomasnet.com/dashboard",
			html: "<html></html>",
			want: true,
		},
		{
			name: "login form under account url, lenient",
			url:  "https://www.thomasnet.com/account/login",
			html: loginForm,
			want: true,
		},
		{
			name:   "login form under account url, strict",
			strict: true,
			url:    "https://www.thomasnet.com/account/login",
			html:   loginForm,
		},
		{
			name: "sign out text",
			url:  "https://www.thomasnet.com/suppliers",
			html: `<html><body><nav><a href="/x">Sign Out</a></nav></body></html>`,
			want: true,
		},
		{
			name: "indicator only inside script is ignored",
			url:  "https://www.thomasnet.com/suppliers",
			html: `<html><body><p>Results</p><script>var label = "logout";</script></body></html>`,
		},
		{
			name:     "visible account element",
			url:      "https://www.thomasnet.com/suppliers",
			html:     "<html><body>Results</body></html>",
			elements: map[string]bool{"//*[contains(text(), 'My Account')]": true},
			want:     true,
		},
		{
			name:     "hidden account element",
			url:      "https://www.thomasnet.com/suppliers",
			html:     "<html><body>Results</body></html>",
			elements: map[string]bool{"//*[contains(text(), 'My Account')]": false},
		},
		{
			name:     "logout link counts only in strict mode",
			url:      "https://www.thomasnet.com/suppliers",
			html:     "<html><body>Results</body></html>",
			elements: map[string]bool{"//a[contains(@href, 'logout')]": true},
		},
		{
			name:     "logout link in strict mode",
			strict:   true,
			url:      "https://www.thomasnet.com/suppliers",
			html:     "<html><body>Results</body></html>",
			elements: map[string]bool{"//a[contains(@href, 'logout')]": true},
			want:     true,
		},
		{
			name: "blank page",
			url:  "about:blank",
			html: "<html><head></head><body></body></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sleeps{}
			checker := auth.NewChecker(tt.strict, nil, s.sleep)

			got := checker.IsAuthenticated(context.Background(), session(tt.url, tt.html, tt.elements), 2*time.Second)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []time.Duration{2 * time.Second}, s.calls)
		})
	}
}

func TestVisibleText(t *testing.T) {
	got := auth.VisibleText(`<html><head><style>.x{}</style></head><body><h1>My   Account</h1><script>1</script></body></html>`)
	assert.Equal(t, "my account", got)
}

func loginConfig(mode string) config.LoginConfig {
	return config.LoginConfig{
		Enabled:    true,
		URL:        "https://www.thomasnet.com/account/login",
		Mode:       mode,
		Strict:     true,
		SettleWait: 2 * time.Second,
		VerifyWait: 60 * time.Second,
		Attempts:   5,
		RetryPause: 5 * time.Second,
	}
}

func TestEnsure_AlreadyLoggedIn(t *testing.T) {
	sess := session("https://www.thomasnet.com/account/profile", "<html></html>", nil)
	s := &sleeps{}
	var out bytes.Buffer

	p := auth.NewPrompter(auth.NewChecker(true, nil, s.sleep), loginConfig(auth.ModePrompt),
		strings.NewReader(""), &out, nil, s.sleep)

	require.NoError(t, p.Ensure(context.Background(), sess))
	assert.Empty(t, sess.Navigated)
	assert.Empty(t, out.String())
}

func TestEnsure_PromptDone(t *testing.T) {
	sess := session("about:blank", "<html></html>", nil)
	sess.HTMLContent = "<html><body><form>Email Password Sign in</form></body></html>"
	s := &sleeps{}
	var out bytes.Buffer

	checker := auth.NewChecker(true, nil, func(ctx context.Context, d time.Duration) error {
		// The user finishes logging in while the prompt waits.
		if d == 60*time.Second {
			sess.URL = "https://www.thomasnet.com/dashboard"
		}
		return s.sleep(ctx, d)
	})
	p := auth.NewPrompter(checker, loginConfig(auth.ModePrompt),
		strings.NewReader("what\ndone\n"), &out, nil, s.sleep)

	require.NoError(t, p.Ensure(context.Background(), sess))
	assert.Equal(t, []string{"https://www.thomasnet.com/account/login"}, sess.Navigated)
	assert.Contains(t, out.String(), "Please type either 'done' or 'check'")
	assert.Contains(t, out.String(), "Login verified")
}

func TestEnsure_PromptGivesUp(t *testing.T) {
	sess := session("about:blank", "<html><body>Sign in</body></html>", nil)
	s := &sleeps{}
	var out bytes.Buffer

	p := auth.NewPrompter(auth.NewChecker(true, nil, s.sleep), loginConfig(auth.ModePrompt),
		strings.NewReader("check\ndone\nn\n"), &out, nil, s.sleep)

	err := p.Ensure(context.Background(), sess)
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Contains(t, out.String(), "Not logged in yet")
	assert.Contains(t, out.String(), "(attempt 5/5)")
	assert.Contains(t, out.String(), "Try again? (y/n)")
}

func TestEnsure_PromptInputClosed(t *testing.T) {
	sess := session("about:blank", "<html></html>", nil)
	s := &sleeps{}

	p := auth.NewPrompter(auth.NewChecker(true, nil, s.sleep), loginConfig(auth.ModePrompt),
		strings.NewReader(""), &bytes.Buffer{}, nil, s.sleep)

	err := p.Ensure(context.Background(), sess)
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

type cancelOn struct {
	bytes.Buffer
	marker string
	cancel context.CancelFunc
}

func (w *cancelOn) Write(b []byte) (int, error) {
	if strings.Contains(string(b), w.marker) {
		w.cancel()
	}
	return w.Buffer.Write(b)
}

func TestEnsure_AnswerAfterCancelledPromptReachesNextPrompt(t *testing.T) {
	sess := session("about:blank", "<html><body>Sign in</body></html>", nil)
	s := &sleeps{}
	checker := auth.NewChecker(true, nil, func(ctx context.Context, d time.Duration) error {
		if d == 60*time.Second {
			sess.URL = "https://www.thomasnet.com/dashboard"
		}
		return s.sleep(ctx, d)
	})

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	out := &cancelOn{marker: "Type 'done'", cancel: cancel}
	p := auth.NewPrompter(checker, loginConfig(auth.ModePrompt), pr, out, nil, s.sleep)

	err := p.Ensure(ctx, sess)
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(pw, "done\n") }()

	out.cancel = func() {}
	done := make(chan error, 1)
	go func() { done <- p.Ensure(context.Background(), sess) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("answer typed after a cancelled prompt was lost")
	}
	assert.Contains(t, out.String(), "Login verified")
}

func TestEnsure_EnterProceedsUnconfirmed(t *testing.T) {
	sess := session("about:blank", "<html></html>", nil)
	s := &sleeps{}
	var out bytes.Buffer

	cfg := loginConfig(auth.ModeEnter)
	cfg.URL = "https://www.thomasnet.com/login"
	p := auth.NewPrompter(auth.NewChecker(false, nil, s.sleep), cfg,
		strings.NewReader("\n"), &out, nil, s.sleep)

	require.NoError(t, p.Ensure(context.Background(), sess))
	assert.Contains(t, out.String(), "Login not detected after multiple attempts")
	assert.Contains(t, out.String(), "(attempt 3/3)")
}

func TestEnsure_LoginPageFailure(t *testing.T) {
	sess := session("about:blank", "<html></html>", nil)
	sess.NavigateErr = errors.New("net::ERR_INTERNET_DISCONNECTED")
	s := &sleeps{}

	p := auth.NewPrompter(auth.NewChecker(true, nil, s.sleep), loginConfig(auth.ModePrompt),
		strings.NewReader("done\n"), &bytes.Buffer{}, nil, s.sleep)

	err := p.Ensure(context.Background(), sess)
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotAuthenticated)
}
