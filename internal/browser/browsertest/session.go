// Package browsertest provides a scripted in-memory browser.Session.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"supplier_leads_scraper/internal/browser"
)

// Page is one listing page of a scripted session.
type Page struct {
	// Props is returned for the pageProps scripts. Nil means the state is absent.
	Props any
	// Next lists the locators that resolve on this page and advance to the next one.
	Next []string
	// Stale keeps the previous page rendered after the click that leads here,
	// until the session is reloaded.
	Stale bool
	// LoadAfter is the number of pageProps evaluations that see no state
	// before Props appears.
	LoadAfter int
}

// Session is a scripted browser.Session. It is not safe for concurrent use.
type Session struct {
	Pages []Page
	// Elements resolve on every page. The value is the element's visibility.
	Elements map[string]bool
	// Scripts answers evaluations of arbitrary scripts.
	Scripts     map[string]any
	URL         string
	HTMLContent string

	EvalErr     error
	ClickErr    error
	NavigateErr error
	// OnClick runs before every click, for example to cancel a context.
	OnClick func(el *browser.Element)

	Navigated        []string
	Clicked          []string
	Reloads          int
	PropsEvals       int
	FingerprintEvals int
	Closed           bool

	current int
	// pending is one past the index of a page awaiting reload, 0 when none.
	pending int
	seen    map[int]int
}

// New returns a session serving pages in order.
func New(pages ...Page) *Session {
	return &Session{Pages: pages}
}

// Current is the index of the page currently rendered.
func (s *Session) Current() int {
	return s.current
}

func (s *Session) props() any {
	if s.current >= len(s.Pages) {
		return nil
	}
	if s.seen == nil {
		s.seen = make(map[int]int)
	}
	p := s.Pages[s.current]
	if s.seen[s.current] < p.LoadAfter {
		s.seen[s.current]++
		return nil
	}
	return p.Props
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.Navigated = append(s.Navigated, url)
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.URL = url
	s.current = 0
	s.pending = 0
	return nil
}

func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.EvalErr != nil {
		return s.EvalErr
	}

	var value any
	switch script {
	case browser.PagePropsScript:
		s.PropsEvals++
		value = s.props()
	case browser.PagePropsJSONScript:
		s.FingerprintEvals++
		if p := s.props(); p != nil {
			raw, err := json.Marshal(p)
			if err != nil {
				return err
			}
			value = string(raw)
		}
	default:
		v, ok := s.Scripts[script]
		if !ok {
			return fmt.Errorf("browsertest: unscripted evaluation %q", script)
		}
		value = v
	}

	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Session) Find(ctx context.Context, xpath string) (*browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.current < len(s.Pages) {
		for _, loc := range s.Pages[s.current].Next {
			if loc == xpath {
				return &browser.Element{Locator: xpath, Visible: true}, nil
			}
		}
	}
	if visible, ok := s.Elements[xpath]; ok {
		return &browser.Element{Locator: xpath, Visible: visible}, nil
	}
	return nil, nil
}

func (s *Session) Click(ctx context.Context, el *browser.Element) error {
	if s.OnClick != nil {
		s.OnClick(el)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Clicked = append(s.Clicked, el.Locator)
	if s.ClickErr != nil {
		return s.ClickErr
	}
	if s.current >= len(s.Pages) {
		return errors.New("browsertest: click past last page")
	}

	for _, loc := range s.Pages[s.current].Next {
		if loc != el.Locator {
			continue
		}
		target := s.current + 1
		if target < len(s.Pages) && s.Pages[target].Stale {
			s.pending = target + 1
		} else {
			s.current = target
		}
		return nil
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Reloads++
	if s.pending > 0 {
		s.current = s.pending - 1
		s.pending = 0
	}
	return nil
}

func (s *Session) Location(context.Context) (string, error) {
	return s.URL, nil
}

func (s *Session) HTML(context.Context) (string, error) {
	return s.HTMLContent, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

var _ browser.Session = (*Session)(nil)
