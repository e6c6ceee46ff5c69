// Package crawltest provides an in-memory crawl.Browser for tests.
package crawltest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openswoop/syllabank/pkg/crawl"
	"github.com/openswoop/syllabank/pkg/extract"
)

// Page is one canned response.
type Page struct {
	Status int
	HTML   string
	// Hang makes navigation block until the context expires.
	Hang bool
}

// Browser serves canned pages by URL. Unknown URLs answer 404.
type Browser struct {
	mu          sync.Mutex
	pages       map[string]Page
	OpenErr     error
	opened      int
	closed      int
	navigations []string
	shut        bool
}

func NewBrowser() *Browser {
	return &Browser{pages: make(map[string]Page)}
}

// Set installs or replaces the page served at url.
func (b *Browser) Set(url string, page Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[url] = page
}

// SetHTML serves markup with status 200 at url.
func (b *Browser) SetHTML(url, markup string) {
	b.Set(url, Page{Status: 200, HTML: markup})
}

func (b *Browser) page(url string) Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[url]
	if !ok {
		return Page{Status: 404, HTML: "<html><body>Not Found</body></html>"}
	}
	return p
}

func (b *Browser) Open(ctx context.Context) (crawl.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if b.shut {
		return nil, errors.New("browser closed")
	}
	b.opened++
	return &session{browser: b}, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shut = true
	return nil
}

// Stats reports sessions opened, sessions closed and whether the browser
// itself was closed.
func (b *Browser) Stats() (opened, closed int, shut bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed, b.shut
}

// Navigations lists every URL navigated to, in order.
func (b *Browser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigations...)
}

type session struct {
	browser *Browser
	url     string
	closed  bool
}

func (s *session) Navigate(ctx context.Context, url string) (int, error) {
	s.browser.mu.Lock()
	s.browser.navigations = append(s.browser.navigations, url)
	s.browser.mu.Unlock()

	p := s.browser.page(url)
	if p.Hang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	s.url = url
	return p.Status, nil
}

func (s *session) Content(ctx context.Context) (string, error) {
	if s.url == "" {
		return "", errors.New("no page loaded")
	}
	return s.browser.page(s.url).HTML, ctx.Err()
}

func (s *session) Text(ctx context.Context) (string, error) {
	markup, err := s.Content(ctx)
	if err != nil {
		return "", err
	}
	return extract.RenderText(markup)
}

func (s *session) WaitFor(ctx context.Context, selector string) error {
	return ctx.Err()
}

func (s *session) Humanize(ctx context.Context) error {
	return ctx.Err()
}

func (s *session) Close() error {
	if s.closed {
		return fmt.Errorf("session for %s closed twice", s.url)
	}
	s.closed = true
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.closed++
	return nil
}
