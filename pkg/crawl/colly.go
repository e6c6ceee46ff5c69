package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"github.com/openswoop/syllabank/pkg/extract"
)

type CollyOptions struct {
	// Profile.UserAgent empty picks a random user agent per request.
	Profile  Profile
	Timeout  time.Duration
	CacheDir string
}

// Colly is a Browser over plain HTTP. It does not execute scripts, so it
// suits sources that serve their catalog as static markup.
type Colly struct {
	opts CollyOptions
}

func NewColly(opts CollyOptions) *Colly {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultNavigationTimeout
	}
	return &Colly{opts: opts}
}

func (b *Colly) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := []colly.CollectorOption{colly.AllowURLRevisit()}
	if b.opts.CacheDir != "" {
		options = append(options, colly.CacheDir(b.opts.CacheDir))
	}
	c := colly.NewCollector(options...)
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(b.opts.Timeout)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c.SetCookieJar(jar)

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport %T", http.DefaultTransport)
	}
	c.WithTransport(cloudflarebp.AddCloudFlareByPass(transport.Clone()))

	if b.opts.Profile.UserAgent != "" {
		c.UserAgent = b.opts.Profile.UserAgent
	} else {
		extensions.RandomUserAgent(c)
	}
	language := b.opts.Profile.AcceptLanguage
	if language == "" {
		language = "en-US,en;q=0.9"
	}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", language)
	})

	s := &collySession{collector: c}
	c.OnResponse(func(r *colly.Response) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.status = r.StatusCode
		s.body = r.Body
	})
	return s, nil
}

func (b *Colly) Close() error {
	return nil
}

type collySession struct {
	collector *colly.Collector

	mu     sync.Mutex
	status int
	body   []byte
}

func (s *collySession) Navigate(ctx context.Context, url string) (int, error) {
	s.mu.Lock()
	s.status, s.body = 0, nil
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case err := <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.status, err
	}
}

func (s *collySession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.body), nil
}

func (s *collySession) Text(ctx context.Context) (string, error) {
	markup, err := s.Content(ctx)
	if err != nil {
		return "", err
	}
	return extract.RenderText(markup)
}

// WaitFor cannot wait on static markup; it only checks the selector is
// present in what was served.
func (s *collySession) WaitFor(ctx context.Context, selector string) error {
	markup, err := s.Content(ctx)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %q not present", selector)
	}
	return nil
}

// Humanize is a no-op over HTTP; pacing is the only human signal available.
func (s *collySession) Humanize(ctx context.Context) error {
	return ctx.Err()
}

func (s *collySession) Close() error {
	return nil
}
