package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openswoop/syllabank/pkg/extract"
)

const DefaultNavigationTimeout = 30 * time.Second

type Options struct {
	Layout   Layout
	Pacer    *Pacer
	Detector Detector
	// Operator is consulted when a block is detected. Nil runs unattended:
	// blocks are reported as errors and the crawl moves on.
	Operator          Operator
	Tracker           *Tracker
	NavigationTimeout time.Duration
}

// Controller enumerates subjects and courses and fetches course pages. It is
// safe for concurrent use; each fetch runs in its own session and all of
// them share one Pacer.
type Controller struct {
	browser Browser
	opts    Options
}

func NewController(browser Browser, opts Options) *Controller {
	if opts.Pacer == nil {
		opts.Pacer = NewPacer(0, time.Now().UnixNano())
	}
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	if opts.Detector.Phrases == nil {
		opts.Detector = NewDetector(nil)
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	return &Controller{browser: browser, opts: opts}
}

func (c *Controller) Tracker() *Tracker {
	return c.opts.Tracker
}

// Probe opens and closes one session to confirm the browser is usable.
func (c *Controller) Probe(ctx context.Context) error {
	session, err := c.browser.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return session.Close()
}

// Subjects discovers every subject code offered by the institution.
func (c *Controller) Subjects(ctx context.Context) ([]string, error) {
	return c.paginate(ctx, SubjectsUnit(), c.opts.Layout.SubjectsURL(), func(markup, pageURL string) (Listing, error) {
		return c.opts.Layout.Subjects(markup, pageURL)
	})
}

// Courses lists the course numbers of one subject. On failure the numbers
// found on earlier pages are returned along with the error.
func (c *Controller) Courses(ctx context.Context, subject string) ([]string, error) {
	return c.paginate(ctx, SubjectUnit(subject), c.opts.Layout.SubjectURL(subject), func(markup, pageURL string) (Listing, error) {
		return c.opts.Layout.Courses(markup, pageURL, subject)
	})
}

// Course fetches the detail page of one course.
func (c *Controller) Course(ctx context.Context, subject, number string) (extract.Page, error) {
	unit := CourseUnit(subject, number)
	if err := c.begin(unit); err != nil {
		return extract.Page{}, err
	}
	p, err := c.fetch(ctx, c.opts.Layout.CourseURL(subject, number))
	c.finish(unit, err)
	if err != nil {
		return extract.Page{}, err
	}
	return extract.Page{Subject: subject, Number: number, Text: p.text}, nil
}

func (c *Controller) paginate(ctx context.Context, unit, start string, parse func(markup, pageURL string) (Listing, error)) ([]string, error) {
	if err := c.begin(unit); err != nil {
		return nil, err
	}

	var items []string
	seen := make(map[string]bool)
	visited := make(map[string]bool)
	for next, pages := start, 0; next != "" && !visited[next]; pages++ {
		if limit := c.opts.Layout.MaxPages; limit > 0 && pages >= limit {
			slog.WarnContext(ctx, "page cap reached", "unit", unit, "pages", pages)
			break
		}
		visited[next] = true

		p, err := c.fetch(ctx, next)
		if err == nil {
			var listing Listing
			listing, err = parse(p.markup, next)
			for _, item := range listing.Items {
				if !seen[item] {
					seen[item] = true
					items = append(items, item)
				}
			}
			next = listing.Next
		}
		if err != nil {
			c.finish(unit, err)
			return items, err
		}
	}

	c.finish(unit, nil)
	slog.DebugContext(ctx, "listing complete", "unit", unit, "items", len(items))
	return items, nil
}

func (c *Controller) begin(unit string) error {
	if err := c.opts.Tracker.Track(unit); err != nil {
		return err
	}
	return c.opts.Tracker.Transition(unit, StatePending, StateFetching)
}

func (c *Controller) finish(unit string, err error) {
	to := StateExtracted
	switch {
	case errors.Is(err, ErrBlocked):
		to = StateBlockDetected
	case err != nil:
		to = StateNetworkError
	}
	if terr := c.opts.Tracker.Transition(unit, StateFetching, to); terr != nil {
		slog.Error("failed to record unit state", "unit", unit, "error", terr)
	}
}

type fetched struct {
	status int
	text   string
	markup string
}

// fetch loads url in a fresh session. Every wait except the operator's is
// bounded by the navigation timeout.
func (c *Controller) fetch(ctx context.Context, url string) (fetched, error) {
	session, err := c.browser.Open(ctx)
	if err != nil {
		return fetched{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Debug("failed to close session", "url", url, "error", err)
		}
	}()

	if err := c.opts.Pacer.Wait(ctx); err != nil {
		return fetched{}, err
	}

	var status int
	err = c.bounded(ctx, func(ctx context.Context) error {
		var err error
		status, err = session.Navigate(ctx, url)
		return err
	})
	if err != nil {
		return fetched{}, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	p, err := c.read(ctx, session)
	if err != nil {
		return fetched{}, err
	}
	p.status = status

	for {
		reason, blocked := c.opts.Detector.Blocked(p.status, p.text)
		if !blocked {
			break
		}
		if c.opts.Operator == nil {
			return p, fmt.Errorf("%w at %s: %s", ErrBlocked, url, reason)
		}
		slog.WarnContext(ctx, "block detected; waiting for operator", "url", url, "reason", reason)
		if err := c.opts.Operator.Resolve(ctx, Challenge{URL: url, Reason: reason}); err != nil {
			return p, fmt.Errorf("%w at %s: %v", ErrBlocked, url, err)
		}
		// The operator acted on the page itself, so its original status no
		// longer applies.
		if p, err = c.read(ctx, session); err != nil {
			return fetched{}, err
		}
	}

	if p.status >= 400 {
		return p, fmt.Errorf("failed to fetch %s: status %d", url, p.status)
	}

	if selector := c.opts.Layout.ReadySelector; selector != "" {
		err := c.bounded(ctx, func(ctx context.Context) error {
			return session.WaitFor(ctx, selector)
		})
		if err != nil {
			return fetched{}, fmt.Errorf("failed waiting for %s on %s: %w", selector, url, err)
		}
		status := p.status
		if p, err = c.read(ctx, session); err != nil {
			return fetched{}, err
		}
		p.status = status
	}

	if err := c.bounded(ctx, session.Humanize); err != nil {
		slog.DebugContext(ctx, "failed to humanize session", "url", url, "error", err)
	}
	return p, nil
}

func (c *Controller) read(ctx context.Context, session Session) (fetched, error) {
	var p fetched
	err := c.bounded(ctx, func(ctx context.Context) error {
		var err error
		if p.text, err = session.Text(ctx); err != nil {
			return fmt.Errorf("failed to read page text: %w", err)
		}
		if p.markup, err = session.Content(ctx); err != nil {
			return fmt.Errorf("failed to read page content: %w", err)
		}
		return nil
	})
	return p, err
}

func (c *Controller) bounded(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.NavigationTimeout)
	defer cancel()
	return fn(ctx)
}
