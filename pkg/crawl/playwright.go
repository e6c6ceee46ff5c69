package crawl

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/openswoop/syllabank/pkg/extract"
)

type PlaywrightOptions struct {
	Headless bool
	Profile  Profile
	// Timeout bounds every page operation when the caller's context carries
	// no deadline.
	Timeout time.Duration
}

// Playwright is a Browser backed by a real Chromium. It is the backend to
// use against sources that fingerprint rendering and script execution.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	profile Profile
	timeout time.Duration
}

func NewPlaywright(opts PlaywrightOptions) (*Playwright, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}
	return &Playwright{pw: pw, browser: browser, profile: opts.Profile, timeout: timeout}, nil
}

func (b *Playwright) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userAgent := b.profile.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	width, height := b.profile.viewport()
	options := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: width, Height: height},
	}
	if b.profile.AcceptLanguage != "" {
		options.ExtraHttpHeaders = map[string]string{"Accept-Language": b.profile.AcceptLanguage}
	}
	if b.profile.Locale != "" {
		options.Locale = playwright.String(b.profile.Locale)
	}
	if b.profile.Timezone != "" {
		options.TimezoneId = playwright.String(b.profile.Timezone)
	}
	if b.profile.Latitude != 0 || b.profile.Longitude != 0 {
		options.Geolocation = &playwright.Geolocation{
			Latitude:  b.profile.Latitude,
			Longitude: b.profile.Longitude,
		}
		options.Permissions = []string{"geolocation"}
	}

	browserContext, err := b.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	if err := browserContext.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		_ = browserContext.Close()
		return nil, fmt.Errorf("failed to install init script: %w", err)
	}
	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &playwrightSession{
		context: browserContext,
		page:    page,
		timeout: b.timeout,
		width:   width,
		height:  height,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (b *Playwright) Close() error {
	if err := b.browser.Close(); err != nil {
		_ = b.pw.Stop()
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return b.pw.Stop()
}

type playwrightSession struct {
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
	width   int
	height  int
	rng     *rand.Rand
}

func (s *playwrightSession) millis(ctx context.Context) *float64 {
	return playwright.Float(float64(remaining(ctx, s.timeout).Milliseconds()))
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   s.millis(ctx),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	return res.Status(), nil
}

func (s *playwrightSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *playwrightSession) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.page.Evaluate(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	text, _ := v.(string)
	return strings.Join(extract.Lines(text), "\n"), nil
}

func (s *playwrightSession) WaitFor(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: s.millis(ctx),
	})
}

// Humanize moves the pointer along a few stepped paths and scrolls.
func (s *playwrightSession) Humanize(ctx context.Context) error {
	moves := 2 + s.rng.Intn(3)
	for i := 0; i < moves; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		x := float64(s.rng.Intn(s.width))
		y := float64(s.rng.Intn(s.height))
		if err := s.page.Mouse().Move(x, y, playwright.MouseMoveOptions{
			Steps: playwright.Int(5 + s.rng.Intn(20)),
		}); err != nil {
			return err
		}
	}
	return s.page.Mouse().Wheel(0, float64(200+s.rng.Intn(600)))
}

func (s *playwrightSession) Close() error {
	if err := s.page.Close(); err != nil {
		_ = s.context.Close()
		return err
	}
	return s.context.Close()
}
