package crawl_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openswoop/syllabank/pkg/crawl"
)

func TestCollySession(t *testing.T) {
	var mu sync.Mutex
	var languages []string
	mux := http.NewServeMux()
	mux.HandleFunc("/temple/courses/CIS/1057/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		languages = append(languages, r.Header.Get("Accept-Language"))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>CIS 1057 - Programming in C</h1><p id="credits">Credits 4</p></body></html>`))
	})
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("visited"); err == nil {
			_, _ = w.Write([]byte("<p>returning</p>"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "visited", Value: "1", Path: "/"})
		_, _ = w.Write([]byte("<p>first visit</p>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	profile := crawl.DefaultProfile("America/New_York")
	profile.AcceptLanguage = "en-US,en;q=0.8"
	browser := crawl.NewColly(crawl.CollyOptions{Profile: profile, Timeout: 5 * time.Second})
	defer browser.Close()

	ctx := context.Background()
	session, err := browser.Open(ctx)
	require.NoError(t, err)
	defer session.Close()

	status, err := session.Navigate(ctx, server.URL+"/temple/courses/CIS/1057/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	mu.Lock()
	require.Equal(t, []string{"en-US,en;q=0.8"}, languages)
	mu.Unlock()

	text, err := session.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "CIS 1057 - Programming in C\nCredits 4", text)
	require.NoError(t, session.WaitFor(ctx, "#credits"))
	require.Error(t, session.WaitFor(ctx, "#missing"))
	require.NoError(t, session.Humanize(ctx))

	status, err = session.Navigate(ctx, server.URL+"/nowhere")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	// Cookies persist within a session but never leak into the next one.
	_, err = session.Navigate(ctx, server.URL+"/cookie")
	require.NoError(t, err)
	_, err = session.Navigate(ctx, server.URL+"/cookie")
	require.NoError(t, err)
	content, err := session.Content(ctx)
	require.NoError(t, err)
	require.Contains(t, content, "returning")

	fresh, err := browser.Open(ctx)
	require.NoError(t, err)
	defer fresh.Close()
	_, err = fresh.Navigate(ctx, server.URL+"/cookie")
	require.NoError(t, err)
	content, err = fresh.Content(ctx)
	require.NoError(t, err)
	require.Contains(t, content, "first visit")
}

func TestConsoleOperator(t *testing.T) {
	ctx := context.Background()
	challenge := crawl.Challenge{URL: "https://catalog.test", Reason: "captcha"}

	var out strings.Builder
	require.NoError(t, crawl.NewConsole(strings.NewReader("\n"), &out).Resolve(ctx, challenge))
	require.Contains(t, out.String(), "https://catalog.test")

	err := crawl.NewConsole(strings.NewReader("skip\n"), &out).Resolve(ctx, challenge)
	require.ErrorIs(t, err, crawl.ErrSkipped)

	blocking, writer := io.Pipe()
	defer writer.Close()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = crawl.NewConsole(blocking, &out).Resolve(cancelled, challenge)
	require.ErrorIs(t, err, context.Canceled)
}
