package crawl

import (
	"fmt"
	"net/http"
	"strings"
)

var DefaultBlockPhrases = []string{
	"verify you are human",
	"are you a robot",
	"checking your browser",
	"unusual traffic",
	"access denied",
	"request blocked",
	"too many requests",
	"please complete the security check",
	"attention required",
	"captcha",
}

const (
	// Pages up to this many bytes are searched whole for block phrases.
	shortPageBytes = 600
	// Longer pages are searched only in their leading lines, where an
	// interstitial puts its heading.
	headLines = 3
)

// Detector recognizes bot-detection interstitials from the page status and
// its rendered text.
type Detector struct {
	Phrases []string
}

func NewDetector(phrases []string) Detector {
	if len(phrases) == 0 {
		phrases = DefaultBlockPhrases
	}
	return Detector{Phrases: phrases}
}

// Blocked returns a short reason when the page looks like a block page.
func (d Detector) Blocked(status int, text string) (string, bool) {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Sprintf("status %d", status), true
	}
	lower := strings.ToLower(head(text))
	for _, phrase := range d.Phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return fmt.Sprintf("page contains %q", phrase), true
		}
	}
	return "", false
}

// head returns the part of the page a block phrase may appear in: all of a
// short page, or the first few non-empty lines of a long one. Course
// descriptions further down may legitimately mention CAPTCHA.
func head(text string) string {
	if len(text) <= shortPageBytes {
		return text
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == headLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}
