package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultBaseURL = "https://www.coursicle.com"

// Layout describes where things live on the source site. Every URL template
// and link pattern the crawler depends on is kept here.
type Layout struct {
	BaseURL     string
	Institution string

	// SubjectLink and CourseLink match link paths on listing pages. The
	// first submatch is the subject, the second the course number.
	SubjectLink *regexp.Regexp
	CourseLink  *regexp.Regexp

	// NextSelector finds the link to the next listing page.
	NextSelector string
	// ReadySelector is waited for after navigation when set.
	ReadySelector string
	// MaxPages caps pagination per listing.
	MaxPages int
}

func NewLayout(baseURL, institution string) Layout {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	inst := regexp.QuoteMeta(institution)
	return Layout{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Institution:  institution,
		SubjectLink:  regexp.MustCompile(`^/` + inst + `/courses/([A-Z]{2,4})/?$`),
		CourseLink:   regexp.MustCompile(`^/` + inst + `/courses/([A-Z]{2,4})/(\d{4})/?$`),
		NextSelector: `a[rel="next"]`,
		MaxPages:     20,
	}
}

func (l Layout) SubjectsURL() string {
	return fmt.Sprintf("%s/%s/courses/", l.BaseURL, l.Institution)
}

func (l Layout) SubjectURL(subject string) string {
	return fmt.Sprintf("%s/%s/courses/%s/", l.BaseURL, l.Institution, url.PathEscape(subject))
}

func (l Layout) CourseURL(subject, number string) string {
	return fmt.Sprintf("%s/%s/courses/%s/%s/", l.BaseURL, l.Institution, url.PathEscape(subject), url.PathEscape(number))
}

// Listing is what one listing page yields.
type Listing struct {
	// Items are subjects on the subjects page and course numbers on a
	// subject page, deduplicated in page order.
	Items []string
	// Next is the absolute URL of the next page, or empty.
	Next string
}

// Subjects parses the subject listing page at pageURL.
func (l Layout) Subjects(markup, pageURL string) (Listing, error) {
	return l.listing(markup, pageURL, func(path string) string {
		if m := l.SubjectLink.FindStringSubmatch(path); m != nil {
			return m[1]
		}
		return ""
	})
}

// Courses parses a subject's listing page, keeping only courses of subject.
func (l Layout) Courses(markup, pageURL, subject string) (Listing, error) {
	return l.listing(markup, pageURL, func(path string) string {
		if m := l.CourseLink.FindStringSubmatch(path); m != nil && m[1] == subject {
			return m[2]
		}
		return ""
	})
}

func (l Layout) listing(markup, pageURL string, match func(path string) string) (Listing, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Listing{}, fmt.Errorf("failed to parse listing: %w", err)
	}

	var listing Listing
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := base.Parse(strings.TrimSpace(href))
		if err != nil || ref.Host != base.Host {
			return
		}
		if item := match(ref.Path); item != "" && !seen[item] {
			seen[item] = true
			listing.Items = append(listing.Items, item)
		}
	})

	if l.NextSelector != "" {
		if href, ok := doc.Find(l.NextSelector).First().Attr("href"); ok {
			if ref, err := base.Parse(strings.TrimSpace(href)); err == nil {
				listing.Next = ref.String()
			}
		}
	}
	return listing, nil
}
