// Package extract recovers structured course fields from the rendered text of
// a catalog page. Every page-specific pattern lives here so that the
// heuristics can be revised without touching the crawler or the store.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/openswoop/syllabank/pkg/catalog"
)

// Page is the rendered text of one course's detail page.
type Page struct {
	Subject string
	Number  string
	Text    string
}

// Fields are the values recovered from a Page. Every field has a default, so
// a Fields value is always usable even when the page layout has drifted.
type Fields struct {
	Title            string
	Credits          int
	Description      string
	PrerequisiteText string
	Attributes       []string
	Sections         []catalog.Section
}

// Extractor recovers Fields from a rendered course page.
type Extractor interface {
	Course(page Page) Fields
}

const (
	DefaultCredits  = 3
	maxPlaceholders = 3
	unknownLecturer = "TBA"
)

// Heuristics is the Extractor for catalog pages laid out as labelled blocks
// ("Credits", "Description", "Usually Held", "Recent Professors", ...).
type Heuristics struct {
	// Vocabulary is the institution's attribute tags, e.g. "GenEd Arts".
	Vocabulary []string
	// Offset is the institution's fixed UTC offset in seconds.
	Offset int
}

// NewHeuristics returns Heuristics for an institution's attribute vocabulary
// and UTC offset in seconds.
func NewHeuristics(vocabulary []string, offset int) *Heuristics {
	return &Heuristics{Vocabulary: vocabulary, Offset: offset}
}

// Course runs each field heuristic over the page. A heuristic that panics
// leaves its field at the default.
func (h *Heuristics) Course(page Page) Fields {
	lines := Lines(page.Text)
	fields := Fields{
		Title:   fmt.Sprintf("%s %s", page.Subject, page.Number),
		Credits: DefaultCredits,
	}

	safely("title", page, func() { fields.Title = Title(lines, page.Subject, page.Number) })
	safely("credits", page, func() { fields.Credits = Credits(page.Text) })
	safely("description", page, func() { fields.Description = Description(lines) })
	safely("prerequisites", page, func() { fields.PrerequisiteText = PrerequisiteText(lines, fields.Description) })
	safely("attributes", page, func() { fields.Attributes = Attributes(page.Text, h.Vocabulary) })
	safely("sections", page, func() { fields.Sections = Sections(lines, h.Offset) })

	return fields
}

// safely runs one field's heuristic, keeping the default if it panics.
func safely(field string, page Page, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("field heuristic failed; keeping default",
				"field", field, "subject", page.Subject, "number", page.Number, "panic", r)
		}
	}()
	fn()
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Lines splits page text into trimmed, whitespace-collapsed, non-empty lines.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var titleRegex = regexp.MustCompile(`^([A-Z]{2,4})\s*(\d{4})\s*[-–—:]\s*(.+)$`)

// Title prefers the trailing segment of the first "SUBJ 1234 - Title"
// heading for this course, otherwise "SUBJ 1234".
func Title(lines []string, subject, number string) string {
	fallback := fmt.Sprintf("%s %s", subject, number)
	for _, line := range lines {
		m := titleRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if subject != "" && !strings.EqualFold(m[1], subject) {
			continue
		}
		if number != "" && m[2] != number {
			continue
		}
		if title := strings.TrimSpace(m[3]); title != "" {
			return title
		}
	}
	return fallback
}

var creditsRegex = regexp.MustCompile(`(?i)\bcredits?(?:\s+hours?)?\s*:?\s*(\d{1,2})\b`)

// Credits reads the integer after a "Credits" label, defaulting to 3.
func Credits(text string) int {
	m := creditsRegex.FindStringSubmatch(text)
	if m == nil {
		return DefaultCredits
	}
	credits, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultCredits
	}
	return credits
}

// Description returns the block following the "Description" label.
func Description(lines []string) string {
	return strings.Join(block(lines, "description"), " ")
}

var (
	prerequisiteLabelRegex = regexp.MustCompile(`(?i)^(?:pre-?requisites?|pre-?reqs?)\b\s*:?\s*`)
	inferredPrereqRegex    = regexp.MustCompile(`(?i:continuation\s+of|requires?|pre-?requisites?\s*:?)\s+([A-Z]{2,4}\s*\d{4}(?:\s*(?:,|&|(?i:and|or))\s*[A-Z]{2,4}\s*\d{4})*)`)
)

// PrerequisiteText prefers an explicit "Prerequisites" label and otherwise
// infers the requirement from phrases in the description.
func PrerequisiteText(lines []string, description string) string {
	for i, line := range lines {
		loc := prerequisiteLabelRegex.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
			return rest
		}
		var parts []string
		for _, next := range lines[i+1:] {
			if isLabel(next) {
				break
			}
			parts = append(parts, next)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	if m := inferredPrereqRegex.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Attributes returns the vocabulary entries mentioned in the text, in
// vocabulary order and without duplicates.
func Attributes(text string, vocabulary []string) []string {
	lower := strings.ToLower(whitespaceRegex.ReplaceAllString(text, " "))
	seen := make(map[string]bool)
	var found []string
	for _, tag := range vocabulary {
		key := strings.ToLower(strings.TrimSpace(tag))
		if key == "" || seen[key] {
			continue
		}
		if strings.Contains(lower, key) {
			seen[key] = true
			found = append(found, strings.TrimSpace(tag))
		}
	}
	return found
}

// block collects the lines after the line carrying label, up to the next
// recognized label. "Label: value" on a single line is also accepted.
func block(lines []string, label string) []string {
	return blockUntil(lines, label, isLabel)
}

func blockUntil(lines []string, label string, stop func(string) bool) []string {
	for i, line := range lines {
		rest, ok := cutLabel(line, label)
		if !ok {
			continue
		}
		var out []string
		if rest != "" {
			out = append(out, rest)
		}
		for _, next := range lines[i+1:] {
			if stop(next) {
				break
			}
			out = append(out, next)
		}
		return out
	}
	return nil
}

func cutLabel(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	rest := line[len(label):]
	switch {
	case rest == "":
		return "", true
	case rest[0] == ':':
		return strings.TrimSpace(rest[1:]), true
	}
	return "", false
}

var labels = []string{
	"description", "credits", "credit hours", "usually held", "recent professors",
	"recent semesters", "prerequisites", "prerequisite", "attributes", "course attributes",
}

// isLabel reports whether the line starts a new block: a known heading or a
// bare term name such as "Fall 2024".
func isLabel(line string) bool {
	return isHeading(line) || catalog.IsTerm(line)
}

// isHeading matches known labels and short "Recent ..." headings.
func isHeading(line string) bool {
	lower := strings.ToLower(strings.TrimSuffix(line, ":"))
	for _, label := range labels {
		if lower == label || strings.HasPrefix(lower, label+":") {
			return true
		}
	}
	return strings.HasPrefix(lower, "recent ") && len(strings.Fields(lower)) <= 3
}
