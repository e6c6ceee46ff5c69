package prereq

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const maxDepth = 64

var (
	courseCodeRegex = regexp.MustCompile(`([A-Z]{2,4})\s*(\d{4})`)
	minGradeRegex   = regexp.MustCompile(`(?i)\b(?:min(?:imum)?\.?\s+grade|grade)\s*(?:of\s+)?(?:at\s+least\s+)?:?\s*([A-DF][+-]?)(?:[\s),;|]|$)`)
	concurrentRegex = regexp.MustCompile(`(?i)\b(?:may\s+be\s+taken\s+concurrently|concurrent(?:ly)?|co-?requisite)`)

	// "may not be taken concurrently" forbids what concurrentRegex would allow.
	notConcurrentRegex = regexp.MustCompile(`(?i)\b(?:(?:may|can|must)\s+not|cannot|not)\s+(?:be\s+)?(?:taken\s+)?(?:concurrent|co-?requisite)`)
)

var (
	errUnbalanced = errors.New("unbalanced parentheses")
	errEmptyTerm  = errors.New("empty term")
	errTooDeep    = errors.New("expression nested too deeply")
)

// Parse turns prerequisite text into a requirement tree. It never fails:
// empty text and "none" yield a nil Node, and text that does not fit the
// grammar falls back to an AND of every course code found in it.
func Parse(text string) Node {
	n, _ := ParseDiagnose(text)
	return n
}

// ParseDiagnose behaves like Parse but also returns the structural error
// that forced the fallback extractor to run, if any. The returned Node is
// usable regardless of the error.
func ParseDiagnose(text string) (n Node, err error) {
	text = strings.TrimSpace(text)
	if t := strings.TrimRight(text, ". "); t == "" || strings.EqualFold(t, "none") {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
			n = fallback(text)
		}
	}()

	n, err = parseExpr(text, 0)
	if err != nil {
		slog.Debug("falling back to flat prerequisite extraction", "text", text, "err", err)
		return fallback(text), err
	}
	return n, nil
}

func parseExpr(s string, depth int) (Node, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	s = stripOuterParens(s)
	if s == "" {
		return nil, errEmptyTerm
	}

	parts, err := splitTopLevel(s, "or")
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return parseAndExpr(s, depth)
	}

	children := make([]Node, 0, len(parts))
	for _, p := range parts {
		child, err := parseAndExpr(p, depth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return collapse(Or{Children: children}), nil
}

func parseAndExpr(s string, depth int) (Node, error) {
	parts, err := splitTopLevel(s, "and")
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return parseTerm(s, depth)
	}

	children := make([]Node, 0, len(parts))
	for _, p := range parts {
		child, err := parseTerm(p, depth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return collapse(And{Children: children}), nil
}

func parseTerm(s string, depth int) (Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyTerm
	}
	if s[0] == '(' && matchingParen(s, 0) == len(s)-1 {
		return parseExpr(s[1:len(s)-1], depth+1)
	}
	return parseLeaf(s)
}

func parseLeaf(s string) (Node, error) {
	codes := courseCodeRegex.FindAllStringSubmatch(s, -1)
	if len(codes) == 0 {
		return nil, fmt.Errorf("no course code in %q", s)
	}
	if len(codes) > 1 {
		return nil, fmt.Errorf("%d course codes in a single term %q", len(codes), s)
	}

	leaf := Course{Code: codes[0][1] + " " + codes[0][2]}
	if m := minGradeRegex.FindStringSubmatch(s); m != nil {
		leaf.MinGrade = strings.ToUpper(m[1])
	}
	leaf.Concurrent = concurrentRegex.MatchString(s) && !notConcurrentRegex.MatchString(s)
	return leaf, nil
}

// fallback ANDs together every course code in the text, dropping grade and
// concurrency modifiers. It returns nil when no codes are present.
func fallback(text string) Node {
	var children []Node
	seen := make(map[string]bool)
	for _, m := range courseCodeRegex.FindAllStringSubmatch(text, -1) {
		code := m[1] + " " + m[2]
		if seen[code] {
			continue
		}
		seen[code] = true
		children = append(children, Course{Code: code})
	}
	if len(children) == 0 {
		return nil
	}
	return collapse(And{Children: children})
}

// splitTopLevel splits s around keyword where it appears as a whole word
// outside of any parentheses. Matching is case-insensitive.
func splitTopLevel(s, keyword string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
		default:
			if depth != 0 || i+len(keyword) > len(s) {
				continue
			}
			if !strings.EqualFold(s[i:i+len(keyword)], keyword) {
				continue
			}
			if !isBoundary(s, i-1) || !isBoundary(s, i+len(keyword)) {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + len(keyword)
			i = start - 1
		}
	}
	if depth != 0 {
		return nil, errUnbalanced
	}
	return append(parts, s[start:]), nil
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	switch s[i] {
	case ' ', '\t', '\n', '\r', '(', ')', ',', ';':
		return true
	}
	return false
}

// stripOuterParens removes parentheses that wrap the whole expression, as
// long as the opening paren is matched by the final character.
func stripOuterParens(s string) string {
	for {
		s = strings.TrimSpace(s)
		if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
			return s
		}
		if matchingParen(s, 0) != len(s)-1 {
			return s
		}
		s = s[1 : len(s)-1]
	}
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
