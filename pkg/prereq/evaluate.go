package prereq

import (
	"fmt"
	"log/slog"
	"strings"
)

// Normalize uppercases a course code and collapses its internal whitespace
// so that "cis  1057" and "CIS 1057" compare equal.
func Normalize(code string) string {
	return strings.Join(strings.Fields(strings.ToUpper(code)), " ")
}

// CourseSet is a set of normalized course codes.
type CourseSet map[string]struct{}

// NewCourseSet returns a set holding the normalized codes.
func NewCourseSet(codes ...string) CourseSet {
	s := make(CourseSet, len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add inserts code after normalizing it.
func (s CourseSet) Add(code string) {
	s[Normalize(code)] = struct{}{}
}

// Has reports whether the normalized code is in the set.
func (s CourseSet) Has(code string) bool {
	_, ok := s[Normalize(code)]
	return ok
}

// Evaluate reports whether the requirement is met by the completed courses,
// or by in-progress courses for requirements that allow concurrent
// enrollment. Minimum grades are recorded on the tree but not enforced.
func Evaluate(n Node, completed, inProgress CourseSet) bool {
	switch n := n.(type) {
	case nil:
		return true
	case Course:
		if completed.Has(n.Code) {
			return true
		}
		return n.Concurrent && inProgress.Has(n.Code)
	case And:
		for _, c := range n.Children {
			if !Evaluate(c, completed, inProgress) {
				return false
			}
		}
		return true
	case Or:
		if len(n.Children) == 0 {
			return true
		}
		for _, c := range n.Children {
			if Evaluate(c, completed, inProgress) {
				return true
			}
		}
		return false
	default:
		slog.Debug("treating unrecognized prerequisite node as satisfied", "type", fmt.Sprintf("%T", n))
		return true
	}
}

// Check evaluates n against plain lists of course codes.
func Check(n Node, completed, inProgress []string) bool {
	return Evaluate(n, NewCourseSet(completed...), NewCourseSet(inProgress...))
}
