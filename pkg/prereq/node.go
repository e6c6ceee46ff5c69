// Package prereq parses and evaluates prerequisite expressions such as
// "(CIS 1057 or CIS 1068) and MATH 1041 (min grade C)".
//
// A parsed requirement is a tree of Node values: Course leaves combined by
// And and Or groups. A nil Node is an absent requirement and is always
// satisfied.
package prereq

import (
	"strings"
)

// Node is one of Course, And or Or.
type Node interface {
	node()
}

// Course is a single course requirement.
type Course struct {
	Code       string
	MinGrade   string
	Concurrent bool
}

// And is satisfied when every child is satisfied.
type And struct {
	Children []Node
}

// Or is satisfied when at least one child is satisfied.
type Or struct {
	Children []Node
}

func (Course) node() {}
func (And) node()    {}
func (Or) node()     {}

// collapse replaces a group holding a single child with the child itself.
func collapse(n Node) Node {
	switch n := n.(type) {
	case And:
		if len(n.Children) == 1 {
			return n.Children[0]
		}
	case Or:
		if len(n.Children) == 1 {
			return n.Children[0]
		}
	}
	return n
}

// Flatten collects every course code in the tree, in document order,
// without duplicates.
func Flatten(n Node) []string {
	var codes []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Course:
			if !seen[n.Code] {
				seen[n.Code] = true
				codes = append(codes, n.Code)
			}
		case And:
			for _, c := range n.Children {
				walk(c)
			}
		case Or:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return codes
}

// Stringify renders the tree as a parenthesized infix expression that
// Parse accepts again.
func Stringify(n Node) string {
	switch n := n.(type) {
	case Course:
		s := n.Code
		if n.MinGrade != "" {
			s += " (min grade " + n.MinGrade + ")"
		}
		if n.Concurrent {
			s += " (may be taken concurrently)"
		}
		return s
	case And:
		return joinChildren(n.Children, " AND ", false)
	case Or:
		return joinChildren(n.Children, " OR ", true)
	}
	return ""
}

// joinChildren drops children that render as "", which are always
// satisfied. In an OR such a child satisfies the whole group, so the group
// renders as "" too.
func joinChildren(children []Node, sep string, isOr bool) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		s := Stringify(c)
		if s == "" {
			if isOr {
				return ""
			}
			continue
		}
		parts = append(parts, s)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}
