package prereq

import (
	"encoding/json"
	"fmt"
)

type wireNode struct {
	Type       string      `json:"type"`
	Code       string      `json:"code,omitempty"`
	MinGrade   string      `json:"min_grade,omitempty"`
	Concurrent bool        `json:"concurrent,omitempty"`
	Children   []*wireNode `json:"children,omitempty"`
}

// MarshalNode encodes a tree as JSON with a "type" discriminator on every
// node. A nil Node encodes as null.
func MarshalNode(n Node) ([]byte, error) {
	w, err := toWire(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalNode decodes the output of MarshalNode.
func UnmarshalNode(data []byte) (Node, error) {
	var w *wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func toWire(n Node) (*wireNode, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case Course:
		return &wireNode{Type: "course", Code: n.Code, MinGrade: n.MinGrade, Concurrent: n.Concurrent}, nil
	case And:
		children, err := childrenToWire(n.Children)
		return &wireNode{Type: "and", Children: children}, err
	case Or:
		children, err := childrenToWire(n.Children)
		return &wireNode{Type: "or", Children: children}, err
	}
	return nil, fmt.Errorf("unknown prerequisite node %T", n)
}

func childrenToWire(nodes []Node) ([]*wireNode, error) {
	out := make([]*wireNode, 0, len(nodes))
	for _, c := range nodes {
		w, err := toWire(c)
		if err != nil {
			return nil, err
		}
		if w != nil {
			out = append(out, w)
		}
	}
	return out, nil
}

func fromWire(w *wireNode) (Node, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Type {
	case "course":
		return Course{Code: w.Code, MinGrade: w.MinGrade, Concurrent: w.Concurrent}, nil
	case "and", "or":
		children := make([]Node, 0, len(w.Children))
		for _, c := range w.Children {
			child, err := fromWire(c)
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		if w.Type == "and" {
			return And{Children: children}, nil
		}
		return Or{Children: children}, nil
	}
	return nil, fmt.Errorf("unknown prerequisite node type %q", w.Type)
}
