package prereq

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		text     string
		expected Node
	}{
		{text: "", expected: nil},
		{text: "None", expected: nil},
		{text: "  NONE. ", expected: nil},
		{
			text:     "CIS 1057",
			expected: Course{Code: "CIS 1057"},
		},
		{
			text:     "CIS1057",
			expected: Course{Code: "CIS 1057"},
		},
		{
			text:     "CIS 1057 (min grade C)",
			expected: Course{Code: "CIS 1057", MinGrade: "C"},
		},
		{
			text:     "MATH 1041 (minimum grade of B-) may be taken concurrently",
			expected: Course{Code: "MATH 1041", MinGrade: "B-", Concurrent: true},
		},
		{
			text:     "CIS 1057 (may not be taken concurrently)",
			expected: Course{Code: "CIS 1057"},
		},
		{
			text:     "CIS 1057 (cannot be taken concurrently)",
			expected: Course{Code: "CIS 1057"},
		},
		{
			text:     "(CIS 1057|Minimum Grade of C-|May not be taken concurrently)",
			expected: Course{Code: "CIS 1057", MinGrade: "C-"},
		},
		{
			text:     "(CIS 1057|Minimum Grade of C-|May be taken concurrently)",
			expected: Course{Code: "CIS 1057", MinGrade: "C-", Concurrent: true},
		},
		{
			text: "(CIS 1057 or CIS 1068) and MATH 1041",
			expected: And{Children: []Node{
				Or{Children: []Node{Course{Code: "CIS 1057"}, Course{Code: "CIS 1068"}}},
				Course{Code: "MATH 1041"},
			}},
		},
		{
			text: "CIS 1057 or CIS 1068 and MATH 1041",
			expected: Or{Children: []Node{
				Course{Code: "CIS 1057"},
				And{Children: []Node{Course{Code: "CIS 1068"}, Course{Code: "MATH 1041"}}},
			}},
		},
		{
			text: "CIS 1057 OR CIS 1068",
			expected: Or{Children: []Node{
				Course{Code: "CIS 1057"},
				Course{Code: "CIS 1068"},
			}},
		},
		{
			text: "((CIS 1057 AND MATH 1041))",
			expected: And{Children: []Node{
				Course{Code: "CIS 1057"},
				Course{Code: "MATH 1041"},
			}},
		},
		{
			// "OR" inside CORE must not split the expression
			text: "CORE 1001 and MATH 1041",
			expected: And{Children: []Node{
				Course{Code: "CORE 1001"},
				Course{Code: "MATH 1041"},
			}},
		},
		{
			text: "(CIS 1057) and (CIS 1068 or (MATH 1041 and MATH 1042))",
			expected: And{Children: []Node{
				Course{Code: "CIS 1057"},
				Or{Children: []Node{
					Course{Code: "CIS 1068"},
					And{Children: []Node{Course{Code: "MATH 1041"}, Course{Code: "MATH 1042"}}},
				}},
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			actual, err := ParseDiagnose(tc.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, actual); diff != "" {
				t.Fatalf("unexpected tree (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFallback(t *testing.T) {
	testCases := []struct {
		text     string
		expected Node
	}{
		{
			text: "CIS 1057, CIS 1068 and junior standing",
			expected: And{Children: []Node{
				Course{Code: "CIS 1057"},
				Course{Code: "CIS 1068"},
			}},
		},
		{
			text: "(CIS 1057 or CIS 1068 and MATH 1041",
			expected: And{Children: []Node{
				Course{Code: "CIS 1057"},
				Course{Code: "CIS 1068"},
				Course{Code: "MATH 1041"},
			}},
		},
		{
			text:     "CIS 1057 or",
			expected: Course{Code: "CIS 1057"},
		},
		{
			text: "CIS 1057 (min grade C) or CIS 1068, CIS 2168",
			expected: And{Children: []Node{
				Course{Code: "CIS 1057"},
				Course{Code: "CIS 1068"},
				Course{Code: "CIS 2168"},
			}},
		},
		{text: "junior standing", expected: nil},
		{text: "()", expected: nil},
		{text: "or", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			actual, err := ParseDiagnose(tc.text)
			require.Error(t, err)
			if diff := cmp.Diff(tc.expected, actual); diff != "" {
				t.Fatalf("unexpected fallback tree (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"(((", ")))", ")(", "( )", "and and", "or or or", "AND", "\x00\xff",
		"CIS 1057 and", "and CIS 1057", "(CIS 1057))", "((CIS 1057)",
		strings.Repeat("(", 500) + "CIS 1057" + strings.Repeat(")", 500),
		strings.Repeat("(CIS 1057 and ", 200) + "MATH 1041" + strings.Repeat(")", 200),
		"CIS 1057 (min grade", "grade of", "İİİ or ııı",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() {
			n := Parse(in)
			// Any tree produced must be evaluable and printable.
			Evaluate(n, NewCourseSet(), NewCourseSet())
			Stringify(n)
		}, in)
	}
}

func TestWorkedExample(t *testing.T) {
	tree := Parse("(CIS 1057 or CIS 1068) and MATH 1041")
	require.True(t, Check(tree, []string{"CIS 1068", "MATH 1041"}, nil))
	require.False(t, Check(tree, []string{"MATH 1041"}, nil))

	graded := Parse("CIS 1057 (min grade C)")
	require.Equal(t, Course{Code: "CIS 1057", MinGrade: "C"}, graded)
	require.True(t, Check(graded, []string{"CIS 1057"}, nil))
}

func TestEvaluate(t *testing.T) {
	concurrent := Course{Code: "MATH 1041", Concurrent: true}
	plain := Course{Code: "MATH 1041"}

	require.True(t, Evaluate(concurrent, NewCourseSet(), NewCourseSet("MATH 1041")))
	require.False(t, Evaluate(concurrent, NewCourseSet(), NewCourseSet("MATH 1042")))
	require.False(t, Evaluate(plain, NewCourseSet(), NewCourseSet("MATH 1041")))
	require.True(t, Evaluate(plain, NewCourseSet("math   1041"), NewCourseSet()))

	require.True(t, Evaluate(nil, NewCourseSet(), NewCourseSet()))
	require.True(t, Evaluate(And{}, NewCourseSet(), NewCourseSet()))
	require.True(t, Evaluate(Or{}, NewCourseSet(), NewCourseSet()))
	require.False(t, Evaluate(Or{Children: []Node{plain}}, NewCourseSet(), NewCourseSet()))
}

func TestFlatten(t *testing.T) {
	tree := And{Children: []Node{
		Course{Code: "CIS 1057"},
		Or{Children: []Node{Course{Code: "CIS 1057"}, Course{Code: "MATH 1041"}}},
	}}
	require.Equal(t, []string{"CIS 1057", "MATH 1041"}, Flatten(tree))
	require.Empty(t, Flatten(nil))
}

func TestStringify(t *testing.T) {
	tree := And{Children: []Node{
		Or{Children: []Node{Course{Code: "CIS 1057"}, Course{Code: "CIS 1068"}}},
		Course{Code: "MATH 1041"},
	}}
	require.Equal(t, "((CIS 1057 OR CIS 1068) AND MATH 1041)", Stringify(tree))
	require.Equal(t, "CIS 1057", Stringify(And{Children: []Node{Course{Code: "CIS 1057"}}}))
	require.Equal(t, "", Stringify(nil))

	modified := And{Children: []Node{
		Course{Code: "CIS 1057", MinGrade: "C"},
		Course{Code: "MATH 1041", Concurrent: true},
	}}
	if diff := cmp.Diff(Node(modified), Parse(Stringify(modified))); diff != "" {
		t.Fatalf("modifiers lost in round trip (-want +got):\n%s", diff)
	}
}

var codePool = []string{"CIS 1057", "CIS 1068", "CIS 2168", "MATH 1041", "MATH 1042", "PHYS 2021"}

func randomTree(r *rand.Rand, depth int) Node {
	if depth == 0 || r.Intn(3) == 0 {
		return Course{Code: codePool[r.Intn(len(codePool))]}
	}
	children := make([]Node, r.Intn(4))
	for i := range children {
		children[i] = randomTree(r, depth-1)
	}
	if r.Intn(2) == 0 {
		return And{Children: children}
	}
	return Or{Children: children}
}

func randomSet(r *rand.Rand) CourseSet {
	s := NewCourseSet()
	for _, code := range codePool {
		if r.Intn(2) == 0 {
			s.Add(code)
		}
	}
	return s
}

func TestStringifyRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		tree := randomTree(r, 4)
		text := Stringify(tree)
		reparsed, err := ParseDiagnose(text)
		require.NoError(t, err, text)

		for j := 0; j < 20; j++ {
			completed, inProgress := randomSet(r), randomSet(r)
			require.Equal(t,
				Evaluate(tree, completed, inProgress),
				Evaluate(reparsed, completed, inProgress),
				"tree %s", text,
			)
		}
	}
}

func TestStringifyEmptyGroups(t *testing.T) {
	testCases := []struct {
		tree     Node
		expected string
	}{
		{tree: And{}, expected: ""},
		{tree: Or{}, expected: ""},
		{
			tree:     Or{Children: []Node{And{}, Course{Code: "CIS 1057"}}},
			expected: "",
		},
		{
			tree:     And{Children: []Node{Or{}, Course{Code: "CIS 1057"}}},
			expected: "CIS 1057",
		},
		{
			tree: And{Children: []Node{
				Course{Code: "MATH 1041"},
				Or{Children: []Node{Course{Code: "CIS 1068"}, And{Children: []Node{Or{}}}}},
			}},
			expected: "MATH 1041",
		},
	}

	for _, tc := range testCases {
		actual := Stringify(tc.tree)
		require.Equal(t, tc.expected, actual)
		require.Equal(t, Check(tc.tree, nil, nil), Check(Parse(actual), nil, nil), actual)
	}
}

func TestConcurrencyForbidden(t *testing.T) {
	n := Parse("CIS 1057 (May not be taken concurrently)")
	require.False(t, Check(n, nil, []string{"CIS 1057"}))
	require.True(t, Check(n, []string{"CIS 1057"}, nil))
}

func TestNodeJSON(t *testing.T) {
	tree := Parse("(CIS 1057 (min grade C) or CIS 1068) and MATH 1041 (may be taken concurrently)")
	data, err := MarshalNode(tree)
	require.NoError(t, err)

	decoded, err := UnmarshalNode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(tree, decoded); diff != "" {
		t.Fatalf("json round trip changed the tree (-want +got):\n%s", diff)
	}

	null, err := MarshalNode(nil)
	require.NoError(t, err)
	require.Equal(t, "null", string(null))

	_, err = UnmarshalNode([]byte(`{"type":"xor"}`))
	require.Error(t, err)
}
