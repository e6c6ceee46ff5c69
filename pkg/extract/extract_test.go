package extract

import (
	"testing"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/stretchr/testify/require"
)

const eastern = -5 * 3600

const samplePage = `CIS 1057 - Computer Programming in C
Temple University
Credits
4
Description
Introduction to problem solving and programming in C.
Students learn structured design.
Prerequisites: (CIS 1001 or MATH 1021) and MATH 1041 (min grade C)
Usually Held
MWF (10:00am-10:50am), TR (9:30am - 10:50am)
Recent Professors
Jane Doe, John Smith
Recent Semesters
Spring 2024
Fall 2024
Summer 2023
Attributes
GenEd Quantitative Literacy
Writing Intensive`

func TestHeuristicsCourse(t *testing.T) {
	h := NewHeuristics([]string{
		"GenEd Quantitative Literacy",
		"Writing Intensive",
		"GenEd Arts",
		"writing intensive",
	}, eastern)

	fields := h.Course(Page{Subject: "CIS", Number: "1057", Text: samplePage})

	clock := func(hour, minute int) *catalog.ClockTime {
		return &catalog.ClockTime{Hour: hour, Minute: minute, Offset: eastern}
	}
	expected := Fields{
		Title:            "Computer Programming in C",
		Credits:          4,
		Description:      "Introduction to problem solving and programming in C. Students learn structured design.",
		PrerequisiteText: "(CIS 1001 or MATH 1021) and MATH 1041 (min grade C)",
		Attributes:       []string{"GenEd Quantitative Literacy", "Writing Intensive"},
		Sections: []catalog.Section{
			{
				Instructor: "Jane Doe",
				Days:       []string{"M", "W", "F"},
				StartTime:  clock(10, 0),
				EndTime:    clock(10, 50),
				Terms:      []string{"Fall 2024"},
			},
			{
				Instructor: "Jane Doe",
				Days:       []string{"T", "R"},
				StartTime:  clock(9, 30),
				EndTime:    clock(10, 50),
				Terms:      []string{"Fall 2024"},
			},
		},
	}
	if diff := cmp.Diff(expected, fields); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}
}

func TestHeuristicsDefaults(t *testing.T) {
	h := NewHeuristics(nil, eastern)
	fields := h.Course(Page{Subject: "CIS", Number: "1057", Text: ""})

	require.Equal(t, "CIS 1057", fields.Title)
	require.Equal(t, DefaultCredits, fields.Credits)
	require.Empty(t, fields.Description)
	require.Empty(t, fields.PrerequisiteText)
	require.Empty(t, fields.Attributes)
	require.Empty(t, fields.Sections)
}

func TestTitle(t *testing.T) {
	lines := Lines("Search courses\nMATH 1041 - Calculus I\nCIS 1057: Programming in C")
	require.Equal(t, "Programming in C", Title(lines, "CIS", "1057"))
	require.Equal(t, "Calculus I", Title(lines, "MATH", "1041"))
	require.Equal(t, "PHYS 2021", Title(lines, "PHYS", "2021"))
}

func TestCredits(t *testing.T) {
	require.Equal(t, 4, Credits("Credits\n4"))
	require.Equal(t, 1, Credits("Credit Hours: 1"))
	require.Equal(t, 3, Credits("Credits: TBD"))
	require.Equal(t, 3, Credits("no label here 4"))
}

func TestPrerequisiteText(t *testing.T) {
	testCases := []struct {
		name        string
		lines       []string
		description string
		expected    string
	}{
		{
			name:     "label on its own line",
			lines:    Lines("Prerequisites\nCIS 1057 or CIS 1068\nUsually Held"),
			expected: "CIS 1057 or CIS 1068",
		},
		{
			name:        "continuation of",
			description: "This course is a continuation of CIS 1057 and CIS 1068 with emphasis on design.",
			expected:    "CIS 1057 and CIS 1068",
		},
		{
			name:        "requires",
			description: "Requires MATH 1041.",
			expected:    "MATH 1041",
		},
		{
			name:        "mentions without a code",
			description: "Requires permission of the department.",
			expected:    "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, PrerequisiteText(tc.lines, tc.description))
		})
	}
}

func TestSectionsPlaceholders(t *testing.T) {
	lines := Lines("Recent Professors\nAda Lovelace, Alan Turing, Grace Hopper, Edsger Dijkstra\nRecent Semesters\nFall 2023, Spring 2024")
	sections := Sections(lines, eastern)

	require.Len(t, sections, 3)
	for i, name := range []string{"Ada Lovelace", "Alan Turing", "Grace Hopper"} {
		require.Equal(t, name, sections[i].Instructor)
		require.Nil(t, sections[i].StartTime)
		require.Nil(t, sections[i].EndTime)
		require.Empty(t, sections[i].Days)
		require.Equal(t, []string{"Spring 2024"}, sections[i].Terms)
	}

	require.Empty(t, Sections(Lines("Description\nNothing scheduled."), eastern))
}

func TestSectionsWithoutProfessors(t *testing.T) {
	sections := Sections(Lines("Usually Held\nTR (2:00pm-3:20pm)"), eastern)
	require.Len(t, sections, 1)
	require.Equal(t, "TBA", sections[0].Instructor)
	require.Equal(t, "14:00:00-05:00", sections[0].StartTime.String())
	require.Empty(t, sections[0].Terms)
}

func TestNormalizeTime(t *testing.T) {
	testCases := []struct {
		token    string
		expected string
	}{
		{token: "8:30am", expected: "08:30:00-05:00"},
		{token: "12:00pm", expected: "12:00:00-05:00"},
		{token: "12:15am", expected: "00:15:00-05:00"},
		{token: "1:05 PM", expected: "13:05:00-05:00"},
		{token: "11:59 p.m.", expected: "23:59:00-05:00"},
		{token: "8:30"},
		{token: "25:00pm"},
		{token: "noon"},
		{token: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			actual := NormalizeTime(tc.token, eastern)
			if tc.expected == "" {
				require.Nil(t, actual)
				return
			}
			require.NotNil(t, actual)
			require.Equal(t, tc.expected, actual.String())
		})
	}
}

func TestOffsets(t *testing.T) {
	offset, err := FixedOffset("America/New_York")
	require.NoError(t, err)
	require.Equal(t, eastern, offset)

	_, err = FixedOffset("Not/AZone")
	require.Error(t, err)

	parsed, ok := ParseOffset("-05:00")
	require.True(t, ok)
	require.Equal(t, eastern, parsed)

	parsed, ok = ParseOffset("+0530")
	require.True(t, ok)
	require.Equal(t, 19800, parsed)

	_, ok = ParseOffset("EST")
	require.False(t, ok)
}

func TestRenderText(t *testing.T) {
	markup := `<html><head><title>x</title><script>var x = 1;</script></head>
<body><h1>CIS 1057 - Intro</h1><div>Credits</div><div>4</div>
<p>Usually Held<br>MWF (10:00am-10:50am)</p><span>inline</span> <span>text</span></body></html>`

	text, err := RenderText(markup)
	require.NoError(t, err)
	require.Equal(t, "CIS 1057 - Intro\nCredits\n4\nUsually Held\nMWF (10:00am-10:50am)\ninline text", text)
}
