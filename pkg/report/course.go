package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/database"
)

type courseView struct {
	Course           string `csv:"course"`
	Title            string `csv:"title"`
	Credits          int    `csv:"credits"`
	Prerequisites    string `csv:"prerequisites"`
	PrerequisiteText string `csv:"prerequisite_text"`
	Attributes       string `csv:"attributes"`
	Sections         int    `csv:"sections"`
	LatestTerm       string `csv:"latest_term"`
	Description      string `csv:"description"`
}

// WriteCourses writes one row per course, ordered by course code.
func WriteCourses(w io.Writer, courses []database.StoredCourse) error {
	rows := make(courseReport, 0, len(courses))
	for _, c := range courses {
		var terms []string
		for _, s := range c.Sections {
			terms = append(terms, s.Terms...)
		}
		rows = append(rows, courseView{
			Course:           c.Code(),
			Title:            c.Title,
			Credits:          c.Credits,
			Prerequisites:    joinList(c.Prerequisites),
			PrerequisiteText: c.PrerequisiteText,
			Attributes:       joinList(c.Attributes),
			Sections:         len(c.Sections),
			LatestTerm:       catalog.MostRecentTerm(terms),
			Description:      c.Description,
		})
	}
	sort.Sort(rows)
	return WriteCsv(rows, w)
}

type courseReport []courseView

func (r courseReport) Len() int {
	return len(r)
}

func (r courseReport) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Less orders by subject and then numerically by course number.
func (r courseReport) Less(i, j int) bool {
	a, b := r[i].Course, r[j].Course
	aSubject, aNumber := splitCode(a)
	bSubject, bNumber := splitCode(b)
	if aSubject != bSubject {
		return aSubject < bSubject
	}
	return aNumber < bNumber
}

func splitCode(code string) (string, int) {
	for i := len(code) - 1; i >= 0; i-- {
		if code[i] == ' ' {
			n, _ := strconv.Atoi(code[i+1:])
			return code[:i], n
		}
	}
	return code, 0
}
