package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/database"
)

type sectionViewFull struct {
	Course  string `csv:"course"`
	Title   string `csv:"title"`
	Credits string `csv:"credits"`
	SectionViewPartial
}

type SectionViewPartial struct {
	Instructor string `csv:"instructor"`
	Days       string `csv:"days"`
	BeginTime  string `csv:"begin_time"`
	EndTime    string `csv:"end_time"`
	Terms      string `csv:"terms"`
}

// WriteSections writes one row per section. Only the first section of a
// course repeats the course columns; continuation rows leave them blank.
func WriteSections(w io.Writer, courses []database.StoredCourse) error {
	var rows []sectionViewFull
	for _, course := range courses {
		for i, section := range course.Sections {
			isContinuationRow := i > 0

			partial := SectionViewPartial{
				Instructor: section.Instructor,
				Days:       strings.Join(section.Days, ""),
				BeginTime:  formatClock(section.StartTime),
				EndTime:    formatClock(section.EndTime),
				Terms:      joinList(section.Terms),
			}

			if !isContinuationRow {
				rows = append(rows, sectionViewFull{
					Course:             course.Code(),
					Title:              course.Title,
					Credits:            strconv.Itoa(course.Credits),
					SectionViewPartial: partial,
				})
			} else {
				rows = append(rows, sectionViewFull{
					SectionViewPartial: partial,
				})
			}
		}
	}

	return WriteCsv(rows, w)
}

func formatClock(t *catalog.ClockTime) string {
	if t == nil {
		return ""
	}
	return t.String()
}
