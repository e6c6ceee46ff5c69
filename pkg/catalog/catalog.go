// Package catalog holds the records that flow through the ingestion pipeline:
// universities, courses, their sections, and the errors collected while
// scraping them.
package catalog

import (
	"github.com/openswoop/syllabank/pkg/prereq"
)

type University struct {
	ID         int64
	Name       string
	Aliases    []string
	Terms      []string
	Timezone   string
	Attributes []string
}

// Course is one assembled course record. Subject, Number and the owning
// university form its natural key.
type Course struct {
	Subject          string
	Number           string
	Title            string
	Credits          int
	Description      string
	Attributes       []string
	PrerequisiteText string
	Prerequisites    prereq.Node
	Sections         []Section
}

// Code returns the course code in "SUBJ 1234" form.
func (c Course) Code() string {
	return c.Subject + " " + c.Number
}

type Section struct {
	Instructor string
	Days       []string
	StartTime  *ClockTime
	EndTime    *ClockTime
	Terms      []string
}
