package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/prereq"
)

type UniversityRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name, size:255"`
	Aliases    string `db:"aliases, size:4096"`
	Terms      string `db:"terms, size:4096"`
	Timezone   string `db:"timezone, size:64"`
	Attributes string `db:"attributes, size:8192"`
}

type CourseRow struct {
	ID               int64  `db:"id"`
	UniversityID     int64  `db:"university_id"`
	Subject          string `db:"subject, size:16"`
	Number           string `db:"number, size:16"`
	Title            string `db:"title, size:512"`
	Credits          int    `db:"credits"`
	Description      string `db:"description, size:65535"`
	Attributes       string `db:"attributes, size:4096"`
	PrerequisiteText string `db:"prerequisite_text, size:4096"`
	Prerequisites    string `db:"prerequisites, size:4096"`
	UpdatedAt        string `db:"updated_at, size:64"`
}

type SectionRow struct {
	ID         int64          `db:"id"`
	CourseID   int64          `db:"course_id"`
	Instructor string         `db:"instructor, size:255"`
	Days       string         `db:"days, size:64"`
	StartTime  sql.NullString `db:"start_time, size:32"`
	EndTime    sql.NullString `db:"end_time, size:32"`
	Terms      string         `db:"terms, size:1024"`
}

type ErrorRow struct {
	ID           int64  `db:"id"`
	RunID        string `db:"run_id, size:64"`
	UniversityID int64  `db:"university_id"`
	Kind         string `db:"kind, size:16"`
	Subject      string `db:"subject, size:16"`
	Number       string `db:"number, size:16"`
	Message      string `db:"message, size:4096"`
	CreatedAt    string `db:"created_at, size:64"`
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list %q: %w", s, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func nullClock(t *catalog.ClockTime) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func newUniversityRow(u catalog.University) UniversityRow {
	return UniversityRow{
		ID:         u.ID,
		Name:       u.Name,
		Aliases:    encodeList(u.Aliases),
		Terms:      encodeList(u.Terms),
		Timezone:   u.Timezone,
		Attributes: encodeList(u.Attributes),
	}
}

func (r UniversityRow) University() (catalog.University, error) {
	u := catalog.University{ID: r.ID, Name: r.Name, Timezone: r.Timezone}
	var err error
	if u.Aliases, err = decodeList(r.Aliases); err != nil {
		return u, err
	}
	if u.Terms, err = decodeList(r.Terms); err != nil {
		return u, err
	}
	if u.Attributes, err = decodeList(r.Attributes); err != nil {
		return u, err
	}
	return u, nil
}

// newCourseRow projects a course onto its row. The prerequisite tree is
// flattened to its distinct course codes.
func newCourseRow(c catalog.Course, universityID int64, now time.Time) CourseRow {
	return CourseRow{
		UniversityID:     universityID,
		Subject:          c.Subject,
		Number:           c.Number,
		Title:            c.Title,
		Credits:          c.Credits,
		Description:      c.Description,
		Attributes:       encodeList(c.Attributes),
		PrerequisiteText: c.PrerequisiteText,
		Prerequisites:    encodeList(prereq.Flatten(c.Prerequisites)),
		UpdatedAt:        now.UTC().Format(time.RFC3339Nano),
	}
}

func (r CourseRow) StoredCourse() (StoredCourse, error) {
	c := StoredCourse{
		ID:               r.ID,
		UniversityID:     r.UniversityID,
		Subject:          r.Subject,
		Number:           r.Number,
		Title:            r.Title,
		Credits:          r.Credits,
		Description:      r.Description,
		PrerequisiteText: r.PrerequisiteText,
	}
	var err error
	if c.Attributes, err = decodeList(r.Attributes); err != nil {
		return c, err
	}
	if c.Prerequisites, err = decodeList(r.Prerequisites); err != nil {
		return c, err
	}
	return c, nil
}

func newSectionRow(s catalog.Section, courseID int64) SectionRow {
	return SectionRow{
		CourseID:   courseID,
		Instructor: s.Instructor,
		Days:       encodeList(s.Days),
		StartTime:  nullClock(s.StartTime),
		EndTime:    nullClock(s.EndTime),
		Terms:      encodeList(s.Terms),
	}
}

func (r SectionRow) Section() (catalog.Section, error) {
	s := catalog.Section{Instructor: r.Instructor}
	var err error
	if s.Days, err = decodeList(r.Days); err != nil {
		return s, err
	}
	if s.Terms, err = decodeList(r.Terms); err != nil {
		return s, err
	}
	if r.StartTime.Valid {
		if s.StartTime, err = catalog.ParseClockTime(r.StartTime.String); err != nil {
			return s, err
		}
	}
	if r.EndTime.Valid {
		if s.EndTime, err = catalog.ParseClockTime(r.EndTime.String); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (r ErrorRow) ScrapeError() catalog.ScrapeError {
	created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return catalog.ScrapeError{
		Kind:    catalog.ErrorKind(r.Kind),
		Subject: r.Subject,
		Number:  r.Number,
		Message: r.Message,
		Time:    created,
	}
}
