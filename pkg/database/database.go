package database

import (
	"context"
	"io"

	"github.com/openswoop/syllabank/pkg/catalog"
)

// Database is the persisted side of the pipeline: the write contract used by
// the reconciler plus the reads behind exports and the CLI.
type Database interface {
	io.Closer
	GetOrCreateUniversity(ctx context.Context, name string, aliases []string) (catalog.University, error)
	FindUniversity(ctx context.Context, name string) (catalog.University, error)
	SaveUniversity(ctx context.Context, university catalog.University) error
	Universities(ctx context.Context) ([]catalog.University, error)
	UpsertCourse(ctx context.Context, course catalog.Course, universityID int64) (int64, bool, error)
	ReplaceSections(ctx context.Context, courseID int64, sections []catalog.Section) (int, error)
	Courses(ctx context.Context, universityID int64) ([]StoredCourse, error)
	SaveErrors(ctx context.Context, runID string, universityID int64, errs []catalog.ScrapeError) error
	ScrapeErrors(ctx context.Context, runID string) ([]catalog.ScrapeError, error)
	LatestRun(ctx context.Context, universityID int64) (string, error)
}

// StoredCourse is a course as read back from storage. Prerequisites holds
// only the flattened code list; the AND/OR structure is not persisted.
type StoredCourse struct {
	ID               int64
	UniversityID     int64
	Subject          string
	Number           string
	Title            string
	Credits          int
	Description      string
	Attributes       []string
	PrerequisiteText string
	Prerequisites    []string
	Sections         []catalog.Section
}

func (c StoredCourse) Code() string {
	return c.Subject + " " + c.Number
}
