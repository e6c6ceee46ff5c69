package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/database"
)

type flakyStore struct {
	Store
	failUpsert   map[string]bool
	failSections map[string]bool
	ids          map[int64]string
}

func (s *flakyStore) UpsertCourse(ctx context.Context, course catalog.Course, universityID int64) (int64, bool, error) {
	if s.failUpsert[course.Code()] {
		return 0, false, errors.New("disk full")
	}
	id, created, err := s.Store.UpsertCourse(ctx, course, universityID)
	if err == nil {
		s.ids[id] = course.Code()
	}
	return id, created, err
}

func (s *flakyStore) ReplaceSections(ctx context.Context, courseID int64, sections []catalog.Section) (int, error) {
	if s.failSections[s.ids[courseID]] {
		return 0, errors.New("constraint failed")
	}
	return s.Store.ReplaceSections(ctx, courseID, sections)
}

func course(subject, number string, sections int) catalog.Course {
	c := catalog.Course{Subject: subject, Number: number, Title: subject + " " + number, Credits: 3}
	for i := 0; i < sections; i++ {
		c.Sections = append(c.Sections, catalog.Section{Instructor: "TBA"})
	}
	return c
}

func TestReconcilerIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	university, err := db.GetOrCreateUniversity(ctx, "Temple University", nil)
	require.NoError(t, err)

	store := &flakyStore{
		Store:        db,
		failUpsert:   map[string]bool{"CIS 1068": true},
		failSections: map[string]bool{"MATH 1041": true},
		ids:          make(map[int64]string),
	}
	log := catalog.NewErrorLog()
	r := New(store, university.ID, log)

	require.NoError(t, r.Save(ctx, course("CIS", "1057", 2)))
	require.Equal(t, 2, r.Stats().Sections)

	require.Error(t, r.Save(ctx, course("CIS", "1068", 1)))
	require.Error(t, r.Save(ctx, course("MATH", "1041", 3)))

	require.NoError(t, r.Save(ctx, course("CIS", "1057", 1)))

	require.Equal(t, Stats{Created: 2, Updated: 1, Sections: 3, Failed: 2}, r.Stats())

	entries := log.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, catalog.KindCourse, entries[0].Kind)
	require.Equal(t, "1068", entries[0].Number)
	require.Equal(t, catalog.KindSection, entries[1].Kind)
	require.Equal(t, "MATH", entries[1].Subject)

	courses, err := db.Courses(ctx, university.ID)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, "CIS 1057", courses[0].Code())
	require.Len(t, courses[0].Sections, 1)
	require.Equal(t, "MATH 1041", courses[1].Code())
	require.Empty(t, courses[1].Sections)
}

func TestReconcilerConcurrent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := New(db, 1, catalog.NewErrorLog())
	var wg sync.WaitGroup
	for _, number := range []string{"1001", "1002", "1003", "1004"} {
		wg.Add(1)
		go func(number string) {
			defer wg.Done()
			err := r.Save(ctx, course("CIS", number, 2))
			assert.NoError(t, err)
		}(number)
	}
	wg.Wait()
	require.Equal(t, Stats{Created: 4, Sections: 8}, r.Stats())
}
