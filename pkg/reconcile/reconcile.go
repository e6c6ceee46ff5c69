// Package reconcile writes assembled course records into the store. A
// failure on one course is recorded and the batch moves on.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openswoop/syllabank/pkg/catalog"
)

// Store is the persistence contract the reconciler relies on.
type Store interface {
	UpsertCourse(ctx context.Context, course catalog.Course, universityID int64) (int64, bool, error)
	ReplaceSections(ctx context.Context, courseID int64, sections []catalog.Section) (int, error)
}

// Stats counts what the reconciler did over its lifetime.
type Stats struct {
	Created  int
	Updated  int
	Sections int
	Failed   int
}

// Reconciler is safe for concurrent use by the orchestrator's workers.
type Reconciler struct {
	store        Store
	universityID int64
	log          *catalog.ErrorLog

	mu    sync.Mutex
	stats Stats
}

func New(store Store, universityID int64, log *catalog.ErrorLog) *Reconciler {
	return &Reconciler{store: store, universityID: universityID, log: log}
}

// Save upserts the course and then replaces its sections. The two writes
// are not one transaction: if the second fails the course keeps its
// previous sections. The returned error has already been logged; stored
// section counts accumulate in Stats.
func (r *Reconciler) Save(ctx context.Context, course catalog.Course) error {
	courseID, created, err := r.store.UpsertCourse(ctx, course, r.universityID)
	if err != nil {
		r.fail(ctx, catalog.KindCourse, course, err)
		return err
	}

	n, err := r.store.ReplaceSections(ctx, courseID, course.Sections)

	r.mu.Lock()
	if created {
		r.stats.Created++
	} else {
		r.stats.Updated++
	}
	r.stats.Sections += n
	r.mu.Unlock()

	if err != nil {
		r.fail(ctx, catalog.KindSection, course, err)
		return err
	}
	slog.DebugContext(ctx, "saved course", "course", course.Code(), "id", courseID, "created", created, "sections", n)
	return nil
}

func (r *Reconciler) fail(ctx context.Context, kind catalog.ErrorKind, course catalog.Course, err error) {
	r.mu.Lock()
	r.stats.Failed++
	r.mu.Unlock()

	slog.WarnContext(ctx, "failed to save course", "course", course.Code(), "kind", kind, "error", err)
	if r.log != nil {
		r.log.Append(kind, course.Subject, course.Number, fmt.Sprintf("persist: %v", err))
	}
}

func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
