package ingest

import (
	"sort"

	"github.com/openswoop/syllabank/pkg/catalog"
)

// Plan is the work of one run. An empty plan discovers every subject.
type Plan struct {
	Discover bool
	Subjects []string
	// Courses lists individual course numbers per subject, fetched without
	// listing the subject again.
	Courses map[string][]string
}

func (p Plan) discover() bool {
	return p.Discover || (len(p.Subjects) == 0 && len(p.Courses) == 0)
}

func (p Plan) courseSubjects() []string {
	subjects := make([]string, 0, len(p.Courses))
	for subject := range p.Courses {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Empty reports whether a retry plan has nothing left to do.
func (p Plan) Empty() bool {
	return !p.Discover && len(p.Subjects) == 0 && len(p.Courses) == 0
}

// RetryPlan rebuilds the work a previous run could not finish from its
// error log. Failed listings are re-crawled whole and failed courses are
// re-fetched one by one. Parse fallbacks are not retried since the page
// itself was read fine.
func RetryPlan(errs []catalog.ScrapeError) Plan {
	var plan Plan
	subjects := make(map[string]bool)
	for _, e := range errs {
		if e.Kind == catalog.KindParse {
			continue
		}
		switch {
		case e.Subject == "":
			plan.Discover = true
		case e.Number == "" && !subjects[e.Subject]:
			subjects[e.Subject] = true
			plan.Subjects = append(plan.Subjects, e.Subject)
		}
	}

	seen := make(map[string]bool)
	for _, e := range errs {
		if e.Kind == catalog.KindParse || e.Subject == "" || e.Number == "" || subjects[e.Subject] {
			continue
		}
		key := e.Subject + " " + e.Number
		if seen[key] {
			continue
		}
		seen[key] = true
		if plan.Courses == nil {
			plan.Courses = make(map[string][]string)
		}
		plan.Courses[e.Subject] = append(plan.Courses[e.Subject], e.Number)
	}
	return plan
}
