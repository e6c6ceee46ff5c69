// Package ingest drives a crawl from subject discovery to stored course
// records and reports one BatchResult per run.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/extract"
	"github.com/openswoop/syllabank/pkg/prereq"
)

// Crawler is the part of crawl.Controller the orchestrator drives.
type Crawler interface {
	Probe(ctx context.Context) error
	Subjects(ctx context.Context) ([]string, error)
	Courses(ctx context.Context, subject string) ([]string, error)
	Course(ctx context.Context, subject, number string) (extract.Page, error)
}

// Sink receives every assembled course. Failures are expected to be logged
// by the sink itself.
type Sink interface {
	Save(ctx context.Context, course catalog.Course) error
}

type Options struct {
	RunID string
	// MaxConcurrency above 1 processes that many subjects at once.
	MaxConcurrency int
	// Browser is closed when the run ends, however it ends.
	Browser io.Closer
}

type Orchestrator struct {
	crawler   Crawler
	extractor extract.Extractor
	sink      Sink
	log       *catalog.ErrorLog
	opts      Options

	courses  atomic.Int64
	sections atomic.Int64
}

// New builds an orchestrator for a single run. log collects every per-item
// error; it is usually shared with the sink.
func New(crawler Crawler, extractor extract.Extractor, sink Sink, log *catalog.ErrorLog, opts Options) *Orchestrator {
	if log == nil {
		log = catalog.NewErrorLog()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Orchestrator{crawler: crawler, extractor: extractor, sink: sink, log: log, opts: opts}
}

func (o *Orchestrator) RunID() string {
	return o.opts.RunID
}

// Run crawls the plan. Only a configuration-level failure, no usable
// browsing session, returns an error; everything else lands in the
// result's error log.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (result catalog.BatchResult, err error) {
	started := time.Now()
	defer func() {
		if o.opts.Browser != nil {
			if cerr := o.opts.Browser.Close(); cerr != nil {
				slog.WarnContext(ctx, "failed to close browser", "error", cerr)
			}
		}
		result.RunID = o.opts.RunID
		result.Started = started
		result.Elapsed = time.Since(started)
		result.Courses = int(o.courses.Load())
		result.Sections = int(o.sections.Load())
		result.Errors = o.log.Entries()
	}()

	if err := o.crawler.Probe(ctx); err != nil {
		return result, fmt.Errorf("failed to open browsing session: %w", err)
	}

	units := o.units(ctx, plan)
	slog.InfoContext(ctx, "starting crawl", "run", o.opts.RunID, "subjects", len(units))

	if o.opts.MaxConcurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.MaxConcurrency)
		for _, u := range units {
			u := u
			g.Go(func() error {
				o.subject(gctx, u)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, u := range units {
			if ctx.Err() != nil {
				break
			}
			o.subject(ctx, u)
		}
	}

	result.Success = ctx.Err() == nil
	slog.InfoContext(ctx, "crawl finished", "run", o.opts.RunID,
		"courses", o.courses.Load(), "sections", o.sections.Load(), "errors", o.log.Len())
	return result, nil
}

type unit struct {
	subject string
	// numbers, when set, are fetched directly without listing the subject.
	numbers []string
}

func (o *Orchestrator) units(ctx context.Context, plan Plan) []unit {
	subjects := plan.Subjects
	if plan.discover() {
		discovered, err := o.crawler.Subjects(ctx)
		if err != nil {
			o.log.Append(catalog.KindNetwork, "", "", fmt.Sprintf("subject discovery: %v", err))
		}
		slog.InfoContext(ctx, "found subjects", "count", len(discovered))
		subjects = append(append([]string(nil), subjects...), discovered...)
	}

	var units []unit
	seen := make(map[string]bool)
	for _, subject := range subjects {
		if !seen[subject] {
			seen[subject] = true
			units = append(units, unit{subject: subject})
		}
	}
	for _, subject := range plan.courseSubjects() {
		if !seen[subject] {
			units = append(units, unit{subject: subject, numbers: plan.Courses[subject]})
		}
	}
	return units
}

func (o *Orchestrator) subject(ctx context.Context, u unit) {
	numbers := u.numbers
	if numbers == nil {
		var err error
		numbers, err = o.crawler.Courses(ctx, u.subject)
		if err != nil {
			slog.WarnContext(ctx, "failed to list courses", "subject", u.subject, "found", len(numbers), "error", err)
			o.log.Append(catalog.KindNetwork, u.subject, "", fmt.Sprintf("course listing: %v", err))
		}
	}

	for _, number := range numbers {
		if ctx.Err() != nil {
			return
		}
		o.course(ctx, u.subject, number)
	}
	slog.InfoContext(ctx, "scraped subject", "subject", u.subject, "courses", len(numbers))
}

func (o *Orchestrator) course(ctx context.Context, subject, number string) {
	page, err := o.crawler.Course(ctx, subject, number)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch course", "subject", subject, "number", number, "error", err)
		o.log.Append(catalog.KindNetwork, subject, number, err.Error())
		return
	}

	fields := o.extractor.Course(page)
	tree, err := prereq.ParseDiagnose(fields.PrerequisiteText)
	course := Assemble(page, fields, tree)
	if err != nil {
		slog.WarnContext(ctx, "prerequisites parsed by fallback", "course", course.Code(),
			"text", course.PrerequisiteText, "error", err)
		o.log.Append(catalog.KindParse, subject, number, fmt.Sprintf("prerequisites %q: %v", course.PrerequisiteText, err))
	}

	o.courses.Add(1)
	o.sections.Add(int64(len(course.Sections)))
	if o.sink != nil {
		if err := o.sink.Save(ctx, course); err != nil {
			slog.DebugContext(ctx, "course not stored", "run", o.opts.RunID, "course", course.Code())
		}
	}
}

// Assemble builds the course record for a fetched page from its extracted
// fields and their parsed prerequisite tree.
func Assemble(page extract.Page, fields extract.Fields, prerequisites prereq.Node) catalog.Course {
	return catalog.Course{
		Subject:          page.Subject,
		Number:           page.Number,
		Title:            fields.Title,
		Credits:          fields.Credits,
		Description:      fields.Description,
		Attributes:       fields.Attributes,
		PrerequisiteText: fields.PrerequisiteText,
		Prerequisites:    prerequisites,
		Sections:         fields.Sections,
	}
}
