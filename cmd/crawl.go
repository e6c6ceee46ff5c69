package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/config"
	"github.com/openswoop/syllabank/pkg/crawl"
	"github.com/openswoop/syllabank/pkg/extract"
	"github.com/openswoop/syllabank/pkg/ingest"
	"github.com/openswoop/syllabank/pkg/notify"
	"github.com/openswoop/syllabank/pkg/reconcile"
)

var crawlFlags struct {
	institution  string
	subjects     []string
	delayMs      int
	concurrency  int
	backend      string
	headful      bool
	manualAssist bool
	retry        string
	publish      bool
}

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl an institution's courses into the catalog",
	Long: `Discovers the institution's subjects (or crawls the ones given), fetches
every course page, and stores the extracted courses and sections. Errors for
individual subjects and courses are stored under the run id and can be
retried with --retry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyCrawlFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		offset, err := cfg.Offset()
		if err != nil {
			return err
		}

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		university, err := store.GetOrCreateUniversity(ctx, cfg.University.Name, cfg.University.Aliases)
		if err != nil {
			return err
		}
		university.Timezone = cfg.University.Timezone
		university.Attributes = cfg.University.Attributes
		if err := store.SaveUniversity(ctx, university); err != nil {
			return err
		}

		plan := ingest.Plan{Subjects: cfg.Subjects}
		if crawlFlags.retry != "" {
			errs, err := store.ScrapeErrors(ctx, crawlFlags.retry)
			if err != nil {
				return err
			}
			if plan = ingest.RetryPlan(errs); plan.Empty() {
				fmt.Println("Nothing to retry for run", crawlFlags.retry)
				return nil
			}
			slog.Info("retrying run", "run", crawlFlags.retry, "subjects", len(plan.Subjects), "course_subjects", len(plan.Courses))
		}

		browser, err := newBrowser(cfg)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}

		layout := crawl.NewLayout(cfg.BaseURL, cfg.Institution)
		layout.MaxPages = cfg.MaxPages
		opts := crawl.Options{
			Layout:            layout,
			Pacer:             crawl.NewPacer(cfg.Delay(), time.Now().UnixNano()),
			NavigationTimeout: cfg.NavigationTimeout(),
		}
		if cfg.ManualAssist {
			opts.Operator = crawl.NewConsole(os.Stdin, os.Stderr)
		}
		controller := crawl.NewController(browser, opts)

		errs := catalog.NewErrorLog()
		sink := reconcile.New(store, university.ID, errs)
		orchestrator := ingest.New(controller, extract.NewHeuristics(cfg.University.Attributes, offset), sink, errs, ingest.Options{
			MaxConcurrency: cfg.MaxConcurrency,
			Browser:        browser,
		})

		job := ingest.NewJob()
		if err := job.Start(ctx, func(ctx context.Context) (catalog.BatchResult, error) {
			return orchestrator.Run(ctx, plan)
		}); err != nil {
			return err
		}
		status, err := job.Wait(context.Background())
		if err != nil {
			return err
		}
		result := *status.Result

		if err := store.SaveErrors(context.Background(), result.RunID, university.ID, result.Errors); err != nil {
			slog.Error("failed to save scrape errors", "run", result.RunID, "error", err)
		}
		printResult(result, sink.Stats(), controller.Tracker())
		if status.Err != nil {
			return status.Err
		}

		if crawlFlags.publish && result.Success {
			if err := publish(ctx, cfg, notify.NewEvent(university, result)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlFlags.institution, "institution", "", "Institution code used in the source's URLs")
	crawlCmd.Flags().StringSliceVarP(&crawlFlags.subjects, "subjects", "s", nil, "Subjects to crawl (default: discover all)")
	crawlCmd.Flags().IntVar(&crawlFlags.delayMs, "delay", 0, "Base delay between navigations in ms")
	crawlCmd.Flags().IntVarP(&crawlFlags.concurrency, "concurrency", "j", 0, "Subjects crawled at once")
	crawlCmd.Flags().StringVar(&crawlFlags.backend, "backend", "", "Browser backend: playwright or colly")
	crawlCmd.Flags().BoolVar(&crawlFlags.headful, "headful", false, "Show the browser window")
	crawlCmd.Flags().BoolVar(&crawlFlags.manualAssist, "manual-assist", false, "Pause on bot checks until solved in the browser window (implies --headful)")
	crawlCmd.Flags().StringVar(&crawlFlags.retry, "retry", "", "Re-crawl what failed in the given run id")
	crawlCmd.Flags().BoolVar(&crawlFlags.publish, "publish", false, "Publish a catalog-refreshed event when the crawl succeeds")
}

func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("institution") {
		cfg.Institution = crawlFlags.institution
	}
	if flags.Changed("subjects") {
		cfg.Subjects = crawlFlags.subjects
	}
	if flags.Changed("delay") {
		cfg.DelayMs = crawlFlags.delayMs
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency = crawlFlags.concurrency
	}
	if flags.Changed("backend") {
		cfg.Backend = crawlFlags.backend
	}
	if crawlFlags.manualAssist {
		cfg.ManualAssist = true
		crawlFlags.headful = true
	}
	if crawlFlags.headful {
		headless := false
		cfg.Headless = &headless
	}
}

func newBrowser(cfg config.Config) (crawl.Browser, error) {
	profile := crawl.DefaultProfile(cfg.University.Timezone)
	if cfg.UserAgent != "" {
		profile.UserAgent = cfg.UserAgent
	}
	if cfg.Locale != "" {
		profile.Locale = cfg.Locale
	}
	profile.Latitude, profile.Longitude = cfg.Latitude, cfg.Longitude

	switch cfg.Backend {
	case config.BackendColly:
		return crawl.NewColly(crawl.CollyOptions{
			Profile:  profile,
			Timeout:  cfg.NavigationTimeout(),
			CacheDir: cfg.CacheDir,
		}), nil
	default:
		browser, err := crawl.NewPlaywright(crawl.PlaywrightOptions{
			Headless: cfg.IsHeadless(),
			Profile:  profile,
			Timeout:  cfg.NavigationTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return browser, nil
	}
}

func publish(ctx context.Context, cfg config.Config, event notify.Event) error {
	publisher, err := notify.NewPublisher(ctx, cfg.PubSub.Project, cfg.PubSub.Topic)
	if err != nil {
		return err
	}
	defer publisher.Close()
	id, err := publisher.Publish(ctx, event)
	if err != nil {
		return err
	}
	slog.Info("published catalog-refreshed event", "id", id, "run", event.RunID)
	return nil
}

func printResult(result catalog.BatchResult, stats reconcile.Stats, tracker *crawl.Tracker) {
	byKind := make(map[catalog.ErrorKind]int)
	for _, e := range result.Errors {
		byKind[e.Kind]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Run " + result.RunID)
	t.AppendRows([]table.Row{
		{"Success", result.Success},
		{"Courses", result.Courses},
		{"Sections", result.Sections},
		{"Created / updated", fmt.Sprintf("%d / %d", stats.Created, stats.Updated)},
		{"Elapsed", result.Elapsed.Round(time.Second)},
	})
	t.AppendSeparator()
	kinds := []catalog.ErrorKind{catalog.KindNetwork, catalog.KindParse, catalog.KindCourse, catalog.KindSection}
	for _, kind := range kinds {
		t.AppendRow(table.Row{string(kind) + " errors", byKind[kind]})
	}
	t.AppendSeparator()
	counts := tracker.Counts()
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		t.AppendRow(table.Row{"units " + state, counts[crawl.UnitState(state)]})
	}
	t.Render()
}
