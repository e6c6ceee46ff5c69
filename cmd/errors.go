package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openswoop/syllabank/pkg/ingest"
)

var errorsRunID string

// errorsCmd represents the errors command
var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List the errors of a crawl run",
	Long: `Lists the scrape errors stored for a run, by default the latest run of
the configured university, along with what --retry would re-crawl.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		runID := errorsRunID
		if runID == "" {
			id, _, err := findUniversity(ctx, store, cfg, university)
			if err != nil {
				return err
			}
			if runID, err = store.LatestRun(ctx, id); err != nil {
				return err
			}
			if runID == "" {
				fmt.Println("No runs with errors recorded")
				return nil
			}
		}

		errs, err := store.ScrapeErrors(ctx, runID)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Run " + runID)
		t.AppendHeader(table.Row{"Time", "Kind", "Subject", "Number", "Message"})
		for _, e := range errs {
			t.AppendRow(table.Row{e.Time.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Subject, e.Number, e.Message})
		}
		t.AppendFooter(table.Row{"", "", "", "Total", len(errs)})
		t.Render()

		plan := ingest.RetryPlan(errs)
		if plan.Empty() {
			return nil
		}
		var retry []string
		if plan.Discover {
			retry = append(retry, "subject discovery")
		}
		retry = append(retry, plan.Subjects...)
		var courses []string
		for subject, numbers := range plan.Courses {
			for _, number := range numbers {
				courses = append(courses, subject+" "+number)
			}
		}
		sort.Strings(courses)
		retry = append(retry, courses...)
		fmt.Printf("--retry %s would re-crawl: %s\n", runID, strings.Join(retry, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(errorsCmd)

	errorsCmd.Flags().StringVar(&errorsRunID, "run", "", "Run id (default: the latest run)")
	errorsCmd.Flags().StringVarP(&university, "university", "u", "", "University name or alias (default: the configured one)")
}
