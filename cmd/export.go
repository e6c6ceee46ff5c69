package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/openswoop/syllabank/pkg/database"
	"github.com/openswoop/syllabank/pkg/report"
)

var (
	university   string
	outFile      string
	sectionsFile string
	calendarFrom string
	weeks        int
	dryRun       bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [csv|ical|bigquery]",
	Short: "Export a university's stored courses",
}

var exportCsvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Write courses (and optionally sections) as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, courses, err := loadCourses(cmd)
		if err != nil {
			return err
		}
		if err := writeOut(cmd, outFile, func(w io.Writer) error { return report.WriteCourses(w, courses) }); err != nil {
			return err
		}
		if sectionsFile != "" {
			if err := report.WriteFile(sectionsFile, func(w io.Writer) error { return report.WriteSections(w, courses) }); err != nil {
				return err
			}
			slog.Info("wrote sections", "file", sectionsFile)
		}
		slog.Info("exported courses", "university", name, "count", len(courses))
		return nil
	},
}

var exportIcalCmd = &cobra.Command{
	Use:   "ical",
	Short: "Write every timed section as a weekly recurring calendar event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from := time.Now()
		if calendarFrom != "" {
			var err error
			if from, err = time.Parse("2006-01-02", calendarFrom); err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
		}
		name, courses, err := loadCourses(cmd)
		if err != nil {
			return err
		}
		var skipped int
		err = writeOut(cmd, outFile, func(w io.Writer) error {
			var err error
			skipped, err = report.WriteCalendar(w, courses, report.CalendarOptions{Name: name, From: from, Weeks: weeks})
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("exported calendar", "university", name, "courses", len(courses), "untimed_sections", skipped)
		return nil
	},
}

var exportBigQueryCmd = &cobra.Command{
	Use:   "bigquery",
	Short: "Merge the stored courses into BigQuery",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.BigQuery.Project == "" {
			return fmt.Errorf("bigquery.project is not configured")
		}
		name, courses, err := loadCourses(cmd)
		if err != nil {
			return err
		}
		if dryRun {
			fmt.Printf("Dry run: %d courses of %s will not be inserted\n", len(courses), name)
			return nil
		}

		bq, err := database.NewBigQuery(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			return fmt.Errorf("failed to connect to bigquery: %w", err)
		}
		defer bq.Close()
		if err := bq.ExportCourses(ctx, cfg.BigQuery.Table, name, courses); err != nil {
			return fmt.Errorf("failed to merge courses: %w", err)
		}
		slog.Info("merged courses into bigquery", "university", name, "count", len(courses),
			"table", cfg.BigQuery.Dataset+"."+cfg.BigQuery.Table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCsvCmd, exportIcalCmd, exportBigQueryCmd)

	exportCmd.PersistentFlags().StringVarP(&university, "university", "u", "", "University name or alias (default: the configured one)")
	exportCmd.PersistentFlags().StringVarP(&outFile, "out", "o", "", "Output file (default: stdout)")
	exportCsvCmd.Flags().StringVar(&sectionsFile, "sections", "", "Also write sections to this CSV file")
	exportIcalCmd.Flags().StringVar(&calendarFrom, "from", "", "First day of classes, YYYY-MM-DD (default: today)")
	exportIcalCmd.Flags().IntVar(&weeks, "weeks", 15, "Weeks each section repeats for")
	exportBigQueryCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run without modifying BigQuery (default: false)")
}

func loadCourses(cmd *cobra.Command) (string, []database.StoredCourse, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return "", nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return "", nil, err
	}
	defer store.Close()

	id, name, err := findUniversity(ctx, store, cfg, university)
	if err != nil {
		return "", nil, err
	}
	courses, err := store.Courses(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return name, courses, nil
}

func writeOut(cmd *cobra.Command, fileName string, write func(w io.Writer) error) error {
	if fileName == "" {
		return write(cmd.OutOrStdout())
	}
	if err := report.WriteFile(fileName, write); err != nil {
		return err
	}
	slog.Info("wrote file", "file", fileName)
	return nil
}
