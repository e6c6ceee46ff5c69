package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openswoop/syllabank/pkg/config"
	"github.com/openswoop/syllabank/pkg/database"
)

var (
	configFile string
	dsn        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "syllabank",
	Short: "A tool for building a course catalog from public course pages",
	Long: `Crawls an institution's course pages into a local catalog of courses,
sections, and parsed prerequisite requirements. The catalog can be exported
as CSV, as an iCalendar feed, or merged into BigQuery.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "syllabank.json5", "Config file; <name>.local.json5 is merged on top")
	rootCmd.PersistentFlags().StringVar(&dsn, "db", "", "Database DSN, overriding the config (sqlite path, postgres://, mysql://, libsql://)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file, falling back to defaults when there is
// none, and applies the persistent flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Read(configFile)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file; using defaults", "config", configFile)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", configFile, err)
	}
	if dsn != "" {
		cfg.Database = dsn
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.Config) (*database.SQL, error) {
	if path := cfg.Database; path != "" && !strings.Contains(path, "://") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Debug("opened database", "dsn", cfg.Database)
	return store, nil
}

// findUniversity resolves the university named on the command line, or the
// configured one when name is empty.
func findUniversity(ctx context.Context, store *database.SQL, cfg config.Config, name string) (int64, string, error) {
	if name == "" {
		name = cfg.University.Name
	}
	if name == "" {
		return 0, "", errors.New("no university given; pass --university or set university.name")
	}
	u, err := store.FindUniversity(ctx, name)
	if err != nil {
		return 0, "", err
	}
	return u.ID, u.Name, nil
}
