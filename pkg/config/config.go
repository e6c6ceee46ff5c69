// Package config loads crawl settings from a JSON5 file with optional
// machine-local overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/openswoop/syllabank/pkg/extract"
)

const (
	BackendPlaywright = "playwright"
	BackendColly      = "colly"
)

type University struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Timezone string   `json:"timezone"`
	// UTCOffset such as "-05:00" takes precedence over Timezone.
	UTCOffset  string   `json:"utc_offset"`
	Attributes []string `json:"attributes"`
}

type BigQuery struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

type PubSub struct {
	Project string `json:"project"`
	Topic   string `json:"topic"`
}

type Config struct {
	Institution string     `json:"institution"`
	University  University `json:"university"`
	// Subjects to crawl; empty discovers every subject.
	Subjects       []string `json:"subjects"`
	DelayMs        int      `json:"delay_ms"`
	MaxConcurrency int      `json:"max_concurrency"`

	Backend             string  `json:"backend"`
	Headless            *bool   `json:"headless"`
	ManualAssist        bool    `json:"manual_assist"`
	NavigationTimeoutMs int     `json:"navigation_timeout_ms"`
	BaseURL             string  `json:"base_url"`
	UserAgent           string  `json:"user_agent"`
	Locale              string  `json:"locale"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	CacheDir            string  `json:"cache_dir"`
	MaxPages            int     `json:"max_pages"`

	Database string   `json:"database"`
	BigQuery BigQuery `json:"bigquery"`
	PubSub   PubSub   `json:"pubsub"`
}

// Default is the configuration every file is layered on top of.
func Default() Config {
	dbPath := "syllabank.db"
	if dir, err := os.UserCacheDir(); err == nil {
		dbPath = filepath.Join(dir, "syllabank", "syllabank.db")
	}
	return Config{
		DelayMs:             2000,
		MaxConcurrency:      1,
		Backend:             BackendPlaywright,
		NavigationTimeoutMs: 30000,
		BaseURL:             "https://www.coursicle.com",
		Locale:              "en-US",
		MaxPages:            20,
		Database:            dbPath,
		PubSub:              PubSub{Topic: "catalog-refreshed"},
		BigQuery:            BigQuery{Dataset: "syllabank", Table: "courses"},
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// Read loads name over Default and then merges <name>.local.<ext> on top.
// Local overrides only apply non-zero values. It returns os.ErrNotExist
// when neither file exists.
func Read(name string) (Config, error) {
	out := Default()
	found := false

	if err := readInto(name, &out, &found); err != nil {
		return out, err
	}

	prefix, ext := splitExt(filepath.Base(name))
	local := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
	var override Config
	localFound := false
	if err := readInto(local, &override, &localFound); err != nil {
		return out, err
	}
	if localFound {
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("failed to merge %s: %w", local, err)
		}
		slog.Info("merging config with local overrides", "local", local)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

func readInto(name string, out *Config, found *bool) error {
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json5.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	*found = true
	return nil
}

// Validate rejects configurations a crawl cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Institution == "" {
		errs = append(errs, errors.New("institution is required"))
	}
	if c.University.Name == "" {
		errs = append(errs, errors.New("university.name is required"))
	}
	if c.DelayMs < 0 {
		errs = append(errs, fmt.Errorf("delay_ms must not be negative, got %d", c.DelayMs))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.NavigationTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("navigation_timeout_ms must be positive, got %d", c.NavigationTimeoutMs))
	}
	switch c.Backend {
	case BackendPlaywright, BackendColly:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.ManualAssist && c.IsHeadless() {
		errs = append(errs, errors.New("manual_assist needs a visible browser; set headless to false"))
	}
	if _, err := c.Offset(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsHeadless defaults to true when the file leaves headless unset.
func (c Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Offset is the institution's fixed UTC offset in seconds, used to stamp
// section times. Without a timezone it is UTC.
func (c Config) Offset() (int, error) {
	if c.University.UTCOffset != "" {
		offset, ok := extract.ParseOffset(c.University.UTCOffset)
		if !ok {
			return 0, fmt.Errorf("invalid utc_offset %q", c.University.UTCOffset)
		}
		return offset, nil
	}
	if c.University.Timezone == "" {
		return 0, nil
	}
	offset, err := extract.FixedOffset(c.University.Timezone)
	if err != nil {
		return 0, fmt.Errorf("invalid timezone %q: %w", c.University.Timezone, err)
	}
	return offset, nil
}
