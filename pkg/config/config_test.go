package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "syllabank.json5", `{
		// comments and trailing commas are fine
		institution: "temple",
		university: {name: "Temple University", aliases: ["Temple"], timezone: "America/New_York"},
		subjects: ["CIS", "MATH"],
		delay_ms: 1500,
	}`)

	cfg, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "temple", cfg.Institution)
	require.Equal(t, []string{"CIS", "MATH"}, cfg.Subjects)
	require.Equal(t, 1500*time.Millisecond, cfg.Delay())
	require.Equal(t, 1, cfg.MaxConcurrency, "unset fields keep their defaults")
	require.Equal(t, BackendPlaywright, cfg.Backend)
	require.True(t, cfg.IsHeadless())
	require.Equal(t, "catalog-refreshed", cfg.PubSub.Topic)
	require.NoError(t, cfg.Validate())
}

func TestReadLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "syllabank.json5", `{institution: "temple", university: {name: "Temple University"}, max_concurrency: 2}`)
	write(t, dir, "syllabank.local.json5", `{backend: "colly", headless: false, manual_assist: true, database: "postgres://localhost/syllabank"}`)

	cfg, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "temple", cfg.Institution)
	require.Equal(t, 2, cfg.MaxConcurrency)
	require.Equal(t, BackendColly, cfg.Backend)
	require.False(t, cfg.IsHeadless())
	require.True(t, cfg.ManualAssist)
	require.Equal(t, "postgres://localhost/syllabank", cfg.Database)
	require.NoError(t, cfg.Validate())
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadInvalid(t *testing.T) {
	path := write(t, t.TempDir(), "bad.json5", `{institution: `)
	_, err := Read(path)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Institution = "temple"
		cfg.University.Name = "Temple University"
		return cfg
	}
	headful := false

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "no institution", modify: func(c *Config) { c.Institution = "" }, errMsg: "institution is required"},
		{name: "no university", modify: func(c *Config) { c.University.Name = "" }, errMsg: "university.name is required"},
		{name: "negative delay", modify: func(c *Config) { c.DelayMs = -1 }, errMsg: "delay_ms"},
		{name: "zero concurrency", modify: func(c *Config) { c.MaxConcurrency = 0 }, errMsg: "max_concurrency"},
		{name: "no timeout", modify: func(c *Config) { c.NavigationTimeoutMs = 0 }, errMsg: "navigation_timeout_ms"},
		{name: "unknown backend", modify: func(c *Config) { c.Backend = "curl" }, errMsg: `unknown backend "curl"`},
		{name: "headless manual assist", modify: func(c *Config) { c.ManualAssist = true }, errMsg: "manual_assist"},
		{name: "headful manual assist", modify: func(c *Config) { c.ManualAssist = true; c.Headless = &headful }},
		{name: "bad offset", modify: func(c *Config) { c.University.UTCOffset = "EST" }, errMsg: "utc_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestOffset(t *testing.T) {
	cfg := Default()
	offset, err := cfg.Offset()
	require.NoError(t, err)
	require.Zero(t, offset)

	cfg.University.UTCOffset = "-05:00"
	offset, err = cfg.Offset()
	require.NoError(t, err)
	require.Equal(t, -5*3600, offset)
}
