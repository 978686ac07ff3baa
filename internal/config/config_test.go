package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"amazon-firefly/internal/scrape"

	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Defaults().YearUrlTemplate, cfg.YearUrlTemplate)
	require.Equal(t, 10*time.Second, cfg.ElementWaitTimeoutDuration())
	require.Equal(t, scrape.Unlimited(), cfg.Quota())
}

func TestLoadMergesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	err := os.WriteFile(path, []byte(`{
		// comments are fine
		start_year: 2022,
		end_year: 2023,
		max_orders: 0,
		element_wait_timeout: 2.5,
		selectors: {
			listing: {next_page: [".next"]},
		},
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{date_format: "%d/%m/%Y"}`), 0600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2022, cfg.StartYear)
	require.Equal(t, 2023, cfg.EndYear)
	require.Equal(t, "%d/%m/%Y", cfg.DateFormat)
	require.Equal(t, 2500*time.Millisecond, cfg.ElementWaitTimeoutDuration())
	require.Equal(t, scrape.Cap(0), cfg.Quota())
	require.Equal(t, []string{".next"}, cfg.Selectors.Listing.NextPage)

	// untouched nested settings keep their defaults
	require.Equal(t, Defaults().Selectors.Listing.OrderCard, cfg.Selectors.Listing.OrderCard)
	require.Equal(t, Defaults().Selectors.Details, cfg.Selectors.Details)
	require.Equal(t, Defaults().OutputDir, cfg.OutputDir)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AMAZON_FIREFLY_OUTPUT_DIR":     "/tmp/out",
		"AMAZON_FIREFLY_MAX_ORDERS":     "7",
		"AMAZON_FIREFLY_START_YEAR":     "2021",
		"AMAZON_FIREFLY_PAGE_CACHE_TTL": "0",
	}
	cfg := Defaults()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/out", cfg.OutputDir)
	require.Equal(t, scrape.Cap(7), cfg.Quota())
	require.Equal(t, 2021, cfg.StartYear)
	require.Zero(t, cfg.PageCacheTTLDuration())

	env = map[string]string{
		"AMAZON_FIREFLY_START_YEAR": "last year",
		"AMAZON_FIREFLY_END_YEAR":   "soon",
	}
	err = cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.ErrorContains(t, err, "AMAZON_FIREFLY_START_YEAR")
	require.ErrorContains(t, err, "AMAZON_FIREFLY_END_YEAR")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.SessionFile = filepath.Join(t.TempDir(), "config", "session.json")
	require.Empty(t, cfg.Validate())

	cfg.BaseUrl = "http://www.amazon.it"
	cfg.ElementWaitTimeout = 0
	cfg.StartYear = 2024
	cfg.EndYear = 2020
	cfg.CacheBackend = "redis"
	warnings := cfg.Validate()
	require.Len(t, warnings, 4)
	require.Contains(t, warnings[0], "base_url")
	require.Contains(t, warnings[1], "element_wait_timeout")
}
