// Package config resolves the settings of a run: built in defaults, then the
// json5 config file (and its .local override), then environment variables,
// optionally loaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"amazon-firefly/internal/extract"
	"amazon-firefly/internal/scrape"
	"amazon-firefly/lib/configutil"

	"github.com/joho/godotenv"
)

const EnvPrefix = "AMAZON_FIREFLY_"

type Selectors struct {
	Listing scrape.Selectors  `json:"listing"`
	Details extract.Selectors `json:"details"`
}

type Config struct {
	BaseUrl         string `json:"base_url"`
	OrderHistoryUrl string `json:"order_history_url"`
	// YearUrlTemplate is formatted with the year, ex. "...?timeFilter=year-%d".
	YearUrlTemplate string `json:"year_url_template"`

	OutputDir      string `json:"output_dir"`
	CacheDir       string `json:"cache_dir"`
	CacheBackend   string `json:"cache_backend"`
	CacheDSN       string `json:"cache_dsn"`
	CacheAuthToken string `json:"cache_auth_token"`
	SessionFile    string `json:"session_file"`

	// DateFormat is a strftime format.
	DateFormat string `json:"date_format"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	// MaxOrders caps accepted orders, unset or negative means no cap.
	MaxOrders *int `json:"max_orders"`

	// timeouts and intervals in seconds
	PageLoadTimeout    float64 `json:"page_load_timeout"`
	ElementWaitTimeout float64 `json:"element_wait_timeout"`
	LoginTimeout       float64 `json:"login_timeout"`
	LoginPollInterval  float64 `json:"login_poll_interval"`
	PaginationSettle   float64 `json:"pagination_settle"`
	PageCacheTTL       float64 `json:"page_cache_ttl"`

	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`

	LoginMarker string    `json:"login_marker"`
	Selectors   Selectors `json:"selectors"`
}

func Defaults() Config {
	return Config{
		BaseUrl:         "https://www.amazon.it",
		OrderHistoryUrl: "https://www.amazon.it/your-orders/orders",
		YearUrlTemplate: "https://www.amazon.it/your-orders/orders?timeFilter=year-%d",

		OutputDir:    "output",
		CacheDir:     "cache",
		CacheBackend: "json",
		CacheDSN:     "cache/cache.db",
		SessionFile:  "config/session.json",

		DateFormat: "%Y-%m-%d",

		PageLoadTimeout:    30,
		ElementWaitTimeout: 10,
		LoginTimeout:       300,
		LoginPollInterval:  5,
		PaginationSettle:   3,
		PageCacheTTL:       600,

		RequestsPerSecond: 1,

		LoginMarker: "#nav-item-switch-account",
		Selectors: Selectors{
			Listing: scrape.DefaultSelectors(),
			Details: extract.DefaultSelectors(),
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) PageLoadTimeoutDuration() time.Duration    { return seconds(c.PageLoadTimeout) }
func (c Config) ElementWaitTimeoutDuration() time.Duration { return seconds(c.ElementWaitTimeout) }
func (c Config) LoginTimeoutDuration() time.Duration       { return seconds(c.LoginTimeout) }
func (c Config) LoginPollIntervalDuration() time.Duration  { return seconds(c.LoginPollInterval) }
func (c Config) PaginationSettleDuration() time.Duration   { return seconds(c.PaginationSettle) }
func (c Config) PageCacheTTLDuration() time.Duration       { return seconds(c.PageCacheTTL) }

// Quota returns the order cap max_orders describes.
func (c Config) Quota() scrape.Quota {
	if c.MaxOrders == nil {
		return scrape.Unlimited()
	}
	return scrape.FromMaxOrders(*c.MaxOrders)
}

// Load reads the config file at path on top of the defaults and then applies
// environment overrides. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfigWithDefaults(path, Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	err = godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	err = cfg.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envField struct {
	key string
	set func(c *Config, value string) error
}

func stringField(key string, get func(c *Config) *string) envField {
	return envField{key: key, set: func(c *Config, value string) error {
		*get(c) = value
		return nil
	}}
}

func intField(key string, get func(c *Config) *int) envField {
	return envField{key: key, set: func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*get(c) = n
		return nil
	}}
}

func floatField(key string, get func(c *Config) *float64) envField {
	return envField{key: key, set: func(c *Config, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*get(c) = f
		return nil
	}}
}

var envFields = []envField{
	stringField("base_url", func(c *Config) *string { return &c.BaseUrl }),
	stringField("order_history_url", func(c *Config) *string { return &c.OrderHistoryUrl }),
	stringField("year_url_template", func(c *Config) *string { return &c.YearUrlTemplate }),
	stringField("output_dir", func(c *Config) *string { return &c.OutputDir }),
	stringField("cache_dir", func(c *Config) *string { return &c.CacheDir }),
	stringField("cache_backend", func(c *Config) *string { return &c.CacheBackend }),
	stringField("cache_dsn", func(c *Config) *string { return &c.CacheDSN }),
	stringField("cache_auth_token", func(c *Config) *string { return &c.CacheAuthToken }),
	stringField("session_file", func(c *Config) *string { return &c.SessionFile }),
	stringField("date_format", func(c *Config) *string { return &c.DateFormat }),
	stringField("user_agent", func(c *Config) *string { return &c.UserAgent }),
	stringField("login_marker", func(c *Config) *string { return &c.LoginMarker }),
	intField("start_year", func(c *Config) *int { return &c.StartYear }),
	intField("end_year", func(c *Config) *int { return &c.EndYear }),
	{key: "max_orders", set: func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.MaxOrders = &n
		return nil
	}},
	floatField("page_load_timeout", func(c *Config) *float64 { return &c.PageLoadTimeout }),
	floatField("element_wait_timeout", func(c *Config) *float64 { return &c.ElementWaitTimeout }),
	floatField("login_timeout", func(c *Config) *float64 { return &c.LoginTimeout }),
	floatField("login_poll_interval", func(c *Config) *float64 { return &c.LoginPollInterval }),
	floatField("pagination_settle", func(c *Config) *float64 { return &c.PaginationSettle }),
	floatField("page_cache_ttl", func(c *Config) *float64 { return &c.PageCacheTTL }),
	floatField("requests_per_second", func(c *Config) *float64 { return &c.RequestsPerSecond }),
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overrides every setting whose environment variable lookup finds.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, field := range envFields {
		value, ok := lookup(EnvKey(field.key))
		if !ok {
			continue
		}
		err := field.set(c, value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvKey(field.key), err))
		}
	}
	return errors.Join(errs...)
}

// Validate returns a warning for every setting that looks wrong but does not
// prevent a run.
func (c Config) Validate() []string {
	var warnings []string
	urls := []struct {
		key   string
		value string
	}{
		{"base_url", c.BaseUrl},
		{"order_history_url", c.OrderHistoryUrl},
	}
	for _, field := range urls {
		u, err := url.Parse(field.value)
		if err != nil || u.Scheme != "https" {
			warnings = append(warnings, fmt.Sprintf("%s should be an https url, got %q", field.key, field.value))
		}
	}
	if !strings.Contains(c.YearUrlTemplate, "%d") {
		warnings = append(warnings, fmt.Sprintf("year_url_template has no %%d for the year: %q", c.YearUrlTemplate))
	}

	durations := []struct {
		key   string
		value float64
	}{
		{"page_load_timeout", c.PageLoadTimeout},
		{"element_wait_timeout", c.ElementWaitTimeout},
		{"login_timeout", c.LoginTimeout},
		{"login_poll_interval", c.LoginPollInterval},
	}
	for _, field := range durations {
		if field.value <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s should be positive, got %v", field.key, field.value))
		}
	}

	if c.StartYear != 0 && c.EndYear != 0 && c.StartYear > c.EndYear {
		warnings = append(warnings, fmt.Sprintf("start_year %d is after end_year %d, they will be swapped", c.StartYear, c.EndYear))
	}
	if c.CacheBackend != "json" && c.CacheBackend != "sqlite" {
		warnings = append(warnings, fmt.Sprintf("cache_backend should be json or sqlite, got %q", c.CacheBackend))
	}

	err := os.MkdirAll(c.OutputDir, 0755)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("output_dir %q cannot be created: %s", c.OutputDir, err))
	}
	if len(c.Selectors.Listing.NextPage) == 0 {
		warnings = append(warnings, "selectors.listing.next_page is empty, only the first page of each year will be read")
	}
	if c.SessionFile != "" {
		err = os.MkdirAll(filepath.Dir(c.SessionFile), 0755)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("session_file directory cannot be created: %s", err))
		}
	}
	return warnings
}
