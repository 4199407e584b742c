package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcin-skalski/mondrian/internal/status"
)

// ErrInvalid marks configuration that must stop the monitor before it starts.
var ErrInvalid = errors.New("invalid config")

const (
	DisplayFullscreen = "fullscreen"
	DisplayOverlay    = "overlay"
	DisplayWindow     = "window"
)

type Config struct {
	// Path is the file the config was loaded from.
	Path string `yaml:"-"`

	Jenkins       JenkinsConfig  `yaml:"jenkins"`
	Gerrit        GerritConfig   `yaml:"gerrit"`
	PollInterval  time.Duration  `yaml:"-"`
	RawInterval   string         `yaml:"poll_interval"`
	CheckInterval time.Duration  `yaml:"-"`
	RawCheck      string         `yaml:"check_interval"`
	HTTPTimeout   time.Duration  `yaml:"-"`
	RawTimeout    string         `yaml:"http_timeout"`
	Throttle      ThrottleConfig `yaml:"throttle"`
	Display       DisplayConfig  `yaml:"display"`
	Nudge         NudgeConfig    `yaml:"nudge"`
	LogFile       string         `yaml:"log_file"`
	Log           LogConfig      `yaml:"log"`
}

type JenkinsConfig struct {
	BaseURL       string   `yaml:"base_url"`
	User          string   `yaml:"user"`
	APIToken      string   `yaml:"api_token"`
	BuildJobs     []string `yaml:"build_jobs"`
	CITestJobs    []string `yaml:"ci_test_jobs"`
	OtherTestJobs []string `yaml:"other_test_jobs"`
}

type GerritConfig struct {
	BaseURL              string            `yaml:"base_url"`
	User                 string            `yaml:"user"`
	Password             string            `yaml:"password"`
	Label                string            `yaml:"label"`
	PageSize             int               `yaml:"page_size"`
	LimitsReadyForReview status.Thresholds `yaml:"limits_ready_for_review"`
	LimitsReviewed       status.Thresholds `yaml:"limits_reviewed"`
}

type ThrottleConfig struct {
	Enabled       bool          `yaml:"enabled"`
	StartHour     *int          `yaml:"start_hour,omitempty"`
	EndHour       *int          `yaml:"end_hour,omitempty"`
	NightSleep    time.Duration `yaml:"-"`
	RawNightSleep string        `yaml:"night_sleep"`
}

type DisplayConfig struct {
	Mode string `yaml:"mode"`
}

type NudgeConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Offset  int   `yaml:"offset"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Overrides carry command-line settings applied on top of the file.
type Overrides struct {
	Throttle     *bool
	PollInterval time.Duration
	DisplayMode  string
}

func Load(path string, o Overrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{Path: path}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.apply(o)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return &cfg, nil
}

func parseDuration(field, raw, def string) (time.Duration, error) {
	if raw == "" {
		raw = def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	return d, nil
}

func (c *Config) setDefaults() error {
	var err error
	if c.PollInterval, err = parseDuration("poll_interval", c.RawInterval, "120s"); err != nil {
		return err
	}
	if c.CheckInterval, err = parseDuration("check_interval", c.RawCheck, "200ms"); err != nil {
		return err
	}
	if c.HTTPTimeout, err = parseDuration("http_timeout", c.RawTimeout, "30s"); err != nil {
		return err
	}
	if c.Throttle.NightSleep, err = parseDuration("throttle.night_sleep", c.Throttle.RawNightSleep, "4h"); err != nil {
		return err
	}

	if c.Throttle.StartHour == nil {
		start := 6
		c.Throttle.StartHour = &start
	}
	if c.Throttle.EndHour == nil {
		end := 17
		c.Throttle.EndHour = &end
	}

	if c.Gerrit.Label == "" {
		c.Gerrit.Label = status.DefaultReviewLabel
	}
	if c.Gerrit.PageSize == 0 {
		c.Gerrit.PageSize = 100
	}
	if c.Display.Mode == "" {
		c.Display.Mode = DisplayFullscreen
	}
	if c.Nudge.Offset == 0 {
		c.Nudge.Offset = 1
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

func defaultLogFile() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mondrian", "mondrian.log")
	}
	return filepath.Join(os.TempDir(), "mondrian", "mondrian.log")
}

func (c *Config) apply(o Overrides) {
	if o.Throttle != nil {
		c.Throttle.Enabled = *o.Throttle
	}
	if o.PollInterval > 0 {
		c.PollInterval = o.PollInterval
	}
	if o.DisplayMode != "" {
		c.Display.Mode = o.DisplayMode
	}
}

// NudgeEnabled defaults to on only for a fullscreen always-on display.
func (c *Config) NudgeEnabled() bool {
	if c.Nudge.Enabled != nil {
		return *c.Nudge.Enabled
	}
	return c.Display.Mode == DisplayFullscreen
}

func (c *Config) validate() error {
	if err := validateURL("jenkins.base_url", c.Jenkins.BaseURL); err != nil {
		return err
	}
	if err := validateURL("gerrit.base_url", c.Gerrit.BaseURL); err != nil {
		return err
	}

	jobLists := []struct {
		name string
		jobs []string
	}{
		{"jenkins.build_jobs", c.Jenkins.BuildJobs},
		{"jenkins.ci_test_jobs", c.Jenkins.CITestJobs},
		{"jenkins.other_test_jobs", c.Jenkins.OtherTestJobs},
	}
	for _, l := range jobLists {
		if len(l.jobs) == 0 {
			return fmt.Errorf("%s: at least one job required", l.name)
		}
		for i, j := range l.jobs {
			if j == "" {
				return fmt.Errorf("%s[%d]: empty job name", l.name, i)
			}
		}
	}

	if err := c.Gerrit.LimitsReadyForReview.Validate(); err != nil {
		return fmt.Errorf("gerrit.limits_ready_for_review: %w", err)
	}
	if err := c.Gerrit.LimitsReviewed.Validate(); err != nil {
		return fmt.Errorf("gerrit.limits_reviewed: %w", err)
	}
	if c.Gerrit.PageSize < 0 {
		return fmt.Errorf("gerrit.page_size must be positive, got %d", c.Gerrit.PageSize)
	}

	if c.CheckInterval > c.PollInterval {
		return fmt.Errorf("check_interval (%s) must not exceed poll_interval (%s)", c.CheckInterval, c.PollInterval)
	}

	hours := []struct {
		name string
		hour int
	}{
		{"throttle.start_hour", *c.Throttle.StartHour},
		{"throttle.end_hour", *c.Throttle.EndHour},
	}
	for _, h := range hours {
		if h.hour < 0 || h.hour > 23 {
			return fmt.Errorf("%s must be within 0..23, got %d", h.name, h.hour)
		}
	}

	switch c.Display.Mode {
	case DisplayFullscreen, DisplayOverlay, DisplayWindow:
	default:
		return fmt.Errorf("invalid display.mode %q (fullscreen|overlay|window)", c.Display.Mode)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host required", field)
	}
	return nil
}
