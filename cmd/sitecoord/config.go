// Package main provides the site coordinator CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the coordinator configuration. Credentials are never
// read from this file, only from the environment.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Weather WeatherConfig `yaml:"weather"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Report  ReportConfig  `yaml:"report"`
	AI      AIConfig      `yaml:"ai"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	DataDir string        `yaml:"data_dir"`
	Verbose bool          `yaml:"-"` // set via CLI flag
}

// SiteConfig identifies the construction site this instance serves.
type SiteConfig struct {
	ID          string  `yaml:"id"`
	Timezone    string  `yaml:"timezone"`
	Locale      string  `yaml:"locale"` // "ar" or "en"
	AdminIDs    []int64 `yaml:"admin_ids"`
	AdminChatID string  `yaml:"admin_chat_id"` // fallback alert destination
}

// WeatherConfig controls the weather poller.
type WeatherConfig struct {
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AlertsConfig controls the alert rule set.
type AlertsConfig struct {
	RulesFile string `yaml:"rules_file"` // optional, hot-reloaded when set
}

// JobsConfig holds the local wall-clock times of the daily jobs.
type JobsConfig struct {
	SafetyTipAt        string `yaml:"safety_tip_at"`
	ActivityReminderAt string `yaml:"activity_reminder_at"`
	DailyReportAt      string `yaml:"daily_report_at"`
}

// ReportConfig controls report compilation.
type ReportConfig struct {
	IDPrefix      string        `yaml:"id_prefix"`
	AITimeout     time.Duration `yaml:"ai_timeout"`
	AIConcurrency int           `yaml:"ai_concurrency"`
}

// AIConfig points at an OpenAI-compatible completion endpoint.
type AIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// HTTPConfig contains the operational HTTP server settings.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Site.ID == "" {
		c.Site.ID = "burj-nawas"
	}
	if c.Site.Timezone == "" {
		c.Site.Timezone = "Asia/Baghdad"
	}
	if c.Site.Locale == "" {
		c.Site.Locale = "ar"
	}
	if c.Weather.PollInterval == 0 {
		c.Weather.PollInterval = time.Hour
	}
	if c.Jobs.SafetyTipAt == "" {
		c.Jobs.SafetyTipAt = "08:00"
	}
	if c.Jobs.ActivityReminderAt == "" {
		c.Jobs.ActivityReminderAt = "10:00"
	}
	if c.Report.IDPrefix == "" {
		c.Report.IDPrefix = "BN"
	}
	if c.Report.AITimeout == 0 {
		c.Report.AITimeout = 30 * time.Second
	}
	if c.Report.AIConcurrency == 0 {
		c.Report.AIConcurrency = 4
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8081"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Site.ID == "" {
		return fmt.Errorf("site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("site.timezone %q is invalid: %w", c.Site.Timezone, err)
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("weather.latitude must be between -90 and 90")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("weather.longitude must be between -180 and 180")
	}
	if c.Weather.PollInterval < time.Minute {
		return fmt.Errorf("weather.poll_interval must be at least 1m")
	}
	for name, at := range map[string]string{
		"jobs.safety_tip_at":        c.Jobs.SafetyTipAt,
		"jobs.activity_reminder_at": c.Jobs.ActivityReminderAt,
	} {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("%s %q is invalid, expected HH:MM", name, at)
		}
	}
	if c.Jobs.DailyReportAt != "" {
		if _, err := time.Parse("15:04", c.Jobs.DailyReportAt); err != nil {
			return fmt.Errorf("jobs.daily_report_at %q is invalid, expected HH:MM", c.Jobs.DailyReportAt)
		}
	}
	if c.Report.AIConcurrency < 1 {
		return fmt.Errorf("report.ai_concurrency must be at least 1")
	}
	return nil
}
