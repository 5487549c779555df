// Package alerting evaluates weather samples against threshold rules and
// owns the per-site de-duplication state so a sustained breach alerts once.
package alerting

import (
	"fmt"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

// Metric names a WeatherSample field a rule evaluates.
type Metric string

const (
	MetricWindSpeedKmh       Metric = "wind_speed_kmh"
	MetricRainProbabilityPct Metric = "rain_probability_pct"
)

// QuietHours suppresses alert emission inside a local-time window.
// Recoveries still clear condition state so the first breach after the
// window alerts. The window may wrap midnight (e.g. 22:00-06:00).
type QuietHours struct {
	From string `yaml:"from"` // HH:MM
	To   string `yaml:"to"`   // HH:MM
}

// Rule is one threshold predicate. A rule fires when its metric rises
// above Threshold and stays silent until the metric drops back.
type Rule struct {
	Kind       models.AlertKind `yaml:"kind"`
	Metric     Metric           `yaml:"metric"`
	Threshold  float64          `yaml:"threshold"`
	Severity   models.Severity  `yaml:"severity"`
	QuietHours *QuietHours      `yaml:"quiet_hours,omitempty"`
}

// RulesConfig is the YAML document shape for a rules file.
type RulesConfig struct {
	Rules []*Rule `yaml:"rules"`
}

// Validate checks the rule definition.
func (r *Rule) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	switch r.Metric {
	case MetricWindSpeedKmh, MetricRainProbabilityPct:
	default:
		return fmt.Errorf("invalid metric: %q", r.Metric)
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive")
	}
	switch r.Severity {
	case models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
	case "":
		r.Severity = models.SeverityWarning
	default:
		return fmt.Errorf("invalid severity: %q", r.Severity)
	}
	if r.QuietHours != nil {
		if _, err := parseClock(r.QuietHours.From); err != nil {
			return fmt.Errorf("invalid quiet_hours.from: %w", err)
		}
		if _, err := parseClock(r.QuietHours.To); err != nil {
			return fmt.Errorf("invalid quiet_hours.to: %w", err)
		}
	}
	return nil
}

// value extracts the rule's metric from a sample.
func (r *Rule) value(sample models.WeatherSample) float64 {
	switch r.Metric {
	case MetricWindSpeedKmh:
		return sample.WindSpeedKmh
	case MetricRainProbabilityPct:
		return sample.RainProbabilityPct
	default:
		return 0
	}
}

// quiet reports whether the rule is inside its quiet window at the given
// local time.
func (r *Rule) quiet(now time.Time) bool {
	if r.QuietHours == nil {
		return false
	}
	from, _ := parseClock(r.QuietHours.From)
	to, _ := parseClock(r.QuietHours.To)
	minute := now.Hour()*60 + now.Minute()
	if from <= to {
		return minute >= from && minute < to
	}
	// Window wraps midnight.
	return minute >= from || minute < to
}

// parseClock parses HH:MM into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DefaultRules returns the built-in thresholds: wind above 30 km/h and
// rain probability above 50%.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Kind:      models.AlertHighWind,
			Metric:    MetricWindSpeedKmh,
			Threshold: 30,
			Severity:  models.SeverityWarning,
		},
		{
			Kind:      models.AlertHighRain,
			Metric:    MetricRainProbabilityPct,
			Threshold: 50,
			Severity:  models.SeverityWarning,
		},
	}
}
