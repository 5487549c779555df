package models

import "time"

// WeatherSample is one observation from the weather collaborator.
// Samples are compared against alert thresholds and discarded; they are
// never persisted.
type WeatherSample struct {
	Timestamp          time.Time `json:"timestamp"`
	WindSpeedKmh       float64   `json:"wind_speed_kmh"`
	RainProbabilityPct float64   `json:"rain_probability_pct"`

	// TempC and Description enrich rendered reports but play no part in
	// alert evaluation.
	TempC       float64 `json:"temp_c"`
	Description string  `json:"description,omitempty"`
}

// AlertKind is a categorical label keying alert de-duplication state.
type AlertKind string

const (
	AlertHighWind AlertKind = "high-wind"
	AlertHighRain AlertKind = "high-rain-probability"
)

// Severity classifies a dispatched notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an edge-triggered notification produced when a weather
// threshold transitions from clear to breached.
type Alert struct {
	SiteID    string    `json:"site_id"`
	Kind      AlertKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}
