package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/burjnawas/sitecoord/internal/alerting"
	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/models"
)

// Sampler produces one weather sample per poll cycle.
type Sampler interface {
	Sample(ctx context.Context) (models.WeatherSample, error)
}

// Sample fetches current conditions plus the short-range forecast and
// folds them into a single sample. Wind comes from the current
// observation (converted from m/s), rain probability is the highest
// probability across the next two 3-hour forecast slots.
func (c *Client) Sample(ctx context.Context) (models.WeatherSample, error) {
	obs, err := c.Current(ctx)
	if err != nil {
		return models.WeatherSample{}, fmt.Errorf("current conditions: %w", err)
	}

	slots, err := c.Forecast(ctx)
	if err != nil {
		return models.WeatherSample{}, fmt.Errorf("forecast: %w", err)
	}

	sample := models.WeatherSample{
		Timestamp:    c.clock.Now(),
		WindSpeedKmh: obs.Wind.Speed * 3.6,
		TempC:        obs.Main.Temp,
	}
	if len(obs.Weather) > 0 {
		sample.Description = obs.Weather[0].Description
	}
	for i, slot := range slots {
		if i >= 2 {
			break
		}
		if pct := slot.Pop * 100; pct > sample.RainProbabilityPct {
			sample.RainProbabilityPct = pct
		}
	}
	return sample, nil
}

// AlertNotifier receives edge-triggered alerts for delivery.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert models.Alert)
}

// Poller runs the hourly weather check for one site.
type Poller struct {
	sampler  Sampler
	engine   *alerting.Engine
	notifier AlertNotifier

	siteID   string
	interval time.Duration
	location *time.Location
	clock    clockwork.Clock
}

// NewPoller creates a poller. The clock is injectable for tests; pass
// clockwork.NewRealClock() in production.
func NewPoller(sampler Sampler, engine *alerting.Engine, notifier AlertNotifier, siteID string, interval time.Duration, loc *time.Location, clock clockwork.Clock) *Poller {
	if loc == nil {
		loc = time.UTC
	}
	return &Poller{
		sampler:  sampler,
		engine:   engine,
		notifier: notifier,
		siteID:   siteID,
		interval: interval,
		location: loc,
		clock:    clock,
	}
}

// Run polls immediately, then on every interval tick until the context
// is canceled.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll executes one cycle. A failed fetch is logged and dropped; the
// next scheduled cycle is the retry, never this one.
func (p *Poller) Poll(ctx context.Context) {
	sample, err := p.sampler.Sample(ctx)
	if err != nil {
		metrics.WeatherPollFailures.Inc()
		log.Printf("weather: poll failed, retrying next cycle: %v", err)
		return
	}
	metrics.WeatherPollsTotal.Inc()

	now := p.clock.Now().In(p.location)
	alerts := p.engine.Evaluate(p.siteID, sample, now)
	for _, alert := range alerts {
		metrics.AlertsEmittedTotal.WithLabelValues(string(alert.Kind)).Inc()
		p.notifier.NotifyAlert(ctx, alert)
	}
}
