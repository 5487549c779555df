package alerting

import (
	"sync"
	"time"

	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/models"
)

// conditionPhase is the tagged state of one threshold condition.
type conditionPhase int

const (
	phaseInactive conditionPhase = iota
	phaseActive
)

// ConditionState tracks one alert kind for one site. The invariant is
// that at most one state per (site, kind) exists and an alert is emitted
// only on the inactive->active edge.
type ConditionState struct {
	Kind            models.AlertKind
	phase           conditionPhase
	LastTriggeredAt time.Time
}

// Active reports whether the condition is currently breached.
func (s *ConditionState) Active() bool {
	return s.phase == phaseActive
}

type stateKey struct {
	siteID string
	kind   models.AlertKind
}

// Engine evaluates weather samples against rules, emitting edge-triggered
// alerts and suppressing repeats while a condition stays breached.
type Engine struct {
	mu     sync.Mutex
	rules  []*Rule
	states map[stateKey]*ConditionState

	stats EngineStats
}

// EngineStats tracks evaluation counters.
type EngineStats struct {
	SamplesEvaluated int64
	AlertsEmitted    int64
	AlertsSuppressed int64
	ConditionsCleared int64
}

// NewEngine creates an engine with the given rules. Rules must be
// validated by the caller (LoadRules does this).
func NewEngine(rules []*Rule) *Engine {
	return &Engine{
		rules:  rules,
		states: make(map[stateKey]*ConditionState),
	}
}

// Evaluate compares a sample against every rule for a site and returns
// the alerts whose conditions transitioned from clear to breached.
func (e *Engine) Evaluate(siteID string, sample models.WeatherSample, now time.Time) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.SamplesEvaluated++

	var alerts []models.Alert
	for _, rule := range e.rules {
		key := stateKey{siteID: siteID, kind: rule.Kind}
		state, ok := e.states[key]
		if !ok {
			state = &ConditionState{Kind: rule.Kind}
			e.states[key] = state
		}

		breached := rule.value(sample) > rule.Threshold

		// The quiet window gates emission only. A breach that starts
		// inside it stays inactive so the first evaluation after the
		// window still alerts, and recoveries always clear state.
		switch {
		case breached && state.phase == phaseInactive:
			if rule.quiet(now) {
				continue
			}
			state.phase = phaseActive
			state.LastTriggeredAt = now
			e.stats.AlertsEmitted++
			alerts = append(alerts, models.Alert{
				SiteID:    siteID,
				Kind:      rule.Kind,
				Severity:  rule.Severity,
				Value:     rule.value(sample),
				Threshold: rule.Threshold,
				Timestamp: now,
			})
		case breached && state.phase == phaseActive:
			e.stats.AlertsSuppressed++
			metrics.AlertsSuppressedTotal.WithLabelValues(string(rule.Kind)).Inc()
		case !breached && state.phase == phaseActive:
			state.phase = phaseInactive
			e.stats.ConditionsCleared++
		}
	}
	return alerts
}

// State returns the condition state for a site and kind, or nil.
func (e *Engine) State(siteID string, kind models.AlertKind) *ConditionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[stateKey{siteID: siteID, kind: kind}]
}

// Rules returns a copy of the current rule set.
func (e *Engine) Rules() []*Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// ReloadRules replaces the rule set and resets all condition state so the
// new thresholds start from a clean slate.
func (e *Engine) ReloadRules(rules []*Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.states = make(map[stateKey]*ConditionState)
	return nil
}

// Stats returns a snapshot of evaluation counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
