package alerting

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

const initialRules = `
rules:
  - kind: high-wind
    metric: wind_speed_kmh
    threshold: 30
`

const updatedRules = `
rules:
  - kind: high-wind
    metric: wind_speed_kmh
    threshold: 60
`

func writeRules(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
}

func waitForThreshold(t *testing.T, engine *Engine, want float64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rules := engine.Rules()
		if len(rules) == 1 && rules[0].Threshold == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("engine never picked up threshold %v, rules: %+v", want, engine.Rules())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRules(t, path, initialRules)

	rules, err := LoadRulesFromFile(path)
	if err != nil {
		t.Fatalf("load initial rules: %v", err)
	}
	engine := NewEngine(rules)

	watcher, err := NewWatcher(path, engine)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// Give the watch loop a beat to start.
	time.Sleep(50 * time.Millisecond)

	writeRules(t, path, updatedRules)
	waitForThreshold(t, engine, 60)
}

func TestWatcher_BadEditKeepsPreviousRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRules(t, path, initialRules)

	rules, err := LoadRulesFromFile(path)
	if err != nil {
		t.Fatalf("load initial rules: %v", err)
	}
	engine := NewEngine(rules)

	watcher, err := NewWatcher(path, engine)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	writeRules(t, path, "rules:\n  - kind: high-wind\n    metric: broken\n    threshold: 1\n")
	time.Sleep(200 * time.Millisecond)

	got := engine.Rules()
	if len(got) != 1 || got[0].Threshold != 30 {
		t.Errorf("expected previous rules to survive bad edit, got %+v", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRules(t, path, initialRules)

	rules, err := LoadRulesFromFile(path)
	if err != nil {
		t.Fatalf("load initial rules: %v", err)
	}
	engine := NewEngine(rules)
	engine.Evaluate("site-1", models.WeatherSample{WindSpeedKmh: 45}, time.Now())

	watcher, err := NewWatcher(path, engine)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	// A sibling file change must not reset condition state.
	writeRules(t, filepath.Join(dir, "other.yaml"), updatedRules)
	time.Sleep(200 * time.Millisecond)

	if state := engine.State("site-1", models.AlertHighWind); state == nil || !state.Active() {
		t.Error("expected condition state to survive unrelated file writes")
	}
}
