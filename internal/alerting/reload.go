package alerting

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a rules file into an engine when it changes on
// disk. A bad edit is logged and the previous rules stay in effect.
type Watcher struct {
	path    string
	engine  *Engine
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given rules file.
func NewWatcher(path string, engine *Engine) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rules path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save
	// and the watch would be lost on rename.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch rules directory: %w", err)
	}

	return &Watcher{
		path:    absPath,
		engine:  engine,
		watcher: fsw,
	}, nil
}

// Run processes filesystem events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("alerting: rules watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	rules, err := LoadRulesFromFile(w.path)
	if err != nil {
		log.Printf("alerting: reload rejected, keeping previous rules: %v", err)
		return
	}
	if err := w.engine.ReloadRules(rules); err != nil {
		log.Printf("alerting: reload rejected, keeping previous rules: %v", err)
		return
	}
	log.Printf("alerting: reloaded %d rules from %s", len(rules), w.path)
}
