package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dublette/internal/logging"
)

// settleDelay lets a file finish being copied in before it is ingested.
const settleDelay = 500 * time.Millisecond

// Watch observes dir for new or rewritten .json files and hands each to
// onFile once the writes settle. Blocks until ctx is cancelled.
func Watch(ctx context.Context, dir string, onFile func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Ingest("watching %s for event files", dir)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if strings.ToLower(filepath.Ext(ev.Name)) != ".json" {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(settleDelay)
			} else {
				timers[path] = time.AfterFunc(settleDelay, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					if ctx.Err() != nil {
						return
					}
					onFile(path)
				})
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryIngest).Warn("watcher error: %v", err)
		}
	}
}
