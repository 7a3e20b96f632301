// Package watch pushes filesystem change notifications into the freshness
// coordinator so edits to rulebook folders are picked up before the next
// scheduled check.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches rapid event bursts (editors write files in several
// operations) into a single invalidation.
const DefaultDebounce = 2 * time.Second

// Invalidator marks the index state as unknown so the next query re-checks
// the corpora. The ingest coordinator implements this.
type Invalidator interface {
	Invalidate()
}

// Watcher observes corpus folders and invalidates freshness on changes.
// Watching is advisory: a missed event only delays re-ingestion until the
// periodic check, so watcher errors are logged, never fatal.
type Watcher struct {
	fw       *fsnotify.Watcher
	inv      Invalidator
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a Watcher over the given folders. A non-positive debounce
// selects DefaultDebounce.
func New(folders []string, inv Invalidator, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, folder := range folders {
		if err := fw.Add(folder); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", folder, err)
		}
	}

	return &Watcher{fw: fw, inv: inv, debounce: debounce, logger: logger}, nil
}

// Run processes events until the context is cancelled. Only events that can
// change ingestion output (writes, creates, removes, renames) count; chmod
// noise is dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("corpus change observed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.logger.Info("corpus changed, invalidating freshness")
			w.inv.Invalidate()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}
