// Package watcher drives incremental indexing from filesystem events: when
// a session file under a watched root changes, a debounced incremental pass
// runs. Safety under racing triggers comes from indexer idempotence, so a
// spurious event at worst costs a fingerprint comparison.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jasperwreed/recall/internal/indexer"
)

const defaultDebounce = 2 * time.Second

type Watcher struct {
	fsw      *fsnotify.Watcher
	ix       *indexer.Indexer
	roots    []string
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	watched map[string]bool
}

func New(ix *indexer.Indexer, roots []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		ix:       ix,
		roots:    roots,
		debounce: defaultDebounce,
		log:      slog.Default(),
		watched:  make(map[string]bool),
	}, nil
}

// SetDebounce adjusts how long after the last event an index pass waits.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run watches the roots until the context is cancelled. fsnotify does not
// recurse, so every subdirectory is registered, including ones created
// while running.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for _, root := range w.roots {
		if err := w.watchTree(root); err != nil {
			w.log.Warn("cannot watch root", "root", root, "error", err)
		}
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// A new project directory needs its own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.maybeWatchDir(event.Name)
				}
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-fire:
			timer = nil
			report, err := w.ix.Run(ctx, indexer.ModeIncremental)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Error("incremental pass failed", "error", err)
				continue
			}
			if report.Indexed > 0 || report.Failed > 0 {
				w.log.Info("reindexed on change",
					"indexed", report.Indexed, "failed", report.Failed)
			}
		}
	}
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.maybeWatchDir(path)
		}
		return nil
	})
}

func (w *Watcher) maybeWatchDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Debug("cannot watch", "dir", dir, "error", err)
		return
	}
	w.watched[dir] = true
}
