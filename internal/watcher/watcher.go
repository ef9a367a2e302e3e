// Package watcher reloads the served snapshot when the snapshot file is
// replaced on disk. The indexer writes snapshots atomically (temp file +
// rename), so the watcher reacts to create/rename/write events on the file
// name inside the watched directory.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docsearch-io/docsearch/internal/engine"
	"github.com/docsearch-io/docsearch/internal/snapshot"
)

// debounce absorbs the event bursts a rename-over produces.
const debounce = 200 * time.Millisecond

type Watcher struct {
	path   string
	engine *engine.Engine
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	onSwap func()
}

// New watches the directory containing path for snapshot replacement.
// onSwap, if non-nil, runs after every successful reload (e.g. to flush a
// query cache).
func New(path string, eng *engine.Engine, onSwap func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:   path,
		engine: eng,
		fsw:    fsw,
		logger: slog.Default().With("component", "snapshot-watcher"),
		onSwap: onSwap,
	}, nil
}

// Run processes events until ctx is cancelled. A reload failure keeps the
// current snapshot in service; the engine is never degraded to an empty
// index by a bad file showing up on disk.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot watcher stopping")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		case <-reload:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	snap, err := snapshot.Load(w.path)
	if err != nil {
		w.logger.Error("snapshot reload failed, keeping current index", "path", w.path, "error", err)
		return
	}
	w.engine.Swap(snap)
	w.logger.Info("snapshot reloaded",
		"path", w.path,
		"documents", snap.DocCount(),
		"terms", snap.TermCount(),
	)
	if w.onSwap != nil {
		w.onSwap()
	}
}
