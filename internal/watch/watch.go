// Package watch reports changes to introspection sources so that cached
// decks can be dropped.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change operations passed to a Callback.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Change is one settled file change.
type Change struct {
	Op   string
	File string
}

// Callback receives the changes accumulated during one quiet period, sorted
// by file.
type Callback func(changes []Change)

// Options configure Watch.
type Options struct {
	Roots []string
	// Exts limits reported files to these extensions; empty reports all.
	Exts     []string
	Debounce time.Duration
}

// Watch watches every directory below the roots and calls cb once events
// have been quiet for the debounce period. It returns when ctx is cancelled.
func Watch(ctx context.Context, opts Options, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range opts.Roots {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.Any("roots", opts.Roots))

	pending := make(map[string]string)
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if len(pending) == 0 {
				continue
			}
			changes := make([]Change, 0, len(pending))
			for _, file := range slices.Sorted(maps.Keys(pending)) {
				changes = append(changes, Change{Op: pending[file], File: file})
			}
			clear(pending)
			logger.Debug("watcher: settled", slog.Int("changes", len(changes)))
			cb(changes)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					continue
				}
			}

			op := opName(ev.Op)
			if op == "" || !matches(ev.Name, opts.Exts) {
				continue
			}
			pending[ev.Name] = op
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	}
	return ""
}

func matches(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	return slices.Contains(exts, filepath.Ext(name))
}

// addDirsRecursive adds root and its subdirectories, skipping hidden and
// cache directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__" || name == "testdata" || name == "vendor"
}
