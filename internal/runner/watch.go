// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Debouncer collects changed paths and delivers them in one batch once no
// new change arrived for the window duration.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending map[string]bool
	onFlush func([]string)
	stopped bool
}

// NewDebouncer creates a debouncer calling onFlush with the sorted batch.
func NewDebouncer(window time.Duration, onFlush func([]string)) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]bool),
		onFlush: onFlush,
	}
}

// Add records a change and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]bool)
	d.timer = nil
	d.mu.Unlock()

	sort.Strings(paths)
	d.onFlush(paths)
}

// Pending returns the number of changes waiting for delivery.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop discards pending changes. Later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]bool)
}

// Watch calls fn with the changed files each time test definitions below
// dirs change, until ctx is done. Runs of fn never overlap.
func Watch(ctx context.Context, dirs []string, pattern string, window time.Duration, logger *slog.Logger, fn func(ctx context.Context, changed []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	roots := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := addTree(fsw, abs); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		roots = append(roots, abs)
	}

	var runMu sync.Mutex
	debouncer := NewDebouncer(window, func(paths []string) {
		runMu.Lock()
		defer runMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		fn(ctx, paths)
	})
	defer debouncer.Stop()

	logger.Info("watching for changes", slog.Any("dirs", dirs))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(fsw, event.Name); err != nil {
						logger.Warn("failed to watch new directory", slog.String("path", event.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !matches(roots, pattern, event.Name) {
				continue
			}
			logger.Debug("test definition changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Add(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", slog.Any("error", err))
		}
	}
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

// matches reports whether path lies below one of roots and matches pattern
// relative to it.
func matches(roots []string, pattern, path string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if ok, _ := doublestar.PathMatch(pattern, rel); ok {
			return true
		}
	}
	return false
}
