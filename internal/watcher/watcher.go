// Package watcher bridges the filesystem watch service to the daemon's
// request pipeline: it subscribes under a root with a basename/suffix
// filter and delivers debounced batches of changed absolute paths.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/consts"
	"github.com/codefionn/pyrite/internal/logger"
)

// ErrWatcherClosed is returned when the watch service stops delivering
// events; the serving phase must end with it.
var ErrWatcherClosed = errors.New("filesystem watcher closed")

// Filter selects the paths worth reporting
type Filter struct {
	BaseNames map[string]struct{}
	Suffixes  map[string]struct{}
}

// NewFilter derives the watch filter from the server configuration. The
// canonical configuration filenames and source suffixes are always
// included.
func NewFilter(cfg *config.ServerConfig) Filter {
	return Filter{
		BaseNames: cfg.CriticalFileSet(),
		Suffixes:  cfg.ExtensionSet(),
	}
}

// Matches reports whether a changed path passes the filter
func (f Filter) Matches(path string) bool {
	base := filepath.Base(path)
	if _, ok := f.BaseNames[base]; ok {
		return true
	}
	for suffix := range f.Suffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// Subscription is an established watch on a root directory
type Subscription struct {
	watcher  *fsnotify.Watcher
	root     string
	filter   Filter
	interval time.Duration
}

// Subscribe connects to the watch service and registers the root and its
// subdirectories. A failure here is a startup failure for the caller.
func Subscribe(root string, filter Filter) (*Subscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	if err := addRecursive(w, absRoot); err != nil {
		_ = w.Close()
		return nil, err
	}

	logger.Info("Watching %s", absRoot)

	return &Subscription{
		watcher:  w,
		root:     absRoot,
		filter:   filter,
		interval: consts.WatchBatchInterval,
	}, nil
}

// Close releases the watch service connection
func (s *Subscription) Close() error {
	return s.watcher.Close()
}

// Listen delivers batches of changed paths until the watch service dies or
// the context is cancelled. Changes arriving within the batch interval are
// coalesced into one ordered batch; onBatch runs synchronously, so the next
// batch waits for the previous one to be processed.
func (s *Subscription) Listen(ctx context.Context, onBatch func([]string)) error {
	var (
		pending []string
		seen    = make(map[string]struct{})
		timer   *time.Timer
		fire    <-chan time.Time
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		seen = make(map[string]struct{})
		fire = nil
		logger.Debug("Watcher batch: %d paths", len(batch))
		onBatch(batch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-fire:
			flush()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}

			// New directories need their own watch registration
			if event.Op.Has(fsnotify.Create) {
				if err := addIfDirectory(s.watcher, event.Name); err != nil {
					logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
				}
			}

			if !s.filter.Matches(event.Name) {
				continue
			}

			path := event.Name
			if !filepath.IsAbs(path) {
				if abs, err := filepath.Abs(path); err == nil {
					path = abs
				}
			}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			pending = append(pending, path)

			if timer == nil {
				timer = time.NewTimer(s.interval)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.interval)
			}
			fire = timer.C

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			return err
		}
	}
}

// addRecursive registers a directory tree with the watch service, skipping
// hidden directories.
func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// addIfDirectory registers a newly created path when it is a directory
func addIfDirectory(w *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return nil
	}
	return addRecursive(w, path)
}
