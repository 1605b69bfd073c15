// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long Watch waits after the last change before
// importing.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions controls Watch.
type WatchOptions struct {
	// Debounce collapses bursts of events on the same files.
	Debounce time.Duration

	// Ignore holds doublestar patterns matched against event paths.
	Ignore []string

	// Initial imports the catalogs already in the directory before watching.
	Initial bool
}

// Watch imports catalogs under dir whenever they are created or written,
// until ctx is cancelled. New subdirectories are watched as they appear.
func (im *Importer) Watch(ctx context.Context, dir string, opts WatchOptions, w io.Writer) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := addTree(fsw, dir, opts); err != nil {
		return err
	}

	if opts.Initial {
		files, err := catalogsInDir(dir)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if _, err := im.Import(ctx, files, w); err != nil {
				return err
			}
		}
	}

	im.log.WithFields(logrus.Fields{"dir": dir}).Info("watching for catalog changes")

	pending := make(map[string]bool)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ignored(event.Name, opts) {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := addTree(fsw, event.Name, opts); err != nil {
					im.log.WithError(err).WithField("dir", event.Name).Warn("could not watch directory")
				}
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsCatalogFile(event.Name) {
				continue
			}

			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			paths = existing(paths)
			if len(paths) == 0 {
				continue
			}

			if _, err := im.Import(ctx, paths, w); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				im.log.WithError(err).Warn("watch import failed")
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			im.log.WithError(err).Warn("watcher error")
		}
	}
}

func addTree(fsw *fsnotify.Watcher, root string, opts WatchOptions) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path, opts) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// ignored skips hidden files (editor swap files, dot-directories) and paths
// matching an ignore pattern.
func ignored(path string, opts WatchOptions) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range opts.Ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// existing drops paths removed since their event arrived.
func existing(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
