package pubgarden

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch rebuilds the site whenever a file below the content directory
// changes. Bursts of events are collapsed into one rebuild after delay. It
// blocks until ctx is cancelled. A failed rebuild is logged and the previous
// build keeps being served. Rebuilds reuse the configuration the App was
// created with; editing the config file needs a restart.
func (a *App) Watch(ctx context.Context, delay time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addRecursive(w, a.Config.ContentDir, a.Config.OutputDir); err != nil {
		return err
	}
	a.logger.Infof("watching %s for changes", a.Config.ContentDir)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(ev) {
				continue
			}
			// New directories must be watched too.
			if ev.Op.Has(fsnotify.Create) {
				if err := addRecursive(w, ev.Name, a.Config.OutputDir); err != nil {
					a.logger.Warnf("watch %s: %v", ev.Name, err)
				}
			}
			a.logger.Debugf("change: %s %s", ev.Op, ev.Name)
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warnf("watcher: %v", err)
		case <-fire:
			fire = nil
			if _, err := a.Build(ctx); err != nil {
				a.logger.Errorf("rebuild failed: %v", err)
			}
		}
	}
}

func relevantEvent(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// addRecursive watches root and every directory below it except skip.
func addRecursive(w *fsnotify.Watcher, root, skip string) error {
	skipAbs, _ := filepath.Abs(skip)
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == skipAbs || (p != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
