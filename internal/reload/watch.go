package reload

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Watch reloads r whenever a file under its paths changes, once per quiet
// period of debounce. Close stops the watcher.
func Watch(r *Reloader, debounce time.Duration) (io.Closer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range r.paths {
		if err := addWatchPath(watcher, p); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			timerC = timer.C
		}

		for {
			select {
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				_ = r.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("rule watcher error", zap.Error(err))
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create != 0 {
					if fi, statErr := os.Stat(evt.Name); statErr == nil && fi.IsDir() {
						if addErr := addWatchRecursive(watcher, evt.Name); addErr != nil {
							r.log.Warn("rule watcher add failed", zap.String("path", evt.Name), zap.Error(addErr))
						}
					}
				}
				if shouldTriggerReload(evt) {
					resetTimer()
				}
			}
		}
	}()

	r.log.Info("rule auto-reload enabled", zap.Strings("paths", r.paths), zap.Duration("debounce", debounce))
	return closerFunc(func() error {
		close(stopCh)
		_ = watcher.Close()
		<-doneCh
		return nil
	}), nil
}

func shouldTriggerReload(evt fsnotify.Event) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !strings.HasPrefix(filepath.Base(evt.Name), ".")
}

// addWatchPath watches a directory tree, or the directory holding a file.
func addWatchPath(watcher *fsnotify.Watcher, p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return watcher.Add(filepath.Dir(p))
	}
	return addWatchRecursive(watcher, p)
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
