// Package watch re-runs a callback when the configuration file or any
// category source tree changes. Bursts of events are debounced into a
// single run and runs never overlap.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/logging"
)

// DefaultDebounce is how long the tree must stay quiet before a run
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches single files and whole trees
type Watcher struct {
	files    []string
	roots    []string
	debounce time.Duration
	logger   zerolog.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a Watcher for files (watched through their directory so
// editors replacing them are noticed) and roots (watched recursively).
func New(files, roots []string, opts ...Option) *Watcher {
	w := &Watcher{
		debounce: DefaultDebounce,
		logger:   logging.GetLogger("watch"),
	}
	for _, f := range files {
		if f != "" {
			w.files = append(w.files, filepath.Clean(f))
		}
	}
	for _, r := range roots {
		if r != "" {
			w.roots = append(w.roots, filepath.Clean(r))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run calls run once, then again after every settled change until ctx is
// done. Errors from run are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, run func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create fsnotify watcher")
	}
	defer func() { _ = watcher.Close() }()

	for _, f := range w.files {
		w.add(watcher, filepath.Dir(f))
	}
	for _, r := range w.roots {
		w.addTree(watcher, r)
	}

	w.invoke(ctx, run)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(watcher, event.Name)
				}
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Change detected")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.invoke(ctx, run)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) invoke(ctx context.Context, run func(context.Context) error) {
	done := logging.LogOperationStart(w.logger, "watch run")
	defer done()
	if err := run(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Run failed, waiting for the next change")
	}
}

func (w *Watcher) add(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil {
		w.logger.Warn().Err(err).Str("path", dir).Msg("Cannot watch")
		return
	}
	w.logger.Trace().Str("path", dir).Msg("Watching")
}

// addTree watches root and every directory below it
func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug().Err(err).Str("path", path).Msg("Skipping")
			return nil
		}
		if d.IsDir() {
			w.add(watcher, path)
		}
		return nil
	})
}

// relevant filters the sibling noise of watched files' directories
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	for _, f := range w.files {
		if name == f {
			return true
		}
	}
	for _, r := range w.roots {
		if name == r || strings.HasPrefix(name, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
