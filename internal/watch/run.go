package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Run performs a full build, then rebuilds on every debounced batch of
// source changes until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	w, err := New(opts)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Run is the watch loop. It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.report(w.Build(ctx))

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dirs, err := w.watchDirs()
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}
	if dir := filepath.Dir(w.opts.ManifestPath); !containsDir(dirs, dir) {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.logger.Info().Int("dirs", len(dirs)).Str("source", w.opts.SourceRoot).Msg("Watching for changes")

	pending := map[string]bool{}
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := w.opts.Fs.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fw.Add(ev.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("Cannot watch new directory")
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.logger.Trace().Str("event", ev.Op.String()).Str("path", ev.Name).Msg("Change")
			pending[ev.Name] = true
			timer.Reset(w.opts.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = map[string]bool{}
			w.report(w.Rebuild(ctx, changed))
		}
	}
}

func (w *Watcher) report(r Result) {
	if r.Err != nil {
		w.logger.Error().Err(r.Err).Msg("Rebuild failed")
	}
	if w.opts.Report != nil {
		w.opts.Report(r)
	}
}

func containsDir(dirs []string, dir string) bool {
	dir = filepath.Clean(dir)
	for _, d := range dirs {
		if filepath.Clean(d) == dir {
			return true
		}
	}
	return false
}
