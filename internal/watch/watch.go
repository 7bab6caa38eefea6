// Package watch re-runs reconciliation when the acceptance ledger changes on
// disk, for reviewers who edit acceptance.yaml by hand or from another tool.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor produces for a
// single save.
const DefaultDebounce = 200 * time.Millisecond

// Option configures a LedgerWatcher.
type Option func(*LedgerWatcher)

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) Option {
	return func(w *LedgerWatcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *LedgerWatcher) { w.logger = l }
}

// LedgerWatcher calls onChange after the ledger file is written, created or
// replaced. The parent directory is watched rather than the file, since
// atomic saves swap the file out from under a file watch.
type LedgerWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(ctx context.Context) error
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher for ledgerPath. Call Run to start it.
func New(ledgerPath string, onChange func(ctx context.Context) error, opts ...Option) (*LedgerWatcher, error) {
	abs, err := filepath.Abs(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &LedgerWatcher{
		path:     abs,
		watcher:  fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled or the watcher is closed. Errors from
// onChange are logged and do not stop the watch.
func (w *LedgerWatcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching ledger", "path", w.path)

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
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("ledger event", "op", event.Op.String(), "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("ledger changed, reconciling", "path", w.path)
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("reconcile after ledger change failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("ledger watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Debug("ledger watcher stopping")
			return nil
		}
	}
}

func (w *LedgerWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Close releases the underlying watcher. Safe to call more than once.
func (w *LedgerWatcher) Close() error {
	return w.watcher.Close()
}
