package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	WatchlistPath string
	Interval      time.Duration
	Concurrency   int
}

// Watch keeps the index in sync for the users listed in the watchlist file.
// It syncs once at start, again every Interval, and whenever the watchlist
// changes on disk, until ctx is cancelled.
//
// The watchlist's directory is watched rather than the file itself so that
// editors replacing the file via rename are still noticed.
func Watch(ctx context.Context, db *DB, f Fetcher, opts WatchOptions, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target, err := filepath.Abs(opts.WatchlistPath)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	users := reloadWatchlist(target, nil, logger)
	runSync := func() {
		if users == nil {
			return // watchlist never loaded
		}
		if err := Sync(ctx, db, f, users, opts.Concurrency, logger, cb); err != nil && ctx.Err() == nil {
			logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("watcher: started", slog.String("watchlist", target), slog.Int("users", len(users)))
	runSync()

	// reloadTimer debounces bursts of writes to the watchlist.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-ticker.C:
			runSync()

		case <-reloadCh:
			reloadCh = nil
			users = reloadWatchlist(target, users, logger)
			runSync()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if reloadTimer == nil {
				reloadTimer = time.NewTimer(200 * time.Millisecond)
			} else {
				reloadTimer.Reset(200 * time.Millisecond)
			}
			reloadCh = reloadTimer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reloadWatchlist returns the users in path, keeping prev when the file
// cannot be read or parsed.
func reloadWatchlist(path string, prev []string, logger *slog.Logger) []string {
	users, err := LoadWatchlist(path)
	if err != nil {
		logger.Warn("watcher: watchlist reload failed", slog.String("error", err.Error()))
		return prev
	}
	logger.Debug("watcher: watchlist loaded", slog.Int("users", len(users)))
	return users
}
