package index

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ledgernotes/internal/checksum"
	"github.com/starford/ledgernotes/internal/metrics"
	"github.com/starford/ledgernotes/internal/models"
)

// Fetcher retrieves the current snapshot of a user from the ledger.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, userID string) (models.Snapshot, []models.Entry, error)
}

// EventCallback is called after a refresh changes the index.
// kind is one of "updated" or "removed".
type EventCallback func(kind string, userID string)

// Sync brings the index up to date for users:
//   - changed users are fetched concurrently and their entries replaced
//   - snapshots of users no longer tracked are deleted
//
// At most concurrency fetches run at once. Only cancellation of ctx is
// returned; per-user failures are logged.
func Sync(ctx context.Context, db *DB, f Fetcher, users []string, concurrency int, logger *slog.Logger, cb EventCallback) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex // serialises writes and cb
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	tracked := make(map[string]struct{}, len(users))
	for _, u := range users {
		tracked[u] = struct{}{}
		g.Go(func() error {
			snap, entries, err := f.FetchSnapshot(gCtx, u)
			if err != nil {
				metrics.RefreshTotal.WithLabelValues("error").Inc()
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("sync: fetch failed", slog.String("user", u), slog.String("error", err.Error()))
				return nil
			}
			snap.UserID = u
			snap.Checksum = checksum.Entries(entries)

			if prev, ok := checksums[u]; ok && prev == snap.Checksum {
				metrics.RefreshTotal.WithLabelValues("unchanged").Inc()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err := db.ReplaceEntries(snap, entries); err != nil {
				metrics.RefreshTotal.WithLabelValues("error").Inc()
				logger.Warn("sync: write failed", slog.String("user", u), slog.String("error", err.Error()))
				return nil
			}
			metrics.RefreshTotal.WithLabelValues("updated").Inc()
			logger.Debug("sync: updated", slog.String("user", u), slog.Int("entries", len(entries)))
			if cb != nil {
				cb("updated", u)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Remove users that are no longer tracked.
	for u := range checksums {
		if _, ok := tracked[u]; ok {
			continue
		}
		if err := db.DeleteUser(u); err != nil {
			logger.Warn("sync: delete failed", slog.String("user", u), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed untracked", slog.String("user", u))
		if cb != nil {
			cb("removed", u)
		}
	}

	return nil
}
