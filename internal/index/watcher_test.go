package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ledgernotes/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_InitialSync(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	_ = os.WriteFile(path, []byte("users: [alice]\n"), 0o644)
	f := newFakeFetcher(map[string][]models.Entry{"alice": sample})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, f, WatchOptions{WatchlistPath: path, Interval: time.Hour}, quietLogger(), nil)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetSnapshot("alice")
		return err == nil
	}, "alice not synced at start")
}

func TestWatch_WatchlistReload(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	_ = os.WriteFile(path, []byte("users: [alice]\n"), 0o644)
	f := newFakeFetcher(map[string][]models.Entry{"alice": sample, "bob": sample[:1]})
	var log eventLog

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, f, WatchOptions{WatchlistPath: path, Interval: time.Hour}, quietLogger(), log.record)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("updated:alice")
	}, "alice not synced at start")

	_ = os.WriteFile(path, []byte("users: [bob]\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("updated:bob") && log.has("removed:alice")
	}, "watchlist change not picked up")
}

func TestWatch_IntervalResync(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	_ = os.WriteFile(path, []byte("users: [alice]\n"), 0o644)
	f := newFakeFetcher(map[string][]models.Entry{"alice": sample})
	var log eventLog

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, f, WatchOptions{WatchlistPath: path, Interval: 100 * time.Millisecond}, quietLogger(), log.record)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("updated:alice")
	}, "alice not synced at start")

	f.set("alice", []models.Entry{{UnixTimestamp: 999, Content: "new"}})

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.len() >= 2
	}, "interval resync did not pick up change")
}

func TestWatch_MissingWatchlistDoesNotWipe(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(models.Snapshot{UserID: "alice", Checksum: "c"}, sample)
	dir := t.TempDir()
	f := newFakeFetcher(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, db, f, WatchOptions{WatchlistPath: filepath.Join(dir, "absent.yaml"), Interval: 50 * time.Millisecond}, quietLogger(), nil)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	if _, err := db.GetSnapshot("alice"); err != nil {
		t.Errorf("snapshot removed although watchlist was never loaded: %v", err)
	}
}
