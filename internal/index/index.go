package index

import "github.com/starford/ledgernotes/internal/models"

// SnapshotIndex defines the interface for snapshot storage operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type SnapshotIndex interface {
	ReplaceEntries(s models.Snapshot, entries []models.Entry) error
	DeleteUser(userID string) error
	GetSnapshot(userID string) (*models.Snapshot, error)
	ListEntries(userID string, limit, offset int) ([]models.Entry, int, error)
	AllChecksums() (map[string]string, error)
	Search(query, userID string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies SnapshotIndex at compile time.
var _ SnapshotIndex = (*DB)(nil)
