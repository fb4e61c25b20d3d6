package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/ledgernotes/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Entries returns the digest of the canonical JSON encoding of an ordered list.
// Two lists with the same entries in the same order always share a digest.
func Entries(entries []models.Entry) string {
	if entries == nil {
		entries = []models.Entry{}
	}
	data, _ := json.Marshal(entries)
	return Sum(data)
}
