// Package indexer implements the indexed address lookup against the
// indexing service, either through its GraphQL endpoint or directly against
// its Postgres database.
package indexer

import (
	"fmt"
	"regexp"

	"github.com/starford/ledgernotes/internal/apperr"
)

// Schema names the table and columns holding user → store address rows.
type Schema struct {
	Table        string
	UserField    string
	AddressField string
}

// DefaultSchema matches the indexer processor's default table.
var DefaultSchema = Schema{
	Table:        "user_stores",
	UserField:    "user_id",
	AddressField: "store_address",
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s Schema) validate() error {
	for _, id := range []string{s.Table, s.UserField, s.AddressField} {
		if !identRe.MatchString(id) {
			return fmt.Errorf("indexer: invalid identifier %q: %w", id, apperr.ErrConfig)
		}
	}
	return nil
}
