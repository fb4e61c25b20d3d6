package api

import (
	"time"

	"github.com/starford/ledgernotes/internal/index"
	"github.com/starford/ledgernotes/internal/models"
)

// Entry is one decoded note (aliased from the domain layer).
type Entry = models.Entry

// EntriesResponse is returned by GET /users/{user}/entries.
type EntriesResponse struct {
	UserID  string  `json:"user_id" example:"alice" validate:"required"`
	Address string  `json:"address,omitempty" example:"0x1f2e"`
	Source  string  `json:"source" example:"indexed" validate:"required" enums:"indexed,ledger,not_found"`
	Shape   string  `json:"shape,omitempty" example:"tree" enums:"tree,root,flat,handle,empty"`
	Entries []Entry `json:"entries" validate:"required"`
	// Total and RefreshedAt are only set for cached reads.
	Total       int        `json:"total,omitempty" example:"42"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
}

// AddressResponse is returned by GET /users/{user}/address.
type AddressResponse struct {
	UserID  string `json:"user_id" example:"alice" validate:"required"`
	Address string `json:"address,omitempty" example:"0x1f2e"`
	Source  string `json:"source" example:"ledger" validate:"required" enums:"indexed,ledger,not_found"`
}

// SearchResult is a single search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
