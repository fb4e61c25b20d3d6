package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ledgernotes/internal/index"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// idx may be nil when the snapshot index is disabled.
func NewRouter(svc EntryService, idx index.SnapshotIndex, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, idx)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/users/{user}", func(r chi.Router) {
		r.Get("/entries", h.GetEntries)
		r.Get("/address", h.GetAddress)
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
