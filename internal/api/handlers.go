package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ledgernotes/internal/apperr"
	"github.com/starford/ledgernotes/internal/index"
	"github.com/starford/ledgernotes/internal/notes"
	"github.com/starford/ledgernotes/internal/resolver"
)

// EntryService is the retrieval pipeline used by the handlers.
type EntryService interface {
	Retrieve(ctx context.Context, userID string) (*notes.Retrieval, error)
	ResolveAddress(ctx context.Context, userID string) resolver.Result
}

// Handler holds API route handlers.
type Handler struct {
	svc EntryService
	idx index.SnapshotIndex
}

// NewHandler creates a new Handler. idx may be nil, in which case cached
// reads and search are unavailable.
func NewHandler(svc EntryService, idx index.SnapshotIndex) *Handler {
	return &Handler{svc: svc, idx: idx}
}

func userParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "user"))
}

// GetEntries handles GET /users/{user}/entries.
//
//	@Summary		Get a user's entries, newest first
//	@Tags			entries
//	@Produce		json
//	@Param			user	path		string	true	"User identifier"
//	@Param			cached	query		bool	false	"Read the local snapshot instead of the ledger"
//	@Param			limit	query		int		false	"Page size (cached only)"
//	@Param			offset	query		int		false	"Page offset (cached only)"
//	@Success		200		{object}	EntriesResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{user}/entries [get]
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		h.cachedEntries(w, r, user)
		return
	}

	res, err := h.svc.Retrieve(r.Context(), user)
	if err != nil {
		// Only cancellation reaches here; the client is gone.
		slog.Debug("retrieve aborted", slog.String("user", user), slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "request canceled")
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{
		UserID:  user,
		Address: res.Resolution.Address,
		Source:  string(res.Resolution.Source),
		Shape:   string(res.Shape),
		Entries: res.Entries,
	})
}

func (h *Handler) cachedEntries(w http.ResponseWriter, r *http.Request, user string) {
	if h.idx == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot index disabled")
		return
	}
	snap, err := h.idx.GetSnapshot(user)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for user")
		} else {
			slog.Error("get snapshot failed", slog.String("user", user), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	entries, total, err := h.idx.ListEntries(user, limit, offset)
	if err != nil {
		slog.Error("list entries failed", slog.String("user", user), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{
		UserID:      user,
		Address:     snap.Address,
		Source:      snap.Source,
		Entries:     entries,
		Total:       total,
		RefreshedAt: &snap.RefreshedAt,
	})
}

// GetAddress handles GET /users/{user}/address.
//
//	@Summary		Resolve a user's storage address
//	@Tags			entries
//	@Produce		json
//	@Param			user	path		string	true	"User identifier"
//	@Success		200		{object}	AddressResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{user}/address [get]
func (h *Handler) GetAddress(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	res := h.svc.ResolveAddress(r.Context(), user)
	writeJSON(w, http.StatusOK, AddressResponse{
		UserID:  user,
		Address: res.Address,
		Source:  string(res.Source),
	})
}

// Search handles GET /search.
//
//	@Summary		Full-text search across indexed entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			user	query		string	false	"Restrict to one user"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if h.idx == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot index disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	results, err := h.idx.Search(q, user, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
