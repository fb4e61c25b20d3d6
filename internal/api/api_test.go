package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/ledgernotes/internal/index"
	"github.com/starford/ledgernotes/internal/ledgermap"
	"github.com/starford/ledgernotes/internal/models"
	"github.com/starford/ledgernotes/internal/notes"
	"github.com/starford/ledgernotes/internal/resolver"
	"github.com/starford/ledgernotes/internal/testutil"
)

// fakeService answers from fixed per-user retrievals.
type fakeService struct {
	byUser map[string]*notes.Retrieval
	err    error
}

func (f *fakeService) Retrieve(_ context.Context, userID string) (*notes.Retrieval, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.byUser[userID]; ok {
		return r, nil
	}
	return &notes.Retrieval{Resolution: resolver.NotFound, Shape: ledgermap.ShapeEmpty, Entries: []models.Entry{}}, nil
}

func (f *fakeService) ResolveAddress(ctx context.Context, userID string) resolver.Result {
	r, _ := f.Retrieve(ctx, userID)
	if r == nil {
		return resolver.NotFound
	}
	return r.Resolution
}

var aliceEntries = []models.Entry{
	{UnixTimestamp: 300, Content: "gophers are great"},
	{UnixTimestamp: 100, Content: "hello"},
}

func newFakeService() *fakeService {
	return &fakeService{byUser: map[string]*notes.Retrieval{
		"alice": {
			Resolution: resolver.Result{Address: "0xabc", Source: resolver.SourceIndexed},
			Shape:      ledgermap.ShapeTree,
			Entries:    aliceEntries,
		},
	}}
}

// testEnv sets up a fake pipeline, a temp snapshot index and the router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*index.DB, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	router := NewRouter(newFakeService(), db, authToken != "", authToken, nil)
	return db, router
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetEntries_Live(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/users/alice/entries")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntriesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.UserID != "alice" || resp.Address != "0xabc" || resp.Source != "indexed" || resp.Shape != "tree" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Entries) != 2 || resp.Entries[0].UnixTimestamp != 300 {
		t.Errorf("entries = %+v", resp.Entries)
	}
	if resp.RefreshedAt != nil {
		t.Error("live read should not carry refreshed_at")
	}
}

func TestGetEntries_LiveUnknownUserIsEmpty(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/users/nobody/entries")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var raw map[string]any
	_ = json.NewDecoder(w.Body).Decode(&raw)
	entries, ok := raw["entries"].([]any)
	if !ok || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty array", raw["entries"])
	}
	if raw["source"] != "not_found" {
		t.Errorf("source = %v", raw["source"])
	}
}

func TestGetEntries_Canceled(t *testing.T) {
	router := NewRouter(&fakeService{err: context.Canceled}, nil, false, "", nil)

	w := do(t, router, "/users/alice/entries")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestGetEntries_Cached(t *testing.T) {
	db, router := testEnv(t, "")
	snap := models.Snapshot{UserID: "alice", Address: "0xabc", Source: "ledger", Checksum: "c"}
	if err := db.ReplaceEntries(snap, aliceEntries); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, "/users/alice/entries?cached=true&limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntriesResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Source != "ledger" || resp.Total != 2 || len(resp.Entries) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.RefreshedAt == nil || time.Since(*resp.RefreshedAt) > time.Minute {
		t.Errorf("refreshed_at = %v", resp.RefreshedAt)
	}
}

func TestGetEntries_CachedMissing(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/users/alice/entries?cached=true")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetEntries_CachedIndexDisabled(t *testing.T) {
	router := NewRouter(newFakeService(), nil, false, "", nil)

	w := do(t, router, "/users/alice/entries?cached=true")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestGetAddress(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/users/alice/address")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp AddressResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Address != "0xabc" || resp.Source != "indexed" {
		t.Errorf("resp = %+v", resp)
	}

	w = do(t, router, "/users/nobody/address")
	var unknown AddressResponse
	if err := json.NewDecoder(w.Body).Decode(&unknown); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || unknown.Address != "" || unknown.Source != "not_found" {
		t.Errorf("unknown user: status %d resp %+v", w.Code, unknown)
	}
}

func TestSearchEndpoint(t *testing.T) {
	db, router := testEnv(t, "")
	_ = db.ReplaceEntries(models.Snapshot{UserID: "alice"}, aliceEntries)
	_ = db.ReplaceEntries(models.Snapshot{UserID: "bob"}, []models.Entry{{UnixTimestamp: 5, Content: "gophers too"}})

	w := do(t, router, "/search?q=gophers")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Results) != 2 {
		t.Errorf("results = %+v", resp.Results)
	}

	w = do(t, router, "/search?q=gophers&user=bob")
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Results) != 1 || resp.Results[0].UserID != "bob" {
		t.Errorf("scoped results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/alice/entries", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, "/users/alice/entries")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != `Bearer realm="ledgernotes"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
	var body errResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Error != "unauthorized" {
		t.Errorf("body = %+v, err %v", body, err)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/alice/address", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes stream headers and blocks until the client leaves.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := NewRouter(newFakeService(), nil, true, "secret", blockingSSE)

	w := do(t, router, "/events")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := NewRouter(newFakeService(), nil, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

func TestEventsNotMountedWithoutBroker(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, "/events")
	if w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}
