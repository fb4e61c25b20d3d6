package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ledgernotes/internal/apperr"
)

type fakeLookup struct {
	raw   any
	err   error
	calls int
	last  string
}

func (f *fakeLookup) LookupAddress(_ context.Context, userID string) (any, error) {
	f.calls++
	f.last = userID
	return f.raw, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
		ok   bool
	}{
		{"bare", "0xABC", "0xABC", true},
		{"wrapped", map[string]any{"vec": []any{"0xABC"}}, "0xABC", true},
		{"wrapped empty", map[string]any{"vec": []any{}}, "", false},
		{"wrapped number", map[string]any{"vec": []any{json.Number("12")}}, "12", true},
		{"wrapped nil element", map[string]any{"vec": []any{nil}}, "", false},
		{"wrapper without vec", map[string]any{"inner": "0xABC"}, "", false},
		{"empty string", "  ", "", false},
		{"nil", nil, "", false},
		{"number", 12.0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAddress(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RequiresLedger(t *testing.T) {
	_, err := New(&fakeLookup{}, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrConfig)
}

func TestResolve_IndexedFirst(t *testing.T) {
	indexed := &fakeLookup{raw: "0xAAA"}
	ledger := &fakeLookup{raw: "0xBBB"}
	r, err := New(indexed, ledger, quietLogger())
	require.NoError(t, err)

	res := r.Resolve(context.Background(), "Alice")
	assert.Equal(t, Result{Address: "0xAAA", Source: SourceIndexed}, res)
	assert.True(t, res.Found())
	assert.Equal(t, "alice", indexed.last, "indexed lookup uses the lower-cased user id")
	assert.Equal(t, 0, ledger.calls)
}

func TestResolve_IndexedWrapperEmptyFallsBack(t *testing.T) {
	indexed := &fakeLookup{raw: map[string]any{"vec": []any{}}}
	ledger := &fakeLookup{raw: map[string]any{"vec": []any{"0xBBB"}}}
	r, _ := New(indexed, ledger, quietLogger())

	res := r.Resolve(context.Background(), "alice")
	assert.Equal(t, Result{Address: "0xBBB", Source: SourceLedger}, res)
	assert.Equal(t, "alice", ledger.last)
}

func TestResolve_IndexedErrorFallsBack(t *testing.T) {
	indexed := &fakeLookup{err: errors.New("401 unauthorized")}
	ledger := &fakeLookup{raw: "0xBBB"}
	r, _ := New(indexed, ledger, quietLogger())

	res := r.Resolve(context.Background(), "alice")
	assert.Equal(t, SourceLedger, res.Source)
	assert.Equal(t, "0xBBB", res.Address)
	assert.Equal(t, 1, ledger.calls, "exactly one fallback attempt")
}

func TestResolve_BothFail(t *testing.T) {
	indexed := &fakeLookup{err: errors.New("network down")}
	ledger := &fakeLookup{err: errors.New("node down")}
	r, _ := New(indexed, ledger, quietLogger())

	res := r.Resolve(context.Background(), "alice")
	assert.Equal(t, SourceNotFound, res.Source)
	assert.True(t, res.Degraded)
	assert.False(t, res.Found())
	assert.Empty(t, res.Address)
}

func TestResolve_NoRows(t *testing.T) {
	r, _ := New(&fakeLookup{}, &fakeLookup{}, quietLogger())
	res := r.Resolve(context.Background(), "nobody")
	assert.Equal(t, NotFound, res)
	assert.False(t, res.Degraded)
}

func TestResolve_NoIndexedTier(t *testing.T) {
	ledger := &fakeLookup{raw: "0xBBB"}
	r, _ := New(nil, ledger, quietLogger())
	assert.Equal(t, Result{Address: "0xBBB", Source: SourceLedger}, r.Resolve(context.Background(), "alice"))
}

type countingResolver struct {
	res   Result
	calls int
}

func (c *countingResolver) Resolve(context.Context, string) Result {
	c.calls++
	return c.res
}

func TestCached(t *testing.T) {
	inner := &countingResolver{res: Result{Address: "0xAAA", Source: SourceIndexed}}
	r, err := NewCached(inner, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "0xAAA", r.Resolve(context.Background(), "alice").Address)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, r.(*Cached).Len())
}

func TestCached_SkipsNotFound(t *testing.T) {
	inner := &countingResolver{res: NotFound}
	r, _ := NewCached(inner, 8)

	r.Resolve(context.Background(), "alice")
	r.Resolve(context.Background(), "alice")
	assert.Equal(t, 2, inner.calls)
}

func TestCached_DisabledReturnsInner(t *testing.T) {
	inner := &countingResolver{}
	r, err := NewCached(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, r)
}
