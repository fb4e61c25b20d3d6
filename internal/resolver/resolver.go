package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ledgernotes/internal/apperr"
	"github.com/starford/ledgernotes/internal/metrics"
)

// Source identifies which tier produced an address.
type Source string

const (
	SourceIndexed  Source = "indexed"
	SourceLedger   Source = "ledger"
	SourceNotFound Source = "not_found"
)

// Result is the outcome of a resolution. Address is non-empty iff Source is
// SourceIndexed or SourceLedger.
type Result struct {
	Address string `json:"address,omitempty"`
	Source  Source `json:"source"`
	// Degraded marks a NotFound caused by a failing ledger rather than a
	// missing account.
	Degraded bool `json:"degraded,omitempty"`
}

// Found reports whether an address was resolved.
func (r Result) Found() bool {
	return r.Source != SourceNotFound && r.Address != ""
}

// NotFound is the result for an unresolvable user.
var NotFound = Result{Source: SourceNotFound}

// Lookup returns the raw address field for a user, or nil when there is no
// row. Both the indexer and the ledger view call implement it.
type Lookup interface {
	LookupAddress(ctx context.Context, userID string) (any, error)
}

// AddressResolver is implemented by Resolver and its decorators.
type AddressResolver interface {
	Resolve(ctx context.Context, userID string) Result
}

// Resolver tries the indexed lookup, then the ledger.
type Resolver struct {
	indexed Lookup
	ledger  Lookup
	logger  *slog.Logger
}

// New creates a Resolver. indexed may be nil, in which case every resolution
// goes straight to the ledger. ledger is required.
func New(indexed, ledger Lookup, logger *slog.Logger) (*Resolver, error) {
	if ledger == nil {
		return nil, fmt.Errorf("resolver: ledger lookup is required: %w", apperr.ErrConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{indexed: indexed, ledger: ledger, logger: logger}, nil
}

// Resolve never fails: every error collapses to the next tier and finally
// to NotFound.
func (r *Resolver) Resolve(ctx context.Context, userID string) Result {
	res := r.resolve(ctx, userID)
	metrics.AddressResolutions.WithLabelValues(string(res.Source)).Inc()
	r.logger.Debug("resolver: resolved",
		slog.String("user", userID),
		slog.String("source", string(res.Source)),
		slog.String("address", res.Address))
	return res
}

func (r *Resolver) resolve(ctx context.Context, userID string) Result {
	if addr, ok := r.tryIndexed(ctx, userID); ok {
		return Result{Address: addr, Source: SourceIndexed}
	}
	addr, ok, err := r.tryLedger(ctx, userID)
	if ok {
		return Result{Address: addr, Source: SourceLedger}
	}
	if err != nil {
		return Result{Source: SourceNotFound, Degraded: true}
	}
	return NotFound
}

func (r *Resolver) tryIndexed(ctx context.Context, userID string) (string, bool) {
	if r.indexed == nil {
		return "", false
	}
	raw, err := r.indexed.LookupAddress(ctx, strings.ToLower(userID))
	if err != nil {
		metrics.IndexedLookupFailures.Inc()
		r.logger.Warn("resolver: indexed lookup failed, falling back to ledger",
			slog.String("user", userID),
			slog.String("error", err.Error()))
		return "", false
	}
	return NormalizeAddress(raw)
}

func (r *Resolver) tryLedger(ctx context.Context, userID string) (string, bool, error) {
	raw, err := r.ledger.LookupAddress(ctx, userID)
	if err != nil {
		r.logger.Warn("resolver: ledger lookup failed",
			slog.String("user", userID),
			slog.String("error", err.Error()))
		return "", false, err
	}
	addr, ok := NormalizeAddress(raw)
	return addr, ok, nil
}
