// Package notes assembles a user's ordered note list from the ledger.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ledgernotes/internal/apperr"
	"github.com/starford/ledgernotes/internal/ledger"
	"github.com/starford/ledgernotes/internal/ledgermap"
	"github.com/starford/ledgernotes/internal/metrics"
	"github.com/starford/ledgernotes/internal/models"
	"github.com/starford/ledgernotes/internal/resolver"
)

// ResourceReader reads a typed resource stored at an address.
type ResourceReader interface {
	Resource(ctx context.Context, address, resourceType string) (any, error)
}

// Options describes where the note map lives on the ledger.
type Options struct {
	// ResourceType is the fully-qualified type of the per-user store resource.
	ResourceType string
	// MapField is the field of the resource data holding the ordered map.
	// Dots select nested fields.
	MapField string
	// MaxDepth bounds tree decoding; zero means ledgermap.DefaultMaxDepth.
	MaxDepth int
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.MaxDepth == 0 {
		o.MaxDepth = ledgermap.DefaultMaxDepth
	}
	return validation.ValidateStruct(o,
		validation.Field(&o.ResourceType, validation.Required),
		validation.Field(&o.MapField, validation.Required),
		validation.Field(&o.MaxDepth, validation.Min(1), validation.Max(128)),
	)
}

// ErrLedgerUnavailable is returned by FetchSnapshot when a ledger failure
// was absorbed into the entry list.
var ErrLedgerUnavailable = errors.New("notes: ledger unavailable")

// Retrieval is the full outcome of one GetEntries pass.
type Retrieval struct {
	Resolution resolver.Result
	Shape      ledgermap.Shape
	Entries    []models.Entry
	// Degraded is set when the empty list stands in for a failed ledger
	// read rather than a user without entries.
	Degraded bool
}

// Service retrieves ordered note lists.
type Service struct {
	resolver resolver.AddressResolver
	reader   ResourceReader
	opts     Options
	logger   *slog.Logger
}

// NewService validates opts and wires the pipeline. Invalid options are a
// configuration fault.
func NewService(r resolver.AddressResolver, reader ResourceReader, opts Options, logger *slog.Logger) (*Service, error) {
	if r == nil || reader == nil {
		return nil, fmt.Errorf("notes: resolver and resource reader are required: %w", apperr.ErrConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("notes: %w", errors.Join(apperr.ErrConfig, err))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: r, reader: reader, opts: opts, logger: logger}, nil
}

// GetEntries returns the user's entries, newest first. Lookup and decoding
// failures yield an empty list; only cancellation of ctx is returned.
func (s *Service) GetEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	r, err := s.Retrieve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.Entries, nil
}

// ResolveAddress exposes the address resolution step on its own.
func (s *Service) ResolveAddress(ctx context.Context, userID string) resolver.Result {
	return s.resolver.Resolve(ctx, userID)
}

// Retrieve runs the pipeline and reports how the entries were obtained.
func (s *Service) Retrieve(ctx context.Context, userID string) (*Retrieval, error) {
	start := time.Now()
	out := &Retrieval{Resolution: resolver.NotFound, Shape: ledgermap.ShapeEmpty, Entries: []models.Entry{}}

	err := s.retrieve(ctx, strings.TrimSpace(userID), out)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "canceled"
	case len(out.Entries) == 0:
		outcome = "empty"
	}
	metrics.RetrievalDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchSnapshot runs the pipeline for the snapshot index. The returned
// snapshot carries the resolved address and its source. A degraded
// retrieval is an error so the index keeps its previous snapshot.
func (s *Service) FetchSnapshot(ctx context.Context, userID string) (models.Snapshot, []models.Entry, error) {
	r, err := s.Retrieve(ctx, userID)
	if err != nil {
		return models.Snapshot{}, nil, err
	}
	if r.Degraded {
		return models.Snapshot{}, nil, fmt.Errorf("%w: user %s", ErrLedgerUnavailable, userID)
	}
	snap :=  models.Snapshot{
		UserID:     userID,
		Address:    r.Resolution.Address,
		Source:     string(r.Resolution.Source),
		EntryCount: len(r.Entries),
	}
	return snap, r.Entries, nil
}

func (s *Service) retrieve(ctx context.Context, userID string, out *Retrieval) error {
	if userID == "" {
		return nil
	}

	out.Resolution = s.resolver.Resolve(ctx, userID)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !out.Resolution.Found() {
		out.Degraded = out.Resolution.Degraded
		return nil
	}

	body, err := s.reader.Resource(ctx, out.Resolution.Address, s.opts.ResourceType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if ledger.IsNotFound(err) {
			s.logger.Debug("notes: no store resource", slog.String("user", userID), slog.String("address", out.Resolution.Address))
		} else {
			out.Degraded = true
			s.logger.Warn("notes: resource read failed",
				slog.String("user", userID),
				slog.String("address", out.Resolution.Address),
				slog.String("error", err.Error()))
		}
		return nil
	}

	payload, ok := field(resourceData(body), s.opts.MapField)
	if !ok {
		return nil
	}

	pairs, shape := ledgermap.Normalize(payload, s.opts.MaxDepth)
	out.Shape = shape
	metrics.MapShapes.WithLabelValues(string(shape)).Inc()
	if shape == ledgermap.ShapeHandle {
		s.logger.Info("notes: map stored behind a table handle, entries not listable",
			slog.String("user", userID))
	}

	out.Entries = assemble(pairs, func(key int64) {
		metrics.EntriesDropped.WithLabelValues("uninterpretable").Inc()
		s.logger.Debug("notes: dropped entry", slog.String("user", userID), slog.Int64("key", key))
	})
	return nil
}

// assemble unwraps each pair, drops the uninterpretable ones and sorts the
// rest newest first. Pairs arrive key-ascending, so a stable sort keeps
// source order among equal keys.
func assemble(pairs []ledgermap.Pair, dropped func(key int64)) []models.Entry {
	entries := make([]models.Entry, 0, len(pairs))
	for _, p := range pairs {
		text, ok := ledgermap.Unwrap(p.Value)
		if !ok {
			if dropped != nil {
				dropped(p.Key)
			}
			continue
		}
		entries = append(entries, models.Entry{UnixTimestamp: p.Key, Content: text})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UnixTimestamp > entries[j].UnixTimestamp
	})
	return entries
}

// resourceData returns the data object of a resource body, or the body itself
// when it is not enveloped.
func resourceData(body any) any {
	if m, ok := body.(map[string]any); ok {
		if d, ok := m["data"].(map[string]any); ok {
			return d
		}
	}
	return body
}

func field(v any, path string) (any, bool) {
	for _, name := range strings.Split(path, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[name]; !ok || v == nil {
			return nil, false
		}
	}
	return v, true
}
