package ledger

import (
	"context"
	"fmt"
)

// Viewer is the subset of Client used by ViewLookup.
type Viewer interface {
	View(ctx context.Context, function string, args ...any) ([]any, error)
}

// ViewLookup derives a user's storage address by calling a view function
// that takes the user identifier as its single argument.
type ViewLookup struct {
	viewer   Viewer
	function string
}

// NewViewLookup creates a ViewLookup for the fully-qualified view function.
func NewViewLookup(v Viewer, function string) *ViewLookup {
	return &ViewLookup{viewer: v, function: function}
}

// LookupAddress returns the raw first result of the view call, which is
// either a bare address or an optional wrapper. A call with no results
// or a not-found answer returns nil.
func (l *ViewLookup) LookupAddress(ctx context.Context, userID string) (any, error) {
	values, err := l.viewer.View(ctx, l.function, userID)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: derive address: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}
