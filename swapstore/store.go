// Package swapstore implements the Swap Repository (spec 4.3): a uniform
// key-value store of swaps, queryable by id/status/kind and orderable by
// creation time, with interchangeable backends.
package swapstore

import (
	"context"

	"github.com/arkade-labs/go-ark-swap/swap"
)

// OrderDirection selects ascending or descending createdAt ordering.
type OrderDirection int

const (
	OrderNone OrderDirection = iota
	OrderAsc
	OrderDesc
)

// Filter selects swaps from the repository. Within a field, membership is
// disjunctive (IN semantics); across fields it is conjunctive (AND). A nil
// set for a given field means "don't filter on this field"; an empty but
// non-nil set, like EmptyFilter(), short-circuits to zero results without
// touching storage, per spec 8.
type Filter struct {
	IDs      []string
	Statuses []swap.Status
	Kinds    []swap.Kind

	OrderBy        OrderDirection
	explicitEmpty bool
}

// EmptyFilter returns a Filter guaranteed to match nothing, without a
// storage round-trip. Used to test the "empty set filter" boundary
// behaviour from spec 8.
func EmptyFilter() Filter {
	return Filter{explicitEmpty: true}
}

// IsExplicitlyEmpty reports whether f was built to deliberately match no
// rows.
func (f Filter) IsExplicitlyEmpty() bool {
	if f.explicitEmpty {
		return true
	}
	return f.IDs != nil && len(f.IDs) == 0 ||
		f.Statuses != nil && len(f.Statuses) == 0 ||
		f.Kinds != nil && len(f.Kinds) == 0
}

// Repository is the uniform interface every storage backend implements.
// Every method must behave identically regardless of the underlying
// driver (spec 9: "each storage driver must behave identically on the
// uniform repository API").
type Repository interface {
	// Save upserts a swap; last writer wins. Must be atomic per swap id.
	Save(ctx context.Context, s *swap.Swap) error

	// Delete removes a swap by id. Idempotent: deleting a missing id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// GetAll returns every swap matching filter, in optional createdAt
	// order. An explicitly empty filter returns (nil, nil) without
	// touching storage.
	GetAll(ctx context.Context, filter Filter) ([]*swap.Swap, error)

	// Clear removes every swap.
	Clear(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
