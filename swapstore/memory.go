package swapstore

import (
	"context"
	"sort"
	"sync"

	"github.com/arkade-labs/go-ark-swap/swap"
)

// Memory is an in-process Repository, mainly for tests and the CLI's
// ephemeral mode. Safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	swaps map[string]*swap.Swap
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{swaps: make(map[string]*swap.Swap)}
}

func (m *Memory) Save(_ context.Context, s *swap.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.swaps[s.ID] = &cp
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.swaps, id)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.swaps = make(map[string]*swap.Swap)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) GetAll(_ context.Context, filter Filter) ([]*swap.Swap, error) {
	if filter.IsExplicitlyEmpty() {
		return nil, nil
	}

	ids := toSet(filter.IDs)
	statuses := toStatusSet(filter.Statuses)
	kinds := toKindSet(filter.Kinds)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*swap.Swap, 0, len(m.swaps))
	for _, s := range m.swaps {
		if ids != nil && !ids[s.ID] {
			continue
		}
		if statuses != nil && !statuses[s.Status] {
			continue
		}
		if kinds != nil && !kinds[s.Kind] {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}

	applyOrder(out, filter.OrderBy)
	return out, nil
}

func toSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func toStatusSet(statuses []swap.Status) map[swap.Status]bool {
	if statuses == nil {
		return nil
	}
	m := make(map[swap.Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

func toKindSet(kinds []swap.Kind) map[swap.Kind]bool {
	if kinds == nil {
		return nil
	}
	m := make(map[swap.Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

func applyOrder(swaps []*swap.Swap, dir OrderDirection) {
	switch dir {
	case OrderAsc:
		sort.Slice(swaps, func(i, j int) bool { return swaps[i].CreatedAt < swaps[j].CreatedAt })
	case OrderDesc:
		sort.Slice(swaps, func(i, j int) bool { return swaps[i].CreatedAt > swaps[j].CreatedAt })
	}
}
