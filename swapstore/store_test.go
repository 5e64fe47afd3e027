package swapstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/swap"
)

func newTestSwap(id string, kind swap.Kind, status swap.Status, createdAt int64) *swap.Swap {
	return &swap.Swap{
		ID:        id,
		Kind:      kind,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestMemory_SaveThenGetAllByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	s := newTestSwap("swap-1", swap.KindReverse, swap.StatusSwapCreated, 100)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.GetAll(ctx, Filter{IDs: []string{"swap-1"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "swap-1", got[0].ID)
}

func TestMemory_SaveOverwritesLastWriterWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	s1 := newTestSwap("swap-1", swap.KindReverse, swap.StatusSwapCreated, 100)
	require.NoError(t, repo.Save(ctx, s1))

	s2 := newTestSwap("swap-1", swap.KindReverse, swap.StatusInvoiceSettled, 100)
	require.NoError(t, repo.Save(ctx, s2))

	got, err := repo.GetAll(ctx, Filter{IDs: []string{"swap-1"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, swap.StatusInvoiceSettled, got[0].Status)
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	require.NoError(t, repo.Delete(ctx, "does-not-exist"))
	require.NoError(t, repo.Delete(ctx, "does-not-exist"))
}

func TestMemory_EmptyFilterShortCircuits(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	require.NoError(t, repo.Save(ctx, newTestSwap("swap-1", swap.KindReverse, swap.StatusSwapCreated, 1)))

	got, err := repo.GetAll(ctx, EmptyFilter())
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = repo.GetAll(ctx, Filter{IDs: []string{}})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemory_FilterByStatusSetAndKind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	require.NoError(t, repo.Save(ctx, newTestSwap("a", swap.KindReverse, swap.StatusSwapCreated, 1)))
	require.NoError(t, repo.Save(ctx, newTestSwap("b", swap.KindSubmarine, swap.StatusInvoiceSet, 2)))
	require.NoError(t, repo.Save(ctx, newTestSwap("c", swap.KindReverse, swap.StatusInvoiceSettled, 3)))

	got, err := repo.GetAll(ctx, Filter{
		Kinds:    []swap.Kind{swap.KindReverse},
		Statuses: []swap.Status{swap.StatusSwapCreated, swap.StatusInvoiceSettled},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestMemory_OrderByCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	require.NoError(t, repo.Save(ctx, newTestSwap("a", swap.KindReverse, swap.StatusSwapCreated, 3)))
	require.NoError(t, repo.Save(ctx, newTestSwap("b", swap.KindReverse, swap.StatusSwapCreated, 1)))
	require.NoError(t, repo.Save(ctx, newTestSwap("c", swap.KindReverse, swap.StatusSwapCreated, 2)))

	asc, err := repo.GetAll(ctx, Filter{OrderBy: OrderAsc})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, idsOf(asc))

	desc, err := repo.GetAll(ctx, Filter{OrderBy: OrderDesc})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "b"}, idsOf(desc))
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	require.NoError(t, repo.Save(ctx, newTestSwap("a", swap.KindReverse, swap.StatusSwapCreated, 1)))
	require.NoError(t, repo.Clear(ctx))

	got, err := repo.GetAll(ctx, Filter{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func idsOf(swaps []*swap.Swap) []string {
	out := make([]string, len(swaps))
	for i, s := range swaps {
		out[i] = s.ID
	}
	return out
}
