package swapmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapfsm"
	"github.com/arkade-labs/go-ark-swap/swapstore"
)

func newTestManager(t *testing.T) (*Manager, *boltzrpc.Client) {
	t.Helper()
	repo := swapstore.NewMemory()
	client := boltzrpc.New(boltzrpc.Config{BaseURL: "http://127.0.0.1:0", WebSocketURL: "ws://127.0.0.1:0"})

	mgr := New(Config{
		Repo:         repo,
		Counterparty: client,
		NewFSM: func(s *swap.Swap) *swapfsm.FSM {
			return swapfsm.New(s, swapfsm.Deps{
				Repo:   repo,
				Claim:  func(ctx context.Context, s *swap.Swap) error { return nil },
				Refund: func(ctx context.Context, s *swap.Swap) error { return nil },
			})
		},
	})
	return mgr, client
}

func TestManager_StartSkipsTerminalSwaps(t *testing.T) {
	mgr, _ := newTestManager(t)

	live := &swap.Swap{ID: "live", Kind: swap.KindReverse, Status: swap.StatusSwapCreated}
	done := &swap.Swap{ID: "done", Kind: swap.KindReverse, Status: swap.StatusInvoiceSettled}

	err := mgr.Start(context.Background(), []*swap.Swap{live, done})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return mgr.HasSwap("live")
	}, time.Second, time.Millisecond)
	require.False(t, mgr.HasSwap("done"))

	require.NoError(t, mgr.Stop())
}

func TestManager_StartTwiceErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Start(context.Background(), nil))
	require.Error(t, mgr.Start(context.Background(), nil))
	require.NoError(t, mgr.Stop())
}

func TestManager_StopTwiceErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Start(context.Background(), nil))
	require.NoError(t, mgr.Stop())
	require.Error(t, mgr.Stop())
}

func TestManager_WaitForSwapCompletionUnregisteredErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.WaitForSwapCompletion(context.Background(), "nope")
	require.Error(t, err)
}

func TestManager_RemoveSwapUnregisters(t *testing.T) {
	mgr, _ := newTestManager(t)
	s := &swap.Swap{ID: "swap-x", Kind: swap.KindReverse, Status: swap.StatusSwapCreated}
	mgr.AddSwap(context.Background(), s)

	require.Eventually(t, func() bool { return mgr.HasSwap("swap-x") }, time.Second, time.Millisecond)

	mgr.RemoveSwap("swap-x")
	require.False(t, mgr.HasSwap("swap-x"))
}

func TestManager_GetStatsReflectsPending(t *testing.T) {
	mgr, _ := newTestManager(t)
	s := &swap.Swap{ID: "swap-y", Kind: swap.KindReverse, Status: swap.StatusSwapCreated}
	mgr.AddSwap(context.Background(), s)

	require.Eventually(t, func() bool {
		return mgr.GetStats().Pending == 1
	}, time.Second, time.Millisecond)
}
