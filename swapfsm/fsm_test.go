package swapfsm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapstore"
)

func newTestFSM(t *testing.T, kind swap.Kind, claimCount *int32) *FSM {
	t.Helper()
	repo := swapstore.NewMemory()

	s := &swap.Swap{ID: "swap-1", Kind: kind, Status: kind.InitialStatus(), CreatedAt: 1}

	deps := Deps{
		Repo: repo,
		Claim: func(ctx context.Context, s *swap.Swap) error {
			atomic.AddInt32(claimCount, 1)
			return nil
		},
		Refund: func(ctx context.Context, s *swap.Swap) error { return nil },
		FetchPreimage: func(ctx context.Context, id string) (string, error) {
			return "0102030405060708091011121314151617181920212223242526272829303132"[:64], nil
		},
		FetchReverseTxid: func(ctx context.Context, id string) (string, error) {
			return "deadbeef", nil
		},
	}
	return New(s, deps)
}

func TestFSM_DuplicateStatusProducesOneClaim(t *testing.T) {
	var claims int32
	fsm := newTestFSM(t, swap.KindChain, &claims)
	ctx := context.Background()

	fsm.HandleUpdate(ctx, swap.StatusTransactionServerConfirmed, nil)
	fsm.HandleUpdate(ctx, swap.StatusTransactionServerConfirmed, nil)
	fsm.HandleUpdate(ctx, swap.StatusTransactionServerConfirmed, nil)

	// Claims run in a goroutine; give them a moment to execute.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&claims) == 1
	}, time.Second, time.Millisecond)
}

func TestFSM_InvoiceExpiredIsRefundable(t *testing.T) {
	var claims int32
	fsm := newTestFSM(t, swap.KindReverse, &claims)
	ctx := context.Background()

	fsm.HandleUpdate(ctx, swap.StatusInvoiceExpired, nil)

	outcome := <-fsm.Result()
	require.True(t, outcome.Refundable)
	require.Error(t, outcome.Err)
	require.True(t, fsm.Swap().Refundable)
}

func TestFSM_SubmarineClaimedFetchesPreimage(t *testing.T) {
	var claims int32
	fsm := newTestFSM(t, swap.KindSubmarine, &claims)
	ctx := context.Background()

	fsm.HandleUpdate(ctx, swap.StatusTransactionClaimed, nil)

	outcome := <-fsm.Result()
	require.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Preimage)
}

func TestFSM_ReverseSettlementMissingTxid(t *testing.T) {
	var claims int32
	repo := swapstore.NewMemory()
	s := &swap.Swap{ID: "swap-2", Kind: swap.KindReverse, Status: swap.StatusSwapCreated, CreatedAt: 1}
	fsm := New(s, Deps{
		Repo:  repo,
		Claim: func(ctx context.Context, s *swap.Swap) error { atomic.AddInt32(&claims, 1); return nil },
		FetchReverseTxid: func(ctx context.Context, id string) (string, error) {
			return "", nil
		},
	})

	fsm.HandleUpdate(context.Background(), swap.StatusInvoiceSettled, nil)

	outcome := <-fsm.Result()
	require.Error(t, outcome.Err)

	var missingTxid *swap.SwapSettlementMissingTxidError
	require.ErrorAs(t, outcome.Err, &missingTxid)
}
