package swap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialStatus(t *testing.T) {
	require.Equal(t, StatusSwapCreated, KindReverse.InitialStatus())
	require.Equal(t, StatusInvoiceSet, KindSubmarine.InitialStatus())
	require.Equal(t, StatusSwapCreated, KindChain.InitialStatus())
}

func TestIsTerminal_Reverse(t *testing.T) {
	require.True(t, KindReverse.IsTerminal(StatusInvoiceSettled))
	require.True(t, KindReverse.IsTerminal(StatusTransactionRefunded))
	require.False(t, KindReverse.IsTerminal(StatusTransactionMempool))
	require.False(t, KindReverse.IsTerminal(StatusSwapCreated))
}

func TestIsTerminal_Submarine(t *testing.T) {
	require.True(t, KindSubmarine.IsTerminal(StatusTransactionClaimed))
	require.True(t, KindSubmarine.IsTerminal(StatusInvoiceFailedToPay))
	require.False(t, KindSubmarine.IsTerminal(StatusInvoiceSet))
}

func TestIsTerminal_Chain(t *testing.T) {
	require.True(t, KindChain.IsTerminal(StatusTransactionClaimed))
	require.True(t, KindChain.IsTerminal(StatusTransactionFailed))
	require.False(t, KindChain.IsTerminal(StatusTransactionServerMempool))
}

func TestSwap_IsTerminal(t *testing.T) {
	s := &Swap{Kind: KindReverse, Status: StatusSwapCreated}
	require.False(t, s.IsTerminal())

	s.Status = StatusInvoiceSettled
	require.True(t, s.IsTerminal())
}
