package swapstore

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/swap"
)

func TestMarshalUnmarshalSwap_RoundTrips(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	preimage := [32]byte{1, 2, 3}

	s := &swap.Swap{
		ID:        "swap-xyz",
		Kind:      swap.KindChain,
		CreatedAt: 1234,
		Status:    swap.StatusTransactionServerMempool,
		Preimage:  &preimage,
		Request: swap.Request{
			Kind:       swap.KindChain,
			AmountSats: 50_000,
			ToAddress:  "bc1qexample",
		},
		Response: swap.Response{
			LockupAddress:      "tark1qexample",
			ExpectedAmountSats: 50_000,
			TimeoutBlockHeights: swap.TimeoutBlockHeights{
				Refund: 840_500,
			},
			SwapTree: []byte{0xde, 0xad, 0xbe, 0xef},
		},
		EphemeralKey: priv,
		ToAddress:    "bc1qexample",
		Refundable:   true,
	}

	data, err := marshalSwap(s)
	require.NoError(t, err)

	got, err := unmarshalSwap(data)
	require.NoError(t, err)

	require.Equal(t, s.ID, got.ID)
	require.Equal(t, s.Kind, got.Kind)
	require.Equal(t, s.Status, got.Status)
	require.Equal(t, *s.Preimage, *got.Preimage)
	require.Equal(t, s.Response.SwapTree, got.Response.SwapTree)
	require.Equal(t, s.Response.TimeoutBlockHeights.Refund, got.Response.TimeoutBlockHeights.Refund)
	require.True(t, s.EphemeralKey.PubKey().IsEqual(got.EphemeralKey.PubKey()))
	require.Equal(t, s.Refundable, got.Refundable)
}
