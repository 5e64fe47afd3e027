package vhtlc

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func genXOnly(t *testing.T) (XOnlyKey, []byte /* compressed */) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pub := priv.PubKey()
	compressed := pub.SerializeCompressed()

	var want XOnlyKey
	copy(want[:], compressed[1:])
	return want, compressed
}

func TestNormalizeKey_XOnlyPassthrough(t *testing.T) {
	want, compressed := genXOnly(t)

	got, err := NormalizeKey("receiver", compressed[1:])
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestNormalizeKey_CompressedStripsParity(t *testing.T) {
	want, compressed := genXOnly(t)

	got, err := NormalizeKey("sender", compressed)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.True(t, bytes.Equal(got[:], compressed[1:]))
}

func TestNormalizeKey_InvalidLengths(t *testing.T) {
	for _, n := range []int{0, 1, 31, 34, 65} {
		_, err := NormalizeKey("server", make([]byte, n))
		require.Error(t, err)

		var lenErr *InvalidKeyLengthError
		require.ErrorAs(t, err, &lenErr)
		require.Equal(t, n, lenErr.Length)
		require.Equal(t, "server", lenErr.Role)
	}
}

func TestNormalizeKeyForSwap_AttachesSwapID(t *testing.T) {
	_, err := NormalizeKeyForSwap("receiver", "swap-123", make([]byte, 5))
	require.Error(t, err)

	var lenErr *InvalidKeyLengthError
	require.ErrorAs(t, err, &lenErr)
	require.Equal(t, "swap-123", lenErr.SwapID)
	require.Contains(t, err.Error(), "swap-123")
}
