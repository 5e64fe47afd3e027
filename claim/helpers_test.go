package claim

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/vhtlc"
)

func TestDestinationPkScript_ArkAddress(t *testing.T) {
	tree, err := vhtlc.BuildTree(vhtlc.Params{
		Sender:         sampleXOnly(t),
		Receiver:       sampleXOnly(t),
		Server:         sampleXOnly(t),
		RefundLocktime: 900_000,
	})
	require.NoError(t, err)

	addr, err := tree.Address(vhtlc.Testnet)
	require.NoError(t, err)

	script, err := destinationPkScript(addr)
	require.NoError(t, err)

	wantScript, err := tree.PkScript()
	require.NoError(t, err)
	require.Equal(t, wantScript, script)
}

func sampleXOnly(t *testing.T) vhtlc.XOnlyKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	compressed := priv.PubKey().SerializeCompressed()
	k, err := vhtlc.NormalizeKey("test", compressed)
	require.NoError(t, err)
	return k
}
