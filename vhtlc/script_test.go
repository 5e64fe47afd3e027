package vhtlc

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for HASH160 parity with preimage reveal scripts
)

func randomXOnly(t *testing.T) XOnlyKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var k XOnlyKey
	copy(k[:], priv.PubKey().SerializeCompressed()[1:])
	return k
}

func samplePreimageHash(t *testing.T) [20]byte {
	t.Helper()
	preimage := make([]byte, 32)
	_, err := rand.Read(preimage)
	require.NoError(t, err)

	sha := sha256.Sum256(preimage)
	r := ripemd160.New()
	_, _ = r.Write(sha[:])

	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

func sampleParams(t *testing.T) Params {
	t.Helper()
	return Params{
		PreimageHash:                          samplePreimageHash(t),
		Sender:                                randomXOnly(t),
		Receiver:                              randomXOnly(t),
		Server:                                randomXOnly(t),
		RefundLocktime:                        840_000,
		UnilateralClaimDelay:                  144,
		UnilateralRefundDelay:                 144,
		UnilateralRefundWithoutReceiverDelay: 1_209_600, // 2 weeks in seconds
	}
}

func TestBuildTree_Deterministic(t *testing.T) {
	p := sampleParams(t)

	t1, err := BuildTree(p)
	require.NoError(t, err)
	t2, err := BuildTree(p)
	require.NoError(t, err)

	require.Equal(t, t1.MerkleRoot, t2.MerkleRoot)
	require.Equal(t, t1.OutputKey.SerializeCompressed(), t2.OutputKey.SerializeCompressed())
	for _, kind := range []LeafKind{LeafClaim, LeafRefund, LeafUnilateralClaim, LeafUnilateralRefundWithoutReceiver} {
		require.Equal(t, t1.Leaf(kind).Script, t2.Leaf(kind).Script)
		require.Equal(t, t1.ControlBlock(kind), t2.ControlBlock(kind))
	}
}

func TestBuildTree_DifferentParamsDifferentOutput(t *testing.T) {
	p1 := sampleParams(t)
	p2 := sampleParams(t)
	p2.RefundLocktime = p1.RefundLocktime + 1

	t1, err := BuildTree(p1)
	require.NoError(t, err)
	t2, err := BuildTree(p2)
	require.NoError(t, err)

	require.NotEqual(t, t1.OutputKey.SerializeCompressed(), t2.OutputKey.SerializeCompressed())
}

func TestBuildTree_FourDistinctLeaves(t *testing.T) {
	p := sampleParams(t)
	tree, err := BuildTree(p)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, kind := range []LeafKind{LeafClaim, LeafRefund, LeafUnilateralClaim, LeafUnilateralRefundWithoutReceiver} {
		script := string(tree.Leaf(kind).Script)
		require.False(t, seen[script], "leaf scripts must be pairwise distinct")
		seen[script] = true
		require.NotEmpty(t, tree.ControlBlock(kind))
	}
}

func TestTreeAddress_RoundTrips(t *testing.T) {
	p := sampleParams(t)
	tree, err := BuildTree(p)
	require.NoError(t, err)

	addr, err := tree.Address(Testnet)
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	hrp, outputKey, err := DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "tark", hrp)

	wantXOnly := tree.OutputKey.SerializeCompressed()[1:]
	require.Equal(t, wantXOnly, outputKey[:])
}

func TestTreeAddress_MainnetPrefix(t *testing.T) {
	p := sampleParams(t)
	tree, err := BuildTree(p)
	require.NoError(t, err)

	addr, err := tree.Address(Mainnet)
	require.NoError(t, err)

	hrp, _, err := DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "ark", hrp)
}

func TestPkScript_IsP2TR(t *testing.T) {
	p := sampleParams(t)
	tree, err := BuildTree(p)
	require.NoError(t, err)

	script, err := tree.PkScript()
	require.NoError(t, err)
	require.Len(t, script, 34)
	require.Equal(t, byte(0x51), script[0]) // OP_1
	require.Equal(t, byte(0x20), script[1]) // push 32 bytes
}
