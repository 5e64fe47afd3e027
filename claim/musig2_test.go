package claim

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestSession_TwoPartySignAndCombine(t *testing.T) {
	alicePriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	bobPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	alice := NewSession(alicePriv, bobPriv.PubKey(), nil)
	bob := NewSession(bobPriv, alicePriv.PubKey(), nil)

	_, err = alice.GenerateNonces()
	require.NoError(t, err)
	_, err = bob.GenerateNonces()
	require.NoError(t, err)

	require.NoError(t, alice.Init(bob.PubNonce()))
	require.NoError(t, bob.Init(alice.PubNonce()))

	require.Equal(t, alice.AggregatePublicKey().SerializeCompressed(), bob.AggregatePublicKey().SerializeCompressed())

	msg := chainhash.HashH([]byte("vhtlc cooperative claim"))

	aliceSig, err := alice.Sign(&msg)
	require.NoError(t, err)
	bobSig, err := bob.Sign(&msg)
	require.NoError(t, err)

	finalFromAlice, err := alice.CombineSignatures(bobSig)
	require.NoError(t, err)
	finalFromBob, err := bob.CombineSignatures(aliceSig)
	require.NoError(t, err)

	require.Equal(t, finalFromAlice.Serialize(), finalFromBob.Serialize())
	require.True(t, finalFromAlice.Verify(msg[:], alice.AggregatePublicKey()))
}

func TestSession_TaprootTweakedAggregateDiffersFromPlain(t *testing.T) {
	alicePriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	bobPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	plain := NewSession(alicePriv, bobPriv.PubKey(), nil)
	_, err = plain.GenerateNonces()
	require.NoError(t, err)
	bobPlain := NewSession(bobPriv, alicePriv.PubKey(), nil)
	_, err = bobPlain.GenerateNonces()
	require.NoError(t, err)
	require.NoError(t, plain.Init(bobPlain.PubNonce()))

	merkleRoot := chainhash.HashH([]byte("leaf"))
	tweaked := NewSession(alicePriv, bobPriv.PubKey(), merkleRoot[:])
	_, err = tweaked.GenerateNonces()
	require.NoError(t, err)
	bobTweaked := NewSession(bobPriv, alicePriv.PubKey(), merkleRoot[:])
	_, err = bobTweaked.GenerateNonces()
	require.NoError(t, err)
	require.NoError(t, tweaked.Init(bobTweaked.PubNonce()))

	require.NotEqual(t, plain.AggregatePublicKey().SerializeCompressed(), tweaked.AggregatePublicKey().SerializeCompressed())
}
