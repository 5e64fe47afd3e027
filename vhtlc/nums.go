package vhtlc

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// numsTag is the domain-separation tag used when deriving the unspendable
// BIP-341 internal key for a VHTLC output. Tying it to the server's x-only
// key means every VHTLC involving a given server shares a deterministic,
// provably-unspendable internal key without reusing the global NUMS point.
var numsTag = []byte("VHTLC/internal-key")

// UnspendableInternalKey derives the BIP-341 NUMS internal key for a VHTLC
// script tree from the server's x-only public key. Since not every 32-byte
// hash output is a valid x-coordinate on secp256k1, a small counter is
// mixed in and incremented until schnorr.ParsePubKey succeeds; this
// terminates after at most a handful of iterations in practice.
func UnspendableInternalKey(serverKey XOnlyKey) (*btcec.PublicKey, error) {
	var counter [4]byte
	for i := uint32(0); i < 256; i++ {
		binary.BigEndian.PutUint32(counter[:], i)

		preimage := make([]byte, 0, len(numsTag)+len(serverKey)+len(counter))
		preimage = append(preimage, numsTag...)
		preimage = append(preimage, serverKey[:]...)
		preimage = append(preimage, counter[:]...)
		h := sha256.Sum256(preimage)

		pub, err := schnorr.ParsePubKey(h[:])
		if err == nil {
			return pub, nil
		}
	}

	return nil, &ScriptConstructionError{
		Reason: "could not derive an unspendable internal key",
	}
}
