package vhtlc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// XOnlyKey is a 32-byte x-only public key, the form every VHTLC script
// building block requires.
type XOnlyKey [32]byte

// NormalizeKey accepts a public key in either 33-byte compressed SEC1 form
// or 32-byte x-only form and coerces it to x-only, stripping the leading
// parity byte when present. Any other length is rejected: this is the only
// validation the Key Normaliser performs, per spec 4.1.
func NormalizeKey(role string, raw []byte) (XOnlyKey, error) {
	return normalizeKey(role, "", raw)
}

// NormalizeKeyForSwap is NormalizeKey but attaches a swap id to the error
// for callers that already know which swap a bad key belongs to.
func NormalizeKeyForSwap(role, swapID string, raw []byte) (XOnlyKey, error) {
	return normalizeKey(role, swapID, raw)
}

func normalizeKey(role, swapID string, raw []byte) (XOnlyKey, error) {
	var out XOnlyKey

	switch len(raw) {
	case 32:
		copy(out[:], raw)
	case 33:
		copy(out[:], raw[1:])
	default:
		return out, &InvalidKeyLengthError{
			Role:   role,
			Length: len(raw),
			SwapID: swapID,
		}
	}

	return out, nil
}

// PublicKey parses the x-only key into a *btcec.PublicKey with even-y
// lift, the form required by txscript's taproot helpers.
func (k XOnlyKey) PublicKey() (*btcec.PublicKey, error) {
	pub, err := schnorr.ParsePubKey(k[:])
	if err != nil {
		return nil, &ScriptConstructionError{Reason: "invalid x-only key: " + err.Error()}
	}
	return pub, nil
}
