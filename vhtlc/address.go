package vhtlc

import (
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Network selects the human-readable prefix used when encoding a VHTLC
// address: mainnet gets "ark", every other network gets "tark" (spec 4.2).
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) hrp() string {
	if n == Mainnet {
		return "ark"
	}
	return "tark"
}

// witnessVersion is the segwit version byte for taproot outputs (BIP-341).
const witnessVersion = 1

// Address encodes the tree's output key as a bech32m address under the
// network's human-readable prefix. Two trees built from identical Params
// always encode to the same address, and conversely a mismatched address
// reported by a counterparty can never decode to the same output key.
func (t *Tree) Address(net Network) (string, error) {
	xOnly := schnorr.SerializePubKey(t.OutputKey)

	converted, err := bech32.ConvertBits(xOnly, 8, 5, true)
	if err != nil {
		return "", &ScriptConstructionError{Reason: "bech32 bit conversion: " + err.Error()}
	}

	data := make([]byte, 0, len(converted)+1)
	data = append(data, witnessVersion)
	data = append(data, converted...)

	addr, err := bech32.EncodeM(net.hrp(), data)
	if err != nil {
		return "", &ScriptConstructionError{Reason: "bech32m encoding: " + err.Error()}
	}

	return addr, nil
}

// DecodeAddress reverses Address, returning the human-readable prefix and
// the 32-byte x-only output key it commits to. It does not check the
// prefix, the witness version or the checksum variant.
func DecodeAddress(addr string) (hrp string, outputKey [32]byte, err error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return "", outputKey, &ScriptConstructionError{Reason: "bech32 decoding: " + err.Error()}
	}
	if len(data) < 1 {
		return "", outputKey, &ScriptConstructionError{Reason: "empty bech32 payload"}
	}

	converted, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return "", outputKey, &ScriptConstructionError{Reason: "bech32 bit conversion: " + err.Error()}
	}
	if len(converted) != 32 {
		return "", outputKey, &ScriptConstructionError{Reason: "unexpected output key length"}
	}

	copy(outputKey[:], converted)
	return hrp, outputKey, nil
}
