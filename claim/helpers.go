package claim

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkade-labs/go-ark-swap/vhtlc"
)

func setOutpointFromTxid(out *wire.OutPoint, txid string, vout uint32) error {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return fmt.Errorf("claim: parse txid %q: %w", txid, err)
	}
	out.Hash = *hash
	out.Index = vout
	return nil
}

// destinationPkScript resolves an address string (Ark or BTC bech32/
// bech32m) to its scriptPubKey. Ark addresses reuse the same witness-v1
// program encoding as BTC taproot addresses (vhtlc.DecodeAddress), so both
// forms decode the same way at the byte level.
func destinationPkScript(address string) ([]byte, error) {
	_, outputKey, err := decodeAnyAddress(address)
	if err != nil {
		return nil, err
	}

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_1)
	b.AddData(outputKey[:])
	return b.Script()
}

func decodeAnyAddress(address string) (hrp string, outputKey [32]byte, err error) {
	// Try standard BTC decoding first, falling back to the Ark-prefixed
	// custom-HRP decoder from the vhtlc package.
	if addr, decodeErr := btcutil.DecodeAddress(address, &chaincfg.MainNetParams); decodeErr == nil {
		if taprootAddr, ok := addr.(*btcutil.AddressTaproot); ok {
			var key [32]byte
			copy(key[:], taprootAddr.ScriptAddress())
			return chaincfg.MainNetParams.Bech32HRPSegwit, key, nil
		}
	}
	return decodeArkAddress(address)
}

func encodePSBT(p *psbt.Packet) (string, error) {
	b, err := p.B64Encode()
	if err != nil {
		return "", fmt.Errorf("claim: encode psbt: %w", err)
	}
	return b, nil
}

func decodePSBT(encoded string) (*psbt.Packet, error) {
	p, err := psbt.NewFromRawBytes(strings.NewReader(encoded), true)
	if err != nil {
		return nil, fmt.Errorf("claim: decode psbt: %w", err)
	}
	return p, nil
}

// decodeArkAddress decodes a custom-HRP ("ark"/"tark") bech32m address via
// the vhtlc package's encoder, since these addresses aren't recognised by
// btcutil's standard Bitcoin address decoders.
func decodeArkAddress(address string) (hrp string, outputKey [32]byte, err error) {
	return vhtlc.DecodeAddress(address)
}

func decodeSchnorrSignature(raw []byte) (*schnorr.Signature, error) {
	return schnorr.ParseSignature(raw)
}

// claimSigHash computes the BIP-341 tapscript signature hash for input 0
// of tx, the only input every claim/checkpoint transaction in this
// package has.
func claimSigHash(p *psbt.Packet) ([]byte, error) {
	in := p.Inputs[0]
	if in.WitnessUtxo == nil {
		return nil, fmt.Errorf("claim: missing witness utxo for sighash")
	}

	fetcher := txscript.NewCannedPrevOutputFetcher(in.WitnessUtxo.PkScript, in.WitnessUtxo.Value)
	sigHashes := txscript.NewTxSigHashes(p.UnsignedTx, fetcher)

	if len(in.TaprootLeafScript) == 0 {
		return nil, fmt.Errorf("claim: missing tapscript leaf for sighash")
	}
	leaf := txscript.TapLeaf{
		LeafVersion: in.TaprootLeafScript[0].LeafVersion,
		Script:      in.TaprootLeafScript[0].Script,
	}

	hash, err := txscript.CalcTapscriptSignaturehash(
		sigHashes, txscript.SigHashDefault, p.UnsignedTx, 0, fetcher, leaf,
	)
	if err != nil {
		return nil, fmt.Errorf("claim: calc tapscript sighash: %w", err)
	}
	return hash, nil
}

func hexDecode(s string) []byte {
	b, _ := hex.DecodeString(s)
	return b
}

// mergeTaprootScriptSpendSigs combines sigs with extra, keyed by
// XOnlyPubKey, with entries already present in sigs taking precedence
// over extra. Used to fold previously-collected local/counterparty
// tapscript signatures back into a PSBT the Ark server has echoed back
// with its own signature attached.
func mergeTaprootScriptSpendSigs(sigs, extra []*psbt.TaprootScriptSpendSig) []*psbt.TaprootScriptSpendSig {
	have := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		have[string(sig.XOnlyPubKey)] = true
	}
	merged := sigs
	for _, sig := range extra {
		if have[string(sig.XOnlyPubKey)] {
			continue
		}
		merged = append(merged, sig)
		have[string(sig.XOnlyPubKey)] = true
	}
	return merged
}
