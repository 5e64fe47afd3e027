package operations

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/ripemd160"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
)

// hash160 is ripemd160(sha256(data)), the preimage-hash function every
// VHTLC and Lightning payment hash in this package uses (spec 3).
func hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

// treeFromResponse reconstructs the VHTLC script tree from the
// counterparty-reported lockup script and timeouts, independent of which
// side of the swap the caller is on: the response already names all three
// roles' keys (spec 3, 4.1).
func treeFromResponse(_ vhtlc.XOnlyKey, resp swap.Response) (*vhtlc.Tree, error) {
	sender, err := vhtlc.NormalizeKey("sender", resp.LockupScript.SenderKey[:])
	if err != nil {
		return nil, err
	}
	receiver, err := vhtlc.NormalizeKey("receiver", resp.LockupScript.ReceiverKey[:])
	if err != nil {
		return nil, err
	}
	server, err := vhtlc.NormalizeKey("server", resp.LockupScript.ServerKey[:])
	if err != nil {
		return nil, err
	}

	return vhtlc.BuildTree(vhtlc.Params{
		PreimageHash:                          resp.LockupScript.PreimageHash,
		Sender:                                sender,
		Receiver:                              receiver,
		Server:                                server,
		RefundLocktime:                        resp.TimeoutBlockHeights.Refund,
		UnilateralClaimDelay:                  resp.TimeoutBlockHeights.UnilateralClaim,
		UnilateralRefundDelay:                 resp.TimeoutBlockHeights.UnilateralRefund,
		UnilateralRefundWithoutReceiverDelay: resp.TimeoutBlockHeights.UnilateralRefundWithoutReceiver,
	})
}

// validateLockupAddress enforces spec invariant 4: the locally
// reconstructed VHTLC address must equal the counterparty-reported one
// before any wallet signature or fund movement.
func validateLockupAddress(reported, swapID string, tree *vhtlc.Tree, network vhtlc.Network) error {
	reconstructed, err := tree.Address(network)
	if err != nil {
		return err
	}
	if reconstructed != reported {
		return &vhtlc.AddressMismatchError{SwapID: swapID, Expected: reported, Got: reconstructed}
	}
	return nil
}

func newEphemeralKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

func xOnlyFromPrivate(priv *btcec.PrivateKey) [32]byte {
	var out [32]byte
	copy(out[:], schnorr.SerializePubKey(priv.PubKey()))
	return out
}

// decodeChainClaimTx deserialises a counterparty-supplied raw claim
// transaction for the BTC side of a chain swap.
func decodeChainClaimTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserialize tx: %w", err)
	}
	return tx, nil
}

// aggregateP2TRScript builds the taproot key-path scriptPubKey the
// MuSig2-aggregated keys commit to, the same untweaked construction the
// BTC-side claim builder verifies a chain swap's lockup output against.
func aggregateP2TRScript(keys ...*btcec.PublicKey) ([]byte, error) {
	aggKey, _, _, err := musig2.AggregateKeys(keys, true)
	if err != nil {
		return nil, fmt.Errorf("musig2 aggregate keys: %w", err)
	}
	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_1)
	b.AddData(aggKey.FinalKey.SerializeCompressed()[1:])
	return b.Script()
}

// extractTxidFromPayload pulls the "txid" field out of a status update's
// raw JSON payload, the same field name the counterparty's settlement
// payloads use for every kind that carries a transaction id.
func extractTxidFromPayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var out struct {
		Txid string `json:"txid"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return ""
	}
	return out.Txid
}
