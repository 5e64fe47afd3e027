package claim

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
	"github.com/arkade-labs/go-ark-swap/wallet"
)

// ArkRefundRequest bundles everything BuildArkRefund needs for the
// cooperative three-party refund path (spec 4.5.2).
type ArkRefundRequest struct {
	SwapID   string
	Tree     *vhtlc.Tree
	LockupScript string

	SenderKey    vhtlc.XOnlyKey
	ReceiverKey  vhtlc.XOnlyKey
	ServerKey    vhtlc.XOnlyKey

	Wallet       wallet.Wallet
	Indexer      wallet.IndexerProvider
	Ark          wallet.ArkProvider
	Counterparty *boltzrpc.Client

	// RefundAddress is where the recovered value is sent; for a
	// submarine-swap refund this is the sender's own Ark address.
	RefundAddress string
}

// ArkRefundResult is the outcome of a completed cooperative Ark refund.
type ArkRefundResult struct {
	ArkTxid string
}

// BuildArkRefund executes the cooperative Ark-side refund protocol (spec
// 4.5.2 steps 1-7): construct the unsigned refund and checkpoint
// transactions along the refund leaf, obtain and verify the
// counterparty's signatures, add the wallet's own, submit to the Ark
// server, verify the three-party-signed final transaction, and finalize.
func BuildArkRefund(ctx context.Context, req ArkRefundRequest) (*ArkRefundResult, error) {
	vtxo, err := req.Indexer.VTXOByScript(ctx, req.LockupScript)
	if err != nil {
		return nil, err
	}
	if vtxo == nil {
		return nil, &wallet.ErrNoSpendableVirtualCoins{ScriptHex: req.LockupScript}
	}

	unsignedRefundTx, unsignedCheckpoint, err := buildRefundTransactions(req.Tree, vtxo, req.RefundAddress)
	if err != nil {
		return nil, err
	}

	refundHex, err := encodePSBT(unsignedRefundTx)
	if err != nil {
		return nil, err
	}
	checkpointHex, err := encodePSBT(unsignedCheckpoint)
	if err != nil {
		return nil, err
	}

	rawCounterpartySig, err := req.Counterparty.RefundSubmarineSwap(ctx, req.SwapID, refundHex, checkpointHex)
	if err != nil {
		return nil, fmt.Errorf("claim: request counterparty refund signatures: %w", err)
	}
	if err := verifyRefundLeafSignature(unsignedRefundTx, req.ReceiverKey, rawCounterpartySig); err != nil {
		return nil, &InvalidCounterpartySignatureError{SwapID: req.SwapID, Leaf: "refund"}
	}

	receiverPub, err := req.ReceiverKey.PublicKey()
	if err != nil {
		return nil, err
	}
	counterpartySig := &psbt.TaprootScriptSpendSig{
		XOnlyPubKey: receiverPub.SerializeCompressed()[1:],
		Signature:   rawCounterpartySig,
	}
	unsignedRefundTx.Inputs[0].TaprootScriptSpendSig = append(unsignedRefundTx.Inputs[0].TaprootScriptSpendSig, counterpartySig)
	unsignedCheckpoint.Inputs[0].TaprootScriptSpendSig = append(unsignedCheckpoint.Inputs[0].TaprootScriptSpendSig, counterpartySig)

	if err := req.Wallet.Sign(ctx, unsignedRefundTx, []int{0}); err != nil {
		return nil, fmt.Errorf("claim: sign refund tx: %w", err)
	}
	if err := req.Wallet.Sign(ctx, unsignedCheckpoint, []int{0}); err != nil {
		return nil, fmt.Errorf("claim: sign refund checkpoint: %w", err)
	}

	// The checkpoint now carries both the sender's and the receiver's
	// tapscript signatures; the Ark server's own echoed checkpoint below
	// only adds its own, so these are kept to merge back in at finalize.
	localCheckpointSigs := append([]*psbt.TaprootScriptSpendSig(nil), unsignedCheckpoint.Inputs[0].TaprootScriptSpendSig...)

	combinedRefundHex, err := encodePSBT(unsignedRefundTx)
	if err != nil {
		return nil, err
	}
	combinedCheckpointHex, err := encodePSBT(unsignedCheckpoint)
	if err != nil {
		return nil, err
	}

	finalArkTxHex, signedCheckpointHexes, err := req.Ark.SubmitTx(ctx, combinedRefundHex, []string{combinedCheckpointHex})
	if err != nil {
		return nil, fmt.Errorf("claim: submit refund tx: %w", err)
	}

	finalArkTx, err := decodePSBT(finalArkTxHex)
	if err != nil {
		return nil, err
	}
	if err := verifyThreePartyRefundSignatures(finalArkTx, req.SenderKey, req.ReceiverKey, req.ServerKey); err != nil {
		return nil, &InvalidFinalArkTxError{SwapID: req.SwapID, Reason: err.Error()}
	}

	finalizedHexes := make([]string, len(signedCheckpointHexes))
	for i, hexTx := range signedCheckpointHexes {
		cp, err := decodePSBT(hexTx)
		if err != nil {
			return nil, err
		}
		cp.Inputs[0].TaprootScriptSpendSig = mergeTaprootScriptSpendSigs(cp.Inputs[0].TaprootScriptSpendSig, localCheckpointSigs)
		finalizedHexes[i], err = encodePSBT(cp)
		if err != nil {
			return nil, err
		}
	}

	arkTxid := finalArkTx.UnsignedTx.TxHash().String()
	if err := req.Ark.FinalizeTx(ctx, arkTxid, finalizedHexes); err != nil {
		return nil, fmt.Errorf("claim: finalize refund tx: %w", err)
	}

	logger.Infof("ark refund finalized for swap %s, txid %s", req.SwapID, arkTxid)
	return &ArkRefundResult{ArkTxid: arkTxid}, nil
}

func buildRefundTransactions(tree *vhtlc.Tree, vtxo *wallet.VTXO, refundAddress string) (*psbt.Packet, *psbt.Packet, error) {
	outpoint := wire.OutPoint{}
	if err := setOutpointFromTxid(&outpoint, vtxo.Txid, vtxo.VOut); err != nil {
		return nil, nil, err
	}

	pkScript, err := destinationPkScript(refundAddress)
	if err != nil {
		return nil, nil, err
	}

	unsignedTx := wire.NewMsgTx(2)
	unsignedTx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint, Sequence: wire.MaxTxInSequenceNum})
	unsignedTx.AddTxOut(&wire.TxOut{Value: int64(vtxo.Amount), PkScript: pkScript})
	unsignedTx.LockTime = tree.Params.RefundLocktime

	refundTx, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return nil, nil, fmt.Errorf("claim: build refund psbt: %w", err)
	}

	lockupPkScript, err := tree.PkScript()
	if err != nil {
		return nil, nil, err
	}
	refundLeaf := tree.Leaf(vhtlc.LeafRefund)
	refundTx.Inputs[0].WitnessUtxo = &wire.TxOut{Value: int64(vtxo.Amount), PkScript: lockupPkScript}
	refundTx.Inputs[0].TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: tree.ControlBlock(vhtlc.LeafRefund),
		Script:       refundLeaf.Script,
		LeafVersion:  txscript.BaseLeafVersion,
	}}

	checkpointTx := wire.NewMsgTx(2)
	checkpointTx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})
	checkpointTx.AddTxOut(&wire.TxOut{Value: int64(vtxo.Amount), PkScript: lockupPkScript})
	checkpoint, err := psbt.NewFromUnsignedTx(checkpointTx)
	if err != nil {
		return nil, nil, fmt.Errorf("claim: build refund checkpoint psbt: %w", err)
	}
	checkpoint.Inputs[0].WitnessUtxo = refundTx.Inputs[0].WitnessUtxo
	checkpoint.Inputs[0].TaprootLeafScript = refundTx.Inputs[0].TaprootLeafScript

	return refundTx, checkpoint, nil
}

// verifyRefundLeafSignature validates the counterparty's raw partial
// signature bytes against receiverKey over the refund leaf's sighash.
func verifyRefundLeafSignature(refundTx *psbt.Packet, receiverKey vhtlc.XOnlyKey, rawSig []byte) error {
	sig, err := decodeSchnorrSignature(rawSig)
	if err != nil {
		return fmt.Errorf("parse counterparty signature: %w", err)
	}
	pub, err := receiverKey.PublicKey()
	if err != nil {
		return err
	}
	sigHash, err := claimSigHash(refundTx)
	if err != nil {
		return err
	}
	if !sig.Verify(sigHash, pub) {
		return fmt.Errorf("signature does not verify against receiver key")
	}
	return nil
}

// verifyThreePartyRefundSignatures validates that finalArkTx's input 0
// carries valid taproot script-path signatures from all of sender,
// receiver and server over the refund leaf (spec 4.5.2 step 6).
func verifyThreePartyRefundSignatures(finalArkTx *psbt.Packet, sender, receiver, server vhtlc.XOnlyKey) error {
	in := finalArkTx.Inputs[0]
	if in.WitnessUtxo == nil {
		return fmt.Errorf("missing witness utxo on input 0")
	}

	sigHash, err := claimSigHash(finalArkTx)
	if err != nil {
		return err
	}

	for _, key := range []vhtlc.XOnlyKey{sender, receiver, server} {
		pub, err := key.PublicKey()
		if err != nil {
			return err
		}
		if !hasValidSignatureFor(in.TaprootScriptSpendSig, pub, sigHash) {
			return fmt.Errorf("missing or invalid signature for one of {sender, receiver, server}")
		}
	}
	return nil
}

func hasValidSignatureFor(sigs []*psbt.TaprootScriptSpendSig, pub *btcec.PublicKey, sigHash []byte) bool {
	want := pub.SerializeCompressed()[1:]
	for _, sig := range sigs {
		if string(sig.XOnlyPubKey) != string(want) {
			continue
		}
		parsed, err := decodeSchnorrSignature(sig.Signature)
		if err != nil {
			continue
		}
		if parsed.Verify(sigHash, pub) {
			return true
		}
	}
	return false
}
