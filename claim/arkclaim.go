package claim

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
	"github.com/arkade-labs/go-ark-swap/wallet"
)

var logger = log.NewSubLogger("CLAM")

// preimageWitnessKey is the PSBT proprietary-field key the core uses to
// carry a hashlock preimage alongside a taproot script-path witness,
// since the preimage isn't itself a signature the wallet's Sign call
// would otherwise produce.
const preimageWitnessKey = "vhtlc-preimage"

// ArkClaimRequest bundles everything BuildArkClaim needs to claim a VTXO
// along the VHTLC claim leaf (spec 4.5.1).
type ArkClaimRequest struct {
	SwapID       string
	Tree         *vhtlc.Tree
	LockupScript string // hex-encoded scriptPubKey the VTXO was indexed by
	Preimage     [32]byte
	ServerKey    vhtlc.XOnlyKey

	Wallet  wallet.Wallet
	Indexer wallet.IndexerProvider
	Ark     wallet.ArkProvider

	// DestinationAddress is the wallet's own Ark address the claimed
	// value is paid to.
	DestinationAddress string
}

// ArkClaimResult is the outcome of a completed Ark-side claim.
type ArkClaimResult struct {
	ArkTxid string
}

// BuildArkClaim executes the Ark-side claim protocol end to end: fetch the
// VTXO, build the ark transaction and checkpoints along the claim leaf,
// sign, submit, verify the server's signature, countersign the
// checkpoints, and finalize (spec 4.5.1 steps 1-8).
func BuildArkClaim(ctx context.Context, req ArkClaimRequest) (*ArkClaimResult, error) {
	vtxo, err := req.Indexer.VTXOByScript(ctx, req.LockupScript)
	if err != nil {
		return nil, err
	}
	if vtxo == nil {
		return nil, &wallet.ErrNoSpendableVirtualCoins{ScriptHex: req.LockupScript}
	}

	arkTx, checkpoints, err := buildClaimTransactions(req.Tree, vtxo, req.DestinationAddress)
	if err != nil {
		return nil, err
	}

	if err := req.Wallet.Sign(ctx, arkTx, []int{0}); err != nil {
		return nil, fmt.Errorf("claim: sign ark tx: %w", err)
	}
	injectPreimage(arkTx, 0, req.Preimage)

	arkTxHex, err := encodePSBT(arkTx)
	if err != nil {
		return nil, err
	}
	checkpointHexes := make([]string, len(checkpoints))
	for i, cp := range checkpoints {
		checkpointHexes[i], err = encodePSBT(cp)
		if err != nil {
			return nil, err
		}
	}

	finalArkTxHex, signedCheckpointHexes, err := req.Ark.SubmitTx(ctx, arkTxHex, checkpointHexes)
	if err != nil {
		return nil, fmt.Errorf("claim: submit ark tx: %w", err)
	}

	finalArkTx, err := decodePSBT(finalArkTxHex)
	if err != nil {
		return nil, err
	}
	if err := verifyServerClaimSignature(finalArkTx, req.ServerKey); err != nil {
		return nil, &InvalidFinalArkTxError{SwapID: req.SwapID, Reason: err.Error()}
	}

	signedCheckpoints := make([]*psbt.Packet, len(signedCheckpointHexes))
	for i, hexTx := range signedCheckpointHexes {
		cp, err := decodePSBT(hexTx)
		if err != nil {
			return nil, err
		}
		if err := req.Wallet.Sign(ctx, cp, []int{0}); err != nil {
			return nil, fmt.Errorf("claim: sign checkpoint %d: %w", i, err)
		}
		injectPreimage(cp, 0, req.Preimage)
		signedCheckpoints[i] = cp
	}

	finalizedHexes := make([]string, len(signedCheckpoints))
	for i, cp := range signedCheckpoints {
		finalizedHexes[i], err = encodePSBT(cp)
		if err != nil {
			return nil, err
		}
	}

	arkTxid := finalArkTx.UnsignedTx.TxHash().String()
	if err := req.Ark.FinalizeTx(ctx, arkTxid, finalizedHexes); err != nil {
		return nil, fmt.Errorf("claim: finalize tx: %w", err)
	}

	logger.Infof("ark claim finalized for swap %s, txid %s", req.SwapID, arkTxid)
	return &ArkClaimResult{ArkTxid: arkTxid}, nil
}

// buildClaimTransactions constructs the unsigned ark transaction (spending
// the VTXO along the claim leaf to destinationAddress) and one checkpoint
// transaction per input (spec 4.5.1 steps 2-3).
func buildClaimTransactions(tree *vhtlc.Tree, vtxo *wallet.VTXO, destinationAddress string) (*psbt.Packet, []*psbt.Packet, error) {
	outpoint := wire.OutPoint{}
	if err := setOutpointFromTxid(&outpoint, vtxo.Txid, vtxo.VOut); err != nil {
		return nil, nil, err
	}

	unsignedTx := wire.NewMsgTx(2)
	unsignedTx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})

	pkScript, err := destinationPkScript(destinationAddress)
	if err != nil {
		return nil, nil, err
	}
	unsignedTx.AddTxOut(&wire.TxOut{Value: int64(vtxo.Amount), PkScript: pkScript})

	arkTx, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return nil, nil, fmt.Errorf("claim: build ark psbt: %w", err)
	}

	lockupPkScript, err := tree.PkScript()
	if err != nil {
		return nil, nil, err
	}
	arkTx.Inputs[0].WitnessUtxo = &wire.TxOut{Value: int64(vtxo.Amount), PkScript: lockupPkScript}
	claimLeaf := tree.Leaf(vhtlc.LeafClaim)
	arkTx.Inputs[0].TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: tree.ControlBlock(vhtlc.LeafClaim),
		Script:       claimLeaf.Script,
		LeafVersion:  txscript.BaseLeafVersion,
	}}

	checkpointTx := wire.NewMsgTx(2)
	checkpointTx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})
	checkpointTx.AddTxOut(&wire.TxOut{Value: int64(vtxo.Amount), PkScript: lockupPkScript})
	checkpoint, err := psbt.NewFromUnsignedTx(checkpointTx)
	if err != nil {
		return nil, nil, fmt.Errorf("claim: build checkpoint psbt: %w", err)
	}
	checkpoint.Inputs[0].WitnessUtxo = arkTx.Inputs[0].WitnessUtxo
	checkpoint.Inputs[0].TaprootLeafScript = arkTx.Inputs[0].TaprootLeafScript

	return arkTx, []*psbt.Packet{checkpoint}, nil
}

// injectPreimage attaches the hashlock preimage to input idx as a
// proprietary PSBT field, for the server to read alongside the witness
// signature it verifies (spec 4.5.1 step 4).
func injectPreimage(p *psbt.Packet, idx int, preimage [32]byte) {
	p.Inputs[idx].Unknowns = append(p.Inputs[idx].Unknowns, &psbt.Unknown{
		Key:   []byte(preimageWitnessKey),
		Value: append([]byte(nil), preimage[:]...),
	})
}

// verifyServerClaimSignature checks that finalArkTx's input 0 carries a
// valid taproot script-path signature from serverKey over the claim leaf.
// Spec 9 flags the original's witnessUtxo-presence-only check as a bug:
// this performs real signature verification.
func verifyServerClaimSignature(finalArkTx *psbt.Packet, serverKey vhtlc.XOnlyKey) error {
	in := finalArkTx.Inputs[0]
	if in.WitnessUtxo == nil {
		return fmt.Errorf("missing witness utxo on input 0")
	}
	if len(in.TaprootScriptSpendSig) == 0 {
		return fmt.Errorf("missing taproot script-spend signature on input 0")
	}

	pub, err := serverKey.PublicKey()
	if err != nil {
		return err
	}

	for _, sig := range in.TaprootScriptSpendSig {
		if string(sig.XOnlyPubKey) != string(pub.SerializeCompressed()[1:]) {
			continue
		}
		parsedSig, err := decodeSchnorrSignature(sig.Signature)
		if err != nil {
			continue
		}
		sigHash, err := claimSigHash(finalArkTx)
		if err != nil {
			return err
		}
		if parsedSig.Verify(sigHash, pub) {
			return nil
		}
	}

	return fmt.Errorf("no valid server signature found for claim leaf")
}
