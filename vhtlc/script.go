// Package vhtlc implements the Key Normaliser and VHTLC Script Builder
// (spec 4.1, 4.2): derivation of the four-leaf Taproot script tree used for
// every Ark-side swap leg, and the human-readable address that commits to
// it.
package vhtlc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// LeafKind identifies one of the four VHTLC script-tree leaves.
type LeafKind int

const (
	// LeafClaim is spent by the receiver revealing the preimage,
	// co-signed by the server.
	LeafClaim LeafKind = iota
	// LeafRefund is the cooperative three-party refund path, timelocked
	// to RefundLocktime.
	LeafRefund
	// LeafUnilateralClaim lets the receiver claim alone after
	// UnilateralClaimDelay.
	LeafUnilateralClaim
	// LeafUnilateralRefundWithoutReceiver lets sender+server recover the
	// funds after UnilateralRefundWithoutReceiverDelay, without the
	// receiver's cooperation.
	LeafUnilateralRefundWithoutReceiver
)

// Params are the parameters that fully determine a VHTLC script tree and
// address, per spec 3.
type Params struct {
	// PreimageHash is ripemd160(sha256(preimage)), 20 bytes.
	PreimageHash [20]byte

	Sender   XOnlyKey
	Receiver XOnlyKey
	Server   XOnlyKey

	// RefundLocktime is an absolute CLTV height/timestamp; spec 9 flags
	// any hard-coded fallback (e.g. 80*600) as legacy — this value must
	// always come from the counterparty's response.
	RefundLocktime uint32

	// UnilateralClaimDelay, UnilateralRefundDelay and
	// UnilateralRefundWithoutReceiverDelay are relative delays, each
	// tagged blocks if < 512, else seconds (spec 3).
	UnilateralClaimDelay                  uint32
	UnilateralRefundDelay                 uint32
	UnilateralRefundWithoutReceiverDelay uint32
}

// Leaf bundles a constructed tapscript leaf with the raw script that
// produced it.
type Leaf struct {
	Kind   LeafKind
	Script []byte
	TapLeaf txscript.TapLeaf
}

// Tree is the fully assembled VHTLC output: the four leaves, their control
// blocks, the merkle root, and the unspendable internal key it was built
// from.
type Tree struct {
	Params Params

	InternalKey *btcec.PublicKey
	OutputKey   *btcec.PublicKey

	Leaves        [4]Leaf
	ControlBlocks [4][]byte

	MerkleRoot [32]byte
}

// leafScript builds the raw script for one of the four VHTLC leaves.
func leafScript(kind LeafKind, p Params) ([]byte, error) {
	sender, err := p.Sender.PublicKey()
	if err != nil {
		return nil, err
	}
	receiver, err := p.Receiver.PublicKey()
	if err != nil {
		return nil, err
	}
	server, err := p.Server.PublicKey()
	if err != nil {
		return nil, err
	}

	b := txscript.NewScriptBuilder()

	switch kind {
	case LeafClaim:
		// OP_HASH160 <preimage_hash> OP_EQUALVERIFY <receiver> OP_CHECKSIGVERIFY <server> OP_CHECKSIG
		b.AddOp(txscript.OP_HASH160)
		b.AddData(p.PreimageHash[:])
		b.AddOp(txscript.OP_EQUALVERIFY)
		b.AddData(schnorr.SerializePubKey(receiver))
		b.AddOp(txscript.OP_CHECKSIGVERIFY)
		b.AddData(schnorr.SerializePubKey(server))
		b.AddOp(txscript.OP_CHECKSIG)

	case LeafRefund:
		// <refund_locktime> OP_CLTV OP_DROP <sender> OP_CHECKSIGVERIFY <receiver> OP_CHECKSIGVERIFY <server> OP_CHECKSIG
		b.AddInt64(int64(p.RefundLocktime))
		b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
		b.AddOp(txscript.OP_DROP)
		b.AddData(schnorr.SerializePubKey(sender))
		b.AddOp(txscript.OP_CHECKSIGVERIFY)
		b.AddData(schnorr.SerializePubKey(receiver))
		b.AddOp(txscript.OP_CHECKSIGVERIFY)
		b.AddData(schnorr.SerializePubKey(server))
		b.AddOp(txscript.OP_CHECKSIG)

	case LeafUnilateralClaim:
		// <delay> OP_CSV OP_DROP <receiver> OP_CHECKSIG
		b.AddInt64(csvEncode(p.UnilateralClaimDelay))
		b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
		b.AddOp(txscript.OP_DROP)
		b.AddData(schnorr.SerializePubKey(receiver))
		b.AddOp(txscript.OP_CHECKSIG)

	case LeafUnilateralRefundWithoutReceiver:
		// <delay> OP_CSV OP_DROP <sender> OP_CHECKSIGVERIFY <server> OP_CHECKSIG
		b.AddInt64(csvEncode(p.UnilateralRefundWithoutReceiverDelay))
		b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
		b.AddOp(txscript.OP_DROP)
		b.AddData(schnorr.SerializePubKey(sender))
		b.AddOp(txscript.OP_CHECKSIGVERIFY)
		b.AddData(schnorr.SerializePubKey(server))
		b.AddOp(txscript.OP_CHECKSIG)

	default:
		return nil, &ScriptConstructionError{Reason: "unknown leaf kind"}
	}

	return b.Script()
}

// BuildTree constructs the VHTLC Taproot output for the given params:
// the four leaves, the unspendable internal key, the tweaked output key,
// and per-leaf control blocks. Calling this twice with identical params
// yields byte-identical results, since every step is a pure function of
// Params.
func BuildTree(p Params) (*Tree, error) {
	internalKey, err := UnspendableInternalKey(p.Server)
	if err != nil {
		return nil, err
	}

	kinds := [4]LeafKind{
		LeafClaim, LeafRefund, LeafUnilateralClaim,
		LeafUnilateralRefundWithoutReceiver,
	}

	leaves := make([]txscript.TapLeaf, 4)
	rawScripts := make([][]byte, 4)
	for i, kind := range kinds {
		script, err := leafScript(kind, p)
		if err != nil {
			return nil, err
		}
		rawScripts[i] = script
		leaves[i] = txscript.NewBaseTapLeaf(script)
	}

	scriptTree := txscript.AssembleTaprootScriptTree(leaves...)
	merkleRoot := scriptTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, merkleRoot[:])

	tree := &Tree{
		Params:      p,
		InternalKey: internalKey,
		OutputKey:   outputKey,
		MerkleRoot:  merkleRoot,
	}

	for i, kind := range kinds {
		ctrlBlock := scriptTree.LeafMerkleProofs[i].ToControlBlock(internalKey)
		ctrlBlockBytes, err := ctrlBlock.ToBytes()
		if err != nil {
			return nil, &ScriptConstructionError{
				Reason: "control block serialization: " + err.Error(),
			}
		}

		tree.Leaves[i] = Leaf{
			Kind:    kind,
			Script:  rawScripts[i],
			TapLeaf: leaves[i],
		}
		tree.ControlBlocks[i] = ctrlBlockBytes
	}

	return tree, nil
}

// Leaf returns the constructed leaf of the given kind.
func (t *Tree) Leaf(kind LeafKind) Leaf {
	return t.Leaves[kind]
}

// ControlBlock returns the control block proving inclusion of the given
// leaf within the tree, for use in script-path spends.
func (t *Tree) ControlBlock(kind LeafKind) []byte {
	return t.ControlBlocks[kind]
}

// PkScript returns the P2TR scriptPubKey (OP_1 <32-byte output key>) for
// this VHTLC output.
func (t *Tree) PkScript() ([]byte, error) {
	xOnly := schnorr.SerializePubKey(t.OutputKey)

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_1)
	b.AddData(xOnly)
	return b.Script()
}
