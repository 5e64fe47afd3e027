package claim

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// CooperativeClaimSignRequest bundles the parameters needed to act as the
// MuSig2 partner for the counterparty's own BTC-side claim, for a chain
// BTC→ARK swap (spec 4.5.4).
type CooperativeClaimSignRequest struct {
	SwapID string

	LocalKey        *btcec.PrivateKey
	CounterpartyKey *btcec.PublicKey

	// SwapTreeMerkleRoot is the BTC-side swap tree's merkle root, used
	// to derive the same taproot tweak the counterparty's claim output
	// commits to.
	SwapTreeMerkleRoot []byte

	PrevOutPkScript []byte
	PrevOutValue    int64
	UnsignedTx      *txscript.TxSigHashes
	RawTx           RawTxLike

	CounterpartyPubNonce [musig2.PubNonceSize]byte
}

// RawTxLike is the minimal subset of *wire.MsgTx the cooperative signer
// needs; kept as an interface so callers don't need to import wire here
// just to satisfy this request shape.
type RawTxLike interface {
	TxHash() chainhash.Hash
}

// CooperativeClaimSignResult carries this party's nonce and partial
// signature back to the counterparty.
type CooperativeClaimSignResult struct {
	PubNonce        [musig2.PubNonceSize]byte
	PartialSignature *musig2.PartialSignature
}

// SignCooperativeClaim runs the MuSig2 partner role for the
// counterparty's BTC-side claim: derive the tweak from the swap tree,
// generate a nonce, aggregate with the counterparty's nonce, and return a
// partial signature. Failure here is non-fatal per spec 4.5.4 — the
// counterparty can batch-sweep later if this does not succeed.
func SignCooperativeClaim(ctx context.Context, req CooperativeClaimSignRequest, msgHash *chainhash.Hash) (*CooperativeClaimSignResult, error) {
	session := NewSession(req.LocalKey, req.CounterpartyKey, req.SwapTreeMerkleRoot)

	if _, err := session.GenerateNonces(); err != nil {
		return nil, fmt.Errorf("claim: cooperative claim nonce generation: %w", err)
	}

	if err := session.Init(req.CounterpartyPubNonce); err != nil {
		return nil, fmt.Errorf("claim: cooperative claim session init: %w", err)
	}

	partial, err := session.Sign(msgHash)
	if err != nil {
		return nil, fmt.Errorf("claim: cooperative claim signing: %w", err)
	}

	return &CooperativeClaimSignResult{
		PubNonce:         session.PubNonce(),
		PartialSignature: partial,
	}, nil
}
