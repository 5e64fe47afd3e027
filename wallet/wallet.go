// Package wallet declares the external collaborator interfaces the core
// depends on but never implements: the Bitcoin/Ark key-holding wallet, and
// the Ark/indexer providers some flows fall back to (spec 6.2). This
// package is contracts only; concrete implementations are out of scope.
package wallet

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/arkade-labs/go-ark-swap/vhtlc"
)

// SendBitcoinRequest is the input to Wallet.SendBitcoin.
type SendBitcoinRequest struct {
	Address string
	Amount  uint64
}

// SignerSession is a fresh MuSig2-like session handed out per use. The
// wallet's underlying factory may be a value or a zero-arg function;
// Wallet.SignerSession normalises both behind this interface so callers
// never cache a session across swap boundaries (spec 9).
type SignerSession interface {
	// PublicKey returns this session's signing public key.
	PublicKey() (*btcec.PublicKey, error)
	// Nonces generates this session's public nonces for the given
	// number of inputs.
	Nonces(ctx context.Context, numInputs int) ([][66]byte, error)
	// Sign produces this session's partial signatures given the other
	// participants' nonces.
	Sign(ctx context.Context, peerNonces [][66]byte) ([][]byte, error)
}

// Wallet is the Bitcoin/Ark key-holding collaborator every swap operation
// is built on top of.
type Wallet interface {
	// GetAddress returns the wallet's receive address on the Ark
	// network.
	GetAddress(ctx context.Context) (string, error)

	// CompressedPublicKey returns the wallet's identity key in 33-byte
	// compressed SEC1 form.
	CompressedPublicKey(ctx context.Context) (*btcec.PublicKey, error)

	// XOnlyPublicKey returns the wallet's identity key already coerced
	// to 32-byte x-only form.
	XOnlyPublicKey(ctx context.Context) (vhtlc.XOnlyKey, error)

	// Sign adds the wallet's signatures to the given inputs of tx (or
	// every input if inputIndexes is nil). Must be reentrant or
	// internally serialised: callers may issue concurrent requests
	// against the same wallet (spec 5).
	Sign(ctx context.Context, tx *psbt.Packet, inputIndexes []int) error

	// SendBitcoin pays req.Amount from the wallet's own funds to
	// req.Address; the operations facade uses it to fund a swap's
	// lockup address.
	SendBitcoin(ctx context.Context, req SendBitcoinRequest) (txid string, err error)

	// SignerSession returns a fresh MuSig2 session for Ark's batch
	// cosigner protocol.
	SignerSession(ctx context.Context) (SignerSession, error)
}

// ArkProvider is the fallback Ark server RPC collaborator used when one
// isn't supplied directly in config (spec 6.2).
type ArkProvider interface {
	// SubmitTx submits a signed ark transaction plus its checkpoint
	// transactions and returns the server's co-signed versions.
	SubmitTx(ctx context.Context, arkTx string, checkpoints []string) (finalArkTx string, signedCheckpoints []string, err error)

	// FinalizeTx finalises a claim or refund after checkpoint
	// signatures have been exchanged.
	FinalizeTx(ctx context.Context, arkTxid string, signedCheckpoints []string) error
}

// IndexerProvider is the fallback Ark indexer collaborator used to look up
// spendable VTXOs by script (spec 6.2, 4.5.1).
type IndexerProvider interface {
	// VTXOByScript returns the spendable VTXO locked at the given
	// scriptHex, or ErrNoSpendableVirtualCoins if none exists.
	VTXOByScript(ctx context.Context, scriptHex string) (*VTXO, error)
}

// VTXO is the subset of indexer-reported virtual UTXO fields the Claim/
// Refund Builder needs.
type VTXO struct {
	Txid       string
	VOut       uint32
	Amount     uint64
	ScriptHex  string
}

// ErrNoSpendableVirtualCoins is returned by IndexerProvider.VTXOByScript
// when the lockup script has no spendable output, per spec 4.5.1.
type ErrNoSpendableVirtualCoins struct {
	ScriptHex string
}

func (e *ErrNoSpendableVirtualCoins) Error() string {
	return "wallet: no spendable virtual coins at script " + e.ScriptHex
}
