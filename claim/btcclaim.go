package claim

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
)

// BTCClaimRequest bundles everything BuildBTCClaim needs for the BTC-side
// claim of a chain ARK→BTC swap (spec 4.5.3).
type BTCClaimRequest struct {
	SwapID string

	RawLockupTxHex string
	EphemeralKey   *btcec.PrivateKey
	CounterpartyKey *btcec.PublicKey

	Preimage         [32]byte
	ToAddress        string
	FeeSatPerVByte   uint32

	Client *boltzrpc.Client
}

// BTCClaimResult is the outcome of a completed BTC-side claim.
type BTCClaimResult struct {
	Txid string
}

// BuildBTCClaim parses the raw lockup transaction, locates and verifies
// the swap output against the MuSig2-tweaked aggregate key, builds the
// claim transaction, runs the two-party MuSig2 ceremony with the
// counterparty, and broadcasts (spec 4.5.3 steps 1-5).
//
// Per spec 9, the BTC-side contract is the counterparty's opaque
// swap_tree: this never reconstructs an HTLC script locally, it only
// verifies the lockup output against the tweaked aggregate key.
func BuildBTCClaim(ctx context.Context, req BTCClaimRequest) (*BTCClaimResult, error) {
	lockupTx, err := decodeRawTx(req.RawLockupTxHex)
	if err != nil {
		return nil, &SwapTreeVerificationError{SwapID: req.SwapID, Reason: err.Error()}
	}

	session := NewSession(req.EphemeralKey, req.CounterpartyKey, nil)
	aggregateKey := session.ctxlessAggregateKey()

	vout, amount, err := findSwapOutput(lockupTx, aggregateKey)
	if err != nil {
		return nil, &SwapTreeVerificationError{SwapID: req.SwapID, Reason: err.Error()}
	}

	claimTx, err := buildBTCClaimTx(lockupTx.TxHash(), vout, amount, req.ToAddress, req.FeeSatPerVByte)
	if err != nil {
		return nil, err
	}

	fetcher := txscript.NewCannedPrevOutputFetcher(lockupTx.TxOut[vout].PkScript, amount)
	sigHashes := txscript.NewTxSigHashes(claimTx, fetcher)
	sigHashBytes, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, claimTx, 0, fetcher)
	if err != nil {
		return nil, fmt.Errorf("claim: calc btc claim sighash: %w", err)
	}
	var msgHash chainhash.Hash
	copy(msgHash[:], sigHashBytes)

	nonces, err := session.GenerateNonces()
	if err != nil {
		return nil, err
	}

	pubNonce := nonces.PubNonce
	claimTxHex, err := encodeRawTx(claimTx)
	if err != nil {
		return nil, err
	}

	remoteSig, remoteNonce, err := req.Client.RequestChainSwapClaimCosign(ctx, req.SwapID, req.Preimage, pubNonce, claimTxHex, 0)
	if err != nil {
		return nil, fmt.Errorf("claim: request counterparty cosign: %w", err)
	}

	if err := session.Init(remoteNonce); err != nil {
		return nil, err
	}
	localPartial, err := session.Sign(&msgHash)
	if err != nil {
		return nil, err
	}
	finalSig, err := session.CombineSignatures(remoteSig)
	if err != nil {
		return nil, err
	}
	_ = localPartial

	claimTx.TxIn[0].Witness = wire.TxWitness{finalSig.Serialize()}

	rawFinalHex, err := encodeRawTx(claimTx)
	if err != nil {
		return nil, err
	}

	txid, err := req.Client.BroadcastTransaction(ctx, rawFinalHex)
	if err != nil {
		return nil, fmt.Errorf("claim: broadcast btc claim: %w", err)
	}

	logger.Infof("btc claim broadcast for swap %s, txid %s", req.SwapID, txid)
	return &BTCClaimResult{Txid: txid}, nil
}

// ctxlessAggregateKey computes the plain (untweaked) MuSig2 aggregate of
// the session's two keys without requiring a full Init() call, for use
// before nonces are exchanged.
func (s *Session) ctxlessAggregateKey() *btcec.PublicKey {
	keys := []*btcec.PublicKey{s.localPub, s.remotePub}
	aggKey, _, _, err := musig2.AggregateKeys(keys, true)
	if err != nil {
		return nil
	}
	return aggKey.FinalKey
}

func findSwapOutput(tx *wire.MsgTx, aggregateKey *btcec.PublicKey) (uint32, int64, error) {
	if aggregateKey == nil {
		return 0, 0, fmt.Errorf("could not compute musig2 aggregate key")
	}

	wantScript, err := p2trScript(aggregateKey)
	if err != nil {
		return 0, 0, err
	}

	for i, out := range tx.TxOut {
		if bytes.Equal(out.PkScript, wantScript) {
			return uint32(i), out.Value, nil
		}
	}
	return 0, 0, fmt.Errorf("no output matches the musig2-tweaked aggregate key")
}

func p2trScript(key *btcec.PublicKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_1)
	b.AddData(key.SerializeCompressed()[1:])
	return b.Script()
}

func buildBTCClaimTx(lockupTxid chainhash.Hash, vout uint32, amount int64, toAddress string, feeSatPerVByte uint32) (*wire.MsgTx, error) {
	if feeSatPerVByte == 0 {
		feeSatPerVByte = 1
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: lockupTxid, Index: vout}})

	pkScript, err := destinationPkScript(toAddress)
	if err != nil {
		return nil, err
	}

	// A single-input single-output taproot key-path spend is ~111 vbytes;
	// estimate conservatively and adjust the output value downward.
	const estimatedVBytes = 111
	fee := int64(feeSatPerVByte) * estimatedVBytes
	value := amount - fee
	if value <= 0 {
		return nil, fmt.Errorf("claim: amount %d insufficient to cover fee %d", amount, fee)
	}

	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: pkScript})
	return tx, nil
}

func decodeRawTx(rawHex string) (*wire.MsgTx, error) {
	raw := hexDecode(rawHex)
	if raw == nil {
		return nil, fmt.Errorf("invalid hex")
	}
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserialize raw tx: %w", err)
	}
	return tx, nil
}

func encodeRawTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize tx: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
