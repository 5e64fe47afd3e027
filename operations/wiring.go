package operations

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/claim"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapfsm"
	"github.com/arkade-labs/go-ark-swap/swapmgr"
	"github.com/arkade-labs/go-ark-swap/swapstore"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
	"github.com/arkade-labs/go-ark-swap/wallet"
)

// NewService builds a Service with a Manager whose FSMs are wired to the
// real claim/refund builders in package claim, instead of the nil
// function fields a caller would otherwise have to supply by hand.
func NewService(
	repo swapstore.Repository,
	counterparty *boltzrpc.Client,
	w wallet.Wallet,
	indexer wallet.IndexerProvider,
	ark wallet.ArkProvider,
	network vhtlc.Network,
	chainClaimFeeRateSatPerVByte uint32,
	mgrCfg swapmgr.Config,
) *Service {
	s := &Service{
		Repo:                         repo,
		Counterparty:                 counterparty,
		Wallet:                       w,
		Indexer:                      indexer,
		Ark:                          ark,
		Network:                      network,
		ChainClaimFeeRateSatPerVByte: chainClaimFeeRateSatPerVByte,
	}

	mgrCfg.Repo = repo
	mgrCfg.Counterparty = counterparty
	mgrCfg.NewFSM = func(sw *swap.Swap) *swapfsm.FSM {
		return swapfsm.New(sw, swapfsm.Deps{
			Repo:             repo,
			Claim:            s.claimForSwap,
			Refund:           s.arkRefundForSwap,
			CooperativeClaim: s.cooperativeClaim,
			FetchPreimage: func(ctx context.Context, swapID string) (string, error) {
				return counterparty.GetReverseSwapPreimage(ctx, swapID)
			},
			FetchReverseTxid: func(ctx context.Context, swapID string) (string, error) {
				status, err := counterparty.GetSwapStatus(ctx, swapID)
				if err != nil {
					return "", err
				}
				return extractTxidFromPayload(status.Payload), nil
			},
		})
	}

	s.Manager = swapmgr.New(mgrCfg)
	return s
}

// claimForSwap dispatches to the Ark-side or BTC-side claim builder
// depending on which leg of the swap this wallet is claiming (spec 4.6:
// only reverse and chain swaps ever reach the claim path).
func (s *Service) claimForSwap(ctx context.Context, sw *swap.Swap) error {
	switch sw.Kind {
	case swap.KindReverse:
		return s.arkClaim(ctx, sw)
	case swap.KindChain:
		return s.btcClaim(ctx, sw)
	default:
		return fmt.Errorf("operations: no claim path for swap kind %s", sw.Kind)
	}
}

func (s *Service) arkClaim(ctx context.Context, sw *swap.Swap) error {
	if sw.Preimage == nil {
		return fmt.Errorf("operations: swap %s has no preimage for ark claim", sw.ID)
	}

	tree, err := treeFromResponse(vhtlc.XOnlyKey{}, sw.Response)
	if err != nil {
		return err
	}
	serverKey, err := vhtlc.NormalizeKeyForSwap("server", sw.ID, sw.Response.LockupScript.ServerKey[:])
	if err != nil {
		return err
	}
	destAddr, err := s.Wallet.GetAddress(ctx)
	if err != nil {
		return err
	}
	pkScript, err := tree.PkScript()
	if err != nil {
		return err
	}

	_, err = claim.BuildArkClaim(ctx, claim.ArkClaimRequest{
		SwapID:             sw.ID,
		Tree:               tree,
		LockupScript:       fmt.Sprintf("%x", pkScript),
		Preimage:           *sw.Preimage,
		ServerKey:          serverKey,
		Wallet:             s.Wallet,
		Indexer:            s.Indexer,
		Ark:                s.Ark,
		DestinationAddress: destAddr,
	})
	return err
}

func (s *Service) btcClaim(ctx context.Context, sw *swap.Swap) error {
	if sw.EphemeralKey == nil {
		return fmt.Errorf("operations: swap %s has no ephemeral key for btc claim", sw.ID)
	}
	if sw.Preimage == nil {
		return fmt.Errorf("operations: swap %s has no preimage for btc claim", sw.ID)
	}

	details, err := s.Counterparty.GetChainSwapClaimDetails(ctx, sw.ID)
	if err != nil {
		return fmt.Errorf("operations: fetch btc claim details: %w", err)
	}
	counterpartyKey, err := btcec.ParsePubKey(details.PublicKey)
	if err != nil {
		return fmt.Errorf("operations: parse counterparty claim key: %w", err)
	}

	_, err = claim.BuildBTCClaim(ctx, claim.BTCClaimRequest{
		SwapID:          sw.ID,
		RawLockupTxHex:  details.TransactionHex,
		EphemeralKey:    sw.EphemeralKey,
		CounterpartyKey: counterpartyKey,
		Preimage:        *sw.Preimage,
		ToAddress:       sw.ToAddress,
		FeeSatPerVByte:  s.ChainClaimFeeRateSatPerVByte,
		Client:          s.Counterparty,
	})
	return err
}

// arkRefundForSwap runs the cooperative Ark-side refund for a submarine
// swap, sending recovered value back to the wallet's own Ark address.
func (s *Service) arkRefundForSwap(ctx context.Context, sw *swap.Swap) error {
	tree, err := treeFromResponse(vhtlc.XOnlyKey{}, sw.Response)
	if err != nil {
		return err
	}
	refundAddr, err := s.Wallet.GetAddress(ctx)
	if err != nil {
		return err
	}
	_, err = s.RefundSubmarine(ctx, sw, tree, refundAddr)
	return err
}

// cooperativeClaim acts as the MuSig2 partner for the counterparty's own
// BTC-side claim of a chain BTC→ARK swap (spec 4.5.4): fetch the claim
// details, verify the lockup output against the MuSig2-aggregate key, and
// return a partial signature. Non-fatal to the swap's overall resolution.
func (s *Service) cooperativeClaim(ctx context.Context, sw *swap.Swap, _ []byte) error {
	if sw.EphemeralKey == nil {
		return fmt.Errorf("operations: swap %s has no ephemeral key for cooperative claim", sw.ID)
	}

	details, err := s.Counterparty.GetChainSwapClaimDetails(ctx, sw.ID)
	if err != nil {
		return fmt.Errorf("operations: fetch cooperative claim details: %w", err)
	}
	counterpartyKey, err := btcec.ParsePubKey(details.PublicKey)
	if err != nil {
		return fmt.Errorf("operations: parse counterparty claim key: %w", err)
	}

	claimTx, err := decodeChainClaimTx(details.TransactionHex)
	if err != nil {
		return fmt.Errorf("operations: decode cooperative claim tx: %w", err)
	}

	prevOutScript, err := aggregateP2TRScript(sw.EphemeralKey.PubKey(), counterpartyKey)
	if err != nil {
		return err
	}
	prevOutValue := int64(sw.Response.ExpectedAmountSats)

	fetcher := txscript.NewCannedPrevOutputFetcher(prevOutScript, prevOutValue)
	sigHashes := txscript.NewTxSigHashes(claimTx, fetcher)
	sigHashBytes, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, claimTx, 0, fetcher)
	if err != nil {
		return fmt.Errorf("operations: calc cooperative claim sighash: %w", err)
	}
	var msgHash chainhash.Hash
	copy(msgHash[:], sigHashBytes)

	var pubNonce [musig2.PubNonceSize]byte
	copy(pubNonce[:], details.PubNonce)

	result, err := claim.SignCooperativeClaim(ctx, claim.CooperativeClaimSignRequest{
		SwapID:               sw.ID,
		LocalKey:             sw.EphemeralKey,
		CounterpartyKey:      counterpartyKey,
		PrevOutPkScript:      prevOutScript,
		PrevOutValue:         prevOutValue,
		UnsignedTx:           sigHashes,
		RawTx:                claimTx,
		CounterpartyPubNonce: pubNonce,
	}, &msgHash)
	if err != nil {
		return err
	}

	var sigBuf bytes.Buffer
	if err := result.PartialSignature.Encode(&sigBuf); err != nil {
		return fmt.Errorf("operations: encode partial signature: %w", err)
	}

	return s.Counterparty.PostChainSwapClaimSignature(ctx, sw.ID, result.PubNonce[:], sigBuf.Bytes())
}
