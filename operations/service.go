// Package operations implements the public operations facade (spec 6.1):
// the caller-facing entry points every other component sits behind.
// Each swap-creating operation creates a swap via the Counterparty
// Client, persists a pending record, arranges funding, then hands the swap
// to the Swap Manager. CreateLightningInvoice, SendLightningPayment and
// ArkToBtc first check the returned lockup address against a locally
// reconstructed VHTLC script; BtcToArk does not check its lockup address.
package operations

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/claim"
	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapmgr"
	"github.com/arkade-labs/go-ark-swap/swapstore"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
	"github.com/arkade-labs/go-ark-swap/wallet"
)

var logger = log.NewSubLogger("OPRS")

// Service is the public operations facade. It owns no state of its own
// beyond its collaborators: every swap's state lives in Repo and Manager.
type Service struct {
	Repo         swapstore.Repository
	Counterparty *boltzrpc.Client
	Manager      *swapmgr.Manager
	Wallet       wallet.Wallet
	Indexer      wallet.IndexerProvider
	Ark          wallet.ArkProvider
	Network      vhtlc.Network

	// ChainClaimFeeRateSatPerVByte is the default fee rate for BTC-side
	// chain-swap claims (config.Config.ChainClaimFeeRateSatPerVByte).
	ChainClaimFeeRateSatPerVByte uint32
}

// ReceiveLightningResult is the return value of CreateLightningInvoice.
type ReceiveLightningResult struct {
	Invoice     string
	PaymentHash [20]byte
	Preimage    [32]byte
	AmountSats  uint64
	Expiry      uint32
	PendingSwap *swap.Swap
}

// CreateLightningInvoice runs the receive-from-Lightning flow: generate a
// preimage, request a reverse swap, validate the lockup address, persist,
// and register with the Swap Manager (spec 2, 6.1).
func (s *Service) CreateLightningInvoice(ctx context.Context, amountSats uint64, description string) (*ReceiveLightningResult, error) {
	if amountSats == 0 {
		return nil, &swap.InvalidAmountError{}
	}

	var preimage [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return nil, fmt.Errorf("operations: generate preimage: %w", err)
	}
	preimageHash := hash160(preimage[:])

	claimKey, err := s.Wallet.XOnlyPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("operations: wallet claim key: %w", err)
	}

	req := swap.Request{
		Kind:           swap.KindReverse,
		AmountSats:     amountSats,
		PreimageHash:   preimageHash,
		ClaimPublicKey: claimKey,
	}

	resp, err := s.Counterparty.CreateReverseSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	tree, err := treeFromResponse(claimKey, resp)
	if err != nil {
		return nil, err
	}
	if err := validateLockupAddress(resp.LockupAddress, "", tree, s.Network); err != nil {
		return nil, err
	}

	sw := &swap.Swap{
		ID:       resp.ID,
		Kind:     swap.KindReverse,
		Status:   swap.KindReverse.InitialStatus(),
		Preimage: &preimage,
		Request:  req,
		Response: resp,
	}
	if err := s.Repo.Save(ctx, sw); err != nil {
		return nil, err
	}
	s.Manager.AddSwap(ctx, sw)

	return &ReceiveLightningResult{
		Invoice:     resp.Invoice,
		PaymentHash: preimageHash,
		Preimage:    preimage,
		AmountSats:  resp.ExpectedAmountSats,
		PendingSwap: sw,
	}, nil
}

// SendLightningPaymentResult is the return value of SendLightningPayment.
type SendLightningPaymentResult struct {
	AmountSats uint64
	Preimage   [32]byte
	Txid       string
}

// SendLightningPayment runs the send-to-Lightning flow: request a
// submarine swap for invoice, fund the lockup from the wallet, and wait
// for the Swap State Machine to resolve with the revealed preimage (spec
// 2, 6.1, scenario 2).
func (s *Service) SendLightningPayment(ctx context.Context, invoice string, maxFeeSats uint64) (*SendLightningPaymentResult, error) {
	refundKey, err := s.Wallet.XOnlyPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("operations: wallet refund key: %w", err)
	}

	req := swap.Request{
		Kind:            swap.KindSubmarine,
		Invoice:         invoice,
		RefundPublicKey: refundKey,
	}

	resp, err := s.Counterparty.CreateSubmarineSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	tree, err := treeFromResponse(refundKey, resp)
	if err != nil {
		return nil, err
	}
	if err := validateLockupAddress(resp.LockupAddress, "", tree, s.Network); err != nil {
		return nil, err
	}

	sw := &swap.Swap{
		ID:       resp.ID,
		Kind:     swap.KindSubmarine,
		Status:   swap.KindSubmarine.InitialStatus(),
		Request:  req,
		Response: resp,
	}
	if err := s.Repo.Save(ctx, sw); err != nil {
		return nil, err
	}

	if _, err := s.Wallet.SendBitcoin(ctx, wallet.SendBitcoinRequest{
		Address: resp.LockupAddress,
		Amount:  resp.ExpectedAmountSats,
	}); err != nil {
		return nil, fmt.Errorf("operations: fund lockup: %w", err)
	}

	s.Manager.AddSwap(ctx, sw)

	outcome, err := s.Manager.WaitForSwapCompletion(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	if outcome.Preimage == nil {
		return nil, fmt.Errorf("operations: submarine swap %s resolved without a preimage", sw.ID)
	}

	return &SendLightningPaymentResult{
		AmountSats: resp.ExpectedAmountSats,
		Preimage:   *outcome.Preimage,
		Txid:       outcome.Txid,
	}, nil
}

// ArkToBtc runs the chain Ark→BTC swap flow: request a chain swap, fund
// the Ark-side lockup, and wait for a terminal outcome (spec 2, 6.1).
func (s *Service) ArkToBtc(ctx context.Context, toAddress string, amountSats uint64, feeSatPerVByte uint32) (*swap.Swap, error) {
	if toAddress == "" {
		return nil, &swap.InvalidBTCAddressError{Address: toAddress}
	}
	if amountSats == 0 {
		return nil, &swap.InvalidAmountError{}
	}

	refundKey, err := s.Wallet.XOnlyPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("operations: wallet refund key: %w", err)
	}

	req := swap.Request{
		Kind:            swap.KindChain,
		AmountSats:      amountSats,
		RefundPublicKey: refundKey,
		ToAddress:       toAddress,
	}

	resp, err := s.Counterparty.CreateChainSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	tree, err := treeFromResponse(refundKey, resp)
	if err != nil {
		return nil, err
	}
	if err := validateLockupAddress(resp.LockupAddress, "", tree, s.Network); err != nil {
		return nil, err
	}

	sw := &swap.Swap{
		ID:        resp.ID,
		Kind:      swap.KindChain,
		Status:    swap.KindChain.InitialStatus(),
		Request:   req,
		Response:  resp,
		ToAddress: toAddress,
	}
	if err := s.Repo.Save(ctx, sw); err != nil {
		return nil, err
	}

	if _, err := s.Wallet.SendBitcoin(ctx, wallet.SendBitcoinRequest{
		Address: resp.LockupAddress,
		Amount:  amountSats,
	}); err != nil {
		return nil, fmt.Errorf("operations: fund lockup: %w", err)
	}

	s.Manager.AddSwap(ctx, sw)

	outcome, err := s.Manager.WaitForSwapCompletion(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return outcome.Swap, outcome.Err
	}
	return outcome.Swap, nil
}

// BtcToArk runs the chain BTC→ARK swap flow: request a chain swap using a
// fresh ephemeral key for the BTC-side contract, invoke onAddressGenerated
// with the lockup address so the caller can fund it externally, and wait
// for a terminal outcome.
func (s *Service) BtcToArk(ctx context.Context, toAddress string, amountSats uint64, feeSatPerVByte uint32, onAddressGenerated func(address string)) (*swap.Swap, error) {
	hrp, _, err := vhtlc.DecodeAddress(toAddress)
	if err != nil || (hrp != "ark" && hrp != "tark") {
		return nil, &swap.InvalidArkAddressError{Address: toAddress}
	}
	if amountSats == 0 {
		return nil, &swap.InvalidAmountError{}
	}

	ephemeral, err := newEphemeralKey()
	if err != nil {
		return nil, fmt.Errorf("operations: generate ephemeral key: %w", err)
	}

	req := swap.Request{
		Kind:           swap.KindChain,
		AmountSats:     amountSats,
		ClaimPublicKey: xOnlyFromPrivate(ephemeral),
		ToAddress:      toAddress,
	}

	resp, err := s.Counterparty.CreateChainSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	sw := &swap.Swap{
		ID:           resp.ID,
		Kind:         swap.KindChain,
		Status:       swap.KindChain.InitialStatus(),
		Request:      req,
		Response:     resp,
		ToAddress:    toAddress,
		EphemeralKey: ephemeral,
	}
	if err := s.Repo.Save(ctx, sw); err != nil {
		return nil, err
	}

	if onAddressGenerated != nil {
		onAddressGenerated(resp.LockupAddress)
	}

	s.Manager.AddSwap(ctx, sw)

	outcome, err := s.Manager.WaitForSwapCompletion(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return outcome.Swap, outcome.Err
	}
	return outcome.Swap, nil
}

// GetSwapStatus fetches the counterparty's currently-reported status for
// id, independent of local cache.
func (s *Service) GetSwapStatus(ctx context.Context, id string) (boltzrpc.SwapStatus, error) {
	return s.Counterparty.GetSwapStatus(ctx, id)
}

// GetFees fetches the counterparty's current fee schedule.
func (s *Service) GetFees(ctx context.Context) (boltzrpc.Fees, error) {
	return s.Counterparty.GetFees(ctx)
}

// GetLimits fetches the counterparty's current swap amount limits.
func (s *Service) GetLimits(ctx context.Context) (boltzrpc.Limits, error) {
	return s.Counterparty.GetLimits(ctx)
}

// GetPendingReverseSwaps returns every stored reverse swap still in its
// initial status.
func (s *Service) GetPendingReverseSwaps(ctx context.Context) ([]*swap.Swap, error) {
	return s.pendingByKind(ctx, swap.KindReverse)
}

// GetPendingSubmarineSwaps returns every stored submarine swap still in
// its initial status.
func (s *Service) GetPendingSubmarineSwaps(ctx context.Context) ([]*swap.Swap, error) {
	return s.pendingByKind(ctx, swap.KindSubmarine)
}

// GetPendingChainSwaps returns every stored chain swap still in its
// initial status.
func (s *Service) GetPendingChainSwaps(ctx context.Context) ([]*swap.Swap, error) {
	return s.pendingByKind(ctx, swap.KindChain)
}

func (s *Service) pendingByKind(ctx context.Context, kind swap.Kind) ([]*swap.Swap, error) {
	all, err := s.Repo.GetAll(ctx, swapstore.Filter{Kinds: []swap.Kind{kind}})
	if err != nil {
		return nil, err
	}
	out := make([]*swap.Swap, 0, len(all))
	for _, sw := range all {
		if sw.Status == kind.InitialStatus() {
			out = append(out, sw)
		}
	}
	return out, nil
}

// GetSwapHistory returns every stored swap ordered by createdAt
// descending.
func (s *Service) GetSwapHistory(ctx context.Context) ([]*swap.Swap, error) {
	return s.Repo.GetAll(ctx, swapstore.Filter{OrderBy: swapstore.OrderDesc})
}

// RefreshSwapsStatus fetches every non-terminal stored swap's status from
// the counterparty and registers with the Manager each swap it does not
// already monitor. The fetched status itself is discarded; transitions
// come from the Manager's subscriptions. Individual fetch failures are
// logged and skipped:
// this is explicitly best-effort (spec 6.1). Swaps are polled concurrently
// since each status fetch is an independent round trip to the counterparty.
func (s *Service) RefreshSwapsStatus(ctx context.Context) {
	pending, err := s.Repo.GetAll(ctx, swapstore.Filter{})
	if err != nil {
		logger.Warnf("refresh: load swaps: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sw := range pending {
		if sw.IsTerminal() {
			continue
		}
		sw := sw
		g.Go(func() error {
			if _, err := s.Counterparty.GetSwapStatus(gctx, sw.ID); err != nil {
				logger.Warnf("refresh: status for swap %s: %v", sw.ID, err)
				return nil
			}
			// The Manager's own subscription applies the actual transition;
			// this call only surfaces fetch errors early and registers
			// swaps the Manager doesn't already know about.
			if !s.Manager.HasSwap(sw.ID) {
				s.Manager.AddSwap(ctx, sw)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// RefundSubmarine triggers the refund path for a refundable submarine
// swap via the Ark-side cooperative refund builder.
func (s *Service) RefundSubmarine(ctx context.Context, sw *swap.Swap, tree *vhtlc.Tree, refundAddress string) (*claim.ArkRefundResult, error) {
	senderKey, err := vhtlc.NormalizeKeyForSwap("sender", sw.ID, sw.Request.RefundPublicKey[:])
	if err != nil {
		return nil, err
	}
	receiverKey, err := vhtlc.NormalizeKeyForSwap("receiver", sw.ID, sw.Response.LockupScript.ReceiverKey[:])
	if err != nil {
		return nil, err
	}
	serverKey, err := vhtlc.NormalizeKeyForSwap("server", sw.ID, sw.Response.LockupScript.ServerKey[:])
	if err != nil {
		return nil, err
	}
	pkScript, err := tree.PkScript()
	if err != nil {
		return nil, err
	}

	return claim.BuildArkRefund(ctx, claim.ArkRefundRequest{
		SwapID:        sw.ID,
		Tree:          tree,
		LockupScript:  fmt.Sprintf("%x", pkScript),
		SenderKey:     senderKey,
		ReceiverKey:   receiverKey,
		ServerKey:     serverKey,
		Wallet:        s.Wallet,
		Indexer:       s.Indexer,
		Ark:           s.Ark,
		Counterparty:  s.Counterparty,
		RefundAddress: refundAddress,
	})
}
