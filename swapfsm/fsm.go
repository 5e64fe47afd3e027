// Package swapfsm implements the Swap State Machine (spec 4.6): one
// instance per swap, driven by the Counterparty Client's status stream,
// dispatching claim/refund actions and persisting every transition.
package swapfsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"

	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapstore"
)

var logger = log.NewSubLogger("SWFS")

// ClaimFunc runs the Ark-side or BTC-side claim appropriate for s's kind
// and current status; it is supplied by the caller so this package never
// imports the claim package's wallet/indexer/counterparty plumbing
// directly.
type ClaimFunc func(ctx context.Context, s *swap.Swap) error

// RefundFunc runs the refund path for s.
type RefundFunc func(ctx context.Context, s *swap.Swap) error

// CooperativeClaimFunc runs the best-effort cooperative BTC-side claim
// signer for chain BTC→ARK swaps (spec 4.5.4).
type CooperativeClaimFunc func(ctx context.Context, s *swap.Swap, payload []byte) error

// Outcome is delivered on a swap's Result channel when its state machine
// reaches a terminal resolution.
type Outcome struct {
	Swap    *swap.Swap
	Txid    string
	Preimage *[32]byte
	Err     error
	// Refundable mirrors the lifecycle error taxonomy (spec 7): callers
	// may invoke the refund path when true.
	Refundable bool
}

// FSM drives one swap through its lifecycle.
type FSM struct {
	mu   sync.Mutex
	swap *swap.Swap

	repo swapstore.Repository

	claim             ClaimFunc
	refund            RefundFunc
	cooperativeClaim  CooperativeClaimFunc
	fetchPreimage     func(ctx context.Context, swapID string) (string, error)
	fetchReverseTxid  func(ctx context.Context, swapID string) (string, error)

	cooperativeClaimStarted bool

	result chan Outcome
}

// Deps bundles an FSM's collaborators.
type Deps struct {
	Repo             swapstore.Repository
	Claim            ClaimFunc
	Refund           RefundFunc
	CooperativeClaim CooperativeClaimFunc
	FetchPreimage    func(ctx context.Context, swapID string) (string, error)
	FetchReverseTxid func(ctx context.Context, swapID string) (string, error)
}

// New builds an FSM for the given swap.
func New(s *swap.Swap, deps Deps) *FSM {
	return &FSM{
		swap:             s,
		repo:             deps.Repo,
		claim:            deps.Claim,
		refund:           deps.Refund,
		cooperativeClaim: deps.CooperativeClaim,
		fetchPreimage:    deps.FetchPreimage,
		fetchReverseTxid: deps.FetchReverseTxid,
		result:           make(chan Outcome, 1),
	}
}

// Result returns the channel the swap's terminal Outcome is delivered on.
func (f *FSM) Result() <-chan Outcome { return f.result }

// Swap returns a copy of the FSM's current swap record.
func (f *FSM) Swap() swap.Swap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.swap
}

// HandleUpdate processes one status update from the counterparty's
// subscription (spec 4.6's trigger table). Updates for a single swap must
// be delivered to HandleUpdate in arrival order; HandleUpdate itself
// serialises against concurrent callers via its internal lock, matching
// the "one task per swap id" resource model (spec 5).
func (f *FSM) HandleUpdate(ctx context.Context, status swap.Status, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.swap
	s.Status = status

	switch {
	case s.Kind == swap.KindReverse && (status == swap.StatusTransactionMempool || status == swap.StatusTransactionConfirmed):
		f.persist(ctx)
		if status == swap.StatusTransactionConfirmed {
			f.startClaimOnce(ctx)
		}

	case s.Kind == swap.KindChain && (status == swap.StatusTransactionServerMempool || status == swap.StatusTransactionServerConfirmed):
		f.persist(ctx)
		f.startClaimOnce(ctx)

	case s.Kind == swap.KindReverse && status == swap.StatusInvoiceSettled:
		f.handleInvoiceSettled(ctx)

	case s.Kind == swap.KindChain && status == swap.StatusTransactionClaimPending:
		f.startCooperativeClaimOnce(ctx, payload)
		f.resolve(Outcome{Swap: s})

	case s.Kind == swap.KindSubmarine && status == swap.StatusTransactionClaimed:
		f.handleSubmarineClaimed(ctx)

	case s.Kind == swap.KindChain && status == swap.StatusTransactionClaimed:
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Txid: extractTxid(payload)})

	case status == swap.StatusInvoiceExpired:
		s.Refundable = true
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Err: swap.NewInvoiceExpired(s.ID), Refundable: true})

	case s.Kind == swap.KindSubmarine && status == swap.StatusInvoiceFailedToPay:
		s.Refundable = true
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Err: swap.NewInvoiceFailedToPay(s.ID), Refundable: true})

	case status == swap.StatusTransactionLockupFailed:
		f.persist(ctx)

	case status == swap.StatusSwapExpired:
		s.Refundable = true
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Err: swap.NewSwapExpired(s.ID), Refundable: true})

	case status == swap.StatusTransactionFailed:
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Err: swap.NewTransactionFailed(s.ID)})

	case status == swap.StatusTransactionRefunded:
		s.Refunded = true
		f.persist(ctx)
		f.resolve(Outcome{Swap: s, Err: swap.NewTransactionRefunded(s.ID)})

	default:
		if logger.Level() <= btclog.LevelTrace {
			logger.Tracef("unhandled status %s for swap %s: %s", status, s.ID, spew.Sdump(s))
		}
		f.persist(ctx)
	}
}

func (f *FSM) handleInvoiceSettled(ctx context.Context) {
	s := f.swap
	txid, err := f.fetchReverseTxid(ctx, s.ID)
	if err != nil {
		f.resolve(Outcome{Swap: s, Err: err})
		return
	}
	if txid == "" {
		f.resolve(Outcome{Swap: s, Err: &swap.SwapSettlementMissingTxidError{SwapID: s.ID}})
		return
	}
	f.persist(ctx)
	f.resolve(Outcome{Swap: s, Txid: txid})
}

func (f *FSM) handleSubmarineClaimed(ctx context.Context) {
	s := f.swap
	preimageHex, err := f.fetchPreimage(ctx, s.ID)
	if err != nil {
		f.resolve(Outcome{Swap: s, Err: err})
		return
	}
	preimage := decodePreimage(preimageHex)
	s.Preimage = preimage
	f.persist(ctx)
	f.resolve(Outcome{Swap: s, Preimage: preimage})
}

// startClaimOnce enforces the single-shot claim guarantee (spec 4.6):
// ClaimStarted is checked and set under the FSM's lock, never inferred
// from status equality alone, since the counterparty may repeat a
// status.
func (f *FSM) startClaimOnce(ctx context.Context) {
	s := f.swap
	if s.ClaimStarted {
		return
	}
	if f.claim == nil {
		logger.Errorf("swap %s has no claim function wired, skipping claim", s.ID)
		return
	}
	s.ClaimStarted = true
	f.persist(ctx)

	go func() {
		if err := f.claim(ctx, s); err != nil {
			logger.Errorf("claim failed for swap %s: %v", s.ID, err)
		}
	}()
}

func (f *FSM) startCooperativeClaimOnce(ctx context.Context, payload []byte) {
	if f.cooperativeClaim == nil || f.cooperativeClaimStarted {
		return
	}
	f.cooperativeClaimStarted = true
	go func() {
		if err := f.cooperativeClaim(ctx, f.swap, payload); err != nil {
			logger.Warnf("cooperative claim signer failed for swap %s (non-fatal): %v", f.swap.ID, err)
		}
	}()
}

// Refund runs the refund builder exactly once, guarded the same way as
// startClaimOnce.
func (f *FSM) Refund(ctx context.Context) error {
	f.mu.Lock()
	s := f.swap
	if s.RefundStarted {
		f.mu.Unlock()
		return nil
	}
	if f.refund == nil {
		f.mu.Unlock()
		return fmt.Errorf("swapfsm: no refund function wired for swap %s", s.ID)
	}
	s.RefundStarted = true
	f.persist(ctx)
	f.mu.Unlock()

	return f.refund(ctx, s)
}

func (f *FSM) persist(ctx context.Context) {
	if err := f.repo.Save(ctx, f.swap); err != nil {
		logger.Errorf("persist swap %s: %v", f.swap.ID, err)
	}
}

func (f *FSM) resolve(o Outcome) {
	select {
	case f.result <- o:
	default:
	}
}

