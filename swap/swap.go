// Package swap defines the domain types shared by every component that
// stores, transmits, or acts on a swap record: the Swap aggregate itself,
// its Kind and Status vocabularies, and the request/response payloads
// exchanged with the counterparty.
package swap

import (
	"github.com/btcsuite/btcd/btcec/v2"
)

// Kind tags which of the three swap variants a Swap is.
type Kind string

const (
	KindReverse   Kind = "reverse"
	KindSubmarine Kind = "submarine"
	KindChain     Kind = "chain"
)

// Status is one of the Boltz lifecycle values a swap can be in. The zero
// value is never valid; every Swap is constructed with its variant's
// initial status.
type Status string

const (
	StatusSwapCreated  Status = "swap.created"
	StatusInvoiceSet   Status = "invoice.set"

	StatusTransactionMempool           Status = "transaction.mempool"
	StatusTransactionConfirmed         Status = "transaction.confirmed"
	StatusTransactionServerMempool     Status = "transaction.server.mempool"
	StatusTransactionServerConfirmed   Status = "transaction.server.confirmed"
	StatusTransactionClaimPending      Status = "transaction.claim.pending"
	StatusTransactionClaimed           Status = "transaction.claimed"
	StatusTransactionLockupFailed      Status = "transaction.lockupFailed"
	StatusTransactionFailed            Status = "transaction.failed"
	StatusTransactionRefunded          Status = "transaction.refunded"

	StatusInvoiceSettled     Status = "invoice.settled"
	StatusInvoiceExpired     Status = "invoice.expired"
	StatusInvoiceFailedToPay Status = "invoice.failedToPay"

	StatusSwapExpired Status = "swap.expired"
)

// InitialStatus returns the status a freshly created swap of this kind
// starts in (spec 3).
func (k Kind) InitialStatus() Status {
	switch k {
	case KindReverse:
		return StatusSwapCreated
	case KindSubmarine:
		return StatusInvoiceSet
	case KindChain:
		return StatusSwapCreated
	default:
		return ""
	}
}

// terminalStatuses lists, per kind, the statuses after which a swap is
// never reopened or re-monitored (spec 6.3, 7).
var terminalStatuses = map[Kind]map[Status]bool{
	KindReverse: {
		StatusInvoiceSettled:    true,
		StatusInvoiceExpired:    true,
		StatusSwapExpired:       true,
		StatusTransactionFailed: true,
		StatusTransactionRefunded: true,
	},
	KindSubmarine: {
		StatusTransactionClaimed:      true,
		StatusSwapExpired:             true,
		StatusInvoiceFailedToPay:      true,
		StatusTransactionLockupFailed: true,
	},
	KindChain: {
		StatusTransactionClaimed:   true,
		StatusSwapExpired:          true,
		StatusTransactionFailed:    true,
		StatusTransactionRefunded:  true,
	},
}

// IsTerminal reports whether status is a terminal state for kind.
func (k Kind) IsTerminal(s Status) bool {
	return terminalStatuses[k][s]
}

// TimeoutBlockHeights carries the counterparty-reported absolute/relative
// timelocks for a swap's VHTLC. Spec 9 flags any hard-coded refund
// locktime fallback as legacy: Refund must always come from this struct.
type TimeoutBlockHeights struct {
	Refund                         uint32
	UnilateralClaim                uint32
	UnilateralRefund               uint32
	UnilateralRefundWithoutReceiver uint32
}

// LockupScript is the subset of the counterparty's response describing the
// VHTLC the funds are locked behind.
type LockupScript struct {
	PreimageHash [20]byte
	SenderKey    [32]byte
	ReceiverKey  [32]byte
	ServerKey    [32]byte
}

// Request is the immutable set of parameters sent to the counterparty when
// creating a swap.
type Request struct {
	Kind           Kind
	AmountSats     uint64
	Invoice        string
	PreimageHash   [20]byte
	ClaimPublicKey [32]byte
	RefundPublicKey [32]byte
	ToAddress      string // chain only
}

// Response is the immutable set of parameters the counterparty returns
// when a swap is created.
type Response struct {
	// ID is the counterparty-assigned identifier that becomes the
	// Swap's primary key (spec 3).
	ID                  string
	LockupAddress       string
	ExpectedAmountSats  uint64
	TimeoutBlockHeights TimeoutBlockHeights
	CounterpartyKey     [32]byte
	Invoice             string
	LockupScript        LockupScript

	// SwapTree is the Boltz-serialised taproot tree describing the
	// BTC-side contract for chain swaps. Per spec 9, this is treated as
	// opaque: the core never reconstructs a BTC HTLC script locally,
	// only verifies the lockup output against the MuSig2-tweaked
	// aggregate key derived from it.
	SwapTree []byte
}

// Swap is the persisted aggregate for every in-flight or historical swap.
type Swap struct {
	ID        string
	Kind      Kind
	CreatedAt int64
	Status    Status

	// Preimage is present for reverse and chain swaps from creation;
	// for submarine swaps it is absent until the counterparty reveals
	// it on settlement.
	Preimage *[32]byte

	Request  Request
	Response Response

	// EphemeralKey is set only for chain swaps: a secret key generated
	// exclusively for the BTC-side contract, never derived from or
	// shared with the wallet's long-term identity.
	EphemeralKey *btcec.PrivateKey

	// ToAddress is the chain-swap destination on the opposite chain.
	ToAddress string

	Refunded   bool
	Refundable bool

	// ClaimStarted guards the single-shot claim-submission invariant
	// (spec 4.6): it must be checked and set under the swap's lock, not
	// inferred from status equality, since the counterparty may repeat
	// a status.
	ClaimStarted bool
	// RefundStarted is ClaimStarted's counterpart for the refund path.
	RefundStarted bool
}

// IsTerminal reports whether the swap is currently in one of its kind's
// terminal statuses.
func (s *Swap) IsTerminal() bool {
	return s.Kind.IsTerminal(s.Status)
}
