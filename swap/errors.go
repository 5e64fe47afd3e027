package swap

import "fmt"

// LifecycleError is the common shape of every counterparty lifecycle error
// (spec 7): it carries the swap it happened to and whether the refund
// path is available.
type LifecycleError struct {
	Kind       string
	SwapID     string
	Refundable bool
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("swap %s: %s (refundable=%t)", e.SwapID, e.Kind, e.Refundable)
}

// NewInvoiceExpired builds the InvoiceExpired lifecycle error (reverse
// swaps), always refundable per spec 4.6.
func NewInvoiceExpired(swapID string) *LifecycleError {
	return &LifecycleError{Kind: "InvoiceExpired", SwapID: swapID, Refundable: true}
}

// NewInvoiceFailedToPay builds the InvoiceFailedToPay lifecycle error
// (submarine swaps), always refundable.
func NewInvoiceFailedToPay(swapID string) *LifecycleError {
	return &LifecycleError{Kind: "InvoiceFailedToPay", SwapID: swapID, Refundable: true}
}

// NewSwapExpired builds the SwapExpired lifecycle error, always
// refundable.
func NewSwapExpired(swapID string) *LifecycleError {
	return &LifecycleError{Kind: "SwapExpired", SwapID: swapID, Refundable: true}
}

// TransactionError is raised for the two terminal, non-refundable
// transaction outcomes: TransactionFailed and TransactionRefunded.
type TransactionError struct {
	Kind   string
	SwapID string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("swap %s: %s", e.SwapID, e.Kind)
}

func NewTransactionFailed(swapID string) *TransactionError {
	return &TransactionError{Kind: "TransactionFailed", SwapID: swapID}
}

func NewTransactionRefunded(swapID string) *TransactionError {
	return &TransactionError{Kind: "TransactionRefunded", SwapID: swapID}
}

// SwapSettlementMissingTxidError is raised when invoice.settled fires for
// a reverse swap but the counterparty's reported txid is empty. Spec 9
// requires this be surfaced explicitly rather than silently succeeding.
type SwapSettlementMissingTxidError struct {
	SwapID string
}

func (e *SwapSettlementMissingTxidError) Error() string {
	return fmt.Sprintf("swap %s: settlement reported no txid", e.SwapID)
}

// InvalidAmountError is returned by the public operations facade when a
// requested amount is not strictly positive.
type InvalidAmountError struct{}

func (e *InvalidAmountError) Error() string {
	return "amount must be greater than 0"
}

// InvalidBTCAddressError is returned by ArkToBtc for an empty BTC
// destination address; the address format is not checked there.
type InvalidBTCAddressError struct {
	Address string
}

func (e *InvalidBTCAddressError) Error() string {
	return fmt.Sprintf("invalid BTC address: %q", e.Address)
}

// InvalidArkAddressError is returned for a malformed or non-Ark-prefixed
// destination address.
type InvalidArkAddressError struct {
	Address string
}

func (e *InvalidArkAddressError) Error() string {
	return fmt.Sprintf("invalid Ark address: %q", e.Address)
}
