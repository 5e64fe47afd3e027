// Package claim implements the Claim/Refund Builder (spec 4.5): assembly
// of off-chain (ark) and on-chain (btc) claim and refund transactions,
// including MuSig2 ceremonies and PSBT witness injection.
package claim

import "fmt"

// InvalidFinalArkTxError is raised when the Ark server's returned
// finalArkTx fails signature verification: on a claim, no valid
// server_key signature over the claim leaf (spec 4.5.1 step 6); on a
// refund, a missing or invalid sender, receiver or server signature over
// the refund leaf (spec 4.5.2 step 6). Fatal, non-retryable.
type InvalidFinalArkTxError struct {
	SwapID string
	Reason string
}

func (e *InvalidFinalArkTxError) Error() string {
	return fmt.Sprintf("claim: invalid final ark tx for swap %s: %s", e.SwapID, e.Reason)
}

// InvalidCounterpartySignatureError is raised when the counterparty's
// signature on the unsigned refund transaction fails verification
// against its x-only key (spec 4.5.2 step 3). Fatal.
type InvalidCounterpartySignatureError struct {
	SwapID string
	Leaf   string
}

func (e *InvalidCounterpartySignatureError) Error() string {
	return fmt.Sprintf("claim: invalid counterparty signature for swap %s on %s leaf", e.SwapID, e.Leaf)
}

// SwapTreeVerificationError is raised when a BTC-side lockup output can't
// be matched against the MuSig2-tweaked aggregate key derived from the
// counterparty's swap_tree (spec 4.5.3 step 1, spec 9).
type SwapTreeVerificationError struct {
	SwapID string
	Reason string
}

func (e *SwapTreeVerificationError) Error() string {
	return fmt.Sprintf("claim: could not verify BTC lockup for swap %s: %s", e.SwapID, e.Reason)
}
