package vhtlc

import "fmt"

// InvalidKeyLengthError is returned by NormalizeKey when a supplied public
// key is neither 33-byte compressed SEC1 nor 32-byte x-only. It is a fatal,
// non-retryable integrity error per the core's error taxonomy: callers must
// abort the operation rather than proceed with funds movement.
type InvalidKeyLengthError struct {
	Role   string
	Length int
	SwapID string
}

func (e *InvalidKeyLengthError) Error() string {
	if e.SwapID != "" {
		return fmt.Sprintf("vhtlc: invalid %s key length %d (swap %s)",
			e.Role, e.Length, e.SwapID)
	}
	return fmt.Sprintf("vhtlc: invalid %s key length %d", e.Role, e.Length)
}

// ScriptConstructionError wraps any failure while assembling the VHTLC
// script tree or deriving its address.
type ScriptConstructionError struct {
	Reason string
}

func (e *ScriptConstructionError) Error() string {
	return fmt.Sprintf("vhtlc: script construction failed: %s", e.Reason)
}

// AddressMismatchError is the fatal integrity error raised when the locally
// reconstructed VHTLC address does not equal the counterparty-reported
// lockup address (spec invariant: the operation must abort before any
// wallet signature or fund movement).
type AddressMismatchError struct {
	SwapID   string
	Expected string
	Got      string
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("vhtlc: lockup address mismatch for swap %s: "+
		"expected %s, reconstructed %s", e.SwapID, e.Expected, e.Got)
}
