package swapstore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/arkade-labs/go-ark-swap/swap"
)

// payload is the JSON-serialisable mirror of swap.Swap used for the
// `payload` column/value every backend stores (spec 6.4). btcec keys and
// fixed-size byte arrays don't marshal to JSON directly, so they're
// represented as hex strings here.
type payload struct {
	ID        string      `json:"id"`
	Kind      swap.Kind   `json:"kind"`
	CreatedAt int64       `json:"created_at"`
	Status    swap.Status `json:"status"`

	Preimage string `json:"preimage,omitempty"`

	Request  requestPayload  `json:"request"`
	Response responsePayload `json:"response"`

	EphemeralKey string `json:"ephemeral_key,omitempty"`
	ToAddress    string `json:"to_address,omitempty"`

	Refunded   bool `json:"refunded"`
	Refundable bool `json:"refundable"`

	ClaimStarted  bool `json:"claim_started"`
	RefundStarted bool `json:"refund_started"`
}

type requestPayload struct {
	Kind            swap.Kind `json:"kind"`
	AmountSats      uint64    `json:"amount_sats"`
	Invoice         string    `json:"invoice,omitempty"`
	PreimageHash    string    `json:"preimage_hash"`
	ClaimPublicKey  string    `json:"claim_public_key"`
	RefundPublicKey string    `json:"refund_public_key"`
	ToAddress       string    `json:"to_address,omitempty"`
}

type responsePayload struct {
	ID                 string            `json:"id"`
	LockupAddress      string            `json:"lockup_address"`
	ExpectedAmountSats uint64            `json:"expected_amount_sats"`
	TimeoutHeights     timeoutPayload    `json:"timeout_block_heights"`
	CounterpartyKey    string            `json:"counterparty_key"`
	Invoice            string            `json:"invoice,omitempty"`
	LockupScript       lockupScriptPayload `json:"lockup_script"`
	SwapTree           string            `json:"swap_tree,omitempty"`
}

type timeoutPayload struct {
	Refund                          uint32 `json:"refund"`
	UnilateralClaim                 uint32 `json:"unilateral_claim"`
	UnilateralRefund                uint32 `json:"unilateral_refund"`
	UnilateralRefundWithoutReceiver uint32 `json:"unilateral_refund_without_receiver"`
}

type lockupScriptPayload struct {
	PreimageHash string `json:"preimage_hash"`
	SenderKey    string `json:"sender_key"`
	ReceiverKey  string `json:"receiver_key"`
	ServerKey    string `json:"server_key"`
}

func marshalSwap(s *swap.Swap) ([]byte, error) {
	p := payload{
		ID:        s.ID,
		Kind:      s.Kind,
		CreatedAt: s.CreatedAt,
		Status:    s.Status,
		Request: requestPayload{
			Kind:            s.Request.Kind,
			AmountSats:      s.Request.AmountSats,
			Invoice:         s.Request.Invoice,
			PreimageHash:    hex.EncodeToString(s.Request.PreimageHash[:]),
			ClaimPublicKey:  hex.EncodeToString(s.Request.ClaimPublicKey[:]),
			RefundPublicKey: hex.EncodeToString(s.Request.RefundPublicKey[:]),
			ToAddress:       s.Request.ToAddress,
		},
		Response: responsePayload{
			ID:                 s.Response.ID,
			LockupAddress:      s.Response.LockupAddress,
			ExpectedAmountSats: s.Response.ExpectedAmountSats,
			TimeoutHeights: timeoutPayload{
				Refund:                          s.Response.TimeoutBlockHeights.Refund,
				UnilateralClaim:                 s.Response.TimeoutBlockHeights.UnilateralClaim,
				UnilateralRefund:                s.Response.TimeoutBlockHeights.UnilateralRefund,
				UnilateralRefundWithoutReceiver: s.Response.TimeoutBlockHeights.UnilateralRefundWithoutReceiver,
			},
			CounterpartyKey: hex.EncodeToString(s.Response.CounterpartyKey[:]),
			Invoice:         s.Response.Invoice,
			LockupScript: lockupScriptPayload{
				PreimageHash: hex.EncodeToString(s.Response.LockupScript.PreimageHash[:]),
				SenderKey:    hex.EncodeToString(s.Response.LockupScript.SenderKey[:]),
				ReceiverKey:  hex.EncodeToString(s.Response.LockupScript.ReceiverKey[:]),
				ServerKey:    hex.EncodeToString(s.Response.LockupScript.ServerKey[:]),
			},
			SwapTree: hex.EncodeToString(s.Response.SwapTree),
		},
		ToAddress:     s.ToAddress,
		Refunded:      s.Refunded,
		Refundable:    s.Refundable,
		ClaimStarted:  s.ClaimStarted,
		RefundStarted: s.RefundStarted,
	}

	if s.Preimage != nil {
		p.Preimage = hex.EncodeToString(s.Preimage[:])
	}
	if s.EphemeralKey != nil {
		p.EphemeralKey = hex.EncodeToString(s.EphemeralKey.Serialize())
	}

	return json.Marshal(p)
}

func unmarshalSwap(data []byte) (*swap.Swap, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("swapstore: decode payload: %w", err)
	}

	s := &swap.Swap{
		ID:        p.ID,
		Kind:      p.Kind,
		CreatedAt: p.CreatedAt,
		Status:    p.Status,
		ToAddress: p.ToAddress,
		Refunded:   p.Refunded,
		Refundable: p.Refundable,
		ClaimStarted:  p.ClaimStarted,
		RefundStarted: p.RefundStarted,
	}

	if err := hexInto(p.Request.PreimageHash, s.Request.PreimageHash[:]); err != nil {
		return nil, err
	}
	if err := hexInto(p.Request.ClaimPublicKey, s.Request.ClaimPublicKey[:]); err != nil {
		return nil, err
	}
	if err := hexInto(p.Request.RefundPublicKey, s.Request.RefundPublicKey[:]); err != nil {
		return nil, err
	}
	s.Request.Kind = p.Request.Kind
	s.Request.AmountSats = p.Request.AmountSats
	s.Request.Invoice = p.Request.Invoice
	s.Request.ToAddress = p.Request.ToAddress

	s.Response.ID = p.Response.ID
	s.Response.LockupAddress = p.Response.LockupAddress
	s.Response.ExpectedAmountSats = p.Response.ExpectedAmountSats
	s.Response.TimeoutBlockHeights = swap.TimeoutBlockHeights{
		Refund:                          p.Response.TimeoutHeights.Refund,
		UnilateralClaim:                 p.Response.TimeoutHeights.UnilateralClaim,
		UnilateralRefund:                p.Response.TimeoutHeights.UnilateralRefund,
		UnilateralRefundWithoutReceiver: p.Response.TimeoutHeights.UnilateralRefundWithoutReceiver,
	}
	if err := hexInto(p.Response.CounterpartyKey, s.Response.CounterpartyKey[:]); err != nil {
		return nil, err
	}
	s.Response.Invoice = p.Response.Invoice
	if err := hexInto(p.Response.LockupScript.PreimageHash, s.Response.LockupScript.PreimageHash[:]); err != nil {
		return nil, err
	}
	if err := hexInto(p.Response.LockupScript.SenderKey, s.Response.LockupScript.SenderKey[:]); err != nil {
		return nil, err
	}
	if err := hexInto(p.Response.LockupScript.ReceiverKey, s.Response.LockupScript.ReceiverKey[:]); err != nil {
		return nil, err
	}
	if err := hexInto(p.Response.LockupScript.ServerKey, s.Response.LockupScript.ServerKey[:]); err != nil {
		return nil, err
	}
	if p.Response.SwapTree != "" {
		tree, err := hex.DecodeString(p.Response.SwapTree)
		if err != nil {
			return nil, fmt.Errorf("swapstore: decode swap_tree: %w", err)
		}
		s.Response.SwapTree = tree
	}

	if p.Preimage != "" {
		raw, err := hex.DecodeString(p.Preimage)
		if err != nil {
			return nil, fmt.Errorf("swapstore: decode preimage: %w", err)
		}
		var preimage [32]byte
		copy(preimage[:], raw)
		s.Preimage = &preimage
	}

	if p.EphemeralKey != "" {
		raw, err := hex.DecodeString(p.EphemeralKey)
		if err != nil {
			return nil, fmt.Errorf("swapstore: decode ephemeral key: %w", err)
		}
		priv, _ := btcec.PrivKeyFromBytes(raw)
		s.EphemeralKey = priv
	}

	return s, nil
}

func hexInto(s string, dst []byte) error {
	if s == "" {
		return nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("swapstore: decode hex field: %w", err)
	}
	copy(dst, raw)
	return nil
}
