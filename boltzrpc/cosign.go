package boltzrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
)

// cosignRequest is the payload for the claim-cosign endpoint: the
// preimage (proving the hashlock is satisfiable), this party's public
// nonce, and the unsigned claim transaction (spec 4.5.3 step 3).
type cosignRequest struct {
	Preimage       string `json:"preimage"`
	PubNonce       string `json:"pubNonce"`
	TransactionHex string `json:"transactionHex"`
	InputIndex     int    `json:"index"`
}

type cosignResponse struct {
	PartialSignature string `json:"partialSignature"`
	PubNonce         string `json:"pubNonce"`
}

// RequestChainSwapClaimCosign exchanges nonces and obtains the
// counterparty's MuSig2 partial signature on the claim transaction built
// for a chain ARK→BTC swap's BTC leg (spec 4.5.3 step 3).
func (c *Client) RequestChainSwapClaimCosign(
	ctx context.Context,
	swapID string,
	preimage [32]byte,
	pubNonce [musig2.PubNonceSize]byte,
	transactionHex string,
	inputIndex int,
) (*musig2.PartialSignature, [musig2.PubNonceSize]byte, error) {
	req := cosignRequest{
		Preimage:       hex.EncodeToString(preimage[:]),
		PubNonce:       hex.EncodeToString(pubNonce[:]),
		TransactionHex: transactionHex,
		InputIndex:     inputIndex,
	}

	var resp cosignResponse
	var zero [musig2.PubNonceSize]byte
	err := c.doJSON(ctx, http.MethodPost, "/v2/swap/chain/"+swapID+"/claim", req, &resp)
	if err != nil {
		return nil, zero, err
	}

	sigBytes, err := hex.DecodeString(resp.PartialSignature)
	if err != nil {
		return nil, zero, fmt.Errorf("boltzrpc: decode partial signature: %w", err)
	}
	nonceBytes, err := hex.DecodeString(resp.PubNonce)
	if err != nil {
		return nil, zero, fmt.Errorf("boltzrpc: decode remote nonce: %w", err)
	}
	if len(nonceBytes) != musig2.PubNonceSize {
		return nil, zero, fmt.Errorf("boltzrpc: unexpected nonce length %d", len(nonceBytes))
	}

	var partialSig musig2.PartialSignature
	if err := partialSig.Decode(bytes.NewReader(sigBytes)); err != nil {
		return nil, zero, fmt.Errorf("boltzrpc: decode partial signature: %w", err)
	}

	var remoteNonce [musig2.PubNonceSize]byte
	copy(remoteNonce[:], nonceBytes)

	return &partialSig, remoteNonce, nil
}
