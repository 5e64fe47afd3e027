// Package boltzrpc implements the Counterparty Client (spec 4.4): a REST
// and WebSocket facade over the Boltz-style swap counterparty, with
// exponential-backoff retries and a polling fallback for status
// subscriptions.
package boltzrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/swap"
)

var logger = log.NewSubLogger("BLTZ")

// Config configures a Client.
type Config struct {
	BaseURL        string
	WebSocketURL   string
	HTTPClient     *http.Client
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	PollInterval   time.Duration
}

// Client is the Counterparty Client facade.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New builds a Client from cfg, filling in defaults the same way the
// teacher's RPC clients default an unset *http.Client and backoff bounds.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = 60 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Client{cfg: cfg, hc: cfg.HTTPClient}
}

// ApplicationError marks a counterparty rejection that must not be
// retried (spec 4.4: "application-level rejections do not retry").
type ApplicationError struct {
	StatusCode int
	Body       string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("boltzrpc: application error %d: %s", e.StatusCode, e.Body)
}

func (c *Client) backoffPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBaseDelay
	b.MaxInterval = c.cfg.RetryMaxDelay
	b.MaxElapsedTime = 0 // caller controls the deadline via ctx
	return backoff.WithContext(b, ctx)
}

// doJSON performs an HTTP call and decodes the JSON response into out,
// retrying transport failures with exponential backoff but never retrying
//4xx/5xx application responses.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("boltzrpc: marshal request: %w", err)
		}
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(raw))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("boltzrpc: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", uuid.NewString())

		resp, err := c.hc.Do(req)
		if err != nil {
			// Network-level failure: retryable.
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 400 {
			return backoff.Permanent(&ApplicationError{StatusCode: resp.StatusCode, Body: string(respBody)})
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("boltzrpc: decode response: %w", err))
			}
		}
		return nil
	}

	return backoff.Retry(operation, c.backoffPolicy(ctx))
}

// CreateSubmarineSwap requests a new submarine swap.
func (c *Client) CreateSubmarineSwap(ctx context.Context, req swap.Request) (swap.Response, error) {
	var resp swap.Response
	err := c.doJSON(ctx, http.MethodPost, "/v2/swap/submarine", req, &resp)
	return resp, err
}

// CreateReverseSwap requests a new reverse submarine swap.
func (c *Client) CreateReverseSwap(ctx context.Context, req swap.Request) (swap.Response, error) {
	var resp swap.Response
	err := c.doJSON(ctx, http.MethodPost, "/v2/swap/reverse", req, &resp)
	return resp, err
}

// CreateChainSwap requests a new chain swap.
func (c *Client) CreateChainSwap(ctx context.Context, req swap.Request) (swap.Response, error) {
	var resp swap.Response
	err := c.doJSON(ctx, http.MethodPost, "/v2/swap/chain", req, &resp)
	return resp, err
}

// SwapStatus is the payload returned by GetSwapStatus and delivered over
// subscriptions.
type SwapStatus struct {
	ID      string          `json:"id"`
	Status  swap.Status     `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GetSwapStatus fetches the current status of a swap by id.
func (c *Client) GetSwapStatus(ctx context.Context, id string) (SwapStatus, error) {
	var status SwapStatus
	err := c.doJSON(ctx, http.MethodGet, "/v2/swap/"+id, nil, &status)
	return status, err
}

// Fees is the counterparty's currently-reported percentage and miner fee
// schedule for each swap kind.
type Fees struct {
	Submarine FeeSchedule `json:"submarine"`
	Reverse   FeeSchedule `json:"reverse"`
	Chain     FeeSchedule `json:"chain"`
}

// FeeSchedule is the percentage fee plus an estimated miner fee in sats.
type FeeSchedule struct {
	PercentageFee float64 `json:"percentage"`
	MinerFeeSats  uint64  `json:"minerFeeSats"`
}

// GetFees fetches the counterparty's current fee schedule.
func (c *Client) GetFees(ctx context.Context) (Fees, error) {
	var fees Fees
	err := c.doJSON(ctx, http.MethodGet, "/v2/swap/fees", nil, &fees)
	return fees, err
}

// Limits is the counterparty's currently-reported min/max swap amount in
// sats, per swap kind.
type Limits struct {
	Submarine AmountLimits `json:"submarine"`
	Reverse   AmountLimits `json:"reverse"`
	Chain     AmountLimits `json:"chain"`
}

// AmountLimits is an inclusive [Min, Max] range in sats.
type AmountLimits struct {
	Min uint64 `json:"minimal"`
	Max uint64 `json:"maximal"`
}

// GetLimits fetches the counterparty's current swap amount limits.
func (c *Client) GetLimits(ctx context.Context) (Limits, error) {
	var limits Limits
	err := c.doJSON(ctx, http.MethodGet, "/v2/swap/limits", nil, &limits)
	return limits, err
}

// GetReverseSwapPreimage fetches the revealed preimage for a settled
// submarine swap.
func (c *Client) GetReverseSwapPreimage(ctx context.Context, id string) (string, error) {
	var out struct {
		Preimage string `json:"preimage"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v2/swap/submarine/"+id+"/preimage", nil, &out)
	return out.Preimage, err
}

// ClaimDetails is the response to GetChainSwapClaimDetails.
type ClaimDetails struct {
	TransactionHex string `json:"transactionHex"`
	PubNonce       []byte `json:"pubNonce"`
	PublicKey      []byte `json:"publicKey"`
}

// GetChainSwapClaimDetails fetches the claim details the counterparty
// needs cooperative-signed for a BTC→ARK chain swap (spec 4.5.4).
func (c *Client) GetChainSwapClaimDetails(ctx context.Context, id string) (ClaimDetails, error) {
	var details ClaimDetails
	err := c.doJSON(ctx, http.MethodGet, "/v2/swap/chain/"+id+"/claim", nil, &details)
	return details, err
}

// PostChainSwapClaimSignature posts the core's partial signature for a
// BTC→ARK chain swap's cooperative claim.
func (c *Client) PostChainSwapClaimSignature(ctx context.Context, id string, pubNonce, partialSig []byte) error {
	body := struct {
		PubNonce   []byte `json:"pubNonce"`
		PartialSig []byte `json:"partialSignature"`
	}{PubNonce: pubNonce, PartialSig: partialSig}
	return c.doJSON(ctx, http.MethodPost, "/v2/swap/chain/"+id+"/claim", body, nil)
}

// RefundSubmarineSwap requests the counterparty's partial signatures on a
// cooperative Ark-side refund (spec 4.5.2).
func (c *Client) RefundSubmarineSwap(ctx context.Context, id, unsignedRefundTx, unsignedCheckpoint string) ([]byte, error) {
	body := struct {
		RefundTx   string `json:"refundTx"`
		Checkpoint string `json:"checkpoint"`
	}{RefundTx: unsignedRefundTx, Checkpoint: unsignedCheckpoint}

	var out struct {
		Signatures []byte `json:"signatures"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/v2/swap/submarine/"+id+"/refund", body, &out)
	return out.Signatures, err
}

// BroadcastTransaction relays a raw signed BTC transaction via the
// counterparty's relay endpoint (spec 4.5.3 step 5).
func (c *Client) BroadcastTransaction(ctx context.Context, rawTxHex string) (txid string, err error) {
	body := struct {
		Hex string `json:"hex"`
	}{Hex: rawTxHex}

	var out struct {
		ID string `json:"id"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/v2/chain/BTC/transaction", body, &out)
	return out.ID, err
}
