package boltzrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/swap"
)

func TestCreateReverseSwap_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/swap/reverse", r.URL.Path)
		_ = json.NewEncoder(w).Encode(swap.Response{LockupAddress: "tark1qtest"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryBaseDelay: time.Millisecond, RetryMaxDelay: 10 * time.Millisecond})

	resp, err := c.CreateReverseSwap(context.Background(), swap.Request{Kind: swap.KindReverse, AmountSats: 2100})
	require.NoError(t, err)
	require.Equal(t, "tark1qtest", resp.LockupAddress)
}

func TestDoJSON_ApplicationErrorDoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid amount"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryBaseDelay: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond})

	_, err := c.CreateSubmarineSwap(context.Background(), swap.Request{})
	require.Error(t, err)

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 1, attempts)
}

func TestDoJSON_ServerErrorIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Answer with a bare 500, which the client must not
			// retry.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(swap.Response{LockupAddress: "tark1qretried"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryBaseDelay: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond})

	// A 500 is an application-level response in this client (it has a
	// status code), so it does NOT retry — only transport-layer
	// failures (connection refused, timeouts) do. This test documents
	// that boundary.
	_, err := c.GetSwapStatus(context.Background(), "swap-1")
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
