package operations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/stretchr/testify/require"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapfsm"
	"github.com/arkade-labs/go-ark-swap/swapmgr"
	"github.com/arkade-labs/go-ark-swap/swapstore"
	"github.com/arkade-labs/go-ark-swap/vhtlc"
	"github.com/arkade-labs/go-ark-swap/wallet"
)

type fakeWallet struct {
	xOnly vhtlc.XOnlyKey
}

func (w *fakeWallet) GetAddress(ctx context.Context) (string, error) { return "ark1fake", nil }
func (w *fakeWallet) CompressedPublicKey(ctx context.Context) (*btcec.PublicKey, error) {
	return nil, nil
}
func (w *fakeWallet) XOnlyPublicKey(ctx context.Context) (vhtlc.XOnlyKey, error) {
	return w.xOnly, nil
}
func (w *fakeWallet) Sign(ctx context.Context, tx *psbt.Packet, inputIndexes []int) error {
	return nil
}
func (w *fakeWallet) SendBitcoin(ctx context.Context, req wallet.SendBitcoinRequest) (string, error) {
	return "funding-txid", nil
}
func (w *fakeWallet) SignerSession(ctx context.Context) (wallet.SignerSession, error) {
	return nil, nil
}

func xOnlyOf(t *testing.T, priv *btcec.PrivateKey) vhtlc.XOnlyKey {
	t.Helper()
	var out vhtlc.XOnlyKey
	copy(out[:], schnorr.SerializePubKey(priv.PubKey()))
	return out
}

func TestCreateLightningInvoice_RejectsZeroAmount(t *testing.T) {
	svc := &Service{}
	_, err := svc.CreateLightningInvoice(context.Background(), 0, "")
	require.Error(t, err)
	var amtErr *swap.InvalidAmountError
	require.ErrorAs(t, err, &amtErr)
}

func TestArkToBtc_RejectsEmptyAddress(t *testing.T) {
	svc := &Service{Wallet: &fakeWallet{}}
	_, err := svc.ArkToBtc(context.Background(), "", 1000, 1)
	require.Error(t, err)
	var addrErr *swap.InvalidBTCAddressError
	require.ErrorAs(t, err, &addrErr)
}

func TestBtcToArk_RejectsNonArkAddress(t *testing.T) {
	svc := &Service{Wallet: &fakeWallet{}}
	_, err := svc.BtcToArk(context.Background(), "bc1qnotark", 1000, 1, nil)
	require.Error(t, err)
	var addrErr *swap.InvalidArkAddressError
	require.ErrorAs(t, err, &addrErr)
}

func TestCreateLightningInvoice_HappyPath(t *testing.T) {
	senderPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	receiverPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	serverPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	sender := xOnlyOf(t, senderPriv)
	receiver := xOnlyOf(t, receiverPriv)
	server := xOnlyOf(t, serverPriv)

	timeouts := swap.TimeoutBlockHeights{
		Refund:                          700000,
		UnilateralClaim:                 100,
		UnilateralRefund:                200,
		UnilateralRefundWithoutReceiver: 300,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/swap/reverse", func(w http.ResponseWriter, r *http.Request) {
		var req swap.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		tree, err := vhtlc.BuildTree(vhtlc.Params{
			PreimageHash:                          req.PreimageHash,
			Sender:                                sender,
			Receiver:                              receiver,
			Server:                                server,
			RefundLocktime:                        timeouts.Refund,
			UnilateralClaimDelay:                  timeouts.UnilateralClaim,
			UnilateralRefundDelay:                 timeouts.UnilateralRefund,
			UnilateralRefundWithoutReceiverDelay: timeouts.UnilateralRefundWithoutReceiver,
		})
		require.NoError(t, err)
		addr, err := tree.Address(vhtlc.Testnet)
		require.NoError(t, err)

		resp := swap.Response{
			ID:                  "swap-reverse-1",
			LockupAddress:       addr,
			ExpectedAmountSats:  2100,
			TimeoutBlockHeights: timeouts,
			Invoice:             "lntb2100n1...",
			LockupScript: swap.LockupScript{
				PreimageHash: req.PreimageHash,
				SenderKey:    sender,
				ReceiverKey:  receiver,
				ServerKey:    server,
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := boltzrpc.New(boltzrpc.Config{BaseURL: srv.URL, WebSocketURL: "ws://127.0.0.1:0"})
	repo := swapstore.NewMemory()
	mgr := swapmgr.New(swapmgr.Config{
		Repo:         repo,
		Counterparty: client,
		NewFSM: func(s *swap.Swap) *swapfsm.FSM {
			return swapfsm.New(s, swapfsm.Deps{
				Repo:   repo,
				Claim:  func(ctx context.Context, s *swap.Swap) error { return nil },
				Refund: func(ctx context.Context, s *swap.Swap) error { return nil },
			})
		},
	})

	svc := &Service{
		Repo:         repo,
		Counterparty: client,
		Manager:      mgr,
		Wallet:       &fakeWallet{xOnly: sender},
		Network:      vhtlc.Testnet,
	}

	result, err := svc.CreateLightningInvoice(context.Background(), 2100, "")
	require.NoError(t, err)
	require.Equal(t, "lntb2100n1...", result.Invoice)
	require.Equal(t, result.PaymentHash, hash160(result.Preimage[:]))
	require.NotNil(t, result.PendingSwap)
}
