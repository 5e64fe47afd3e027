package boltzrpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arkade-labs/go-ark-swap/swap"
)

// Update is a single status transition delivered by a subscription.
type Update struct {
	SwapID  string
	Status  swap.Status
	Payload json.RawMessage
}

// Subscription is a live stream of status Updates for one or more swap
// ids, backed by the counterparty's multiplexed WebSocket channel with a
// transparent polling fallback (spec 4.4).
type Subscription struct {
	c       *Client
	ids     map[string]bool
	updates chan Update

	mu   sync.Mutex
	conn *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

type wsMessage struct {
	Event string          `json:"event"`
	Args  []string        `json:"args,omitempty"`
	ID    string          `json:"id,omitempty"`
	Status json.RawMessage `json:"status,omitempty"`
}

// Subscribe opens a subscription for the given swap ids, emitting Updates
// on the returned channel until either every id has reached a terminal
// status or the context is cancelled. The channel is closed when the
// subscription ends.
func (c *Client) Subscribe(ctx context.Context, ids []string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	s := &Subscription{
		c:       c,
		ids:     idSet,
		updates: make(chan Update, 16),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.run(ctx, ids)
	return s
}

// Updates returns the channel Update values are delivered on.
func (s *Subscription) Updates() <-chan Update { return s.updates }

// Unsubscribe tears down the subscription, closing the Updates channel.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

func (s *Subscription) run(ctx context.Context, ids []string) {
	defer close(s.updates)
	defer close(s.done)

	consecutiveFailures := 0
	backoffDelay := s.c.cfg.RetryBaseDelay

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.runWebSocket(ctx, ids)
		if err == nil {
			return // terminal status reached for every id, or ctx cancelled cleanly
		}
		if ctx.Err() != nil {
			return
		}

		consecutiveFailures++
		logger.Warnf("websocket subscription failed (%d consecutive): %v", consecutiveFailures, err)

		if consecutiveFailures >= 3 {
			logger.Infof("falling back to polling every %s", s.c.cfg.PollInterval)
			s.runPolling(ctx, ids)
			return
		}

		select {
		case <-time.After(backoffDelay):
		case <-ctx.Done():
			return
		}
		backoffDelay *= 2
		if backoffDelay > s.c.cfg.RetryMaxDelay {
			backoffDelay = s.c.cfg.RetryMaxDelay
		}
	}
}

func (s *Subscription) runWebSocket(ctx context.Context, ids []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.c.cfg.WebSocketURL, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	sub := wsMessage{Event: "subscribe", Args: ids}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	remaining := make(map[string]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Event != "update" || msg.ID == "" {
			continue
		}

		var parsed struct {
			Status swap.Status `json:"status"`
		}
		if err := json.Unmarshal(msg.Status, &parsed); err != nil {
			continue
		}

		select {
		case s.updates <- Update{SwapID: msg.ID, Status: parsed.Status, Payload: msg.Status}:
		case <-ctx.Done():
			return nil
		}

		if isTerminalAny(parsed.Status) {
			delete(remaining, msg.ID)
			if len(remaining) == 0 {
				return nil
			}
		}
	}
}

func (s *Subscription) runPolling(ctx context.Context, ids []string) {
	ticker := time.NewTicker(s.c.cfg.PollInterval)
	defer ticker.Stop()

	remaining := make(map[string]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id := range remaining {
				status, err := s.c.GetSwapStatus(ctx, id)
				if err != nil {
					logger.Warnf("poll status for %s: %v", id, err)
					continue
				}

				select {
				case s.updates <- Update{SwapID: id, Status: status.Status, Payload: status.Payload}:
				case <-ctx.Done():
					return
				}

				if isTerminalAny(status.Status) {
					delete(remaining, id)
				}
			}
			if len(remaining) == 0 {
				return
			}
		}
	}
}

// isTerminalAny reports whether status is terminal for at least one swap
// kind; callers that know the swap's kind should prefer
// swap.Kind.IsTerminal.
func isTerminalAny(status swap.Status) bool {
	for _, k := range []swap.Kind{swap.KindReverse, swap.KindSubmarine, swap.KindChain} {
		if k.IsTerminal(status) {
			return true
		}
	}
	return false
}
