// Package swapmgr implements the Swap Manager (spec 4.7): a process-wide
// supervisor that loads pending swaps at startup, maintains one
// subscription per swap, and exposes per-swap and fleet-wide event
// streams.
package swapmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/go-errors/errors"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/swap"
	"github.com/arkade-labs/go-ark-swap/swapfsm"
	"github.com/arkade-labs/go-ark-swap/swapstore"
)

var logger = log.NewSubLogger("SWMG")

// Stats is a point-in-time snapshot of the manager's fleet.
type Stats struct {
	Pending   int
	Completed int
	Failed    int
}

// Config configures a Manager.
type Config struct {
	Repo                            swapstore.Repository
	Counterparty                    *boltzrpc.Client
	NewFSM                          func(s *swap.Swap) *swapfsm.FSM
	MaxReconnectDelay               time.Duration
	MaxConsecutiveWebSocketFailures int
	PollInterval                    time.Duration
}

// Manager is the process-wide swap supervisor.
type Manager struct {
	cfg Config

	started  int32
	shutdown int32
	wg       sync.WaitGroup
	quit     chan struct{}

	mu       sync.Mutex
	fsms     map[string]*swapfsm.FSM
	subs     map[string]*boltzrpc.Subscription
	completed int
	failed    int

	fleetUpdates     chan swapfsm.Outcome
	fleetCompletions chan swapfsm.Outcome
	fleetFailures    chan swapfsm.Outcome
	actions          chan ActionEvent
	transport        chan TransportEvent
}

// ActionEvent records a claim or refund dispatch, for observability.
type ActionEvent struct {
	SwapID string
	Action string // "claim" or "refund"
	Err    error
}

// TransportEvent records a subscription connect/disconnect transition.
type TransportEvent struct {
	SwapID    string
	Connected bool
}

// New builds a Manager. Start must be called before it does anything.
func New(cfg Config) *Manager {
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = 60 * time.Second
	}
	if cfg.MaxConsecutiveWebSocketFailures == 0 {
		cfg.MaxConsecutiveWebSocketFailures = 3
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return &Manager{
		cfg:              cfg,
		quit:             make(chan struct{}),
		fsms:             make(map[string]*swapfsm.FSM),
		subs:             make(map[string]*boltzrpc.Subscription),
		fleetUpdates:     make(chan swapfsm.Outcome, 64),
		fleetCompletions: make(chan swapfsm.Outcome, 64),
		fleetFailures:    make(chan swapfsm.Outcome, 64),
		actions:          make(chan ActionEvent, 64),
		transport:        make(chan TransportEvent, 64),
	}
}

// Start filters initialSwaps to those not in a final status, registers
// each for monitoring, and opens subscriptions (spec 4.7 steps 1-3).
func (m *Manager) Start(ctx context.Context, initialSwaps []*swap.Swap) error {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return goerrors.New("swap manager already started")
	}

	for _, s := range initialSwaps {
		if s.IsTerminal() {
			continue
		}
		m.AddSwap(ctx, s)
	}

	return nil
}

// Stop cancels all subscriptions and resolves all in-flight
// waitForSwapCompletion calls with cancellation.
func (m *Manager) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.shutdown, 0, 1) {
		return goerrors.New("swap manager already shutdown")
	}

	close(m.quit)

	m.mu.Lock()
	for id, sub := range m.subs {
		sub.Unsubscribe()
		delete(m.subs, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// AddSwap registers a swap for monitoring and opens its subscription.
func (m *Manager) AddSwap(ctx context.Context, s *swap.Swap) {
	if m.cfg.NewFSM == nil {
		logger.Errorf("swap manager misconfigured: no NewFSM, dropping swap %s", s.ID)
		return
	}

	m.mu.Lock()
	if _, exists := m.fsms[s.ID]; exists {
		m.mu.Unlock()
		return
	}
	fsm := m.cfg.NewFSM(s)
	m.fsms[s.ID] = fsm
	m.mu.Unlock()

	m.wg.Add(1)
	go m.monitor(ctx, s.ID, fsm)
}

// RemoveSwap closes the per-swap subscription and unregisters the swap.
// A WaitForSwapCompletion call already blocked on that swap is not
// released: it returns when the swap resolves, the manager stops, or its
// context ends.
func (m *Manager) RemoveSwap(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subs[id]; ok {
		sub.Unsubscribe()
		delete(m.subs, id)
	}
	delete(m.fsms, id)
}

// HasSwap reports whether id is currently registered.
func (m *Manager) HasSwap(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fsms[id]
	return ok
}

// IsProcessing reports whether id has an active subscription.
func (m *Manager) IsProcessing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[id]
	return ok
}

// GetPendingSwaps returns a snapshot of every currently-registered swap.
func (m *Manager) GetPendingSwaps() []swap.Swap {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]swap.Swap, 0, len(m.fsms))
	for _, fsm := range m.fsms {
		out = append(out, fsm.Swap())
	}
	return out
}

// GetStats returns a fleet-wide snapshot.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Pending:   len(m.fsms),
		Completed: m.completed,
		Failed:    m.failed,
	}
}

// WaitForSwapCompletion blocks until id resolves, or returns ErrCancelled
// if the manager stops first, or ctx.Err() if ctx ends first. Removing the
// swap does not end the wait.
func (m *Manager) WaitForSwapCompletion(ctx context.Context, id string) (swapfsm.Outcome, error) {
	m.mu.Lock()
	fsm, ok := m.fsms[id]
	m.mu.Unlock()
	if !ok {
		return swapfsm.Outcome{}, goerrors.New("swap not registered: " + id)
	}

	select {
	case o := <-fsm.Result():
		return o, nil
	case <-m.quit:
		return swapfsm.Outcome{}, ErrCancelled
	case <-ctx.Done():
		return swapfsm.Outcome{}, ctx.Err()
	}
}

// ErrCancelled is returned by WaitForSwapCompletion when the manager stops
// before the swap resolves.
var ErrCancelled = goerrors.New("swap monitoring cancelled")

// FleetUpdates streams every Outcome produced across the fleet.
func (m *Manager) FleetUpdates() <-chan swapfsm.Outcome { return m.fleetUpdates }

// FleetCompletions streams successful terminal Outcomes.
func (m *Manager) FleetCompletions() <-chan swapfsm.Outcome { return m.fleetCompletions }

// FleetFailures streams failed terminal Outcomes.
func (m *Manager) FleetFailures() <-chan swapfsm.Outcome { return m.fleetFailures }

// Actions returns the channel for claim/refund dispatch events; nothing in
// the Manager sends on it.
func (m *Manager) Actions() <-chan ActionEvent { return m.actions }

// Transport streams subscription connect/disconnect events.
func (m *Manager) Transport() <-chan TransportEvent { return m.transport }

func (m *Manager) monitor(ctx context.Context, id string, fsm *swapfsm.FSM) {
	defer m.wg.Done()

	sub := m.cfg.Counterparty.Subscribe(ctx, []string{id})
	m.mu.Lock()
	m.subs[id] = sub
	m.mu.Unlock()
	m.emitTransport(TransportEvent{SwapID: id, Connected: true})

	for update := range sub.Updates() {
		fsm.HandleUpdate(ctx, update.Status, update.Payload)
	}

	m.emitTransport(TransportEvent{SwapID: id, Connected: false})

	select {
	case o := <-fsm.Result():
		m.recordOutcome(o)
	default:
	}
}

func (m *Manager) recordOutcome(o swapfsm.Outcome) {
	m.mu.Lock()
	if o.Err != nil {
		m.failed++
	} else {
		m.completed++
	}
	m.mu.Unlock()

	select {
	case m.fleetUpdates <- o:
	default:
		logger.Warnf("fleet update channel full, dropping update for swap %s", o.Swap.ID)
	}

	target := m.fleetCompletions
	if o.Err != nil {
		target = m.fleetFailures
	}
	select {
	case target <- o:
	default:
	}
}

func (m *Manager) emitTransport(e TransportEvent) {
	select {
	case m.transport <- e:
	default:
	}
}
