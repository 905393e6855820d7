// Package consensus drives the Ben-Or round loop for a single node: it
// owns the node's mutable state, sequences the phase-1/phase-2 message
// exchange through an inbox and a transport, and applies the tally rules
// to decide or advance to the next round. It is the only package that
// mutates node state; the control surface only reads snapshots and
// issues start/stop/deliver calls through the interfaces below.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quorumkit/benor-node/pkg/inbox"
	"github.com/quorumkit/benor-node/pkg/logger"
	"github.com/quorumkit/benor-node/pkg/loggerfile"
	"github.com/quorumkit/benor-node/pkg/tally"
	"github.com/quorumkit/benor-node/pkg/value"
)

// phaseWait is how long a round's phase waits for N-F-1 peer messages
// before giving up and tallying whatever arrived.
const phaseWait = 200 * time.Millisecond

// interRoundPause is the delay between a round's end and the next round's
// first broadcast, giving slow peers a chance to catch up before the
// inbox for the new round starts filling.
const interRoundPause = 10 * time.Millisecond

// ErrKilled is returned by Deliver and Start once a node has been
// stopped; a killed node never processes another message or round.
var ErrKilled = errors.New("consensus: node is killed")

// Broadcaster is the outbound half of the transport adapter a Driver
// needs: fan a single phase message out to every peer.
type Broadcaster interface {
	Broadcast(ctx context.Context, phase int, v value.Value, round uint64)
}

// Node is the interface the control surface drives: a real Driver or a
// FaultyNode, selected once at construction time and never branched on
// again.
type Node interface {
	// Start begins the round loop if the node is not already running or
	// decided. It returns immediately; the loop (if any) runs in its own
	// goroutine. Start on a killed node returns ErrKilled.
	Start() error
	// Stop kills a Driver: the round loop exits at its next checkpoint and
	// every subsequent Start or Deliver call fails. On a FaultyNode, Stop
	// is a no-op.
	Stop()
	// Deliver accepts or rejects an inbound phase message. A faulty or
	// killed node always rejects.
	Deliver(phase inbox.Phase, round uint64, v value.Value, from int) error
	// Snapshot returns a consistent view of the node's state.
	Snapshot() Snapshot
	// Faulty reports whether this node is a no-op FaultyNode.
	Faulty() bool
}

// Driver runs the Ben-Or protocol for one non-faulty node.
type Driver struct {
	id int
	n  int
	f  int

	transport Broadcaster
	inbox     *inbox.Inbox
	coin      tally.CoinFunc
	trace     *loggerfile.FileLogger

	mu      sync.Mutex
	state   State
	x       value.Value
	killed  bool
	decided bool
	k       uint64
	stopCh  chan struct{}
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithCoin overrides the phase-2 randomized escape source. Production
// callers leave this unset, which defaults to tally.CryptoCoin; tests
// inject a deterministic source.
func WithCoin(coin tally.CoinFunc) Option {
	return func(d *Driver) { d.coin = coin }
}

// WithTrace attaches a per-node round trace file. A nil FileLogger (the
// default) disables tracing; FileLogger's methods are nil-receiver safe,
// so a Driver built without this option never checks for a nil trace.
func WithTrace(fl *loggerfile.FileLogger) Option {
	return func(d *Driver) { d.trace = fl }
}

// NewDriver constructs a non-faulty node's driver. initial must be 0 or
// 1; the caller (typically pkg/config.NodeConfig.Validate) is responsible
// for rejecting anything else before construction.
func NewDriver(id, n, f int, initial value.Value, ib *inbox.Inbox, t Broadcaster, opts ...Option) *Driver {
	d := &Driver{
		id:        id,
		n:         n,
		f:         f,
		transport: t,
		inbox:     ib,
		coin:      tally.CryptoCoin,
		state:     StateIdle,
		x:         initial,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Faulty() bool { return false }

// Start transitions IDLE -> RUNNING and launches the round loop. Calling
// Start again while RUNNING or after DECIDED is a no-op that still
// reports success; calling it after Stop reports ErrKilled.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.killed {
		return ErrKilled
	}
	if d.state == StateRunning || d.state == StateDecided {
		return nil
	}
	d.state = StateRunning

	if d.n == 1 {
		// A lone node has no peers to wait on and trivially agrees with
		// itself; the round loop is never entered.
		d.decided = true
		d.state = StateDecided
		logger.Info("node %d: single-node cluster, decided %s immediately", d.id, d.x)
		return nil
	}

	go d.run()
	return nil
}

// Stop kills the node. The round loop, if running, observes d.killed at
// its next checkpoint and exits; Stop does not block waiting for that.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.killed {
		return
	}
	d.killed = true
	d.state = StateDead
	close(d.stopCh)
}

// Deliver is the Receiver half of the transport contract: store an
// inbound phase message, unless the node is killed or the message is for
// a round this node has already moved past.
func (d *Driver) Deliver(phase inbox.Phase, round uint64, v value.Value, from int) error {
	d.mu.Lock()
	if d.killed {
		d.mu.Unlock()
		return ErrKilled
	}
	current := d.k
	d.mu.Unlock()

	if round < current {
		// Stale message for a round this node has already tallied; the
		// sender still gets a success response, the value is just not
		// kept.
		return nil
	}
	d.inbox.Deliver(phase, round, v, from)
	return nil
}

// Snapshot returns the node's current state under lock.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	x := d.x
	decided := d.decided
	k := d.k
	return Snapshot{Killed: d.killed, X: &x, Decided: &decided, K: &k}
}

// run is the round loop; it runs in its own goroutine from Start and
// exits once the node decides or is killed.
func (d *Driver) run() {
	for {
		d.mu.Lock()
		if d.killed || d.decided {
			d.mu.Unlock()
			return
		}
		k := d.k
		x := d.x
		d.mu.Unlock()

		x = d.runPhase1(k, x)
		d.trace.Info(fmt.Sprintf("round %d: phase1 tally -> %s", k, x))

		d.mu.Lock()
		if d.killed {
			d.mu.Unlock()
			return
		}
		d.x = x
		d.mu.Unlock()

		outcome := d.runPhase2(k, x)
		d.trace.Info(fmt.Sprintf("round %d: phase2 tally -> decided=%v value=%s", k, outcome.Decided, outcome.Value))

		d.mu.Lock()
		if d.killed {
			d.mu.Unlock()
			return
		}
		d.x = outcome.Value
		if outcome.Decided {
			d.decided = true
			d.state = StateDecided
			d.mu.Unlock()
			logger.Info("node %d: decided %s at round %d", d.id, outcome.Value, k)
			return
		}
		d.k++
		next := d.k
		d.mu.Unlock()

		if next > 0 {
			d.inbox.Prune(next - 1)
		}

		select {
		case <-time.After(interRoundPause):
		case <-d.stopCh:
			return
		}
	}
}

// runPhase1 broadcasts x for round k, waits for N-F-1 peer phase-1
// messages (or the phase timeout, whichever comes first), and returns the
// tallied next value.
func (d *Driver) runPhase1(k uint64, x value.Value) value.Value {
	ctx, cancel := context.WithTimeout(context.Background(), phaseWait)
	defer cancel()
	d.transport.Broadcast(ctx, int(inbox.Phase1), x, k)
	d.awaitThreshold(inbox.Phase1, k)
	entries := d.inbox.Snapshot(inbox.Phase1, k)
	return tally.Phase1(x, entries, d.n)
}

// runPhase2 broadcasts x for round k, waits for N-F-1 peer phase-2
// messages (or the phase timeout), and returns the tallied outcome.
func (d *Driver) runPhase2(k uint64, x value.Value) tally.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), phaseWait)
	defer cancel()
	d.transport.Broadcast(ctx, int(inbox.Phase2), x, k)
	d.awaitThreshold(inbox.Phase2, k)
	entries := d.inbox.Snapshot(inbox.Phase2, k)
	return tally.Phase2(x, entries, d.n, d.f, d.coin)
}

// awaitThreshold blocks until the (phase, round) bucket reaches N-F-1
// entries, the phase timeout elapses, or the node is stopped.
func (d *Driver) awaitThreshold(phase inbox.Phase, round uint64) {
	threshold := d.n - d.f - 1
	if threshold < 0 {
		threshold = 0
	}
	ch := d.inbox.Wait(phase, round, threshold)
	timer := time.NewTimer(phaseWait)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	case <-d.stopCh:
	}
}

// FaultyNode is the no-op Node a cluster uses in place of a Driver for a
// node configured as faulty. It accepts Start and Stop as no-ops and
// rejects every Deliver, matching "a faulty node never sends or
// processes a protocol message."
type FaultyNode struct {
	id int
}

// NewFaultyNode constructs a faulty node placeholder.
func NewFaultyNode(id int) *FaultyNode {
	return &FaultyNode{id: id}
}

func (f *FaultyNode) Faulty() bool { return true }

func (f *FaultyNode) Start() error { return nil }

func (f *FaultyNode) Stop() {}

func (f *FaultyNode) Deliver(phase inbox.Phase, round uint64, v value.Value, from int) error {
	return fmt.Errorf("consensus: node %d is faulty", f.id)
}

func (f *FaultyNode) Snapshot() Snapshot {
	return Snapshot{Killed: false, X: nil, Decided: nil, K: nil}
}
