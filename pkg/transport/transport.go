// Package transport implements the outbound fan-out and inbound delivery
// side of a node: best-effort broadcast of a single message to every peer
// except self over HTTP, and forwarding of well-formed inbound messages to
// the consensus driver. It hides the wire from the consensus driver, which
// only ever calls Broadcast.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quorumkit/benor-node/pkg/inbox"
	"github.com/quorumkit/benor-node/pkg/logger"
	"github.com/quorumkit/benor-node/pkg/value"
	"github.com/quorumkit/benor-node/pkg/wire"
)

// Receiver is the subset of the consensus driver the transport needs for
// inbound delivery: a single gate that accepts or rejects a message
// depending on the node's own killed/faulty status.
type Receiver interface {
	Deliver(phase inbox.Phase, round uint64, v value.Value, from int) error
}

// perRequestTimeout bounds a single outbound HTTP attempt; it is shorter
// than the driver's own 200ms phase wait so a hung peer cannot itself
// consume the whole bounded-wait window of every peer that tries it.
const perRequestTimeout = 150 * time.Millisecond

// maxConcurrentDials caps how many outbound connections a single
// Broadcast opens at once, so a large N does not open N-1 sockets in the
// same instant.
const maxConcurrentDials = 16

// HTTPTransport fans a message out to every configured peer over HTTP and
// forwards inbound deliveries to a Receiver.
type HTTPTransport struct {
	self     int
	peers    map[int]string // peer id -> "host:port"
	client   *http.Client
	receiver Receiver
}

// New creates a transport for node `self` addressing the given peers.
// peers may include an entry for self; Broadcast skips it.
func New(self int, peers map[int]string) *HTTPTransport {
	return &HTTPTransport{
		self:  self,
		peers: peers,
		client: &http.Client{
			Timeout: perRequestTimeout,
		},
	}
}

// SetReceiver wires the driver that inbound messages are delivered to.
// Construction of the transport and the driver are mutually dependent, so
// this is set once after both exist rather than passed to New.
func (t *HTTPTransport) SetReceiver(r Receiver) { t.receiver = r }

// Broadcast dispatches one message to every peer index != self. Per-peer
// failures — connection refused, timeout, peer reports itself faulty or
// killed — are silently swallowed. Broadcast returns once every dispatch
// has either succeeded or failed; dispatches run concurrently with no
// ordering guarantee between them.
func (t *HTTPTransport) Broadcast(ctx context.Context, phase int, v value.Value, round uint64) {
	body, err := json.Marshal(wire.MessageRequest{Phase: phase, Value: v, K: round, From: t.self})
	if err != nil {
		logger.Error("transport: marshal broadcast body: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDials)
	for id, addr := range t.peers {
		if id == t.self {
			continue
		}
		id, addr := id, addr
		g.Go(func() error {
			t.send(gctx, addr, body)
			logger.Debug("node %d: sent phase %d round %d to peer %d", t.self, phase, round, id)
			return nil // never propagate a per-peer failure out of Broadcast
		})
	}
	// g.Wait's only possible error comes from a Go func returning non-nil,
	// which never happens here; Broadcast itself never fails.
	_ = g.Wait()
}

func (t *HTTPTransport) send(ctx context.Context, addr string, body []byte) {
	url := fmt.Sprintf("http://%s/message", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		logger.Debug("transport: dispatch to %s failed: %v", addr, err)
		return
	}
	defer resp.Body.Close()
}

// Deliver forwards a decoded inbound message to the wired Receiver, which
// is responsible for rejecting delivery to a killed or faulty node. The
// control surface's /message handler does not go through it; it calls
// consensus.Node.Deliver directly.
func (t *HTTPTransport) Deliver(phase inbox.Phase, round uint64, v value.Value, from int) error {
	if t.receiver == nil {
		return fmt.Errorf("transport: no receiver wired")
	}
	return t.receiver.Deliver(phase, round, v, from)
}
