package transport

import (
	"math/rand"
	"sync"
	"time"

	"github.com/senutpal/paxlog/internal/assert"
	"github.com/senutpal/paxlog/internal/cluster"
)

// Hub is an in-memory Transport shared by every node in a process, used by
// the demo and by scenario tests. Delivery happens synchronously on the
// sender's goroutine but is dispatched through each node's own serial
// dispatch queue, so handler code never has to worry about concurrent
// invocation — this preserves the single-threaded-per-node model of
// spec.md §5 even though everything runs in one process.
type Hub struct {
	mu    sync.Mutex
	nodes map[cluster.ID]*node
	rng   *rand.Rand
}

type node struct {
	id        cluster.ID
	receivers map[string]Receiver
	queue     chan func()
	done      chan struct{}
}

// NewHub creates an empty Hub. Nodes are attached with Join.
func NewHub() *Hub {
	return &Hub{
		nodes: make(map[cluster.ID]*node),
		rng:   rand.New(rand.NewSource(1)),
	}
}

// Join attaches a node id to the hub and returns a Transport scoped to it.
// Each joined node runs its own serial dispatch goroutine so handlers never
// race with each other, matching the single-threaded engine model.
func (h *Hub) Join(id cluster.ID) Transport {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := &node{
		id:        id,
		receivers: make(map[string]Receiver),
		queue:     make(chan func(), 1024),
		done:      make(chan struct{}),
	}
	h.nodes[id] = n
	go n.run()
	return &nodeTransport{hub: h, self: n}
}

// Close stops every joined node's dispatch goroutine.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.nodes {
		close(n.done)
	}
}

func (n *node) run() {
	for {
		select {
		case fn := <-n.queue:
			fn()
		case <-n.done:
			return
		}
	}
}

func (n *node) deliver(sender cluster.ID, msgType string, payload []byte) {
	n.queue <- func() {
		fn, ok := n.receivers[msgType]
		assert.True(ok, "transport: no receiver registered for %q on node %s", msgType, n.id)
		fn(sender, payload)
	}
}

type nodeTransport struct {
	hub  *Hub
	self *node
}

func (t *nodeTransport) RegisterReceiver(msgType string, fn Receiver) {
	t.self.receivers[msgType] = fn
}

func (t *nodeTransport) peers(includeSelf bool) []*node {
	t.hub.mu.Lock()
	defer t.hub.mu.Unlock()
	out := make([]*node, 0, len(t.hub.nodes))
	for id, n := range t.hub.nodes {
		if !includeSelf && id == t.self.id {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (t *nodeTransport) SendToNode(msgType string, to cluster.ID, payload []byte) {
	t.hub.mu.Lock()
	n, ok := t.hub.nodes[to]
	t.hub.mu.Unlock()
	if !ok {
		return
	}
	n.deliver(t.self.id, msgType, payload)
}

func (t *nodeTransport) SendToAll(msgType string, payload []byte) {
	for _, n := range t.peers(false) {
		n.deliver(t.self.id, msgType, payload)
	}
}

func (t *nodeTransport) SendToAllAndSelf(msgType string, payload []byte) {
	for _, n := range t.peers(true) {
		n.deliver(t.self.id, msgType, payload)
	}
}

func (t *nodeTransport) SendToSelf(msgType string, payload []byte) {
	t.self.deliver(t.self.id, msgType, payload)
}

// dropRate is the fixed probability an unreliable send is discarded, high
// enough to exercise anti-entropy recovery in tests without making it
// flaky.
const dropRate = 0.1

func (t *nodeTransport) SendUnreliableToAll(msgType string, payload []byte) {
	for _, n := range t.peers(false) {
		if t.shouldDrop() {
			continue
		}
		n.deliver(t.self.id, msgType, payload)
	}
}

func (t *nodeTransport) SendUnreliableToAllAndSelf(msgType string, payload []byte) {
	for _, n := range t.peers(true) {
		if t.shouldDrop() {
			continue
		}
		n.deliver(t.self.id, msgType, payload)
	}
}

func (t *nodeTransport) shouldDrop() bool {
	t.hub.mu.Lock()
	defer t.hub.mu.Unlock()
	return t.hub.rng.Float64() < dropRate
}

func (t *nodeTransport) SendToSelfAfter(msgType string, payload []byte, d time.Duration) {
	self := t.self
	time.AfterFunc(d, func() {
		self.deliver(self.id, msgType, payload)
	})
}

func (t *nodeTransport) SendPeriodicToSelf(msgType string, payload []byte, d time.Duration) func() {
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	self := t.self
	go func() {
		for {
			select {
			case <-ticker.C:
				self.deliver(self.id, msgType, payload)
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(stop) }
}
