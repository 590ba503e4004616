// Package paxlog implements a replicated log engine built on a
// single-decree Paxos instance per log position: every node runs
// co-located proposer, acceptor, and learner roles, and a named log's
// submitted values are delivered, in order and exactly once, once a
// majority of the cluster has agreed on each one.
//
// A Node wires together the per-instance state machine (internal/paxos),
// the wire protocol (internal/protocol), and the named-log engine
// (internal/engine) against whatever Cluster and Transport the caller
// supplies — this package owns no network code of its own.
package paxlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/senutpal/paxlog/internal/cluster"
	"github.com/senutpal/paxlog/internal/config"
	"github.com/senutpal/paxlog/internal/engine"
	"github.com/senutpal/paxlog/internal/metrics"
	"github.com/senutpal/paxlog/internal/scheduler"
	"github.com/senutpal/paxlog/internal/transport"
)

// Re-exported so callers never have to import the internal packages
// directly to construct a Node.
type (
	Cluster   = cluster.Cluster
	NodeID    = cluster.ID
	Transport = transport.Transport
	Config    = config.Config
	Metrics   = metrics.Registry
)

// NewNodeID builds a fixed-width NodeID from a human-readable string.
func NewNodeID(s string) NodeID { return cluster.NewID(s) }

// NewStaticCluster builds a fixed-membership Cluster. mode controls
// whether the engine runs the replicated protocol or the single-process
// fast path.
func NewStaticCluster(self NodeID, members []NodeID, mode bool) (*cluster.Static, error) {
	return cluster.NewStatic(self, members, mode)
}

// NewMemoryTransport builds an in-process Transport hub; nodes attach to
// it with Join.
func NewMemoryTransport() *transport.Hub { return transport.NewHub() }

// DefaultConfig returns the engine's out-of-the-box tunables.
func DefaultConfig() Config { return config.Default() }

// Node is one running replicated-log engine instance: the named log
// registry plus the two periodic background tasks that keep the watermark
// advancing and repair gaps via anti-entropy.
type Node struct {
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
}

// NewNode constructs a Node. reg may be nil, in which case a private
// prometheus.NewRegistry() is created so multiple in-process nodes (as in
// the demo and scenario tests) never collide on collector names.
func NewNode(c Cluster, t Transport, reg *Metrics, logger *zap.Logger, cfg Config) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.NewRegistry(prometheus.NewRegistry())
	}
	e := engine.New(c, t, reg, logger, cfg)
	return &Node{
		engine:    e,
		scheduler: scheduler.New(t, e, cfg),
	}
}

// Start begins the node's periodic background tasks. The returned func
// stops them; call it on shutdown.
func (n *Node) Start() (stop func()) {
	return n.scheduler.Start()
}

// CreateLog registers a named log. approvedCb receives each value in
// order, exactly once, as it is learned and delivered locally, with the
// submitting node's id already stripped (see SplitValue).
// appliedOnClusterCb receives it again, once, once the whole cluster has
// delivered it and its instance is reclaimed. Both receive additionalData:
// the userContext the submitting node passed to Submit, if and only if
// this node's own submission is what the instance actually learned — nil
// otherwise. CreateLog must be called with the same set of names on every
// node before any log traffic begins.
func (n *Node) CreateLog(name string, approvedCb, appliedOnClusterCb func(val []byte, additionalData interface{})) {
	n.engine.CreateLog(name,
		func(framed []byte, additionalData interface{}) {
			_, val := SplitValue(framed)
			approvedCb(val, additionalData)
		},
		func(framed []byte, additionalData interface{}) {
			_, val := SplitValue(framed)
			appliedOnClusterCb(val, additionalData)
		},
	)
}

// Submit appends val to the named log under userContext, an opaque value
// handed back to approvedCb/appliedOnClusterCb as additionalData on this
// node if and only if this submission (rather than some peer's) is what
// the instance ultimately learns.
func (n *Node) Submit(logName string, val []byte, userContext interface{}) {
	n.engine.Submit(logName, val, userContext)
}

// Info returns a diagnostic snapshot of every log on this node.
func (n *Node) Info() []engine.LogInfo {
	return n.engine.Info()
}

// TestSet and TestGet are thin diagnostic helpers for integration tests
// and the paxlogd CLI, mirroring consensus.c's rg.testconsensusset/
// rg.testconsensusget commands. TestGet returns the delivered values with
// the submitting node's id stripped, as approvedCb sees them.
func (n *Node) TestSet(logName string, val []byte) { n.engine.TestSet(logName, val) }
func (n *Node) TestGet(logName string) [][]byte {
	framed := n.engine.TestGet(logName)
	out := make([][]byte, len(framed))
	for i, f := range framed {
		_, out[i] = SplitValue(f)
	}
	return out
}

// SplitValue separates a delivered frame into the submitting node's id and
// the original value, undoing the prefix every Submit call applies.
func SplitValue(framed []byte) (NodeID, []byte) {
	var id NodeID
	if len(framed) < cluster.IDLen {
		return id, framed
	}
	copy(id[:], framed[:cluster.IDLen])
	return id, framed[cluster.IDLen:]
}
