// Package engine ties the wire protocol (internal/protocol), the
// per-instance state machine (internal/paxos), the transport, and the
// cluster view together into the running replicated-log engine: the named
// log registry, message dispatch, ordered delivery, and the public
// submit/create-log surface (spec.md §4.2/§4.5/§4.7, C2/C5/C7).
package engine

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/senutpal/paxlog/internal/assert"
	"github.com/senutpal/paxlog/internal/cluster"
	"github.com/senutpal/paxlog/internal/codec"
	"github.com/senutpal/paxlog/internal/config"
	"github.com/senutpal/paxlog/internal/metrics"
	"github.com/senutpal/paxlog/internal/paxos"
	"github.com/senutpal/paxlog/internal/protocol"
	"github.com/senutpal/paxlog/internal/transport"
)

// typeStartInstance is the internal self-send continuation Submit uses to
// re-enter the engine on its own serialized dispatch goroutine, mirroring
// consensus.c registering Consensus_StartInstance as an ordinary message
// receiver rather than calling it inline from Consensus_Send.
const typeStartInstance = "paxlog.start_instance"

// typeRetryRecruit is the delayed self-send a proposer schedules after a
// Denied or AcceptDenied rejection, mirroring consensus.c's backoff
// reschedule through Cluster_SendMsgToMySelfWithDelayM.
const typeRetryRecruit = "paxlog.retry_recruit"

// Engine owns every named log on one node and is the sole mutator of
// instance state. In cluster mode all instance mutation happens inside
// message receiver callbacks, which the transport serializes onto a single
// per-node goroutine, so no instance or log field needs its own lock
// (spec.md §5). Outside cluster mode, Submit creates and delivers the
// instance directly on the caller's goroutine.
type Engine struct {
	cluster   cluster.Cluster
	transport transport.Transport
	metrics   *metrics.Registry
	log       *zap.Logger
	cfg       config.Config
	rng       *rand.Rand

	logs map[string]*log

	// pendingMu and pendingContexts bridge a Submit caller's opaque
	// userContext across the self-send continuation boundary: the wire
	// codec can carry an int64 token but not an arbitrary interface{}, and
	// Submit may be called from any caller goroutine while onStartInstance
	// only ever runs on the engine's serialized dispatch goroutine. This is
	// the one piece of state in Engine guarded by its own lock — it is a
	// handoff correlation table, not protocol state, so it does not
	// conflict with the single-dispatch-goroutine design above.
	pendingMu       sync.Mutex
	pendingContexts map[int64]interface{}
	pendingSeq      int64
}

// New builds an Engine and registers its message receivers on t. It does
// not start the periodic tasks; call scheduler.New(t, e, cfg).Start() once
// every log has been created.
func New(c cluster.Cluster, t transport.Transport, reg *metrics.Registry, logger *zap.Logger, cfg config.Config) *Engine {
	e := &Engine{
		cluster:   c,
		transport: t,
		metrics:   reg,
		log:       logger,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(int64(cfg.ShortTick))),
		logs:      make(map[string]*log),

		pendingContexts: make(map[int64]interface{}),
	}
	e.registerReceivers()
	return e
}

func (e *Engine) registerReceivers() {
	t := e.transport
	t.RegisterReceiver(typeStartInstance, e.onStartInstance)
	t.RegisterReceiver(protocol.TypeRecruit, e.onRecruit)
	t.RegisterReceiver(protocol.TypeRecruited, e.onRecruited)
	t.RegisterReceiver(protocol.TypeDenied, e.onDenied)
	t.RegisterReceiver(protocol.TypeAccept, e.onAccept)
	t.RegisterReceiver(protocol.TypeAcceptDenied, e.onAcceptDenied)
	t.RegisterReceiver(protocol.TypeValueAccepted, e.onValueAccepted)
	t.RegisterReceiver(protocol.TypeLearnValue, e.onLearnValue)
	t.RegisterReceiver(protocol.TypeCallbackTriggered, e.onCallbackTriggered)
	t.RegisterReceiver(protocol.TypeLastIDTriggered, e.onLastIDTriggered)
	t.RegisterReceiver(typeRetryRecruit, e.onRetryRecruit)
}

// CreateLog registers a named log. approvedCb receives each value in
// order, exactly once, as it is learned and delivered locally;
// appliedOnClusterCb receives it again, once, when the whole cluster has
// delivered it and the instance is reclaimed. Both receive additional_data
// under the byte-equality rule in additionalDataFor. CreateLog must be
// called on every node for the same set of log names before any traffic
// for that log arrives — the registry itself carries no membership/
// ownership protocol (spec.md §4.2 Non-goal: dynamic log creation
// discovery).
func (e *Engine) CreateLog(name string, approvedCb, appliedOnClusterCb func(val []byte, additionalData interface{})) {
	assert.True(e.logs[name] == nil, "engine: log %q already created", name)
	e.logs[name] = newLog(name, approvedCb, appliedOnClusterCb)
}

func (e *Engine) mustLog(name string) *log {
	l, ok := e.logs[name]
	assert.True(ok, "engine: received message for unknown log %q", name)
	return l
}

// Submit appends val to the named log under userContext, an opaque value
// the caller gets back as additional_data on approvedCb/appliedOnClusterCb
// if and only if this node's own submission (not some peer's adopted
// value) is what the instance ultimately learns (spec.md §4.5/§4.7).
func (e *Engine) Submit(logName string, val []byte, userContext interface{}) {
	framed := framedValue(e.cluster.MyNodeID(), val)
	e.startInstance(logName, framed, userContext)
}

// startInstance is the shared entry point for starting an instance from an
// already-framed value: Submit uses it for fresh submissions, and
// onLearnValue's displaced-value resubmission uses it directly so the
// node-id framing is never applied twice. In cluster mode this returns
// immediately after scheduling the instance's creation on the engine's own
// dispatch goroutine (spec.md §4.7); delivery happens later via
// approvedCb. Outside cluster mode, a single node has no quorum to wait
// for, so the value is learned and delivered synchronously, matching
// consensus.c's Consensus_Send non-cluster fast path.
func (e *Engine) startInstance(logName string, framed []byte, userContext interface{}) {
	if !e.cluster.IsClusterMode() {
		l := e.mustLog(logName)
		inst := l.createLocal(framed, userContext)
		inst.Proposer.Phase = paxos.PhaseDone
		inst.Learner.ValueLearned = true
		inst.Learner.Val = framed
		l.tryDeliver()
		return
	}

	token := e.storePendingContext(userContext)
	msg := startInstanceMsg{LogName: logName, Val: framed, ContextToken: token}
	e.transport.SendToSelf(typeStartInstance, msg.encode())
}

// storePendingContext and takePendingContext bridge userContext across the
// self-send boundary described on Engine.pendingContexts.
func (e *Engine) storePendingContext(userContext interface{}) int64 {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pendingSeq++
	token := e.pendingSeq
	e.pendingContexts[token] = userContext
	return token
}

func (e *Engine) takePendingContext(token int64) interface{} {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	ctx := e.pendingContexts[token]
	delete(e.pendingContexts, token)
	return ctx
}

// framedValue prefixes val with the submitting node's id, mirroring
// consensus.c's Consensus_Send, which writes REDISMODULE_NODE_ID_LEN bytes
// of node id ahead of every submitted value.
func framedValue(node cluster.ID, val []byte) []byte {
	out := make([]byte, 0, cluster.IDLen+len(val))
	out = append(out, node[:]...)
	out = append(out, val...)
	return out
}

// startInstanceMsg is the internal self-send payload for typeStartInstance.
// ContextToken correlates back to the userContext stashed in
// pendingContexts; it is looked up and discarded in onStartInstance.
type startInstanceMsg struct {
	LogName      string
	Val          []byte
	ContextToken int64
}

func (m startInstanceMsg) encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteBuff(m.Val)
	w.WriteLong(m.ContextToken)
	return w.Bytes()
}

func decodeStartInstanceMsg(b []byte) startInstanceMsg {
	r := codec.NewReader(b)
	return startInstanceMsg{
		LogName:      r.MustReadString(),
		Val:          r.MustReadBuff(),
		ContextToken: r.MustReadLong(),
	}
}

func (e *Engine) onStartInstance(_ cluster.ID, payload []byte) {
	msg := decodeStartInstanceMsg(payload)
	l := e.mustLog(msg.LogName)
	ctx := e.takePendingContext(msg.ContextToken)
	inst := l.createLocal(msg.Val, ctx)
	e.metrics.InstancesLive.WithLabelValues(l.name).Inc()
	e.log.Debug("starting instance", zap.String("log", l.name), zap.Int64("instance", int64(inst.ID)))
	e.broadcastAllAndSelf(protocol.TypeRecruit, protocol.Recruit{
		LogName:    l.name,
		InstanceID: int64(inst.ID),
		ProposalID: inst.Proposer.ProposalID,
	}.Encode())
}

func (e *Engine) quorum() int {
	return cluster.Quorum(e.cluster.Size())
}

func (e *Engine) sendTo(to cluster.ID, msgType string, payload []byte) {
	e.metrics.MessagesSent.WithLabelValues(msgType).Inc()
	e.transport.SendToNode(msgType, to, payload)
}

func (e *Engine) broadcastAllAndSelf(msgType string, payload []byte) {
	e.metrics.MessagesSent.WithLabelValues(msgType).Inc()
	e.transport.SendToAllAndSelf(msgType, payload)
}

func (e *Engine) broadcastUnreliable(msgType string, payload []byte) {
	e.metrics.MessagesSent.WithLabelValues(msgType).Inc()
	e.transport.SendUnreliableToAll(msgType, payload)
}

// retryBackoff returns a random delay drawn uniformly from the inclusive
// range [BackoffMin, BackoffMax], the idiomatic Go equivalent of
// consensus.c's rand()-bounded reschedule delay used after a Denied/
// AcceptDenied rejection (spec.md §6).
func (e *Engine) retryBackoff() time.Duration {
	span := int64(e.cfg.BackoffMax - e.cfg.BackoffMin)
	if span <= 0 {
		return e.cfg.BackoffMin
	}
	return e.cfg.BackoffMin + time.Duration(e.rng.Int63n(span+1))
}
