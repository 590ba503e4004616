package engine

import (
	"sort"

	"github.com/senutpal/paxlog/internal/cluster"
	"github.com/senutpal/paxlog/internal/paxos"
)

// log is one named replicated log: its instance table, its delivery
// cursor, and the per-peer watermark bookkeeping consensus.c keeps in
// lastTriggeredDict/minTriggered. Every log shares the owning engine's
// transport and cluster view but keeps its own state, matching spec.md
// §4.2's "named logs share transport and scheduling, not state."
type log struct {
	name string

	instances   map[paxos.ID]*paxos.Instance
	nextLocalID int64

	// nextToDeliver is the lowest instance id not yet handed to approvedCb.
	// Delivery only advances past contiguous learned instances, giving
	// strict in-order, at-most-once delivery (spec.md §8 properties).
	nextToDeliver int64

	// lastTriggered holds each peer's most recently gossiped delivered
	// instance id. Once it has one entry per cluster member, its minimum
	// becomes the new watermark (consensus.c Consensus_
	// RecalculateMinConsensusTriggered).
	lastTriggered map[cluster.ID]int64
	minTriggered  int64

	// approvedCb fires once per node, in order, as each instance is
	// delivered locally. appliedOnClusterCb fires once per node when an
	// instance is later reclaimed because the whole cluster has delivered
	// it. Both receive additional_data under the byte-equality rule in
	// additionalDataFor (spec.md §4.5/§4.6, consensus.c's approvedCallback/
	// appliedOnClusterCallback).
	approvedCb         func(val []byte, additionalData interface{})
	appliedOnClusterCb func(val []byte, additionalData interface{})

	// history records delivered values in order, backing the testset/
	// testget diagnostic commands (consensus.c rg.testconsensusset/
	// rg.testconsensusget).
	history [][]byte
}

func newLog(name string, approvedCb, appliedOnClusterCb func(val []byte, additionalData interface{})) *log {
	return &log{
		name:               name,
		instances:          make(map[paxos.ID]*paxos.Instance),
		minTriggered:       -1,
		lastTriggered:      make(map[cluster.ID]int64),
		approvedCb:         approvedCb,
		appliedOnClusterCb: appliedOnClusterCb,
	}
}

// get returns the instance at id, or nil if this node has never heard of
// it.
func (l *log) get(id paxos.ID) *paxos.Instance {
	return l.instances[id]
}

// getOrCreate returns the instance at id, creating a blank one (no
// proposer state, untouched acceptor/learner state) the first time any
// message mentions it — consensus.c's Consensus_InstanceGetOrCreate.
func (l *log) getOrCreate(id paxos.ID) *paxos.Instance {
	if inst, ok := l.instances[id]; ok {
		return inst
	}
	inst := &paxos.Instance{ID: id}
	l.instances[id] = inst
	return inst
}

// createLocal allocates the next sequential instance id (starting at 0)
// for a locally submitted value, seeds proposer state for it, and records
// it as this node's own original submission on the learner side so
// additionalDataFor can later decide whether userContext comes back as
// additional_data — the simplified equivalent of consensus.c's Consensus_
// InstanceCreate(-1, ...) path (see SPEC_FULL.md §5 Open Question 4). Two
// different nodes pick their candidate ids from independent local
// counters, so the same id frequently gets claimed by two different
// values cluster-wide; that is expected, not a bug — Paxos resolves the
// conflict per slot, and the loser's learner resubmits its original value
// under a new id once it learns what actually won. Because of that, this
// reuses any not-yet-learned instance already present at the chosen id
// (seeded by an inbound Recruit/Accept naming it before this node decided
// to use it locally) rather than replacing it, so an acceptor promise
// already recorded for that id is never discarded. Ids at or below the
// watermark, and ids this node has already learned, are skipped: their
// outcome is settled, so the learner would never get the chance to notice
// a lost value and resubmit it.
func (l *log) createLocal(val []byte, userContext interface{}) *paxos.Instance {
	id := paxos.ID(l.nextLocalID)
	l.nextLocalID++
	for l.belowWatermark(int64(id)) || (l.instances[id] != nil && l.instances[id].Learner.ValueLearned) {
		id = paxos.ID(l.nextLocalID)
		l.nextLocalID++
	}
	inst := l.getOrCreate(id)
	inst.Proposer = paxos.ProposerState{
		Phase:       paxos.PhaseOne,
		ProposalID:  1,
		Val:         paxos.ValDup(val),
		OriginalVal: paxos.ValDup(val),
	}
	inst.Learner.HasOriginal = true
	inst.Learner.OriginalVal = paxos.ValDup(val)
	inst.Learner.UserContext = userContext
	return inst
}

// belowWatermark reports whether id has already fallen below the
// cluster-wide minimum delivered instance and so may have been reclaimed;
// messages about it are dropped rather than resurrecting a freed
// instance. minTriggered is -1 until every cluster member has reported a
// watermark, and an id can never be negative, so the plain comparison
// also correctly reports false before the watermark is established.
func (l *log) belowWatermark(id int64) bool {
	return id <= l.minTriggered
}

// additionalDataFor implements the byte-equality rule that decides whether
// a host callback sees the caller's user_context back as additional_data:
// only when this node originally submitted a value for the instance AND
// the value actually learned is byte-identical to that submission
// (spec.md §4.5, consensus.c's additionalData threaded through
// Consensus_Send/approvedCallback).
func additionalDataFor(learner *paxos.LearnerState) interface{} {
	if !learner.HasOriginal || !paxos.ValEquals(learner.Val, learner.OriginalVal) {
		return nil
	}
	return learner.UserContext
}

// tryDeliver advances nextToDeliver across any run of contiguous learned,
// undelivered instances, invoking approvedCb for each in id order
// (consensus.c Consensus_TriggerCallbacks).
func (l *log) tryDeliver() {
	for {
		inst, ok := l.instances[paxos.ID(l.nextToDeliver)]
		if !ok || !inst.Learner.ValueLearned || inst.Delivered {
			return
		}
		inst.Delivered = true
		l.history = append(l.history, inst.Learner.Val)
		l.approvedCb(inst.Learner.Val, additionalDataFor(&inst.Learner))
		l.nextToDeliver++
	}
}

// recordTriggered updates peer's gossiped watermark and, once every
// cluster member has reported in, recomputes the minimum. It reports
// whether the watermark advanced.
func (l *log) recordTriggered(peer cluster.ID, id int64, clusterSize int) bool {
	if cur, ok := l.lastTriggered[peer]; ok && id <= cur {
		return false
	}
	l.lastTriggered[peer] = id
	if len(l.lastTriggered) < clusterSize {
		return false
	}
	min, first := int64(0), true
	for _, v := range l.lastTriggered {
		if first || v < min {
			min = v
			first = false
		}
	}
	if min > l.minTriggered {
		l.minTriggered = min
		return true
	}
	return false
}

// reclaim frees every instance at or below the current watermark. By the
// time an instance's id falls at or below the cluster-wide watermark,
// every node (including this one, since the watermark gossip is an
// all-and-self broadcast) has already delivered it locally, so its
// learned value is invoked through appliedOnClusterCb before the buffers
// are dropped for garbage collection (spec.md §3/§4.6, consensus.c's
// appliedOnClusterCallback). Returns how many instances were freed.
func (l *log) reclaim() int {
	freed := 0
	for id, inst := range l.instances {
		if int64(id) > l.minTriggered {
			continue
		}
		if inst.Learner.ValueLearned {
			l.appliedOnClusterCb(inst.Learner.Val, additionalDataFor(&inst.Learner))
		}
		inst.Proposer.Val = nil
		inst.Proposer.OriginalVal = nil
		inst.Acceptor.AcceptedVal = nil
		inst.Learner.Val = nil
		inst.Learner.OriginalVal = nil
		delete(l.instances, id)
		freed++
	}
	return freed
}

// deliveredAboveWatermark returns delivered instances above the current
// watermark, sorted ascending by id, for anti-entropy rebroadcast — peers
// below the watermark have presumably already delivered and reclaimed
// them, so there is no point re-announcing (consensus.c Consensus_
// LongPeriodicTasks).
func (l *log) deliveredAboveWatermark() []*paxos.Instance {
	out := make([]*paxos.Instance, 0)
	for id, inst := range l.instances {
		if inst.Delivered && int64(id) > l.minTriggered {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
