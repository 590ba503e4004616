package engine

import (
	"go.uber.org/zap"

	"github.com/senutpal/paxlog/internal/cluster"
	"github.com/senutpal/paxlog/internal/paxos"
	"github.com/senutpal/paxlog/internal/protocol"
)

// onRecruit is the acceptor side of phase 1: promise ProposalID if it
// beats anything already promised, replying with any previously accepted
// value so the proposer can adopt it; otherwise deny and report the
// higher id already promised (consensus.c Consensus_RecruitMessage).
func (e *Engine) onRecruit(sender cluster.ID, payload []byte) {
	msg := protocol.DecodeRecruit(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeRecruit).Inc()
	l := e.mustLog(msg.LogName)
	if l.belowWatermark(msg.InstanceID) {
		return
	}
	inst := l.getOrCreate(paxos.ID(msg.InstanceID))

	if msg.ProposalID <= inst.Acceptor.ProposalID {
		e.sendTo(sender, protocol.TypeDenied, protocol.Denied{
			LogName:           msg.LogName,
			InstanceID:        msg.InstanceID,
			ProposalID:        msg.ProposalID,
			HighestProposalID: inst.Acceptor.ProposalID,
		}.Encode())
		return
	}

	inst.Acceptor.ProposalID = msg.ProposalID
	reply := protocol.Recruited{
		LogName:    msg.LogName,
		InstanceID: msg.InstanceID,
		ProposalID: msg.ProposalID,
	}
	if inst.Acceptor.AcceptedProposalID != 0 {
		reply.HasValue = true
		reply.AcceptedProposalID = inst.Acceptor.AcceptedProposalID
		reply.AcceptedVal = inst.Acceptor.AcceptedVal
	}
	e.sendTo(sender, protocol.TypeRecruited, reply.Encode())
}

// onRecruited counts a phase-1 promise toward quorum. If the acceptor had
// already accepted a value under a higher proposal id than anything this
// proposer has seen so far, the proposer must adopt that value instead of
// its own — the strict less-than comparison matches consensus.c's
// Consensus_RecruitedMessage exactly (spec.md §9 design note).
func (e *Engine) onRecruited(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeRecruited(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeRecruited).Inc()
	l := e.mustLog(msg.LogName)
	if l.belowWatermark(msg.InstanceID) {
		return
	}
	inst := l.get(paxos.ID(msg.InstanceID))
	if inst == nil || inst.Proposer.Phase != paxos.PhaseOne || inst.Proposer.ProposalID != msg.ProposalID {
		return // stale reply for an instance we've moved past
	}

	if msg.HasValue && inst.Proposer.BiggerProposalID < msg.AcceptedProposalID {
		inst.Proposer.BiggerProposalID = msg.AcceptedProposalID
		inst.Proposer.Val = paxos.ValDup(msg.AcceptedVal)
	}

	inst.Proposer.NumRecruited++
	if inst.Proposer.NumRecruited < e.quorum() {
		return
	}

	inst.Proposer.Phase = paxos.PhaseTwo
	inst.Proposer.NumAccepted = 0
	e.broadcastAllAndSelf(protocol.TypeAccept, protocol.Accept{
		LogName:    msg.LogName,
		InstanceID: msg.InstanceID,
		ProposalID: msg.ProposalID,
		Val:        inst.Proposer.Val,
	}.Encode())
}

// onDenied handles a phase-1 rejection: bump past the acceptor's known
// proposal id and retry after a randomized backoff (consensus.c
// Consensus_DeniedMessage).
func (e *Engine) onDenied(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeDenied(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeDenied).Inc()
	l := e.mustLog(msg.LogName)
	inst := l.get(paxos.ID(msg.InstanceID))
	if inst == nil || inst.Proposer.Phase != paxos.PhaseOne || inst.Proposer.ProposalID != msg.ProposalID {
		return
	}
	e.bumpAndRetry(l, inst, msg.HighestProposalID)
}

// onAccept is the acceptor side of phase 2: accept Val if ProposalID is at
// least as high as anything promised, reply directly to the proposer, and
// separately broadcast LearnValue so every learner (including this node's
// own) can count it toward a majority — in that order, matching
// consensus.c Consensus_AcceptMessage's write sequence.
func (e *Engine) onAccept(sender cluster.ID, payload []byte) {
	msg := protocol.DecodeAccept(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeAccept).Inc()
	l := e.mustLog(msg.LogName)
	if l.belowWatermark(msg.InstanceID) {
		return
	}
	inst := l.getOrCreate(paxos.ID(msg.InstanceID))

	if msg.ProposalID < inst.Acceptor.ProposalID {
		e.sendTo(sender, protocol.TypeAcceptDenied, protocol.AcceptDenied{
			LogName:           msg.LogName,
			InstanceID:        msg.InstanceID,
			ProposalID:        msg.ProposalID,
			HighestProposalID: inst.Acceptor.ProposalID,
		}.Encode())
		return
	}

	inst.Acceptor.ProposalID = msg.ProposalID
	inst.Acceptor.AcceptedProposalID = msg.ProposalID
	inst.Acceptor.AcceptedVal = paxos.ValDup(msg.Val)

	e.sendTo(sender, protocol.TypeValueAccepted, protocol.ValueAccepted{
		LogName:    msg.LogName,
		InstanceID: msg.InstanceID,
		ProposalID: msg.ProposalID,
	}.Encode())
	e.broadcastAllAndSelf(protocol.TypeLearnValue, protocol.LearnValue{
		LogName:    msg.LogName,
		InstanceID: msg.InstanceID,
		ProposalID: msg.ProposalID,
		Val:        msg.Val,
	}.Encode())
}

// onAcceptDenied handles a phase-2 rejection: fall back to phase 1 at a
// bumped proposal id and retry after backoff (consensus.c Consensus_
// AcceptDeniedMessage).
func (e *Engine) onAcceptDenied(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeAcceptDenied(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeAcceptDenied).Inc()
	l := e.mustLog(msg.LogName)
	inst := l.get(paxos.ID(msg.InstanceID))
	if inst == nil || inst.Proposer.Phase != paxos.PhaseTwo || inst.Proposer.ProposalID != msg.ProposalID {
		return
	}
	inst.Proposer.Phase = paxos.PhaseOne
	inst.Proposer.NumAccepted = 0
	e.bumpAndRetry(l, inst, msg.HighestProposalID)
}

// bumpAndRetry advances inst's proposal id past denied and schedules a
// delayed self-send that re-broadcasts Recruit once the backoff elapses.
func (e *Engine) bumpAndRetry(l *log, inst *paxos.Instance, denied int64) {
	if next := denied + 1; next > inst.Proposer.ProposalID {
		inst.Proposer.ProposalID = next
	}
	inst.Proposer.NumRecruited = 0
	e.transport.SendToSelfAfter(typeRetryRecruit, protocol.Recruit{
		LogName:    l.name,
		InstanceID: int64(inst.ID),
		ProposalID: inst.Proposer.ProposalID,
	}.Encode(), e.retryBackoff())
}

// onRetryRecruit re-broadcasts Recruit once a backoff delay elapses,
// unless the instance has moved on since the retry was scheduled.
func (e *Engine) onRetryRecruit(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeRecruit(payload)
	l := e.mustLog(msg.LogName)
	inst := l.get(paxos.ID(msg.InstanceID))
	if inst == nil || inst.Proposer.Phase == paxos.PhaseDone || inst.Proposer.ProposalID != msg.ProposalID {
		return
	}
	inst.Proposer.NumRecruited = 0
	e.broadcastAllAndSelf(protocol.TypeRecruit, protocol.Recruit{
		LogName:    l.name,
		InstanceID: msg.InstanceID,
		ProposalID: inst.Proposer.ProposalID,
	}.Encode())
}

// onValueAccepted counts a direct accept confirmation toward the
// proposer's own majority; once reached, the proposer's job for this
// instance is done. Whether the value actually learned matches what this
// node originally proposed is a question for the learner, not the
// proposer — a node whose own proposal never reaches a majority here
// (stuck in Denied/AcceptDenied backoff) must still notice and resubmit
// once a peer's value is learned instead, so that check lives in
// onLearnValue (consensus.c Consensus_ValueAcceptedMessage).
func (e *Engine) onValueAccepted(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeValueAccepted(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeValueAccepted).Inc()
	l := e.mustLog(msg.LogName)
	inst := l.get(paxos.ID(msg.InstanceID))
	if inst == nil || inst.Proposer.Phase != paxos.PhaseTwo || inst.Proposer.ProposalID != msg.ProposalID {
		return
	}

	inst.Proposer.NumAccepted++
	if inst.Proposer.NumAccepted < e.quorum() {
		return
	}

	inst.Proposer.Phase = paxos.PhaseDone
}

// onLearnValue is the learner role: count ValueAccepted-derived reports
// per proposal id, resetting the count whenever a higher proposal id
// shows up, mirroring consensus.c Consensus_LearnValueMessage's three-way
// branch exactly, including resetting to 1 rather than 0 on a higher id
// (spec.md §9 design note). If this node had originally submitted a value
// for this instance and the value the cluster actually learned is a
// different one (some peer's earlier-accepted value won instead), this
// node's original value is resubmitted as a new instance so it is not
// silently lost (spec.md §4.3/§9, consensus.c:223-226).
func (e *Engine) onLearnValue(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeLearnValue(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeLearnValue).Inc()
	l := e.mustLog(msg.LogName)
	if l.belowWatermark(msg.InstanceID) {
		return
	}
	inst := l.getOrCreate(paxos.ID(msg.InstanceID))
	learner := &inst.Learner

	switch {
	case msg.ProposalID < learner.LearnProposalID:
		return
	case msg.ProposalID > learner.LearnProposalID:
		learner.LearnProposalID = msg.ProposalID
		learner.LearnedCount = 1
	default:
		learner.LearnedCount++
	}

	if learner.ValueLearned || learner.LearnedCount < e.quorum() {
		return
	}
	learner.ValueLearned = true
	learner.Val = paxos.ValDup(msg.Val)

	if learner.HasOriginal && !paxos.ValEquals(learner.Val, learner.OriginalVal) {
		e.log.Debug("resubmitting displaced value",
			zap.String("log", l.name), zap.Int64("instance", int64(inst.ID)))
		e.startInstance(l.name, learner.OriginalVal, learner.UserContext)
	}

	e.metrics.InstancesLive.WithLabelValues(l.name).Dec()
	l.tryDeliver()
}

// onCallbackTriggered is the anti-entropy path: a peer is telling us it
// already delivered this instance's value, so we can learn and deliver it
// directly without running the protocol ourselves (consensus.c
// Consensus_CallbackTriggered).
func (e *Engine) onCallbackTriggered(_ cluster.ID, payload []byte) {
	msg := protocol.DecodeCallbackTriggered(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeCallbackTriggered).Inc()
	l := e.mustLog(msg.LogName)
	if l.belowWatermark(msg.InstanceID) {
		return
	}
	inst := l.getOrCreate(paxos.ID(msg.InstanceID))
	if !inst.Learner.ValueLearned {
		inst.Learner.ValueLearned = true
		inst.Learner.Val = paxos.ValDup(msg.Val)
	}
	l.tryDeliver()
}

// onLastIDTriggered folds a peer's reported last-delivered instance id
// into this log's watermark and reclaims anything that newly falls below
// it (consensus.c Consensus_RecalculateMinConsensusTriggered).
func (e *Engine) onLastIDTriggered(sender cluster.ID, payload []byte) {
	msg := protocol.DecodeLastIDTriggered(payload)
	e.metrics.MessagesReceived.WithLabelValues(protocol.TypeLastIDTriggered).Inc()
	l := e.mustLog(msg.LogName)
	if !l.recordTriggered(sender, msg.InstanceID, e.cluster.Size()) {
		return
	}
	freed := l.reclaim()
	if freed > 0 {
		e.metrics.Reclaimed.WithLabelValues(l.name).Add(float64(freed))
	}
}
