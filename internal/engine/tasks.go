package engine

import "github.com/senutpal/paxlog/internal/protocol"

// ShortTick implements scheduler.Driver: gossip this node's own
// last-delivered instance id for every log, then reclaim whatever falls
// below the resulting watermark (consensus.c Consensus_
// ShortPeriodicTasks).
func (e *Engine) ShortTick() {
	for _, l := range e.logs {
		lastDelivered := l.nextToDeliver - 1
		e.broadcastAllAndSelf(protocol.TypeLastIDTriggered, protocol.LastIDTriggered{
			LogName:    l.name,
			InstanceID: lastDelivered,
		}.Encode())
	}
}

// LongTick implements scheduler.Driver: re-announce delivered instances
// that peers may not have seen yet, on a best-effort basis — a dropped
// CallbackTriggered just gets retried on the next long tick (consensus.c
// Consensus_LongPeriodicTasks).
func (e *Engine) LongTick() {
	for _, l := range e.logs {
		for _, inst := range l.deliveredAboveWatermark() {
			e.broadcastUnreliable(protocol.TypeCallbackTriggered, protocol.CallbackTriggered{
				LogName:    l.name,
				InstanceID: int64(inst.ID),
				Val:        inst.Learner.Val,
			}.Encode())
		}
	}
}
