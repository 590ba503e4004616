// Package transport is the external collaborator spec.md §6 describes for
// message delivery: reliable sends to one node/all nodes/all-and-self,
// unreliable (best-effort) sends for anti-entropy traffic, and the
// self-send continuation primitives the engine uses instead of blocking
// (delayed self-send for backoff, periodic self-send for the two ticks).
//
// The engine never opens a socket itself — it is handed a Transport and
// only calls into it, matching consensus.c's reliance on
// Cluster_SendMsg/Cluster_SendMsgToMySelfWithDelayM/
// Cluster_SendPersisMsgToMySelfM.
package transport

import (
	"time"

	"github.com/senutpal/paxlog/internal/cluster"
)

// Receiver handles one inbound message kind. sender is the originating
// node id (meaningful even for self-sends, which carry the local node id).
type Receiver func(sender cluster.ID, payload []byte)

// Transport is the engine's view of the network. Every send is
// fire-and-forget from the caller's perspective; delivery ordering across
// different destinations is not guaranteed, matching the underlying
// cluster message bus this abstracts.
type Transport interface {
	// RegisterReceiver associates a message type name with the function
	// that handles it. Only one receiver may be registered per name.
	RegisterReceiver(msgType string, fn Receiver)

	// SendToNode reliably delivers payload to one peer.
	SendToNode(msgType string, to cluster.ID, payload []byte)
	// SendToAll reliably delivers payload to every peer except self.
	SendToAll(msgType string, payload []byte)
	// SendToAllAndSelf reliably delivers payload to every peer including
	// self.
	SendToAllAndSelf(msgType string, payload []byte)
	// SendToSelf reliably delivers payload to the local node only.
	SendToSelf(msgType string, payload []byte)

	// SendUnreliableToAll delivers payload to every peer except self on a
	// best-effort basis; the transport may drop it. Used for anti-entropy
	// traffic (CallbackTriggered rebroadcast) that self-heals if lost.
	SendUnreliableToAll(msgType string, payload []byte)
	// SendUnreliableToAllAndSelf is SendUnreliableToAll including self.
	SendUnreliableToAllAndSelf(msgType string, payload []byte)

	// SendToSelfAfter schedules a one-shot self-send after d, used for
	// randomized proposal backoff (spec.md §4.3 AcceptDenied/Denied).
	SendToSelfAfter(msgType string, payload []byte, d time.Duration)
	// SendPeriodicToSelf schedules a repeating self-send every d, used for
	// the two periodic tasks (spec.md §4.6). It returns a cancel function.
	SendPeriodicToSelf(msgType string, payload []byte, d time.Duration) (cancel func())
}
