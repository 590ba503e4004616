// Package cluster is the external collaborator spec.md §6 describes: it
// exposes the local node's identity, the cluster size, and whether the
// engine should behave as a single standalone process or as part of a
// fixed-membership cluster. The engine only ever reads from this interface;
// membership changes are out of scope (spec.md §1 Non-goals).
package cluster

import "fmt"

// IDLen is the fixed width of a node id, matching consensus.c's
// REDISMODULE_NODE_ID_LEN. Every value submitted locally is prefixed with
// exactly this many bytes of node id (spec.md §3 "Value framing").
const IDLen = 40

// ID is a fixed-width node identifier.
type ID [IDLen]byte

// String renders the trimmed, human-readable form of an ID.
func (id ID) String() string {
	n := IDLen
	for n > 0 && id[n-1] == 0 {
		n--
	}
	return string(id[:n])
}

// NewID pads or truncates s into a fixed-width ID. Truncation only occurs
// for ids longer than IDLen, which real deployments should avoid.
func NewID(s string) ID {
	var id ID
	copy(id[:], s)
	return id
}

// Cluster is the contract the engine consumes: local identity, membership
// size, and cluster-mode flag (spec.md §6 "Cluster contract").
type Cluster interface {
	// MyNodeID returns this node's fixed-width identifier.
	MyNodeID() ID
	// Size returns the number of members in the cluster.
	Size() int
	// IsClusterMode reports whether the engine should run the full
	// replicated protocol (true) or the synchronous single-process
	// fast path (false, spec.md §4.7).
	IsClusterMode() bool
}

// Quorum returns the majority size for a cluster of n members: n/2 + 1.
func Quorum(n int) int {
	return n/2 + 1
}

// Static is a fixed-membership Cluster backed by a configured node list.
// It is the concrete implementation used by the demo and the scenario
// tests; a production deployment would instead back Cluster with its own
// membership/discovery service (out of scope here, see spec.md §1).
type Static struct {
	self    ID
	members []ID
	mode    bool
}

// NewStatic builds a Static cluster. mode controls IsClusterMode; members
// must include self.
func NewStatic(self ID, members []ID, mode bool) (*Static, error) {
	found := false
	for _, m := range members {
		if m == self {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("cluster: self %s not present in members", self)
	}
	return &Static{self: self, members: members, mode: mode}, nil
}

func (s *Static) MyNodeID() ID        { return s.self }
func (s *Static) Size() int           { return len(s.members) }
func (s *Static) IsClusterMode() bool { return s.mode }

// Members returns the configured membership list.
func (s *Static) Members() []ID {
	out := make([]ID, len(s.members))
	copy(out, s.members)
	return out
}
