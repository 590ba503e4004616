// Package paxos holds the per-instance proposer/acceptor/learner state and
// the small set of pure helpers the message handlers in internal/engine
// build on. It deliberately holds no reference to a transport or a clock:
// every field here is exactly the state consensus.c keeps on a
// ConsensusInstance, translated into idiomatic Go structs.
package paxos

// Phase is the proposer's lifecycle stage for one instance.
type Phase int

const (
	// PhaseOne is recruiting promises for a proposal id (consensus.c
	// PHASE_ONE).
	PhaseOne Phase = iota
	// PhaseTwo is collecting accepts for a value (consensus.c PHASE_TWO).
	PhaseTwo
	// PhaseDone means a majority has accepted the value; the proposer has
	// nothing left to do (consensus.c PHASE_DONE).
	PhaseDone
)

// ID identifies an instance within a single named log. Ids are assigned
// sequentially starting at 0; -1 is a sentinel meaning "the next instance
// to be created locally" (spec.md §4.2, consensus.c's
// Consensus_InstanceCreate(-1, ...) coalescing path).
type ID int64

// NextInstance is the sentinel instance id meaning "not yet assigned."
const NextInstance ID = -1

// ProposerState mirrors consensus.c's ConsensusInstance.proposer.
type ProposerState struct {
	Phase Phase

	// ProposalID is the proposal number this proposer is currently
	// pushing.
	ProposalID int64

	// BiggerProposalID is the highest accepted proposal id reported so far
	// in a Recruited reply; the value reported with it is the one Val was
	// last replaced by. Denials do not touch it.
	BiggerProposalID int64

	// Val is the value this proposer wants learned. It may be overwritten
	// by a higher-numbered peer's already-accepted value (Consensus_
	// RecruitedMessage's adoption rule).
	Val []byte

	// OriginalVal is the value the local client actually submitted. If the
	// instance ultimately learns a different value (because a peer's
	// earlier-accepted value was adopted instead), OriginalVal is
	// resubmitted as a new proposal once this one finishes.
	OriginalVal []byte

	NumRecruited int
	NumAccepted  int
}

// AcceptorState mirrors consensus.c's ConsensusInstance.acceptor.
type AcceptorState struct {
	// ProposalID is the highest proposal id this acceptor has promised not
	// to accept anything below.
	ProposalID int64

	// AcceptedProposalID/AcceptedVal record the most recent accepted
	// proposal, if any; AcceptedProposalID is 0 when nothing has been
	// accepted yet.
	AcceptedProposalID int64
	AcceptedVal        []byte
}

// LearnerState mirrors consensus.c's ConsensusInstance.learner.
type LearnerState struct {
	// LearnProposalID is the proposal id the learner is currently counting
	// LearnValue messages for.
	LearnProposalID int64
	// LearnedCount is the number of LearnValue messages seen for
	// LearnProposalID.
	LearnedCount int

	ValueLearned bool
	Val          []byte

	// HasOriginal, OriginalVal, and UserContext are set only when this
	// node itself locally submitted a value for this instance. OriginalVal
	// is the framed value as submitted; UserContext is the opaque value
	// the caller passed to submit. A host callback only ever sees
	// UserContext back — as additional_data — when the value this learner
	// ultimately learns is byte-identical to OriginalVal (spec.md §4.5,
	// consensus.c's additionalData threaded through Consensus_Send).
	HasOriginal bool
	OriginalVal []byte
	UserContext interface{}
}

// Instance is one Paxos instance within a named log: a single agreed-upon
// slot in that log's sequence, holding independent proposer, acceptor, and
// learner sub-state exactly as consensus.c's ConsensusInstance does.
type Instance struct {
	ID ID

	Proposer ProposerState
	Acceptor AcceptorState
	Learner  LearnerState

	// Delivered is set once this instance's learned value has been handed
	// to the log's delivery callback, used by the ordered-delivery walk in
	// internal/engine (consensus.c's triggered flag).
	Delivered bool
}

// NewInstance creates a fresh instance for id with an initial proposal
// number of 1 and val as both the proposed and original value, matching
// consensus.c's Consensus_StartInstance.
func NewInstance(id ID, val []byte) *Instance {
	dup := make([]byte, len(val))
	copy(dup, val)
	orig := make([]byte, len(val))
	copy(orig, val)
	return &Instance{
		ID: id,
		Proposer: ProposerState{
			Phase:       PhaseOne,
			ProposalID:  1,
			Val:         dup,
			OriginalVal: orig,
		},
	}
}

// ValEquals reports whether a and b hold the same bytes, mirroring
// consensus.c's Consensus_ValEquals (used to decide whether a resubmit is
// actually needed after learning a peer's adopted value).
func ValEquals(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValDup returns a copy of v, mirroring consensus.c's Consensus_ValDup.
func ValDup(v []byte) []byte {
	if v == nil {
		return nil
	}
	dup := make([]byte, len(v))
	copy(dup, v)
	return dup
}
