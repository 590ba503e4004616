// Package protocol defines the nine wire messages the engine exchanges:
// seven between proposer, acceptor, and learner roles, and two gossip
// messages used for watermark propagation and anti-entropy repair. Each
// struct's Encode/Decode pair is a direct, idiomatic transcription of the
// fields consensus.c writes and reads for the matching message function
// (spec.md §4.4).
package protocol

import "github.com/senutpal/paxlog/internal/codec"

// Message type names, used as the transport's receiver registration keys.
const (
	TypeRecruit           = "paxlog.recruit"
	TypeRecruited         = "paxlog.recruited"
	TypeDenied            = "paxlog.denied"
	TypeAccept            = "paxlog.accept"
	TypeAcceptDenied      = "paxlog.accept_denied"
	TypeValueAccepted     = "paxlog.value_accepted"
	TypeLearnValue        = "paxlog.learn_value"
	TypeCallbackTriggered = "paxlog.callback_triggered"
	TypeLastIDTriggered   = "paxlog.last_id_triggered"
)

// Recruit is phase 1: a proposer asking acceptors to promise not to accept
// anything below ProposalID (consensus.c Consensus_RecruitMessage).
type Recruit struct {
	LogName    string
	InstanceID int64
	ProposalID int64
}

func (m Recruit) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	return w.Bytes()
}

func DecodeRecruit(b []byte) Recruit {
	r := codec.NewReader(b)
	return Recruit{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		ProposalID: r.MustReadLong(),
	}
}

// Recruited is the promise reply to Recruit. HasValue distinguishes "I
// have never accepted anything" from "I already accepted AcceptedVal at
// AcceptedProposalID", since a zero-length value is itself a legal
// submitted value (consensus.c Consensus_RecruitedMessage).
type Recruited struct {
	LogName            string
	InstanceID         int64
	ProposalID         int64
	HasValue           bool
	AcceptedProposalID int64
	AcceptedVal        []byte
}

func (m Recruited) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	if m.HasValue {
		w.WriteLong(1)
	} else {
		w.WriteLong(0)
	}
	w.WriteLong(m.AcceptedProposalID)
	w.WriteBuff(m.AcceptedVal)
	return w.Bytes()
}

func DecodeRecruited(b []byte) Recruited {
	r := codec.NewReader(b)
	m := Recruited{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		ProposalID: r.MustReadLong(),
	}
	m.HasValue = r.MustReadLong() != 0
	m.AcceptedProposalID = r.MustReadLong()
	m.AcceptedVal = r.MustReadBuff()
	return m
}

// Denied is the phase-1 rejection reply: the acceptor has already promised
// a higher proposal id than ProposalID (consensus.c Consensus_
// DeniedMessage).
type Denied struct {
	LogName           string
	InstanceID        int64
	ProposalID        int64
	HighestProposalID int64
}

func (m Denied) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	w.WriteLong(m.HighestProposalID)
	return w.Bytes()
}

func DecodeDenied(b []byte) Denied {
	r := codec.NewReader(b)
	return Denied{
		LogName:           r.MustReadString(),
		InstanceID:        r.MustReadLong(),
		ProposalID:        r.MustReadLong(),
		HighestProposalID: r.MustReadLong(),
	}
}

// Accept is phase 2: the proposer asking acceptors to accept Val at
// ProposalID (consensus.c Consensus_AcceptMessage).
type Accept struct {
	LogName    string
	InstanceID int64
	ProposalID int64
	Val        []byte
}

func (m Accept) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	w.WriteBuff(m.Val)
	return w.Bytes()
}

func DecodeAccept(b []byte) Accept {
	r := codec.NewReader(b)
	return Accept{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		ProposalID: r.MustReadLong(),
		Val:        r.MustReadBuff(),
	}
}

// AcceptDenied is the phase-2 rejection reply (consensus.c Consensus_
// AcceptDeniedMessage).
type AcceptDenied struct {
	LogName           string
	InstanceID        int64
	ProposalID        int64
	HighestProposalID int64
}

func (m AcceptDenied) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	w.WriteLong(m.HighestProposalID)
	return w.Bytes()
}

func DecodeAcceptDenied(b []byte) AcceptDenied {
	r := codec.NewReader(b)
	return AcceptDenied{
		LogName:           r.MustReadString(),
		InstanceID:        r.MustReadLong(),
		ProposalID:        r.MustReadLong(),
		HighestProposalID: r.MustReadLong(),
	}
}

// ValueAccepted is the acceptor's direct reply to the proposer confirming
// an Accept was honored (consensus.c Consensus_ValueAcceptedMessage).
type ValueAccepted struct {
	LogName    string
	InstanceID int64
	ProposalID int64
}

func (m ValueAccepted) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	return w.Bytes()
}

func DecodeValueAccepted(b []byte) ValueAccepted {
	r := codec.NewReader(b)
	return ValueAccepted{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		ProposalID: r.MustReadLong(),
	}
}

// LearnValue is broadcast by an acceptor that just accepted a value, so
// every learner (including the acceptor's own) can count replies toward a
// majority (consensus.c Consensus_LearnValueMessage).
type LearnValue struct {
	LogName    string
	InstanceID int64
	ProposalID int64
	Val        []byte
}

func (m LearnValue) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteLong(m.ProposalID)
	w.WriteBuff(m.Val)
	return w.Bytes()
}

func DecodeLearnValue(b []byte) LearnValue {
	r := codec.NewReader(b)
	return LearnValue{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		ProposalID: r.MustReadLong(),
		Val:        r.MustReadBuff(),
	}
}

// CallbackTriggered is the anti-entropy gossip message: "I have delivered
// this instance's value", letting a lagging peer learn and deliver it
// without rerunning the protocol (consensus.c Consensus_
// CallbackTriggered).
type CallbackTriggered struct {
	LogName    string
	InstanceID int64
	Val        []byte
}

func (m CallbackTriggered) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	w.WriteBuff(m.Val)
	return w.Bytes()
}

func DecodeCallbackTriggered(b []byte) CallbackTriggered {
	r := codec.NewReader(b)
	return CallbackTriggered{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
		Val:        r.MustReadBuff(),
	}
}

// LastIDTriggered is the periodic watermark gossip message: "this is the
// highest instance id I have delivered", used by every peer to recompute
// the cluster-wide minimum delivered id (consensus.c Consensus_
// LastIdTriggered).
type LastIDTriggered struct {
	LogName    string
	InstanceID int64
}

func (m LastIDTriggered) Encode() []byte {
	w := codec.NewWriter()
	w.WriteString(m.LogName)
	w.WriteLong(m.InstanceID)
	return w.Bytes()
}

func DecodeLastIDTriggered(b []byte) LastIDTriggered {
	r := codec.NewReader(b)
	return LastIDTriggered{
		LogName:    r.MustReadString(),
		InstanceID: r.MustReadLong(),
	}
}
