package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecruitRoundTrip(t *testing.T) {
	m := Recruit{LogName: "l", InstanceID: 7, ProposalID: 2}
	got := DecodeRecruit(m.Encode())
	assert.Equal(t, m, got)
}

func TestRecruitedRoundTripWithValue(t *testing.T) {
	m := Recruited{
		LogName:            "l",
		InstanceID:         7,
		ProposalID:         2,
		HasValue:           true,
		AcceptedProposalID: 1,
		AcceptedVal:        []byte("v"),
	}
	got := DecodeRecruited(m.Encode())
	assert.Equal(t, m, got)
}

func TestRecruitedRoundTripWithoutValue(t *testing.T) {
	m := Recruited{LogName: "l", InstanceID: 7, ProposalID: 2}
	got := DecodeRecruited(m.Encode())
	assert.False(t, got.HasValue)
	assert.Empty(t, got.AcceptedVal)
}

func TestDeniedRoundTrip(t *testing.T) {
	m := Denied{LogName: "l", InstanceID: 1, ProposalID: 2, HighestProposalID: 5}
	assert.Equal(t, m, DecodeDenied(m.Encode()))
}

func TestAcceptRoundTrip(t *testing.T) {
	m := Accept{LogName: "l", InstanceID: 1, ProposalID: 2, Val: []byte("v")}
	assert.Equal(t, m, DecodeAccept(m.Encode()))
}

func TestAcceptDeniedRoundTrip(t *testing.T) {
	m := AcceptDenied{LogName: "l", InstanceID: 1, ProposalID: 2, HighestProposalID: 9}
	assert.Equal(t, m, DecodeAcceptDenied(m.Encode()))
}

func TestValueAcceptedRoundTrip(t *testing.T) {
	m := ValueAccepted{LogName: "l", InstanceID: 1, ProposalID: 2}
	assert.Equal(t, m, DecodeValueAccepted(m.Encode()))
}

func TestLearnValueRoundTrip(t *testing.T) {
	m := LearnValue{LogName: "l", InstanceID: 1, ProposalID: 2, Val: []byte("v")}
	assert.Equal(t, m, DecodeLearnValue(m.Encode()))
}

func TestCallbackTriggeredRoundTrip(t *testing.T) {
	m := CallbackTriggered{LogName: "l", InstanceID: 1, Val: []byte("v")}
	assert.Equal(t, m, DecodeCallbackTriggered(m.Encode()))
}

func TestLastIDTriggeredRoundTrip(t *testing.T) {
	m := LastIDTriggered{LogName: "l", InstanceID: 9}
	assert.Equal(t, m, DecodeLastIDTriggered(m.Encode()))
}
