package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxlog/internal/paxos"
)

func noopCb([]byte, interface{}) {}

func TestCreateLocalAllocatesIdsStartingAtZero(t *testing.T) {
	l := newLog("t", noopCb, noopCb)

	first := l.createLocal([]byte("a"), nil)
	require.Equal(t, paxos.ID(0), first.ID)

	second := l.createLocal([]byte("b"), nil)
	require.Equal(t, paxos.ID(1), second.ID)
}

func TestCreateLocalSeedsLearnerOriginal(t *testing.T) {
	l := newLog("t", noopCb, noopCb)

	inst := l.createLocal([]byte("a"), "ctx")
	require.True(t, inst.Learner.HasOriginal)
	require.Equal(t, []byte("a"), inst.Learner.OriginalVal)
	require.Equal(t, "ctx", inst.Learner.UserContext)
}

func TestBelowWatermarkBeforeWatermarkEstablished(t *testing.T) {
	l := newLog("t", noopCb, noopCb)
	require.False(t, l.belowWatermark(0))
	require.False(t, l.belowWatermark(5))
}

func TestAdditionalDataForByteEqualityRule(t *testing.T) {
	learnedOwn := &paxos.LearnerState{
		HasOriginal: true,
		OriginalVal: []byte("x"),
		UserContext: "ctx",
		Val:         []byte("x"),
	}
	require.Equal(t, "ctx", additionalDataFor(learnedOwn))

	learnedOther := &paxos.LearnerState{
		HasOriginal: true,
		OriginalVal: []byte("x"),
		UserContext: "ctx",
		Val:         []byte("y"),
	}
	require.Nil(t, additionalDataFor(learnedOther))

	notLocallySubmitted := &paxos.LearnerState{Val: []byte("x")}
	require.Nil(t, additionalDataFor(notLocallySubmitted))
}
