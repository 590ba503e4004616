package paxos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInstanceSeedsProposerState(t *testing.T) {
	inst := NewInstance(ID(3), []byte("hello"))
	assert.Equal(t, ID(3), inst.ID)
	assert.Equal(t, PhaseOne, inst.Proposer.Phase)
	assert.Equal(t, int64(1), inst.Proposer.ProposalID)
	assert.Equal(t, []byte("hello"), inst.Proposer.Val)
	assert.Equal(t, []byte("hello"), inst.Proposer.OriginalVal)
	assert.False(t, inst.Learner.ValueLearned)
}

func TestNewInstanceCopiesInputSlice(t *testing.T) {
	val := []byte("hello")
	inst := NewInstance(ID(1), val)
	val[0] = 'H'
	assert.Equal(t, []byte("hello"), inst.Proposer.Val, "instance must not alias the caller's slice")
}

func TestLearnerStateZeroValueHasNoOriginal(t *testing.T) {
	var learner LearnerState
	assert.False(t, learner.HasOriginal)
	assert.Nil(t, learner.OriginalVal)
	assert.Nil(t, learner.UserContext)
}

func TestValEquals(t *testing.T) {
	assert.True(t, ValEquals([]byte("a"), []byte("a")))
	assert.True(t, ValEquals(nil, nil))
	assert.False(t, ValEquals([]byte("a"), []byte("b")))
	assert.False(t, ValEquals([]byte("a"), []byte("ab")))
}

func TestValDupIndependence(t *testing.T) {
	v := []byte("x")
	dup := ValDup(v)
	v[0] = 'y'
	assert.Equal(t, byte('x'), dup[0])
}
