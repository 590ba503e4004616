package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDRoundTripsThroughString(t *testing.T) {
	id := NewID("node-1")
	assert.Equal(t, "node-1", id.String())
}

func TestQuorum(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3, 7: 4}
	for n, want := range cases {
		assert.Equal(t, want, Quorum(n), "Quorum(%d)", n)
	}
}

func TestNewStaticRequiresSelfInMembers(t *testing.T) {
	a, b := NewID("a"), NewID("b")
	_, err := NewStatic(a, []ID{b}, true)
	assert.Error(t, err)

	s, err := NewStatic(a, []ID{a, b}, true)
	require.NoError(t, err)
	assert.Equal(t, a, s.MyNodeID())
	assert.Equal(t, 2, s.Size())
	assert.True(t, s.IsClusterMode())
}
