package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxlog/internal/cluster"
)

func TestSendToNodeDeliversOnlyToTarget(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	a, b, c := cluster.NewID("a"), cluster.NewID("b"), cluster.NewID("c")
	ta, tb, tc := hub.Join(a), hub.Join(b), hub.Join(c)

	var mu sync.Mutex
	var gotB, gotC bool
	tb.RegisterReceiver("ping", func(cluster.ID, []byte) { mu.Lock(); gotB = true; mu.Unlock() })
	tc.RegisterReceiver("ping", func(cluster.ID, []byte) { mu.Lock(); gotC = true; mu.Unlock() })
	ta.RegisterReceiver("ping", func(cluster.ID, []byte) {})

	ta.SendToNode("ping", b, []byte("hi"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotB
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.False(t, gotC)
	mu.Unlock()
}

func TestSendToAllExcludesSelf(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	a, b := cluster.NewID("a"), cluster.NewID("b")
	ta, tb := hub.Join(a), hub.Join(b)

	var mu sync.Mutex
	selfHits, peerHits := 0, 0
	ta.RegisterReceiver("x", func(cluster.ID, []byte) { mu.Lock(); selfHits++; mu.Unlock() })
	tb.RegisterReceiver("x", func(cluster.ID, []byte) { mu.Lock(); peerHits++; mu.Unlock() })

	ta.SendToAll("x", nil)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return peerHits == 1
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, selfHits)
	mu.Unlock()
}

func TestSendToAllAndSelfIncludesSelf(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	a, b := cluster.NewID("a"), cluster.NewID("b")
	ta, tb := hub.Join(a), hub.Join(b)

	var mu sync.Mutex
	selfHits, peerHits := 0, 0
	ta.RegisterReceiver("x", func(cluster.ID, []byte) { mu.Lock(); selfHits++; mu.Unlock() })
	tb.RegisterReceiver("x", func(cluster.ID, []byte) { mu.Lock(); peerHits++; mu.Unlock() })

	ta.SendToAllAndSelf("x", nil)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return selfHits == 1 && peerHits == 1
	}, time.Second, time.Millisecond)
}

func TestSendToSelfAfterDelaysDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	a := cluster.NewID("a")
	ta := hub.Join(a)

	start := time.Now()
	var mu sync.Mutex
	var deliveredAt time.Time
	ta.RegisterReceiver("x", func(cluster.ID, []byte) {
		mu.Lock()
		deliveredAt = time.Now()
		mu.Unlock()
	})

	ta.SendToSelfAfter("x", nil, 50*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !deliveredAt.IsZero()
	}, time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, deliveredAt.Sub(start), 40*time.Millisecond)
}

func TestSendPeriodicToSelfStopsOnCancel(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	a := cluster.NewID("a")
	ta := hub.Join(a)

	var mu sync.Mutex
	count := 0
	ta.RegisterReceiver("tick", func(cluster.ID, []byte) { mu.Lock(); count++; mu.Unlock() })

	cancel := ta.SendPeriodicToSelf("tick", nil, 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	cancel()
	mu.Lock()
	seen := count
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, seen, count, "no further ticks should be delivered after cancel")
}
