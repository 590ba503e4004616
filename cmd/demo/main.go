// Command demo runs a small in-process paxlog cluster and submits a handful
// of values to watch replication happen end to end: every node's delivery
// log converges on the same sequence of values even though submissions
// land on different nodes concurrently.
package main

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/senutpal/paxlog"
)

const logName = "demo-log"

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	const numNodes = 5
	ids := make([]paxlog.NodeID, numNodes)
	for i := range ids {
		ids[i] = paxlog.NewNodeID(fmt.Sprintf("node-%d", i))
	}

	hub := paxlog.NewMemoryTransport()
	cfg := paxlog.DefaultConfig()
	cfg.ShortTick = 20 * time.Millisecond
	cfg.LongTick = 100 * time.Millisecond
	cfg.BackoffMin = 5 * time.Millisecond
	cfg.BackoffMax = 30 * time.Millisecond

	var mu sync.Mutex
	delivered := make(map[paxlog.NodeID][]string)

	nodes := make([]*paxlog.Node, numNodes)
	for i, id := range ids {
		c, err := paxlog.NewStaticCluster(id, ids, true)
		if err != nil {
			panic(err)
		}
		nodeTransport := hub.Join(id)
		n := paxlog.NewNode(c, nodeTransport, nil, logger.Named(id.String()), cfg)
		n.CreateLog(logName, func(val []byte, _ interface{}) {
			mu.Lock()
			delivered[id] = append(delivered[id], string(val))
			mu.Unlock()
		}, func([]byte, interface{}) {})
		stop := n.Start()
		defer stop()
		nodes[i] = n
	}

	fmt.Println("submitting 3 values from different nodes...")
	nodes[0].Submit(logName, []byte("alpha"), nil)
	nodes[2].Submit(logName, []byte("beta"), nil)
	nodes[4].Submit(logName, []byte("gamma"), nil)

	time.Sleep(500 * time.Millisecond)

	fmt.Println("submitting 20 concurrent values from every node...")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodes[i%numNodes].Submit(logName, []byte(fmt.Sprintf("item-%d", i)), nil)
		}(i)
	}
	wg.Wait()

	time.Sleep(1500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		fmt.Printf("%s delivered %d values: %v\n", id, len(delivered[id]), delivered[id])
	}

	first := delivered[ids[0]]
	for _, id := range ids[1:] {
		if len(delivered[id]) != len(first) {
			fmt.Printf("WARNING: %s delivered a different count than %s\n", id, ids[0])
			continue
		}
		for i := range first {
			if delivered[id][i] != first[i] {
				fmt.Printf("WARNING: %s diverged from %s at position %d\n", id, ids[0], i)
			}
		}
	}
	fmt.Println("done")
}
