// Package scheduler drives the engine's two periodic tasks through the
// transport's self-send continuation primitives, exactly as consensus.c's
// Consensus_Init registers Consensus_ShortPeriodicTasks/
// Consensus_LongPeriodicTasks via Cluster_SendPersisMsgToMySelfM. It knows
// nothing about instances or logs — it only calls back into whatever
// Driver the engine provides, keeping the tick cadence decoupled from
// protocol logic.
package scheduler

import (
	"github.com/senutpal/paxlog/internal/cluster"
	"github.com/senutpal/paxlog/internal/config"
	"github.com/senutpal/paxlog/internal/transport"
)

// Message type names for the two self-only tick messages.
const (
	TypeShortTick = "paxlog.tick.short"
	TypeLongTick  = "paxlog.tick.long"
)

// Driver is implemented by the engine: the two bodies consensus.c runs on
// every short/long tick, across every named log.
type Driver interface {
	// ShortTick gossips each log's last-delivered instance id and reclaims
	// anything that has fallen below the resulting watermark
	// (consensus.c Consensus_ShortPeriodicTasks).
	ShortTick()
	// LongTick rebroadcasts CallbackTriggered for delivered instances that
	// peers may not have seen yet (consensus.c
	// Consensus_LongPeriodicTasks).
	LongTick()
}

// Scheduler owns the two periodic self-sends.
type Scheduler struct {
	transport transport.Transport
	driver    Driver
	cfg       config.Config
}

// New builds a Scheduler. Call Start once the driver is ready to receive
// ticks.
func New(t transport.Transport, driver Driver, cfg config.Config) *Scheduler {
	return &Scheduler{transport: t, driver: driver, cfg: cfg}
}

// Start registers the tick receivers and begins the two periodic
// self-sends. The returned func cancels both.
func (s *Scheduler) Start() (stop func()) {
	s.transport.RegisterReceiver(TypeShortTick, func(cluster.ID, []byte) { s.driver.ShortTick() })
	s.transport.RegisterReceiver(TypeLongTick, func(cluster.ID, []byte) { s.driver.LongTick() })

	cancelShort := s.transport.SendPeriodicToSelf(TypeShortTick, nil, s.cfg.ShortTick)
	cancelLong := s.transport.SendPeriodicToSelf(TypeLongTick, nil, s.cfg.LongTick)
	return func() {
		cancelShort()
		cancelLong()
	}
}
