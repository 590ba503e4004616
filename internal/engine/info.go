package engine

// LogInfo is a diagnostic snapshot of one named log, the equivalent of
// what consensus.c's Consensus_Info/Consensus_ReplyInfo report per
// registered consensus instance.
type LogInfo struct {
	Name           string
	LiveInstances  int
	NextToDeliver  int64
	MinTriggered   int64
	DeliveredCount int
}

// Info returns a diagnostic snapshot of every log, grounded on
// consensus.c's rg.infoconsensus command.
func (e *Engine) Info() []LogInfo {
	out := make([]LogInfo, 0, len(e.logs))
	for _, l := range e.logs {
		out = append(out, LogInfo{
			Name:           l.name,
			LiveInstances:  len(l.instances),
			NextToDeliver:  l.nextToDeliver,
			MinTriggered:   l.minTriggered,
			DeliveredCount: len(l.history),
		})
	}
	return out
}

// TestSet submits val to logName, the equivalent of consensus.c's
// rg.testconsensusset diagnostic command.
func (e *Engine) TestSet(logName string, val []byte) {
	e.Submit(logName, val, nil)
}

// TestGet returns every value delivered so far on logName, the equivalent
// of consensus.c's rg.testconsensusget diagnostic command.
func (e *Engine) TestGet(logName string) [][]byte {
	l := e.mustLog(logName)
	out := make([][]byte, len(l.history))
	copy(out, l.history)
	return out
}
