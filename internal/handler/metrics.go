package handler

import "sync/atomic"

// webhookMetrics counts event dispositions since process start. All
// counters are process-local.
type webhookMetrics struct {
	total       atomic.Int64
	malformed   atomic.Int64
	status      atomic.Int64
	unsupported atomic.Int64
	duplicate   atomic.Int64
	stale       atomic.Int64
	failed      atomic.Int64
	processed   atomic.Int64
}

func (m *webhookMetrics) snapshot() map[string]int64 {
	return map[string]int64{
		"total":       m.total.Load(),
		"malformed":   m.malformed.Load(),
		"status":      m.status.Load(),
		"unsupported": m.unsupported.Load(),
		"duplicate":   m.duplicate.Load(),
		"stale":       m.stale.Load(),
		"failed":      m.failed.Load(),
		"processed":   m.processed.Load(),
	}
}
