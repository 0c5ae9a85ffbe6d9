package obs

import (
	"sync/atomic"
	"time"

	"kline/internal/model/enum"
)

const maxEventKind = int(enum.EventEndOfStream)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	published      [maxEventKind + 1]uint64
	dispatched     [maxEventKind + 1]uint64
	queueDrops     uint64
	queueClosed    uint64
	malformed      uint64
	unrouted       uint64
	rejectedTicks  uint64
	producerErrors uint64
	sinkErrors     uint64

	eventLatency    LatencyStats
	strategyLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	Sum   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Published       map[enum.EventKind]uint64
	Dispatched      map[enum.EventKind]uint64
	QueueDrops      uint64
	QueueClosed     uint64
	Malformed       uint64
	Unrouted        uint64
	RejectedTicks   uint64
	ProducerErrors  uint64
	SinkErrors      uint64
	EventLatency    LatencySnapshot
	StrategyLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObservePublish counts an event accepted by the queue.
func (m *Metrics) ObservePublish(kind enum.EventKind) {
	if m == nil {
		return
	}
	if idx := int(kind); idx >= 0 && idx < len(m.published) {
		atomic.AddUint64(&m.published[idx], 1)
	}
}

// ObserveDispatch counts a routed event and tracks receive to dispatch latency.
func (m *Metrics) ObserveDispatch(kind enum.EventKind, tsRecv int64, now time.Time) {
	if m == nil {
		return
	}
	if idx := int(kind); idx >= 0 && idx < len(m.dispatched) {
		atomic.AddUint64(&m.dispatched[idx], 1)
	}
	if tsRecv > 0 {
		if delta := now.UnixNano() - tsRecv; delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

// ObserveStrategy measures one strategy callback.
func (m *Metrics) ObserveStrategy(d time.Duration) {
	if m == nil {
		return
	}
	m.strategyLatency.Observe(d)
}

func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

func (m *Metrics) IncMalformed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.malformed, 1)
}

func (m *Metrics) IncUnrouted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unrouted, 1)
}

func (m *Metrics) IncRejectedTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejectedTicks, 1)
}

func (m *Metrics) IncProducerError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.producerErrors, 1)
}

func (m *Metrics) IncSinkError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sinkErrors, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Published:       loadKinds(&m.published),
		Dispatched:      loadKinds(&m.dispatched),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		Malformed:       atomic.LoadUint64(&m.malformed),
		Unrouted:        atomic.LoadUint64(&m.unrouted),
		RejectedTicks:   atomic.LoadUint64(&m.rejectedTicks),
		ProducerErrors:  atomic.LoadUint64(&m.producerErrors),
		SinkErrors:      atomic.LoadUint64(&m.sinkErrors),
		EventLatency:    m.eventLatency.Snapshot(),
		StrategyLatency: m.strategyLatency.Snapshot(),
	}
}

func loadKinds(counts *[maxEventKind + 1]uint64) map[enum.EventKind]uint64 {
	out := make(map[enum.EventKind]uint64)
	for i := range counts {
		if v := atomic.LoadUint64(&counts[i]); v > 0 {
			out[enum.EventKind(i)] = v
		}
	}
	return out
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
		Sum:   time.Duration(sum),
	}
}
