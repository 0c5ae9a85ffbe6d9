package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kline"

// Collector exports Metrics snapshots as Prometheus const metrics.
type Collector struct {
	metrics *Metrics

	published       *prometheus.Desc
	dispatched      *prometheus.Desc
	drops           *prometheus.Desc
	producerErrors  *prometheus.Desc
	eventLatency    *prometheus.Desc
	strategyLatency *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(m *Metrics, runID string) *Collector {
	labels := prometheus.Labels{"run_id": runID}
	return &Collector{
		metrics: m,
		published: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "published_total"),
			"Events accepted by the bus, by kind.", []string{"kind"}, labels),
		dispatched: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "dispatched_total"),
			"Events routed to strategies, by kind.", []string{"kind"}, labels),
		drops: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "dropped_total"),
			"Events dropped, by reason.", []string{"reason"}, labels),
		producerErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "source", "errors_total"),
			"Producers that stopped with an error.", nil, labels),
		eventLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "event_latency_seconds"),
			"Receive to dispatch latency.", nil, labels),
		strategyLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "strategy", "callback_seconds"),
			"Strategy callback duration.", nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.dispatched
	ch <- c.drops
	ch <- c.producerErrors
	ch <- c.eventLatency
	ch <- c.strategyLatency
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()
	for kind, v := range s.Published {
		ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(v), kind.String())
	}
	for kind, v := range s.Dispatched {
		ch <- prometheus.MustNewConstMetric(c.dispatched, prometheus.CounterValue, float64(v), kind.String())
	}
	drops := map[string]uint64{
		"queue_full":    s.QueueDrops,
		"queue_closed":  s.QueueClosed,
		"malformed":     s.Malformed,
		"unrouted":      s.Unrouted,
		"rejected_tick": s.RejectedTicks,
		"sink_error":    s.SinkErrors,
	}
	for reason, v := range drops {
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(v), reason)
	}
	ch <- prometheus.MustNewConstMetric(c.producerErrors, prometheus.CounterValue, float64(s.ProducerErrors))
	ch <- summary(c.eventLatency, s.EventLatency)
	ch <- summary(c.strategyLatency, s.StrategyLatency)
}

func summary(desc *prometheus.Desc, l LatencySnapshot) prometheus.Metric {
	return prometheus.MustNewConstSummary(desc, l.Count, l.Sum.Seconds(), map[float64]float64{
		0: l.Min.Seconds(),
		1: l.Max.Seconds(),
	})
}
