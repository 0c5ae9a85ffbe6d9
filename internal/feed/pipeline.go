package feed

import (
	"context"
	"errors"

	"kline/internal/bus"
	"kline/internal/kline"
	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/normalize"
	"kline/internal/obs"
	"kline/internal/period"
)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, e bus.Event) error
	TryPublish(e bus.Event) error
}

// Sink receives every accepted snapshot. Sink failures are counted and
// logged; they never stop dispatch.
type Sink interface {
	Append(s model.Snapshot) error
}

type Config struct {
	Name      string
	Kind      enum.SourceKind
	Scheduler *period.Scheduler
	Publisher Publisher
	Sequence  *obs.Sequence
	Metrics   *obs.Metrics
	Logger    obs.Logger
	Sinks     []Sink
	// LossyOrderBooks drops an order book instead of waiting when the queue
	// is full. Ticks and bars always wait.
	LossyOrderBooks bool
}

// Pipeline implements source.Emitter for one source. It is driven by the
// source goroutine only.
type Pipeline struct {
	name       string
	kind       enum.SourceKind
	normalizer *normalize.Normalizer
	bars       *kline.Set
	pub        Publisher
	seq        *obs.Sequence
	metrics    *obs.Metrics
	log        obs.Logger
	sinks      []Sink
	lossyBooks bool
	closed     []model.Bar
}

func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = obs.Discard
	}
	p := &Pipeline{
		name:       cfg.Name,
		kind:       cfg.Kind,
		normalizer: normalize.NewNormalizer(cfg.Kind, cfg.Scheduler.Session()),
		pub:        cfg.Publisher,
		seq:        cfg.Sequence,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		sinks:      cfg.Sinks,
		lossyBooks: cfg.LossyOrderBooks,
	}
	p.bars = kline.NewSet(cfg.Scheduler, p.onBar)
	return p
}

func (p *Pipeline) Name() string {
	return p.name
}

// Aggregators exposes the per-symbol aggregators built so far.
func (p *Pipeline) Aggregators() *kline.Set {
	return p.bars
}

func (p *Pipeline) onBar(b model.Bar) {
	p.closed = append(p.closed, b)
}

// Tick normalizes raw, publishes its snapshot and then any bar it closed.
// A rejected tick is logged and skipped.
func (p *Pipeline) Tick(ctx context.Context, raw normalize.RawTick) error {
	snap, err := p.normalizer.Normalize(raw)
	if err != nil {
		p.metrics.IncRejectedTick()
		p.log.Warnf("%s: skip tick: %v", p.name, err)
		return nil
	}

	for _, sink := range p.sinks {
		if err := sink.Append(snap); err != nil {
			p.metrics.IncSinkError()
			p.log.Warnf("%s: sink append %s: %v", p.name, snap.Symbol, err)
		}
	}

	if err := p.publish(ctx, bus.NewSnapshotEvent(p.name, snap)); err != nil {
		return err
	}

	p.closed = p.closed[:0]
	if _, _, err := p.bars.Ingest(snap); err != nil {
		p.metrics.IncRejectedTick()
		p.log.Warnf("%s: aggregate %s: %v", p.name, snap.Symbol, err)
		return nil
	}
	for _, b := range p.closed {
		if err := p.publish(ctx, bus.NewBarEvent(p.name, b)); err != nil {
			return err
		}
	}
	return nil
}

// OrderBook publishes a level-2 book stamped with this source's kind.
func (p *Pipeline) OrderBook(ctx context.Context, ob model.OrderBook) error {
	ob.Source = p.kind
	e := bus.NewOrderBookEvent(p.name, ob)
	if !p.lossyBooks {
		return p.publish(ctx, e)
	}

	e.Seq = p.seq.Next()
	switch err := p.pub.TryPublish(e); {
	case err == nil:
		p.metrics.ObservePublish(e.Kind)
		return nil
	case errors.Is(err, bus.ErrQueueFull):
		p.metrics.IncQueueDrop()
		p.log.Debugf("%s: queue full, drop book %s", p.name, ob.Symbol)
		return nil
	default:
		if errors.Is(err, bus.ErrQueueClosed) {
			p.metrics.IncQueueClosed()
		}
		return err
	}
}

// Bar publishes a bar produced upstream, bypassing aggregation.
func (p *Pipeline) Bar(ctx context.Context, b model.Bar) error {
	b.Source = p.kind
	return p.publish(ctx, bus.NewBarEvent(p.name, b))
}

// Finish publishes the end-of-stream sentinel of a bounded source.
func (p *Pipeline) Finish(ctx context.Context) error {
	return p.publish(ctx, bus.NewEndOfStream(p.name, p.kind))
}

func (p *Pipeline) publish(ctx context.Context, e bus.Event) error {
	e.Seq = p.seq.Next()
	if err := p.pub.Publish(ctx, e); err != nil {
		if errors.Is(err, bus.ErrQueueClosed) {
			p.metrics.IncQueueClosed()
		}
		return err
	}
	p.metrics.ObservePublish(e.Kind)
	return nil
}
