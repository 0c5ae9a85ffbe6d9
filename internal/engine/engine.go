package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"kline/internal/bus"
	"kline/internal/feed"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/source"
	"kline/internal/strategy"
	"kline/pkg/exception"
)

type registered struct {
	strategy strategy.Strategy
	sub      strategy.Subscription
}

type producer struct {
	src    source.Source
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Engine fans N sources into one queue and dispatches to M strategies.
type Engine struct {
	opt   Options
	log   obs.Logger
	state uint32

	mu         sync.Mutex
	sources    []source.Source
	strategies []registered
}

// New validates opt and returns an idle engine.
func New(opt Options, log obs.Logger) (*Engine, error) {
	opt = opt.withDefaults()
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = obs.Discard
	}
	return &Engine{opt: opt, log: log}, nil
}

func (e *Engine) State() State {
	return State(atomic.LoadUint32(&e.state))
}

// Stats returns the current counters of the run.
func (e *Engine) Stats() obs.Snapshot {
	return e.opt.Metrics.Snapshot()
}

func (e *Engine) Metrics() *obs.Metrics {
	return e.opt.Metrics
}

// AddSource registers a producer. Only allowed while idle.
func (e *Engine) AddSource(src source.Source) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", exception.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() != StateIdle {
		return exception.ErrEngineNotIdle
	}
	e.sources = append(e.sources, src)
	return nil
}

// AddStrategy registers a strategy. Only allowed while idle; strategies are
// called in registration order.
func (e *Engine) AddStrategy(s strategy.Strategy) error {
	if s == nil {
		return exception.ErrNilStrategy
	}
	if !s.SourceKind().IsAvailable() {
		return fmt.Errorf("%w: strategy %s has unknown source kind", exception.ErrInvalidArgument, s.Name())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() != StateIdle {
		return exception.ErrEngineNotIdle
	}
	e.strategies = append(e.strategies, registered{
		strategy: s,
		sub:      strategy.NewSubscription(s.SubscribedSymbols()),
	})
	return nil
}

func (e *Engine) checkSources() error {
	if len(e.sources) == 0 {
		return exception.ErrNoSource
	}
	for _, src := range e.sources {
		if !src.Kind().IsAvailable() {
			return fmt.Errorf("%w: source %s has unknown kind", exception.ErrInvalidConfig, src.Name())
		}
		if e.opt.Mode == enum.RunModeBacktesting && !src.Bounded() {
			return fmt.Errorf("%w: backtesting needs replay sources, %s is live", exception.ErrInvalidConfig, src.Name())
		}
	}
	return nil
}

// Start runs the day: it spawns one producer per source, dispatches until the
// live cutoff, the end of every replay, ctx cancellation or a strategy panic,
// then stops every producer according to its shutdown policy. It returns a
// *StrategyError when a strategy panicked, ctx's error when cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if !atomic.CompareAndSwapUint32(&e.state, uint32(StateIdle), uint32(StateRunning)) {
		e.mu.Unlock()
		return exception.ErrEngineNotIdle
	}
	if err := e.checkSources(); err != nil {
		atomic.StoreUint32(&e.state, uint32(StateStopped))
		e.mu.Unlock()
		return err
	}
	sources := append([]source.Source(nil), e.sources...)
	e.mu.Unlock()

	queue := bus.NewQueue(e.opt.QueueCapacity)
	producers := make([]*producer, 0, len(sources))
	for _, src := range sources {
		producers = append(producers, e.spawn(ctx, src, queue))
	}
	e.log.Infof("engine running: mode=%s sources=%d strategies=%d", e.opt.Mode, len(producers), len(e.strategies))

	runErr := e.dispatchLoop(ctx, queue, producers)

	atomic.StoreUint32(&e.state, uint32(StateDraining))
	queue.Close()
	e.shutdown(producers)
	atomic.StoreUint32(&e.state, uint32(StateStopped))

	s := e.Stats()
	e.log.Infof("engine stopped: dispatched=%v unrouted=%d malformed=%d producer_errors=%d",
		s.Dispatched, s.Unrouted, s.Malformed, s.ProducerErrors)
	return runErr
}

func (e *Engine) spawn(ctx context.Context, src source.Source, queue *bus.Queue) *producer {
	pctx, cancel := context.WithCancel(ctx)
	p := &producer{src: src, cancel: cancel, done: make(chan struct{})}
	pipeline := feed.NewPipeline(feed.Config{
		Name:      src.Name(),
		Kind:      src.Kind(),
		Scheduler: e.opt.Scheduler,
		Publisher: queue,
		Sequence:  e.opt.Sequence,
		Metrics:   e.opt.Metrics,
		Logger:    e.log,
		Sinks:     e.opt.Sinks,

		LossyOrderBooks: e.opt.Mode == enum.RunModeLive,
	})

	go func() {
		defer close(p.done)
		err := src.Run(pctx, pipeline)
		if err != nil && pctx.Err() == nil {
			e.opt.Metrics.IncProducerError()
			e.log.Errorf("source %s (%s) stopped: %v", src.Name(), src.Kind(), err)
		}
		p.err = err
		if src.Bounded() && pctx.Err() == nil {
			if err := pipeline.Finish(pctx); err != nil && pctx.Err() == nil {
				e.log.Warnf("source %s: publish end of stream: %v", src.Name(), err)
			}
		}
	}()
	return p
}

func (e *Engine) dispatchLoop(ctx context.Context, queue *bus.Queue, producers []*producer) error {
	var cutoff <-chan time.Time
	remaining := 0
	switch e.opt.Mode {
	case enum.RunModeLive:
		now := e.opt.Clock.Now()
		at := e.opt.Cutoff.On(now, e.opt.Scheduler.Session().Location)
		wait := at.Sub(now)
		if wait <= 0 {
			e.log.Warnf("cutoff %s already passed, stopping", e.opt.Cutoff)
			return nil
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		cutoff = timer.C
	case enum.RunModeBacktesting:
		remaining = len(producers)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cutoff:
			e.log.Infof("cutoff %s reached", e.opt.Cutoff)
			return nil
		case ev := <-queue.C():
			if ev.Kind == enum.EventEndOfStream {
				e.log.Infof("source %s reached end of stream", ev.Producer)
				if e.opt.Mode == enum.RunModeBacktesting {
					remaining--
					if remaining == 0 {
						return nil
					}
				}
				continue
			}
			if err := e.dispatch(ev); err != nil {
				return err
			}
		}
	}
}

// dispatch routes ev to every strategy of its source kind subscribed to its
// symbol, in registration order.
func (e *Engine) dispatch(ev bus.Event) error {
	if err := ev.Validate(); err != nil {
		e.opt.Metrics.IncMalformed()
		e.log.Warnf("drop event seq=%d from %s: %v", ev.Seq, ev.Producer, err)
		return nil
	}

	symbol := ev.Symbol()
	delivered := false
	for _, r := range e.strategies {
		if r.strategy.SourceKind() != ev.Source || !r.sub.Match(symbol) {
			continue
		}
		delivered = true
		start := time.Now()
		if err := deliver(r.strategy, ev); err != nil {
			e.log.Errorf("%v", err)
			return err
		}
		e.opt.Metrics.ObserveStrategy(time.Since(start))
	}
	if !delivered {
		e.opt.Metrics.IncUnrouted()
		e.log.Debugf("no strategy for %s %s from %s", ev.Kind, symbol, ev.Source)
		return nil
	}
	e.opt.Metrics.ObserveDispatch(ev.Kind, ev.TsRecv, e.opt.Clock.Now())
	return nil
}

func deliver(s strategy.Strategy, ev bus.Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &StrategyError{
				Strategy: s.Name(),
				Event:    ev.Kind,
				Symbol:   ev.Symbol().String(),
				Value:    v,
				Stack:    debug.Stack(),
			}
		}
	}()

	switch ev.Kind {
	case enum.EventSnapshot:
		snap, _ := ev.Snapshot()
		s.OnSnapshot(snap)
	case enum.EventBar:
		bar, _ := ev.Bar()
		s.OnBar(bar)
	case enum.EventOrderBook:
		book, _ := ev.OrderBook()
		s.OnOrderBook(book)
	}
	return nil
}

// shutdown cancels every producer and waits for each according to its policy.
func (e *Engine) shutdown(producers []*producer) {
	for _, p := range producers {
		p.cancel()
	}

	var wg sync.WaitGroup
	for _, p := range producers {
		wg.Add(1)
		go func(p *producer) {
			defer wg.Done()
			e.stop(p)
		}(p)
	}
	wg.Wait()
}

func (e *Engine) stop(p *producer) {
	name := p.src.Name()
	switch p.src.Policy() {
	case enum.ShutdownTerminate:
		select {
		case <-p.done:
			e.log.Infof("source %s stopped", name)
		case <-time.After(e.opt.KillGrace):
			e.log.Warnf("source %s ignored cancellation for %s, abandoned", name, e.opt.KillGrace)
		}
	default:
		select {
		case <-p.done:
			if p.err != nil && !errors.Is(p.err, context.Canceled) {
				e.log.Infof("source %s joined: %v", name, p.err)
				return
			}
			e.log.Infof("source %s joined", name)
		case <-time.After(e.opt.JoinTimeout):
			e.log.Errorf("source %s did not log out within %s", name, e.opt.JoinTimeout)
		}
	}
}
