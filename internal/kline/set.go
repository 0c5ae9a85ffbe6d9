package kline

import (
	"sort"

	"kline/internal/model"
	"kline/internal/period"
)

// Set holds the aggregators of one producer. Every aggregator created by the
// set forwards its bars to onBar.
type Set struct {
	scheduler   *period.Scheduler
	onBar       func(model.Bar)
	aggregators map[model.Code]*Aggregator
}

func NewSet(scheduler *period.Scheduler, onBar func(model.Bar)) *Set {
	return &Set{
		scheduler:   scheduler,
		onBar:       onBar,
		aggregators: make(map[model.Code]*Aggregator),
	}
}

// Ingest routes tick to its symbol's aggregator, creating it on first sight.
func (s *Set) Ingest(tick model.Snapshot) (model.Bar, bool, error) {
	agg, ok := s.aggregators[tick.Symbol]
	if !ok {
		agg = NewAggregator(tick.Symbol, s.scheduler)
		agg.Subscribe(s.onBar)
		s.aggregators[tick.Symbol] = agg
	}
	return agg.Ingest(tick)
}

func (s *Set) Aggregator(symbol model.Code) (*Aggregator, bool) {
	agg, ok := s.aggregators[symbol]
	return agg, ok
}

// Symbols returns the symbols seen so far, sorted.
func (s *Set) Symbols() []string {
	out := make([]string, 0, len(s.aggregators))
	for code := range s.aggregators {
		out = append(out, code.String())
	}
	sort.Strings(out)
	return out
}

func (s *Set) Len() int {
	return len(s.aggregators)
}
