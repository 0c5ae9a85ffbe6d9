package kline

import (
	"fmt"
	"time"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/period"
	"kline/pkg/exception"
)

// minBufferedTicks is the buffer length needed before a bar may close: the
// seed of the bucket, at least one tick inside it, and the crossing tick.
const minBufferedTicks = 3

// Aggregator builds bars for one symbol. It is not safe for concurrent use.
type Aggregator struct {
	symbol    model.Code
	scheduler *period.Scheduler

	date       time.Time
	boundaries []int64
	buffer     []model.Snapshot
	bars       []model.Bar
	subs       []func(model.Bar)
}

// NewAggregator creates an aggregator for symbol on the scheduler's grid.
func NewAggregator(symbol model.Code, scheduler *period.Scheduler) *Aggregator {
	return &Aggregator{
		symbol:    symbol,
		scheduler: scheduler,
		buffer:    make([]model.Snapshot, 0, 64),
	}
}

func (a *Aggregator) Symbol() model.Code {
	return a.symbol
}

// Subscribe appends fn to the callbacks run for every closed bar.
func (a *Aggregator) Subscribe(fn func(model.Bar)) {
	if fn != nil {
		a.subs = append(a.subs, fn)
	}
}

// Bars returns the closed bars in order. The slice must not be modified.
func (a *Aggregator) Bars() []model.Bar {
	return a.bars
}

// Last returns the most recent closed bar.
func (a *Aggregator) Last() (model.Bar, bool) {
	if len(a.bars) == 0 {
		return model.Bar{}, false
	}
	return a.bars[len(a.bars)-1], true
}

// Buffered returns a copy of the ticks of the open bucket.
func (a *Aggregator) Buffered() []model.Snapshot {
	out := make([]model.Snapshot, len(a.buffer))
	copy(out, a.buffer)
	return out
}

// Pending returns how many boundaries of the current session remain.
func (a *Aggregator) Pending() int {
	return len(a.boundaries)
}

// Ingest adds one tick and returns the bar it closed, if any.
func (a *Aggregator) Ingest(tick model.Snapshot) (model.Bar, bool, error) {
	if tick.Symbol != a.symbol {
		return model.Bar{}, false, fmt.Errorf("%w: aggregator %s got %s", exception.ErrSymbolMismatch, a.symbol, tick.Symbol)
	}
	if tick.EventTsNano <= 0 {
		return model.Bar{}, false, fmt.Errorf("%w: %s has no event time", exception.ErrInvalidTick, tick.Symbol)
	}

	// A new session date regenerates the grid and drops the previous
	// session's carry-over. An exhausted grid is regenerated for a tick
	// inside regular hours; boundaries already passed are trimmed below.
	session := a.scheduler.Session()
	inSession := session.Contains(tick.EventTime())
	switch date := session.Date(tick.EventTsNano); {
	case !date.Equal(a.date):
		a.buffer = a.buffer[:0]
		a.date = date
		a.boundaries = a.scheduler.Boundaries(date, time.Time{})
	case len(a.boundaries) == 0 && inSession:
		a.boundaries = a.scheduler.Boundaries(date, time.Time{})
	}

	// Ticks outside regular hours are not buffered. One may still close the
	// open bucket, but it does not seed the next.
	if !inSession && !a.crosses(tick) {
		return model.Bar{}, false, nil
	}

	a.buffer = append(a.buffer, tick)
	first := a.buffer[0].EventTsNano
	for len(a.boundaries) > 0 && a.boundaries[0] <= first {
		a.boundaries = a.boundaries[1:]
	}

	n := len(a.buffer)
	if len(a.boundaries) == 0 {
		// Nothing left to close today; keep only the latest tick.
		a.buffer[0] = a.buffer[n-1]
		a.buffer = a.buffer[:1]
		return model.Bar{}, false, nil
	}
	if n < minBufferedTicks || tick.EventTsNano < a.boundaries[0] {
		return model.Bar{}, false, nil
	}

	bar := a.closeBar(a.boundaries[0])
	a.boundaries = a.boundaries[1:]
	a.bars = append(a.bars, bar)
	for _, fn := range a.subs {
		fn(bar)
	}

	if inSession {
		a.buffer[0] = a.buffer[n-1]
		a.buffer = a.buffer[:1]
	} else {
		a.buffer = a.buffer[:0]
	}
	return bar, true, nil
}

// crosses reports whether tick would close the open bucket.
func (a *Aggregator) crosses(tick model.Snapshot) bool {
	return len(a.buffer) >= minBufferedTicks-1 && len(a.boundaries) > 0 && tick.EventTsNano >= a.boundaries[0]
}

// closeBar builds the bar of buffer[:n-1]; the last buffered tick crossed the
// boundary and belongs to the next bucket.
func (a *Aggregator) closeBar(boundary int64) model.Bar {
	in := a.buffer[:len(a.buffer)-1]
	first, last := in[0], in[len(in)-1]

	bar := model.Bar{
		Symbol:      a.symbol,
		TradingDay:  first.TradingDay,
		TimeNano:    boundary,
		StartTsNano: first.EventTsNano,
		EndTsNano:   last.EventTsNano,
		Source:      first.Source,
		Open:        first.Last,
		High:        first.Last,
		Low:         first.Last,
		Close:       last.Last,
		TickCount:   int32(len(in)),
	}
	for _, s := range in {
		if s.Last > bar.High {
			bar.High = s.Last
		}
		if s.Last < bar.Low {
			bar.Low = s.Last
		}
		bar.Volume += s.DeltaVolume
		bar.Turnover += s.DeltaTurnover
	}

	switch {
	case bar.Close > bar.Open:
		bar.Style = enum.StyleRising
	case bar.Close < bar.Open:
		bar.Style = enum.StyleFalling
	default:
		bar.Style = enum.StyleFlat
	}

	if prev, ok := a.Last(); ok && prev.Close != 0 {
		bar.ChangePercent = (float64(bar.Close)/float64(prev.Close) - 1) * 100
	}
	return bar
}
