package kline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/period"
	"kline/pkg/exception"
)

var cst = time.FixedZone("CST", 8*3600)

func at(hh, mm, ss int) time.Time {
	return time.Date(2024, 1, 2, hh, mm, ss, 0, cst)
}

func snap(symbol string, ts time.Time, price model.Price, dv model.Quantity) model.Snapshot {
	return model.Snapshot{
		Symbol:        model.NewCode(symbol),
		TradingDay:    20240102,
		EventTsNano:   ts.UnixNano(),
		Source:        enum.SourceCTP,
		Last:          price,
		DeltaVolume:   dv,
		DeltaTurnover: model.Notional(int64(price) * int64(dv)),
	}
}

func newScheduler(t *testing.T, interval time.Duration) *period.Scheduler {
	t.Helper()
	s, err := period.NewScheduler(interval, period.DefaultSession(cst))
	require.NoError(t, err)
	return s
}

type feedResult struct {
	bars []model.Bar
}

func feed(t *testing.T, a *Aggregator, ticks ...model.Snapshot) feedResult {
	t.Helper()
	var r feedResult
	for _, tk := range ticks {
		bar, ok, err := a.Ingest(tk)
		require.NoError(t, err)
		if ok {
			r.bars = append(r.bars, bar)
		}
	}
	return r
}

func TestAggregatorThreeTickScenario(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 10), 10, 1),
		snap("X", at(9, 31, 40), 12, 2),
		snap("X", at(9, 32, 5), 11, 4),
	)

	require.Len(t, r.bars, 1)
	bar := r.bars[0]
	assert.Equal(t, model.Price(10), bar.Open)
	assert.Equal(t, model.Price(12), bar.Close)
	assert.Equal(t, model.Price(12), bar.High)
	assert.Equal(t, model.Price(10), bar.Low)
	assert.Equal(t, model.Quantity(3), bar.Volume)
	assert.Equal(t, model.Notional(10*1+12*2), bar.Turnover)
	assert.Equal(t, at(9, 32, 0).UnixNano(), bar.TimeNano)
	assert.Equal(t, at(9, 31, 10).UnixNano(), bar.StartTsNano)
	assert.Equal(t, at(9, 31, 40).UnixNano(), bar.EndTsNano)
	assert.Equal(t, enum.StyleRising, bar.Style)
	assert.Equal(t, 0.0, bar.ChangePercent)
	assert.Equal(t, int32(2), bar.TickCount)

	buffered := a.Buffered()
	require.Len(t, buffered, 1)
	assert.Equal(t, at(9, 32, 5).UnixNano(), buffered[0].EventTsNano)
	assert.Equal(t, []model.Bar{bar}, a.Bars())
}

func TestAggregatorNeedsThreeTicks(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 10), 10, 1),
		snap("X", at(9, 32, 5), 11, 1),
	)
	assert.Empty(t, r.bars)
	assert.Len(t, a.Buffered(), 2)

	r = feed(t, a, snap("X", at(9, 32, 20), 12, 1))
	require.Len(t, r.bars, 1)
	assert.Equal(t, model.Price(10), r.bars[0].Open)
	assert.Equal(t, model.Price(11), r.bars[0].Close)
	assert.Equal(t, at(9, 32, 0).UnixNano(), r.bars[0].TimeNano)
}

func TestAggregatorCloseUsesTickBeforeCrossing(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 1), 20, 1),
		snap("X", at(9, 31, 20), 25, 1),
		snap("X", at(9, 31, 50), 15, 1),
		snap("X", at(9, 32, 0), 99, 1),
	)
	require.Len(t, r.bars, 1)
	bar := r.bars[0]
	assert.Equal(t, model.Price(15), bar.Close)
	assert.Equal(t, model.Price(25), bar.High)
	assert.Equal(t, model.Price(15), bar.Low)
	assert.Equal(t, model.Quantity(3), bar.Volume)
	assert.Equal(t, enum.StyleFalling, bar.Style)
}

func TestAggregatorSeedCarriesIntoNextBar(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 10), 100, 1),
		snap("X", at(9, 31, 40), 100, 1),
		snap("X", at(9, 32, 5), 110, 5),
		snap("X", at(9, 32, 30), 120, 2),
		snap("X", at(9, 33, 2), 130, 1),
	)
	require.Len(t, r.bars, 2)

	second := r.bars[1]
	assert.Equal(t, at(9, 33, 0).UnixNano(), second.TimeNano)
	assert.Equal(t, model.Price(110), second.Open)
	assert.Equal(t, model.Price(120), second.Close)
	assert.Equal(t, model.Quantity(7), second.Volume)
	assert.InDelta(t, 20.0, second.ChangePercent, 1e-9)
	assert.Equal(t, enum.StyleRising, second.Style)
}

func TestAggregatorSkipsIdleGap(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 10), 10, 1),
		snap("X", at(9, 31, 40), 10, 1),
		snap("X", at(9, 35, 5), 10, 1),
		snap("X", at(9, 35, 20), 10, 1),
		snap("X", at(9, 36, 1), 10, 1),
	)
	require.Len(t, r.bars, 2)
	assert.Equal(t, at(9, 32, 0).UnixNano(), r.bars[0].TimeNano)
	assert.Equal(t, at(9, 36, 0).UnixNano(), r.bars[1].TimeNano)
	assert.Equal(t, enum.StyleFlat, r.bars[1].Style)
}

func TestAggregatorNoBarsInsideRecess(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(11, 29, 10), 10, 1),
		snap("X", at(11, 29, 40), 11, 1),
		snap("X", at(13, 0, 20), 12, 1),
		snap("X", at(13, 0, 40), 13, 1),
		snap("X", at(13, 1, 5), 14, 1),
	)
	require.Len(t, r.bars, 2)
	assert.Equal(t, at(11, 30, 0).UnixNano(), r.bars[0].TimeNano)
	assert.Equal(t, at(13, 1, 0).UnixNano(), r.bars[1].TimeNano)
	assert.Equal(t, model.Price(12), r.bars[1].Open)
	assert.Equal(t, model.Price(13), r.bars[1].Close)
}

func TestAggregatorVolumeMatchesBoundariesCrossed(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	var ticks []model.Snapshot
	var total model.Quantity
	start := at(9, 30, 5)
	for i := 0; i < 60; i++ {
		dv := model.Quantity(i%7 + 1)
		ticks = append(ticks, snap("X", start.Add(time.Duration(i)*20*time.Second), model.Price(100+i), dv))
	}
	r := feed(t, a, ticks...)

	// 60 ticks every 20s span 09:30:05 to 09:49:45, crossing 09:31 .. 09:49.
	require.Len(t, r.bars, 19)
	for i, b := range r.bars {
		assert.Equal(t, at(9, 31+i, 0).UnixNano(), b.TimeNano)
		total += b.Volume
	}
	var expect model.Quantity
	for _, tk := range ticks {
		if tk.EventTsNano < r.bars[len(r.bars)-1].TimeNano {
			expect += tk.DeltaVolume
		}
	}
	assert.Equal(t, expect, total)
}

func TestAggregatorNewSessionDateResetsBuffer(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	feed(t, a,
		snap("X", at(14, 59, 10), 10, 1),
		snap("X", at(14, 59, 40), 11, 1),
	)
	require.Len(t, a.Buffered(), 2)

	next := snap("X", at(9, 30, 30).AddDate(0, 0, 1), 20, 1)
	r := feed(t, a, next)
	assert.Empty(t, r.bars)
	buffered := a.Buffered()
	require.Len(t, buffered, 1)
	assert.Equal(t, next.EventTsNano, buffered[0].EventTsNano)
	assert.Equal(t, 240, a.Pending())
}

func TestAggregatorExhaustedAfterClose(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(14, 59, 10), 10, 1),
		snap("X", at(14, 59, 40), 11, 1),
		snap("X", at(15, 0, 1), 12, 1),
		snap("X", at(15, 0, 2), 12, 1),
		snap("X", at(15, 0, 3), 12, 1),
	)
	require.Len(t, r.bars, 1)
	assert.Equal(t, at(15, 0, 0).UnixNano(), r.bars[0].TimeNano)
	assert.Equal(t, model.Price(11), r.bars[0].Close)
	assert.Equal(t, 0, a.Pending())
	assert.Empty(t, a.Buffered())
}

func TestAggregatorDoesNotBufferAfterClose(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(14, 59, 10), 10, 1),
		snap("X", at(14, 59, 40), 11, 1),
		snap("X", at(15, 0, 0), 12, 1),
	)
	require.Len(t, r.bars, 1)
	require.Len(t, a.Buffered(), 1)

	r = feed(t, a, snap("X", at(15, 0, 0).Add(500*time.Millisecond), 12, 1))
	assert.Empty(t, r.bars)
	require.Len(t, a.Buffered(), 1)
	assert.Equal(t, 0, a.Pending())

	night := at(21, 0, 0)
	for i := 0; i < 10_000; i++ {
		r = feed(t, a, snap("X", night.Add(time.Duration(i)*100*time.Millisecond), 13, 1))
		require.Empty(t, r.bars)
	}
	assert.LessOrEqual(t, len(a.Buffered()), 1)
	assert.Equal(t, 0, a.Pending())
	assert.Len(t, a.Bars(), 1)
}

func TestAggregatorIgnoresTicksBeforeOpen(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(0, 30, 0), 99, 500),
		snap("X", at(2, 0, 0), 98, 500),
		snap("X", at(9, 30, 10), 10, 1),
	)
	assert.Empty(t, r.bars)
	buffered := a.Buffered()
	require.Len(t, buffered, 1)
	assert.Equal(t, at(9, 30, 10).UnixNano(), buffered[0].EventTsNano)

	r = feed(t, a,
		snap("X", at(9, 30, 40), 12, 2),
		snap("X", at(9, 31, 5), 11, 1),
	)
	require.Len(t, r.bars, 1)
	bar := r.bars[0]
	assert.Equal(t, at(9, 31, 0).UnixNano(), bar.TimeNano)
	assert.Equal(t, model.Price(10), bar.Open)
	assert.Equal(t, model.Price(12), bar.Close)
	assert.Equal(t, model.Quantity(3), bar.Volume)
	assert.Equal(t, int32(2), bar.TickCount)
}

func TestAggregatorSubscribersInOrder(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	var calls []string
	a.Subscribe(func(model.Bar) { calls = append(calls, "first") })
	a.Subscribe(nil)
	a.Subscribe(func(b model.Bar) {
		calls = append(calls, "second")
		last, ok := a.Last()
		require.True(t, ok)
		assert.Equal(t, b, last)
	})

	feed(t, a,
		snap("X", at(9, 31, 10), 10, 1),
		snap("X", at(9, 31, 40), 12, 1),
		snap("X", at(9, 32, 5), 11, 1),
	)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestAggregatorZeroPreviousCloseGivesZeroChange(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	r := feed(t, a,
		snap("X", at(9, 31, 10), 0, 1),
		snap("X", at(9, 31, 40), 0, 1),
		snap("X", at(9, 32, 5), 5, 1),
		snap("X", at(9, 32, 30), 6, 1),
		snap("X", at(9, 33, 5), 7, 1),
	)
	require.Len(t, r.bars, 2)
	assert.Equal(t, 0.0, r.bars[1].ChangePercent)
}

func TestAggregatorRejectsForeignOrUntimedTicks(t *testing.T) {
	a := NewAggregator(model.NewCode("X"), newScheduler(t, time.Minute))

	_, _, err := a.Ingest(snap("Y", at(9, 31, 0), 1, 1))
	require.ErrorIs(t, err, exception.ErrSymbolMismatch)

	bad := snap("X", at(9, 31, 0), 1, 1)
	bad.EventTsNano = 0
	_, _, err = a.Ingest(bad)
	require.ErrorIs(t, err, exception.ErrInvalidTick)
	assert.Empty(t, a.Buffered())
}
