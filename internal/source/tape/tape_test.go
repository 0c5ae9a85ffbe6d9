package tape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/recorder"
	"kline/internal/source/sourcetest"
)

func recordTape(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	w, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for i, symbol := range []string{"600000", "000001", "600000"} {
		ts := base.Add(time.Duration(i) * time.Second).UnixNano()
		require.NoError(t, w.Append(model.Snapshot{
			Symbol:        model.NewCode(symbol),
			TradingDay:    20240102,
			EventTsNano:   ts,
			RecvTsNano:    ts,
			Last:          model.Price(10_000 + i),
			TotalVolume:   model.Quantity(100 * (i + 1)),
			TotalTurnover: model.Notional(1_000_000 * (i + 1)),
			DeltaVolume:   99,
		}))
	}
	require.NoError(t, w.AppendOrderBook(model.OrderBook{Symbol: model.NewCode("600000"), EventTsNano: base.UnixNano()}))
	require.NoError(t, w.Close())
	return dir
}

func TestTapeReplaysEverything(t *testing.T) {
	src, err := New(Config{Name: "tape", Kind: enum.SourceCTP, Playback: recorder.PlaybackConfig{Dir: recordTape(t)}}, nil)
	require.NoError(t, err)
	assert.True(t, src.Bounded())
	assert.Equal(t, enum.ShutdownJoin, src.Policy())

	emit := &sourcetest.Emitter{}
	require.NoError(t, src.Run(context.Background(), emit))

	ticks := emit.Ticks()
	require.Len(t, ticks, 3)
	assert.Equal(t, "600000", ticks[0].Symbol)
	assert.Equal(t, "000001", ticks[1].Symbol)
	assert.Equal(t, model.Price(10_002), ticks[2].Last)
	// cumulative counters are replayed, deltas are recomputed downstream
	assert.Equal(t, model.Quantity(300), ticks[2].Volume)
	assert.Equal(t, int32(20240102), ticks[2].TradingDay)
	assert.Len(t, emit.OrderBooks(), 1)
}

func TestTapeSymbolFilterAndSkipBooks(t *testing.T) {
	src, err := New(Config{
		Name:           "tape",
		Kind:           enum.SourceCTP,
		Playback:       recorder.PlaybackConfig{Dir: recordTape(t)},
		Symbols:        []string{"000001"},
		SkipOrderBooks: true,
	}, nil)
	require.NoError(t, err)

	emit := &sourcetest.Emitter{}
	require.NoError(t, src.Run(context.Background(), emit))
	require.Len(t, emit.Ticks(), 1)
	assert.Equal(t, "000001", emit.Ticks()[0].Symbol)
	assert.Empty(t, emit.OrderBooks())
}

func TestTapeStopsOnEmitterError(t *testing.T) {
	src, err := New(Config{Name: "tape", Kind: enum.SourceCTP, Playback: recorder.PlaybackConfig{Dir: recordTape(t)}}, nil)
	require.NoError(t, err)

	boom := errors.New("queue closed")
	assert.ErrorIs(t, src.Run(context.Background(), &sourcetest.Emitter{Err: boom}), boom)
}

func TestTapeConfigErrors(t *testing.T) {
	_, err := New(Config{Kind: enum.SourceCTP, Playback: recorder.PlaybackConfig{Dir: "x"}}, nil)
	assert.Error(t, err)
	_, err = New(Config{Name: "t", Playback: recorder.PlaybackConfig{Dir: "x"}}, nil)
	assert.Error(t, err)
	_, err = New(Config{Name: "t", Kind: enum.SourceCTP}, nil)
	assert.Error(t, err)
}
