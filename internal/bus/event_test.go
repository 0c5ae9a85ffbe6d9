package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/pkg/exception"
)

func TestEventAccessors(t *testing.T) {
	bar := model.Bar{Symbol: model.NewCode("rb2410"), Source: enum.SourceCTP, Close: 3500000, EndTsNano: 42}
	e := NewBarEvent("ctp-main", bar)

	require.NoError(t, e.Validate())
	assert.Equal(t, enum.EventBar, e.Kind)
	assert.Equal(t, enum.SourceCTP, e.Source)
	assert.Equal(t, "ctp-main", e.Producer)
	assert.Equal(t, int64(42), e.TsRecv)
	assert.Equal(t, "rb2410", e.Symbol().String())

	got, ok := e.Bar()
	require.True(t, ok)
	assert.Equal(t, bar, got)

	_, ok = e.Snapshot()
	assert.False(t, ok)
	_, ok = e.OrderBook()
	assert.False(t, ok)
}

func TestEventPayloadIsCopied(t *testing.T) {
	s := model.Snapshot{Symbol: model.NewCode("A"), Source: enum.SourceXTP, Last: 1}
	e := NewSnapshotEvent("p", s)
	s.Last = 2

	got, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, model.Price(1), got.Last)
}

func TestEventValidate(t *testing.T) {
	cases := []struct {
		name string
		e    Event
		ok   bool
	}{
		{"snapshot", NewSnapshotEvent("p", model.Snapshot{Source: enum.SourceCSV}), true},
		{"order book", NewOrderBookEvent("p", model.OrderBook{Source: enum.SourceXTP}), true},
		{"end of stream", NewEndOfStream("p", enum.SourceCSV), true},
		{"end of stream without producer", NewEndOfStream("", enum.SourceCSV), false},
		{"zero value", Event{}, false},
		{"kind without payload", Event{Kind: enum.EventBar, Source: enum.SourceCTP}, false},
		{"unknown source", NewSnapshotEvent("p", model.Snapshot{}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.e.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, exception.ErrMalformedEvent)
		})
	}
	assert.True(t, NewEndOfStream("p", enum.SourceCSV).Symbol().IsEmpty())
}
