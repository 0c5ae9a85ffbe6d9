package bus

import (
	"fmt"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/pkg/exception"
)

// Event is the unit passed through the in-memory bus. Exactly one payload
// matches Kind; construct events with the New* helpers.
type Event struct {
	Kind     enum.EventKind
	Source   enum.SourceKind
	Producer string
	Seq      uint64
	TsRecv   int64

	snapshot *model.Snapshot
	bar      *model.Bar
	book     *model.OrderBook
}

func NewSnapshotEvent(producer string, s model.Snapshot) Event {
	return Event{Kind: enum.EventSnapshot, Source: s.Source, Producer: producer, TsRecv: s.RecvTsNano, snapshot: &s}
}

func NewBarEvent(producer string, b model.Bar) Event {
	return Event{Kind: enum.EventBar, Source: b.Source, Producer: producer, TsRecv: b.EndTsNano, bar: &b}
}

func NewOrderBookEvent(producer string, ob model.OrderBook) Event {
	return Event{Kind: enum.EventOrderBook, Source: ob.Source, Producer: producer, TsRecv: ob.RecvTsNano, book: &ob}
}

// NewEndOfStream marks that a bounded producer has no more data.
func NewEndOfStream(producer string, source enum.SourceKind) Event {
	return Event{Kind: enum.EventEndOfStream, Source: source, Producer: producer}
}

func (e Event) Snapshot() (model.Snapshot, bool) {
	if e.Kind != enum.EventSnapshot || e.snapshot == nil {
		return model.Snapshot{}, false
	}
	return *e.snapshot, true
}

func (e Event) Bar() (model.Bar, bool) {
	if e.Kind != enum.EventBar || e.bar == nil {
		return model.Bar{}, false
	}
	return *e.bar, true
}

func (e Event) OrderBook() (model.OrderBook, bool) {
	if e.Kind != enum.EventOrderBook || e.book == nil {
		return model.OrderBook{}, false
	}
	return *e.book, true
}

// Symbol returns the instrument of the payload, empty for end-of-stream.
func (e Event) Symbol() model.Code {
	switch {
	case e.snapshot != nil:
		return e.snapshot.Symbol
	case e.bar != nil:
		return e.bar.Symbol
	case e.book != nil:
		return e.book.Symbol
	default:
		return model.Code{}
	}
}

// Validate checks the discriminant against the payload.
func (e Event) Validate() error {
	if !e.Kind.IsAvailable() {
		return fmt.Errorf("%w: unknown kind %d", exception.ErrMalformedEvent, e.Kind)
	}
	if !e.Source.IsAvailable() {
		return fmt.Errorf("%w: unknown source kind %d", exception.ErrMalformedEvent, e.Source)
	}
	var ok bool
	switch e.Kind {
	case enum.EventSnapshot:
		ok = e.snapshot != nil
	case enum.EventBar:
		ok = e.bar != nil
	case enum.EventOrderBook:
		ok = e.book != nil
	case enum.EventEndOfStream:
		ok = e.Producer != ""
	}
	if !ok {
		return fmt.Errorf("%w: %s event without payload", exception.ErrMalformedEvent, e.Kind)
	}
	return nil
}
