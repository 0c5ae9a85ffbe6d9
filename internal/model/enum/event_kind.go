package enum

// EventKind is the discriminant of a bus event.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventSnapshot
	EventBar
	EventOrderBook
	// EventEndOfStream is published once by a bounded source after its last record.
	EventEndOfStream
	_event_kind_end
)

var eventKindNames = [...]string{
	EventSnapshot:    "snapshot",
	EventBar:         "bar",
	EventOrderBook:   "order_book",
	EventEndOfStream: "end_of_stream",
}

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

func (k EventKind) String() string {
	if !k.IsAvailable() {
		return "unknown"
	}
	return eventKindNames[k]
}

// EventKinds lists every available kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, int(_event_kind_end)-1)
	for k := _event_kind_beg + 1; k < _event_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
