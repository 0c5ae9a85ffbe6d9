package strategy

import (
	"sync"

	"kline/internal/model"
	"kline/internal/model/enum"
)

// Collector keeps everything it receives in memory. Reads are safe while the
// run is in progress.
type Collector struct {
	Base

	mu        sync.Mutex
	bars      []model.Bar
	snapshots []model.Snapshot
	books     []model.OrderBook
	order     []enum.EventKind
}

func NewCollector(name string, kind enum.SourceKind, symbols ...string) *Collector {
	return &Collector{Base: Base{StrategyName: name, Kind: kind, Symbols: symbols}}
}

func (c *Collector) OnBar(bar model.Bar) {
	c.mu.Lock()
	c.bars = append(c.bars, bar)
	c.order = append(c.order, enum.EventBar)
	c.mu.Unlock()
}

func (c *Collector) OnSnapshot(s model.Snapshot) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, s)
	c.order = append(c.order, enum.EventSnapshot)
	c.mu.Unlock()
}

func (c *Collector) OnOrderBook(ob model.OrderBook) {
	c.mu.Lock()
	c.books = append(c.books, ob)
	c.order = append(c.order, enum.EventOrderBook)
	c.mu.Unlock()
}

func (c *Collector) Bars() []model.Bar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Bar(nil), c.bars...)
}

func (c *Collector) Snapshots() []model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Snapshot(nil), c.snapshots...)
}

func (c *Collector) OrderBooks() []model.OrderBook {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.OrderBook(nil), c.books...)
}

// Order returns the kinds of the received events in arrival order.
func (c *Collector) Order() []enum.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]enum.EventKind(nil), c.order...)
}

// Summary is a per-symbol digest of collected bars.
type Summary struct {
	Symbol string
	Bars   int
	Open   model.Price
	High   model.Price
	Low    model.Price
	Close  model.Price
	Volume model.Quantity
}

// Summaries digests the collected bars per symbol, in first-seen order.
func (c *Collector) Summaries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[model.Code]int)
	var out []Summary
	for _, b := range c.bars {
		i, ok := index[b.Symbol]
		if !ok {
			i = len(out)
			index[b.Symbol] = i
			out = append(out, Summary{Symbol: b.Symbol.String(), Open: b.Open, High: b.High, Low: b.Low})
		}
		s := &out[i]
		s.Bars++
		if b.High > s.High {
			s.High = b.High
		}
		if b.Low < s.Low {
			s.Low = b.Low
		}
		s.Close = b.Close
		s.Volume += b.Volume
	}
	return out
}
