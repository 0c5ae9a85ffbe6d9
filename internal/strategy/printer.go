package strategy

import (
	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/obs"
)

// Printer logs every event it receives.
type Printer struct {
	Base
	log obs.Logger
}

func NewPrinter(name string, kind enum.SourceKind, symbols []string, log obs.Logger) *Printer {
	if log == nil {
		log = obs.Discard
	}
	return &Printer{Base: Base{StrategyName: name, Kind: kind, Symbols: symbols}, log: log}
}

func (p *Printer) OnBar(bar model.Bar) {
	p.log.Infof("%s bar %s", p.StrategyName, bar.Debug())
}

func (p *Printer) OnSnapshot(s model.Snapshot) {
	p.log.Debugf("%s snapshot %s", p.StrategyName, s.Debug())
}

func (p *Printer) OnOrderBook(ob model.OrderBook) {
	p.log.Debugf("%s book %s bids=%d asks=%d", p.StrategyName, ob.Symbol, ob.BidsLength, ob.AsksLength)
}
