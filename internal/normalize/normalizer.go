package normalize

import (
	"fmt"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/period"
	"kline/pkg/exception"
)

// RawTick is a vendor tick before delta computation. Volume and Turnover are
// the vendor's cumulative session counters.
type RawTick struct {
	Symbol       string
	TradingDay   int32
	EventTsNano  int64
	RecvTsNano   int64
	Last         model.Price
	Open         model.Price
	High         model.Price
	Low          model.Price
	Close        model.Price
	PreClose     model.Price
	UpperLimit   model.Price
	LowerLimit   model.Price
	Volume       model.Quantity
	Turnover     model.Notional
	OpenInterest model.Quantity
	Bids         [model.BookDepth]model.Level
	Asks         [model.BookDepth]model.Level
}

type cumulative struct {
	volume   model.Quantity
	turnover model.Notional
}

// Normalizer maps raw ticks to model.Snapshot and keeps the per-symbol
// cumulative baseline. It is owned by one producer and is not safe for
// concurrent use.
type Normalizer struct {
	source  enum.SourceKind
	session period.Session
	last    map[model.Code]cumulative
}

// NewNormalizer creates a normalizer stamping snapshots with source.
func NewNormalizer(source enum.SourceKind, session period.Session) *Normalizer {
	return &Normalizer{
		source:  source,
		session: session,
		last:    make(map[model.Code]cumulative),
	}
}

// Normalize validates the tick, then derives the deltas. A rejected tick
// leaves the baseline untouched.
func (n *Normalizer) Normalize(tick RawTick) (model.Snapshot, error) {
	if err := validate(tick); err != nil {
		return model.Snapshot{}, err
	}
	if tick.EventTsNano == 0 {
		tick.EventTsNano = tick.RecvTsNano
	}
	if tick.RecvTsNano == 0 {
		tick.RecvTsNano = tick.EventTsNano
	}
	if tick.TradingDay == 0 {
		tick.TradingDay = n.session.TradingDay(tick.EventTsNano)
	}

	code := model.NewCode(tick.Symbol)
	var dv model.Quantity
	var dt model.Notional
	if prev, ok := n.last[code]; ok {
		dv = tick.Volume - prev.volume
		if dv < 0 {
			dv = tick.Volume
		}
		dt = tick.Turnover - prev.turnover
		if dt < 0 {
			dt = tick.Turnover
		}
	}
	n.last[code] = cumulative{volume: tick.Volume, turnover: tick.Turnover}

	return model.Snapshot{
		Symbol:        code,
		TradingDay:    tick.TradingDay,
		EventTsNano:   tick.EventTsNano,
		RecvTsNano:    tick.RecvTsNano,
		Source:        n.source,
		Last:          tick.Last,
		Open:          tick.Open,
		High:          tick.High,
		Low:           tick.Low,
		Close:         tick.Close,
		PreClose:      tick.PreClose,
		UpperLimit:    tick.UpperLimit,
		LowerLimit:    tick.LowerLimit,
		TotalVolume:   tick.Volume,
		TotalTurnover: tick.Turnover,
		DeltaVolume:   dv,
		DeltaTurnover: dt,
		OpenInterest:  tick.OpenInterest,
		Bids:          tick.Bids,
		Asks:          tick.Asks,
	}, nil
}

// Reset forgets the baseline of symbol; its next tick gets zero deltas.
func (n *Normalizer) Reset(symbol string) {
	delete(n.last, model.NewCode(symbol))
}

// Len returns the number of symbols with a baseline.
func (n *Normalizer) Len() int {
	return len(n.last)
}

func validate(tick RawTick) error {
	switch {
	case tick.Symbol == "":
		return fmt.Errorf("%w: empty symbol", exception.ErrInvalidTick)
	case len(tick.Symbol) > model.CodeCap:
		return fmt.Errorf("%w: symbol %q longer than %d bytes", exception.ErrInvalidTick, tick.Symbol, model.CodeCap)
	case tick.EventTsNano <= 0 && tick.RecvTsNano <= 0:
		return fmt.Errorf("%w: %s has no timestamp", exception.ErrInvalidTick, tick.Symbol)
	case tick.Last < 0:
		return fmt.Errorf("%w: %s negative price %d", exception.ErrInvalidTick, tick.Symbol, tick.Last)
	case tick.Volume < 0 || tick.Turnover < 0:
		return fmt.Errorf("%w: %s negative cumulative volume or turnover", exception.ErrInvalidTick, tick.Symbol)
	}
	return nil
}

// RawTickOf turns a recorded snapshot back into the raw tick it came from,
// so replayed data goes through the same normalization as live data.
func RawTickOf(s model.Snapshot) RawTick {
	return RawTick{
		Symbol:       s.Symbol.String(),
		TradingDay:   s.TradingDay,
		EventTsNano:  s.EventTsNano,
		RecvTsNano:   s.RecvTsNano,
		Last:         s.Last,
		Open:         s.Open,
		High:         s.High,
		Low:          s.Low,
		Close:        s.Close,
		PreClose:     s.PreClose,
		UpperLimit:   s.UpperLimit,
		LowerLimit:   s.LowerLimit,
		Volume:       s.TotalVolume,
		Turnover:     s.TotalTurnover,
		OpenInterest: s.OpenInterest,
		Bids:         s.Bids,
		Asks:         s.Asks,
	}
}
