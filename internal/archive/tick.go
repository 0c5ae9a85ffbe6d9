package archive

import (
	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/normalize"
)

// Tick is one archived snapshot row. Counters are the vendor cumulative
// values so a replay recomputes the same deltas.
type Tick struct {
	ID           uint64 `gorm:"primaryKey"`
	TradingDay   int32  `gorm:"not null;index:idx_kline_ticks_day_symbol,priority:1"`
	Symbol       string `gorm:"size:32;not null;index:idx_kline_ticks_day_symbol,priority:2"`
	Source       string `gorm:"size:16;not null"`
	EventTs      int64  `gorm:"not null;index"`
	RecvTs       int64  `gorm:"not null"`
	Last         int64
	Open         int64
	High         int64
	Low          int64
	Close        int64
	PreClose     int64
	UpperLimit   int64
	LowerLimit   int64
	Volume       int64
	Turnover     int64
	OpenInterest int64
	Bids         [model.BookDepth]model.Level `gorm:"serializer:json"`
	Asks         [model.BookDepth]model.Level `gorm:"serializer:json"`
}

func (Tick) TableName() string {
	return "kline_ticks"
}

// TickOf maps a normalized snapshot to its row.
func TickOf(s model.Snapshot) Tick {
	return Tick{
		TradingDay:   s.TradingDay,
		Symbol:       s.Symbol.String(),
		Source:       s.Source.String(),
		EventTs:      s.EventTsNano,
		RecvTs:       s.RecvTsNano,
		Last:         int64(s.Last),
		Open:         int64(s.Open),
		High:         int64(s.High),
		Low:          int64(s.Low),
		Close:        int64(s.Close),
		PreClose:     int64(s.PreClose),
		UpperLimit:   int64(s.UpperLimit),
		LowerLimit:   int64(s.LowerLimit),
		Volume:       int64(s.TotalVolume),
		Turnover:     int64(s.TotalTurnover),
		OpenInterest: int64(s.OpenInterest),
		Bids:         s.Bids,
		Asks:         s.Asks,
	}
}

// RawTick restores the raw tick the row was normalized from.
func (t Tick) RawTick() normalize.RawTick {
	return normalize.RawTick{
		Symbol:       t.Symbol,
		TradingDay:   t.TradingDay,
		EventTsNano:  t.EventTs,
		RecvTsNano:   t.RecvTs,
		Last:         model.Price(t.Last),
		Open:         model.Price(t.Open),
		High:         model.Price(t.High),
		Low:          model.Price(t.Low),
		Close:        model.Price(t.Close),
		PreClose:     model.Price(t.PreClose),
		UpperLimit:   model.Price(t.UpperLimit),
		LowerLimit:   model.Price(t.LowerLimit),
		Volume:       model.Quantity(t.Volume),
		Turnover:     model.Notional(t.Turnover),
		OpenInterest: model.Quantity(t.OpenInterest),
		Bids:         t.Bids,
		Asks:         t.Asks,
	}
}

// SourceKind parses the stored source name; unknown names map to the zero
// kind.
func (t Tick) SourceKind() enum.SourceKind {
	k, _ := enum.ParseSourceKind(t.Source)
	return k
}
