package model

import (
	"strconv"
	"time"

	"kline/internal/model/enum"
)

// BookDepth is the number of price levels carried by a Snapshot.
const BookDepth = 5

// OrderBookDepth is the number of price levels carried by an OrderBook.
const OrderBookDepth = 10

type Level struct {
	Price    Price
	Quantity Quantity
}

// Snapshot is one normalized tick. Total* fields are the vendor's cumulative
// session counters, Delta* the increase since the previous tick of the same
// symbol.
//
// use make codable-gen
//
//go:generate codable
type Snapshot struct {
	Symbol        Code
	TradingDay    int32
	EventTsNano   int64
	RecvTsNano    int64
	Source        enum.SourceKind
	Last          Price
	Open          Price
	High          Price
	Low           Price
	Close         Price
	PreClose      Price
	UpperLimit    Price
	LowerLimit    Price
	TotalVolume   Quantity
	TotalTurnover Notional
	DeltaVolume   Quantity
	DeltaTurnover Notional
	OpenInterest  Quantity
	Bids          [BookDepth]Level
	Asks          [BookDepth]Level
}

func (s Snapshot) EventTime() time.Time {
	return time.Unix(0, s.EventTsNano)
}

// Debug returns a single line description.
func (s Snapshot) Debug() string {
	buf := make([]byte, 0, 128)
	buf = s.Symbol.AppendBytes(buf)
	buf = append(buf, ' ')
	buf = time.Unix(0, s.EventTsNano).AppendFormat(buf, "2006-01-02 15:04:05.000")
	buf = append(buf, " last="...)
	buf = s.Last.AppendString(buf)
	buf = append(buf, " dv="...)
	buf = s.DeltaVolume.AppendString(buf)
	buf = append(buf, " dt="...)
	buf = s.DeltaTurnover.AppendString(buf)
	return string(buf)
}

// Bar is an OHLCV bar closed at boundary TimeNano. StartTsNano and EndTsNano
// are the event times of the first and last tick that went into it.
//
// use make codable-gen
//
//go:generate codable
type Bar struct {
	Symbol        Code
	TradingDay    int32
	TimeNano      int64
	StartTsNano   int64
	EndTsNano     int64
	Source        enum.SourceKind
	Open          Price
	High          Price
	Low           Price
	Close         Price
	Volume        Quantity
	Turnover      Notional
	Style         enum.Style
	ChangePercent float64
	TickCount     int32
}

func (b Bar) Time() time.Time {
	return time.Unix(0, b.TimeNano)
}

// Debug returns a single line description.
func (b Bar) Debug() string {
	buf := make([]byte, 0, 160)
	buf = b.Symbol.AppendBytes(buf)
	buf = append(buf, ' ')
	buf = time.Unix(0, b.TimeNano).AppendFormat(buf, "2006-01-02 15:04:05")
	buf = append(buf, " o="...)
	buf = b.Open.AppendString(buf)
	buf = append(buf, " h="...)
	buf = b.High.AppendString(buf)
	buf = append(buf, " l="...)
	buf = b.Low.AppendString(buf)
	buf = append(buf, " c="...)
	buf = b.Close.AppendString(buf)
	buf = append(buf, " v="...)
	buf = b.Volume.AppendString(buf)
	buf = append(buf, " chg="...)
	buf = strconv.AppendFloat(buf, b.ChangePercent, 'f', 2, 64)
	buf = append(buf, '%')
	return string(buf)
}

// OrderBook is a level-2 book with trade summary fields.
//
// use make codable-gen
//
//go:generate codable
type OrderBook struct {
	Symbol      Code
	EventTsNano int64
	RecvTsNano  int64
	Source      enum.SourceKind
	LastPrice   Price
	Quantity    Quantity
	Turnover    Notional
	TradesCount int64
	Bids        [OrderBookDepth]Level
	BidsLength  int
	Asks        [OrderBookDepth]Level
	AsksLength  int
}
