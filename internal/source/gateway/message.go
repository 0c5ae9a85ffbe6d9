package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"kline/internal/model"
	"kline/internal/normalize"
	"kline/pkg/exception"
)

const (
	TypeTick      = "tick"
	TypeBook      = "book"
	TypeAck       = "ack"
	TypeHeartbeat = "heartbeat"

	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// Envelope is one frame from the bridge.
type Envelope struct {
	Type  string          `json:"type"`
	ID    int64           `json:"id,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Request is a subscription change sent to the bridge; it is acknowledged by
// an ack envelope with the same ID.
type Request struct {
	Op      string   `json:"op"`
	ID      int64    `json:"id"`
	Symbols []string `json:"symbols"`
}

// TickMessage is the bridge's tick payload. Prices and turnover are decimal
// strings, volume and turnover are session cumulative.
type TickMessage struct {
	Symbol       string      `json:"symbol"`
	TradingDay   int32       `json:"trading_day"`
	TsMilli      int64       `json:"ts"`
	Last         string      `json:"last"`
	Open         string      `json:"open"`
	High         string      `json:"high"`
	Low          string      `json:"low"`
	PreClose     string      `json:"pre_close"`
	UpperLimit   string      `json:"upper_limit"`
	LowerLimit   string      `json:"lower_limit"`
	Volume       int64       `json:"volume"`
	Turnover     string      `json:"turnover"`
	OpenInterest int64       `json:"open_interest"`
	Bids         [][2]string `json:"bids"` // [0]price [1]quantity
	Asks         [][2]string `json:"asks"` // [0]price [1]quantity
}

// BookMessage is the bridge's level-2 payload.
type BookMessage struct {
	Symbol   string      `json:"symbol"`
	TsMilli  int64       `json:"ts"`
	Last     string      `json:"last"`
	Volume   int64       `json:"volume"`
	Turnover string      `json:"turnover"`
	Trades   int64       `json:"trades"`
	Bids     [][2]string `json:"bids"`
	Asks     [][2]string `json:"asks"`
}

// DecodeEnvelope parses a raw frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", exception.ErrMalformedRecord, err)
	}
	return env, nil
}

// DecodeTick turns a tick payload into a raw tick stamped with recvNano.
func DecodeTick(data []byte, recvNano int64) (normalize.RawTick, error) {
	var msg TickMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return normalize.RawTick{}, fmt.Errorf("%w: tick: %v", exception.ErrMalformedRecord, err)
	}

	tick := normalize.RawTick{
		Symbol:       msg.Symbol,
		TradingDay:   msg.TradingDay,
		EventTsNano:  msg.TsMilli * 1e6,
		RecvTsNano:   recvNano,
		Volume:       model.Quantity(msg.Volume),
		OpenInterest: model.Quantity(msg.OpenInterest),
	}
	prices := []struct {
		s   string
		dst *model.Price
	}{
		{msg.Last, &tick.Last},
		{msg.Open, &tick.Open},
		{msg.High, &tick.High},
		{msg.Low, &tick.Low},
		{msg.PreClose, &tick.PreClose},
		{msg.UpperLimit, &tick.UpperLimit},
		{msg.LowerLimit, &tick.LowerLimit},
	}
	for _, p := range prices {
		v, err := optionalPrice(p.s)
		if err != nil {
			return tick, err
		}
		*p.dst = v
	}

	var err error
	if tick.Turnover, err = optionalNotional(msg.Turnover); err != nil {
		return tick, err
	}
	if err := fillLevels(tick.Bids[:], msg.Bids); err != nil {
		return tick, err
	}
	if err := fillLevels(tick.Asks[:], msg.Asks); err != nil {
		return tick, err
	}
	return tick, nil
}

// DecodeBook turns a book payload into a model.OrderBook stamped with recvNano.
func DecodeBook(data []byte, recvNano int64) (model.OrderBook, error) {
	var msg BookMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return model.OrderBook{}, fmt.Errorf("%w: book: %v", exception.ErrMalformedRecord, err)
	}
	if msg.Symbol == "" {
		return model.OrderBook{}, fmt.Errorf("%w: book without symbol", exception.ErrMalformedRecord)
	}

	ob := model.OrderBook{
		Symbol:      model.NewCode(msg.Symbol),
		EventTsNano: msg.TsMilli * 1e6,
		RecvTsNano:  recvNano,
		Quantity:    model.Quantity(msg.Volume),
		TradesCount: msg.Trades,
		BidsLength:  min(len(msg.Bids), model.OrderBookDepth),
		AsksLength:  min(len(msg.Asks), model.OrderBookDepth),
	}
	if ob.EventTsNano == 0 {
		ob.EventTsNano = recvNano
	}
	var err error
	if ob.LastPrice, err = optionalPrice(msg.Last); err != nil {
		return ob, err
	}
	if ob.Turnover, err = optionalNotional(msg.Turnover); err != nil {
		return ob, err
	}
	if err := fillLevels(ob.Bids[:], msg.Bids); err != nil {
		return ob, err
	}
	if err := fillLevels(ob.Asks[:], msg.Asks); err != nil {
		return ob, err
	}
	return ob, nil
}

func optionalPrice(s string) (model.Price, error) {
	if s == "" {
		return 0, nil
	}
	p, err := model.ParsePrice(s)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", exception.ErrMalformedRecord, s)
	}
	return p, nil
}

func optionalNotional(s string) (model.Notional, error) {
	if s == "" {
		return 0, nil
	}
	n, err := model.ParseNotional(s)
	if err != nil {
		return 0, fmt.Errorf("%w: turnover %q", exception.ErrMalformedRecord, s)
	}
	return n, nil
}

// fillLevels copies as many levels as dst holds; deeper levels are dropped.
func fillLevels(dst []model.Level, src [][2]string) error {
	for i := 0; i < len(dst) && i < len(src); i++ {
		p, err := model.ParsePrice(src[i][0])
		if err != nil {
			return fmt.Errorf("%w: level price %q", exception.ErrMalformedRecord, src[i][0])
		}
		q, err := model.ParseQuantity(src[i][1])
		if err != nil {
			return fmt.Errorf("%w: level quantity %q", exception.ErrMalformedRecord, src[i][1])
		}
		dst[i] = model.Level{Price: p, Quantity: q}
	}
	return nil
}
