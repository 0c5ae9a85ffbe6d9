package strategy

import (
	"kline/internal/model"
	"kline/internal/model/enum"
)

// Strategy receives events from one source kind. Callbacks run on the
// dispatcher goroutine in registration order and must not block.
type Strategy interface {
	Name() string
	SourceKind() enum.SourceKind
	// SubscribedSymbols lists the symbols to receive; empty means all.
	SubscribedSymbols() []string
	OnBar(bar model.Bar)
	OnSnapshot(snapshot model.Snapshot)
	OnOrderBook(book model.OrderBook)
}

// Base carries the registration fields and no-op callbacks. Embed it and
// override the callbacks you need.
type Base struct {
	StrategyName string
	Kind         enum.SourceKind
	Symbols      []string
}

func (b *Base) Name() string                { return b.StrategyName }
func (b *Base) SourceKind() enum.SourceKind { return b.Kind }
func (b *Base) SubscribedSymbols() []string { return b.Symbols }
func (b *Base) OnBar(model.Bar)             {}
func (b *Base) OnSnapshot(model.Snapshot)   {}
func (b *Base) OnOrderBook(model.OrderBook) {}

// Subscription is a symbol filter built from SubscribedSymbols.
type Subscription struct {
	all     bool
	symbols map[model.Code]struct{}
}

func NewSubscription(symbols []string) Subscription {
	if len(symbols) == 0 {
		return Subscription{all: true}
	}
	set := make(map[model.Code]struct{}, len(symbols))
	for _, s := range symbols {
		set[model.NewCode(s)] = struct{}{}
	}
	return Subscription{symbols: set}
}

func (s Subscription) Match(symbol model.Code) bool {
	if s.all {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}
