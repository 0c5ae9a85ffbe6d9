// Package sourcetest provides an in-memory source.Emitter for tests.
package sourcetest

import (
	"context"
	"sync"

	"kline/internal/model"
	"kline/internal/normalize"
)

// Emitter records everything a source emits. Setting Err makes every call
// fail with it; Limit > 0 cancels Cancel after that many calls.
type Emitter struct {
	mu     sync.Mutex
	ticks  []normalize.RawTick
	books  []model.OrderBook
	bars   []model.Bar
	calls  int
	Err    error
	Limit  int
	Cancel context.CancelFunc
}

func (e *Emitter) record(fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	fn()
	e.calls++
	if e.Limit > 0 && e.calls >= e.Limit && e.Cancel != nil {
		e.Cancel()
	}
	return nil
}

func (e *Emitter) Tick(_ context.Context, tick normalize.RawTick) error {
	return e.record(func() { e.ticks = append(e.ticks, tick) })
}

func (e *Emitter) OrderBook(_ context.Context, ob model.OrderBook) error {
	return e.record(func() { e.books = append(e.books, ob) })
}

func (e *Emitter) Bar(_ context.Context, bar model.Bar) error {
	return e.record(func() { e.bars = append(e.bars, bar) })
}

func (e *Emitter) Ticks() []normalize.RawTick {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]normalize.RawTick(nil), e.ticks...)
}

func (e *Emitter) OrderBooks() []model.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.OrderBook(nil), e.books...)
}

func (e *Emitter) Bars() []model.Bar {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Bar(nil), e.bars...)
}
