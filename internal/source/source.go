package source

import (
	"context"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/normalize"
)

// Emitter is what a source pushes data into. Calls happen on the source's
// own goroutine. A returned error means the run is over for this source.
type Emitter interface {
	Tick(ctx context.Context, tick normalize.RawTick) error
	OrderBook(ctx context.Context, ob model.OrderBook) error
	Bar(ctx context.Context, bar model.Bar) error
}

// Source is one market data producer.
type Source interface {
	Name() string
	Kind() enum.SourceKind
	Policy() enum.ShutdownPolicy
	// Bounded sources run out of data; the orchestrator waits for their
	// end-of-stream in backtesting mode.
	Bounded() bool
	// Run blocks until the data ends, ctx is cancelled or a fatal error
	// occurs. A Join policy source logs out before returning.
	Run(ctx context.Context, emit Emitter) error
}

// Info carries the identity shared by every source implementation.
type Info struct {
	SourceName   string
	SourceKind   enum.SourceKind
	SourcePolicy enum.ShutdownPolicy
}

func (i Info) Name() string                { return i.SourceName }
func (i Info) Kind() enum.SourceKind       { return i.SourceKind }
func (i Info) Policy() enum.ShutdownPolicy { return i.SourcePolicy }

// WithDefaults fills the policy when unset.
func (i Info) WithDefaults(policy enum.ShutdownPolicy) Info {
	if !i.SourcePolicy.IsAvailable() {
		i.SourcePolicy = policy
	}
	return i
}
