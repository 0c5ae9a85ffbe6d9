package engine

import (
	"fmt"

	"kline/internal/model/enum"
	"kline/pkg/exception"
)

// StrategyError reports a strategy callback that panicked. It aborts the run.
type StrategyError struct {
	Strategy string
	Event    enum.EventKind
	Symbol   string
	Value    any
	Stack    []byte
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s panicked on %s %s: %v", e.Strategy, e.Event, e.Symbol, e.Value)
}

func (e *StrategyError) Unwrap() error {
	return exception.ErrStrategyPanicked
}
