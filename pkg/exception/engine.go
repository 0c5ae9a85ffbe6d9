package exception

import "errors"

// Orchestrator errors
var (
	ErrEngineNotIdle    = errors.New("engine: not idle")
	ErrNoSource         = errors.New("engine: no source registered")
	ErrStrategyPanicked = errors.New("engine: strategy panicked")
	ErrNilStrategy      = errors.New("engine: nil strategy")
)
