package exception

import "errors"

var (
	ErrInvalidTick     = errors.New("market data: invalid tick")
	ErrSymbolMismatch  = errors.New("market data: symbol mismatch")
	ErrMalformedRecord = errors.New("market data: malformed record")
)
