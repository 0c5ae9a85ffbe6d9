package exception

import "errors"

// Event bus errors
var (
	ErrQueueFull      = errors.New("bus: event queue full")
	ErrQueueClosed    = errors.New("bus: event queue closed")
	ErrMalformedEvent = errors.New("bus: malformed event")
)
