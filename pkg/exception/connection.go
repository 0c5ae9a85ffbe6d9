package exception

import "errors"

// Connection errors
var (
	ErrConnectionClose = errors.New("connection closed")
	ErrSubscribeFailed = errors.New("subscribe failed")
)
