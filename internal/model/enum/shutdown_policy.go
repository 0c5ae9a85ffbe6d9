package enum

import (
	"strings"

	"github.com/yanun0323/errors"
)

// ShutdownPolicy says how the orchestrator stops a producer.
type ShutdownPolicy uint8

const (
	_shutdown_policy_beg ShutdownPolicy = iota
	// ShutdownJoin cancels the producer and waits for it to log out and return.
	ShutdownJoin
	// ShutdownTerminate cancels the producer and abandons it after a grace period.
	ShutdownTerminate
	_shutdown_policy_end
)

func (p ShutdownPolicy) IsAvailable() bool {
	return p > _shutdown_policy_beg && p < _shutdown_policy_end
}

func (p ShutdownPolicy) String() string {
	switch p {
	case ShutdownJoin:
		return "join"
	case ShutdownTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "join":
		return ShutdownJoin, nil
	case "terminate", "kill":
		return ShutdownTerminate, nil
	default:
		return _shutdown_policy_beg, errors.Errorf("unknown shutdown policy %q", s)
	}
}
