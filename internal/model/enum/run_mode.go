package enum

import (
	"strings"

	"github.com/yanun0323/errors"
)

// RunMode selects between real-time dispatch bounded by a cutoff and
// accelerated replay bounded by end of data.
type RunMode uint8

const (
	_run_mode_beg RunMode = iota
	RunModeLive
	RunModeBacktesting
	_run_mode_end
)

func (m RunMode) IsAvailable() bool {
	return m > _run_mode_beg && m < _run_mode_end
}

func (m RunMode) String() string {
	switch m {
	case RunModeLive:
		return "live"
	case RunModeBacktesting:
		return "backtesting"
	default:
		return "unknown"
	}
}

func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "":
		return RunModeLive, nil
	case "backtesting", "backtest":
		return RunModeBacktesting, nil
	default:
		return _run_mode_beg, errors.Errorf("unknown run mode %q", s)
	}
}
