package engine

import (
	"fmt"
	"time"

	"kline/internal/feed"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/period"
)

const (
	defaultCutoff        period.TimeOfDay = 150000
	defaultQueueCapacity                  = 4096
	defaultJoinTimeout                    = 10 * time.Second
	defaultKillGrace                      = 2 * time.Second
)

// Clock supplies wall-clock time for the live cutoff.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options configures an Engine.
type Options struct {
	Mode      enum.RunMode
	Scheduler *period.Scheduler
	// Cutoff ends a live run at this wall-clock time of day, in the
	// scheduler session's time zone.
	Cutoff        period.TimeOfDay
	QueueCapacity int
	// JoinTimeout bounds the wait for a Join policy producer to log out.
	JoinTimeout time.Duration
	// KillGrace is how long a Terminate policy producer gets before it is abandoned.
	KillGrace time.Duration
	Clock     Clock
	Metrics   *obs.Metrics
	Sequence  *obs.Sequence
	// Sinks receive every normalized snapshot of every producer and must
	// be safe for concurrent use.
	Sinks []feed.Sink
}

func (o Options) withDefaults() Options {
	if o.Cutoff == 0 {
		o.Cutoff = defaultCutoff
	}
	if o.QueueCapacity == 0 {
		o.QueueCapacity = defaultQueueCapacity
	}
	if o.JoinTimeout == 0 {
		o.JoinTimeout = defaultJoinTimeout
	}
	if o.KillGrace == 0 {
		o.KillGrace = defaultKillGrace
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Metrics == nil {
		o.Metrics = obs.NewMetrics()
	}
	if o.Sequence == nil {
		o.Sequence = obs.NewSequence(0)
	}
	return o
}

// Validate checks if the options are usable.
func (o Options) Validate() error {
	if !o.Mode.IsAvailable() {
		return fmt.Errorf("invalid engine config: unknown run mode %d", o.Mode)
	}
	if o.Scheduler == nil {
		return fmt.Errorf("invalid engine config: Scheduler is nil")
	}
	if !o.Cutoff.Valid() {
		return fmt.Errorf("invalid engine config: Cutoff %d is not HHMMSS", o.Cutoff)
	}
	if o.QueueCapacity <= 0 {
		return fmt.Errorf("invalid engine config: QueueCapacity must be > 0")
	}
	if o.JoinTimeout < 0 || o.KillGrace < 0 {
		return fmt.Errorf("invalid engine config: JoinTimeout and KillGrace must be >= 0")
	}
	return nil
}
