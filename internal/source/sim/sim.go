// Package sim is a synthetic market data source for demos and tests.
package sim

import (
	"context"
	"fmt"
	"time"

	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/source"
)

type Config struct {
	Name      string
	Kind      enum.SourceKind
	Generator GeneratorConfig
	// Interval is the wall clock delay between ticks; 0 emits back to back.
	Interval time.Duration
	// Count bounds the run; 0 runs until cancelled.
	Count int
	// Start switches to synthetic time: the first tick is stamped Start and
	// each following one Step later. Zero Start stamps ticks with time.Now.
	Start time.Time
	Step  time.Duration
}

// Source emits random walk ticks. It has no session to log out of, so it
// uses the Terminate policy unless overridden.
type Source struct {
	source.Info
	cfg Config
	gen *Generator
	log obs.Logger
}

func New(cfg Config, log obs.Logger) (*Source, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("invalid sim config: Name is empty")
	}
	if !cfg.Kind.IsAvailable() {
		return nil, fmt.Errorf("invalid sim config: unknown source kind")
	}
	if cfg.Count < 0 || cfg.Interval < 0 || cfg.Step < 0 {
		return nil, fmt.Errorf("invalid sim config: Count, Interval and Step must be >= 0")
	}
	if !cfg.Start.IsZero() && cfg.Step == 0 {
		cfg.Step = time.Second
	}
	gen, err := NewGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obs.Discard
	}
	info := source.Info{SourceName: cfg.Name, SourceKind: cfg.Kind}.WithDefaults(enum.ShutdownTerminate)
	return &Source{Info: info, cfg: cfg, gen: gen, log: log}, nil
}

// WithPolicy overrides the shutdown policy.
func (s *Source) WithPolicy(p enum.ShutdownPolicy) *Source {
	if p.IsAvailable() {
		s.SourcePolicy = p
	}
	return s
}

func (s *Source) Bounded() bool { return s.cfg.Count > 0 }

func (s *Source) Run(ctx context.Context, emit source.Emitter) error {
	var timer *time.Timer
	if s.cfg.Interval > 0 {
		timer = time.NewTimer(s.cfg.Interval)
		defer timer.Stop()
	}

	ts := s.cfg.Start
	for n := 0; s.cfg.Count == 0 || n < s.cfg.Count; n++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		now := ts
		if now.IsZero() {
			now = time.Now()
		} else {
			ts = ts.Add(s.cfg.Step)
		}
		if err := emit.Tick(ctx, s.gen.Next(now)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if timer != nil {
			timer.Reset(s.cfg.Interval)
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
			}
		}
	}
	s.log.Infof("sim %s: emitted %d ticks", s.Name(), s.cfg.Count)
	return nil
}
