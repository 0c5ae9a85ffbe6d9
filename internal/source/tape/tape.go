// Package tape replays a tick tape written by internal/recorder.
package tape

import (
	"context"
	"fmt"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/normalize"
	"kline/internal/obs"
	"kline/internal/recorder"
	"kline/internal/source"
)

type Config struct {
	Name     string
	Kind     enum.SourceKind
	Playback recorder.PlaybackConfig
	// Symbols restricts the replay; empty replays everything.
	Symbols []string
	// SkipOrderBooks drops recorded order books.
	SkipOrderBooks bool
}

// Source is a bounded, Join policy replay of a tape directory.
type Source struct {
	source.Info
	cfg      Config
	playback *recorder.Playback
	symbols  map[model.Code]struct{}
	log      obs.Logger
}

func New(cfg Config, log obs.Logger) (*Source, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("invalid tape config: Name is empty")
	}
	if !cfg.Kind.IsAvailable() {
		return nil, fmt.Errorf("invalid tape config: unknown source kind")
	}
	pb, err := recorder.NewPlayback(cfg.Playback)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obs.Discard
	}

	var symbols map[model.Code]struct{}
	if len(cfg.Symbols) > 0 {
		symbols = make(map[model.Code]struct{}, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols[model.NewCode(s)] = struct{}{}
		}
	}

	info := source.Info{SourceName: cfg.Name, SourceKind: cfg.Kind}.WithDefaults(enum.ShutdownJoin)
	return &Source{Info: info, cfg: cfg, playback: pb, symbols: symbols, log: log}, nil
}

// WithClock swaps the pacing clock.
func (s *Source) WithClock(clock recorder.Clock) *Source {
	s.playback.WithClock(clock)
	return s
}

func (s *Source) Bounded() bool { return true }

func (s *Source) Run(ctx context.Context, emit source.Emitter) error {
	var ticks, books int
	err := s.playback.Run(ctx, func(h recorder.Header, payload []byte) error {
		switch h.Kind {
		case enum.EventSnapshot:
			snap, err := recorder.DecodeSnapshot(h, payload)
			if err != nil {
				s.log.Warnf("tape %s: skip record %d: %+v", s.Name(), h.Seq, err)
				return nil
			}
			if !s.wants(snap.Symbol) {
				return nil
			}
			ticks++
			return emit.Tick(ctx, normalize.RawTickOf(snap))
		case enum.EventOrderBook:
			if s.cfg.SkipOrderBooks {
				return nil
			}
			ob, err := recorder.DecodeOrderBook(h, payload)
			if err != nil {
				s.log.Warnf("tape %s: skip record %d: %+v", s.Name(), h.Seq, err)
				return nil
			}
			if !s.wants(ob.Symbol) {
				return nil
			}
			books++
			return emit.OrderBook(ctx, ob)
		default:
			return nil
		}
	})
	s.log.Infof("tape %s: replayed %d ticks, %d order books", s.Name(), ticks, books)
	return err
}

func (s *Source) wants(symbol model.Code) bool {
	if s.symbols == nil {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}
