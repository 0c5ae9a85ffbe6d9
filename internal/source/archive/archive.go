// Package archive replays one trading day of ticks from the PostgreSQL
// archive.
package archive

import (
	"context"
	"fmt"

	"kline/internal/archive"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/source"
)

type Config struct {
	Name       string
	Kind       enum.SourceKind
	TradingDay int32
	Symbols    []string
	BatchSize  int
}

// Scanner is the read side of archive.Store.
type Scanner interface {
	Scan(ctx context.Context, q archive.Query, fn func([]archive.Tick) error) error
}

// Source is a bounded, Join policy archive replay.
type Source struct {
	source.Info
	cfg   Config
	store Scanner
	log   obs.Logger
}

func New(cfg Config, store Scanner, log obs.Logger) (*Source, error) {
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("invalid archive source config: Name is empty")
	case !cfg.Kind.IsAvailable():
		return nil, fmt.Errorf("invalid archive source config: unknown source kind")
	case cfg.TradingDay < 19700101 || cfg.TradingDay > 99991231:
		return nil, fmt.Errorf("invalid archive source config: TradingDay %d is not YYYYMMDD", cfg.TradingDay)
	case store == nil:
		return nil, fmt.Errorf("invalid archive source config: no store")
	}
	if log == nil {
		log = obs.Discard
	}
	info := source.Info{SourceName: cfg.Name, SourceKind: cfg.Kind}.WithDefaults(enum.ShutdownJoin)
	return &Source{Info: info, cfg: cfg, store: store, log: log}, nil
}

func (s *Source) Bounded() bool { return true }

func (s *Source) Run(ctx context.Context, emit source.Emitter) error {
	var n int
	err := s.store.Scan(ctx, archive.Query{
		TradingDay: s.cfg.TradingDay,
		Symbols:    s.cfg.Symbols,
		BatchSize:  s.cfg.BatchSize,
	}, func(rows []archive.Tick) error {
		for _, row := range rows {
			if err := emit.Tick(ctx, row.RawTick()); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	s.log.Infof("archive %s: replayed %d ticks of %d", s.Name(), n, s.cfg.TradingDay)
	return err
}
