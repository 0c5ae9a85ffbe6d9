package main

import (
	"context"
	"fmt"
	"time"

	"kline/internal/archive"
	"kline/internal/feed"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/ops"
	"kline/internal/recorder"
	"kline/internal/source"
	archivesrc "kline/internal/source/archive"
	"kline/internal/source/csv"
	"kline/internal/source/gateway"
	"kline/internal/source/sim"
	"kline/internal/source/tape"
	"kline/internal/strategy"
	"kline/pkg/conn"
)

const closeTimeout = 5 * time.Second

// tees holds the optional recorder and archive every snapshot is copied to.
type tees struct {
	writer *recorder.Writer
	client *conn.Client
	store  *archive.Store
	sinks  []feed.Sink
}

func openTees(ctx context.Context, loaded ops.Loaded, logger obs.Logger) (*tees, error) {
	t := &tees{}
	if loaded.Recorder != nil {
		w, err := recorder.NewWriter(*loaded.Recorder)
		if err != nil {
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			return nil, err
		}
		t.writer = w
		t.sinks = append(t.sinks, w)
		logger.Infof("recording ticks to %s", loaded.Recorder.Dir)
	}

	if loaded.Archive != nil {
		client, err := conn.New(loaded.Archive.Postgres)
		if err != nil {
			t.close(logger)
			return nil, err
		}
		t.client = client
		repo := archive.NewGormRepository(client.DB(), loaded.Archive.Store.BatchSize)
		store, err := archive.NewStore(ctx, loaded.Archive.Store, repo, logger)
		if err != nil {
			t.close(logger)
			return nil, err
		}
		t.store = store
		if loaded.Archive.Record {
			store.Start()
			t.sinks = append(t.sinks, store)
			logger.Infof("archiving ticks to %s", loaded.Archive.Postgres.Redacted())
		}
	}
	return t, nil
}

func (t *tees) close(logger obs.Logger) {
	if t.writer != nil {
		if err := t.writer.Close(); err != nil {
			logger.Errorf("close recorder: %+v", err)
		}
		logger.Infof("recorder wrote %d records", t.writer.Written())
	}
	if t.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := t.store.Close(ctx); err != nil {
			logger.Errorf("close archive: %+v", err)
		}
		cancel()
		logger.Infof("archive wrote %d rows, %d failed", t.store.Written(), t.store.Failed())
	}
	if t.client != nil {
		if err := t.client.Close(); err != nil {
			logger.Errorf("close postgres: %+v", err)
		}
	}
}

// policySource overrides the shutdown policy of a source.
type policySource struct {
	source.Source
	policy enum.ShutdownPolicy
}

func (p policySource) Policy() enum.ShutdownPolicy { return p.policy }

func buildSource(spec ops.SourceSpec, loaded ops.Loaded, t *tees, logger obs.Logger) (source.Source, error) {
	var src source.Source
	switch spec.Type {
	case ops.SourceGateway:
		s, err := gateway.New(gateway.Config{
			Name:          spec.Name,
			Kind:          spec.Kind,
			URL:           spec.URL,
			Symbols:       spec.Symbols,
			LogoutTimeout: spec.LogoutTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		src = s
	case ops.SourceCSV:
		s, err := csv.New(csv.Config{
			Name:     spec.Name,
			Kind:     spec.Kind,
			Path:     spec.Path,
			Symbols:  spec.Symbols,
			Location: loaded.Session.Location,
		}, logger)
		if err != nil {
			return nil, err
		}
		src = s
	case ops.SourceTape:
		s, err := tape.New(tape.Config{
			Name:     spec.Name,
			Kind:     spec.Kind,
			Playback: spec.Playback,
			Symbols:  spec.Symbols,
		}, logger)
		if err != nil {
			return nil, err
		}
		src = s
	case ops.SourceArchive:
		if t.store == nil {
			return nil, fmt.Errorf("source %s: archive is not open", spec.Name)
		}
		s, err := archivesrc.New(archivesrc.Config{
			Name:       spec.Name,
			Kind:       spec.Kind,
			TradingDay: spec.TradingDay,
			Symbols:    spec.Symbols,
			BatchSize:  loaded.Archive.Store.BatchSize,
		}, t.store, logger)
		if err != nil {
			return nil, err
		}
		src = s
	case ops.SourceSim:
		s, err := sim.New(sim.Config{
			Name: spec.Name,
			Kind: spec.Kind,
			Generator: sim.GeneratorConfig{
				Symbols:   spec.Symbols,
				BasePrice: spec.Sim.BasePrice,
				TickSize:  spec.Sim.TickSize,
				Spread:    spec.Sim.Spread,
				MaxVolume: spec.Sim.MaxVolume,
				Seed:      spec.Sim.Seed,
			},
			Interval: spec.Sim.Interval,
			Count:    spec.Sim.Count,
			Start:    spec.Sim.Start,
			Step:     spec.Sim.Step,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s.WithPolicy(spec.Policy), nil
	default:
		return nil, fmt.Errorf("source %s: unknown type %q", spec.Name, spec.Type)
	}

	if spec.Policy.IsAvailable() && spec.Policy != src.Policy() {
		return policySource{Source: src, policy: spec.Policy}, nil
	}
	return src, nil
}

type builtStrategies struct {
	all        []strategy.Strategy
	collectors []*strategy.Collector
}

func buildStrategies(specs []ops.StrategySpec, logger obs.Logger) builtStrategies {
	var out builtStrategies
	for _, spec := range specs {
		switch spec.Type {
		case ops.StrategyCollector:
			c := strategy.NewCollector(spec.Name, spec.Kind, spec.Symbols...)
			out.collectors = append(out.collectors, c)
			out.all = append(out.all, c)
		default:
			out.all = append(out.all, strategy.NewPrinter(spec.Name, spec.Kind, spec.Symbols, logger))
		}
	}
	return out
}
