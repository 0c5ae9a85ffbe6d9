// Package archive keeps raw ticks in PostgreSQL so a trading day can be
// replayed later. Bars are never stored.
package archive

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kline/internal/model"
	"kline/internal/obs"
	"kline/pkg/exception"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = time.Second
	defaultWriteTimeout  = 5 * time.Second
)

type Config struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	// Migrate creates the table on open.
	Migrate bool `yaml:"migrate"`
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Store buffers snapshots and writes them in batches. Append is safe for
// concurrent use by several producers.
type Store struct {
	cfg  Config
	repo Repository
	log  obs.Logger

	mu      sync.Mutex
	pending []Tick

	written atomic.Uint64
	failed  atomic.Uint64

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewStore(ctx context.Context, cfg Config, repo Repository, log obs.Logger) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("archive repository: %w", exception.ErrNilInstance)
	}
	cfg = cfg.withDefaults()
	if log == nil {
		log = obs.Discard
	}
	if cfg.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate archive: %w", err)
		}
	}
	return &Store{
		cfg:     cfg,
		repo:    repo,
		log:     log,
		pending: make([]Tick, 0, cfg.BatchSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start flushes the buffer every FlushInterval until Close.
func (s *Store) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.cfg.FlushInterval)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C:
				if err := s.Flush(context.Background()); err != nil {
					s.log.Warnf("archive flush: %+v", err)
				}
			}
		}
	}()
}

// Append buffers one snapshot and writes the batch once it is full.
func (s *Store) Append(snap model.Snapshot) error {
	s.mu.Lock()
	s.pending = append(s.pending, TickOf(snap))
	if len(s.pending) < s.cfg.BatchSize {
		s.mu.Unlock()
		return nil
	}
	rows := s.swap()
	s.mu.Unlock()
	return s.write(context.Background(), rows)
}

// Flush writes whatever is buffered.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	rows := s.swap()
	s.mu.Unlock()
	return s.write(ctx, rows)
}

// Close stops the flusher and writes the rest.
func (s *Store) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.running.Load() {
		<-s.done
	}
	return s.Flush(ctx)
}

// Written and Failed count rows.
func (s *Store) Written() uint64 { return s.written.Load() }
func (s *Store) Failed() uint64  { return s.failed.Load() }

// Scan replays archived ticks of one trading day.
func (s *Store) Scan(ctx context.Context, q Query, fn func([]Tick) error) error {
	if q.BatchSize <= 0 {
		q.BatchSize = s.cfg.BatchSize
	}
	return s.repo.Scan(ctx, q, fn)
}

// swap must be called with mu held.
func (s *Store) swap() []Tick {
	if len(s.pending) == 0 {
		return nil
	}
	rows := s.pending
	s.pending = make([]Tick, 0, s.cfg.BatchSize)
	return rows
}

func (s *Store) write(ctx context.Context, rows []Tick) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := s.repo.Insert(ctx, rows); err != nil {
		s.failed.Add(uint64(len(rows)))
		return fmt.Errorf("archive %d ticks: %w", len(rows), err)
	}
	s.written.Add(uint64(len(rows)))
	return nil
}
