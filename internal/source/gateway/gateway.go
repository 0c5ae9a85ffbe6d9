// Package gateway is the live source: a JSON websocket bridge in front of a
// vendor market data API (CTP, XTP). It subscribes on start and unsubscribes
// before returning.
package gateway

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/source"
	"kline/pkg/exception"
)

const defaultLogoutTimeout = 3 * time.Second

type Config struct {
	Name    string
	Kind    enum.SourceKind
	URL     string
	Symbols []string
	// LogoutTimeout bounds the unsubscribe sent after cancellation.
	LogoutTimeout time.Duration
}

// Stats counts frames of the current run.
type Stats struct {
	Ticks     uint64
	Books     uint64
	Malformed uint64
}

type Source struct {
	source.Info
	cfg       Config
	transport Transport
	log       obs.Logger
	nextID    atomic.Int64

	ticks     atomic.Uint64
	books     atomic.Uint64
	malformed atomic.Uint64
}

// New creates a gateway over a websocket transport to cfg.URL.
func New(cfg Config, log obs.Logger) (*Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("invalid gateway config: URL is empty")
	}
	return NewWithTransport(cfg, NewWebSocket(cfg.URL), log)
}

func NewWithTransport(cfg Config, t Transport, log obs.Logger) (*Source, error) {
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("invalid gateway config: Name is empty")
	case !cfg.Kind.IsAvailable():
		return nil, fmt.Errorf("invalid gateway config: unknown source kind")
	case len(cfg.Symbols) == 0:
		return nil, fmt.Errorf("invalid gateway config: no symbols")
	case t == nil:
		return nil, fmt.Errorf("invalid gateway config: %w", exception.ErrNilInstance)
	}
	if cfg.LogoutTimeout <= 0 {
		cfg.LogoutTimeout = defaultLogoutTimeout
	}
	if log == nil {
		log = obs.Discard
	}
	info := source.Info{SourceName: cfg.Name, SourceKind: cfg.Kind}.WithDefaults(enum.ShutdownJoin)
	return &Source{Info: info, cfg: cfg, transport: t, log: log}, nil
}

func (s *Source) Bounded() bool { return false }

func (s *Source) Stats() Stats {
	return Stats{Ticks: s.ticks.Load(), Books: s.books.Load(), Malformed: s.malformed.Load()}
}

func (s *Source) Run(ctx context.Context, emit source.Emitter) error {
	if err := s.transport.Connect(ctx); err != nil {
		return err
	}
	defer s.transport.Close()

	msgs := s.transport.Messages(ctx)
	if err := s.transport.Request(ctx, s.request(OpSubscribe)); err != nil {
		return fmt.Errorf("%w: %s: %v", exception.ErrSubscribeFailed, s.Name(), err)
	}
	s.log.Infof("gateway %s: subscribed %d symbols", s.Name(), len(s.cfg.Symbols))

	for {
		select {
		case <-ctx.Done():
			s.logout()
			return nil
		case env, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					s.logout()
					return nil
				}
				return fmt.Errorf("%w: gateway %s", exception.ErrConnectionClose, s.Name())
			}
			if err := s.handle(ctx, env, emit); err != nil {
				if ctx.Err() != nil {
					s.logout()
					return nil
				}
				return err
			}
		}
	}
}

func (s *Source) handle(ctx context.Context, env Envelope, emit source.Emitter) error {
	recv := time.Now().UnixNano()
	switch env.Type {
	case TypeTick:
		tick, err := DecodeTick(env.Data, recv)
		if err != nil {
			s.malformed.Add(1)
			s.log.Warnf("gateway %s: %+v", s.Name(), err)
			return nil
		}
		s.ticks.Add(1)
		return emit.Tick(ctx, tick)
	case TypeBook:
		ob, err := DecodeBook(env.Data, recv)
		if err != nil {
			s.malformed.Add(1)
			s.log.Warnf("gateway %s: %+v", s.Name(), err)
			return nil
		}
		s.books.Add(1)
		return emit.OrderBook(ctx, ob)
	case TypeAck, TypeHeartbeat:
		return nil
	default:
		s.log.Debugf("gateway %s: ignore frame type %q", s.Name(), env.Type)
		return nil
	}
}

// logout unsubscribes on a fresh context since the run context is done.
func (s *Source) logout() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LogoutTimeout)
	defer cancel()
	if err := s.transport.Request(ctx, s.request(OpUnsubscribe)); err != nil {
		s.log.Warnf("gateway %s: unsubscribe: %+v", s.Name(), err)
		return
	}
	s.log.Infof("gateway %s: unsubscribed", s.Name())
}

func (s *Source) request(op string) Request {
	return Request{Op: op, ID: s.nextID.Add(1), Symbols: s.cfg.Symbols}
}
