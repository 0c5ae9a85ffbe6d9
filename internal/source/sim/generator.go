package sim

import (
	"fmt"
	"math/rand/v2"
	"time"

	"kline/internal/model"
	"kline/internal/normalize"
)

// GeneratorConfig shapes the synthetic random walk. Prices are scaled by
// model.Scale.
type GeneratorConfig struct {
	Symbols   []string
	BasePrice model.Price
	// TickSize is the largest price move per tick.
	TickSize model.Price
	Spread   model.Price
	// MaxVolume bounds the traded volume per tick, at least 1.
	MaxVolume model.Quantity
	Seed      uint64
}

type walk struct {
	last     model.Price
	open     model.Price
	high     model.Price
	low      model.Price
	volume   model.Quantity
	turnover model.Notional
}

// Generator creates synthetic ticks, cycling through its symbols. Output is
// fully determined by the config and the timestamps passed to Next.
type Generator struct {
	cfg     GeneratorConfig
	rng     *rand.Rand
	symbols []string
	walks   []walk
	index   int
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("invalid generator config: no symbols")
	}
	if cfg.BasePrice <= 0 {
		return nil, fmt.Errorf("invalid generator config: BasePrice must be > 0")
	}
	if cfg.TickSize < 0 || cfg.Spread < 0 {
		return nil, fmt.Errorf("invalid generator config: TickSize and Spread must be >= 0")
	}
	if cfg.MaxVolume <= 0 {
		cfg.MaxVolume = 1
	}

	g := &Generator{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		symbols: append([]string(nil), cfg.Symbols...),
		walks:   make([]walk, len(cfg.Symbols)),
	}
	for i := range g.walks {
		p := cfg.BasePrice + model.Price(i)*cfg.TickSize
		g.walks[i] = walk{last: p, open: p, high: p, low: p}
	}
	return g, nil
}

// Next creates the next tick in sequence, stamped with now.
func (g *Generator) Next(now time.Time) normalize.RawTick {
	i := g.index
	g.index = (g.index + 1) % len(g.symbols)
	w := &g.walks[i]

	if g.cfg.TickSize > 0 {
		step := model.Price(g.rng.Int64N(int64(2*g.cfg.TickSize)+1)) - g.cfg.TickSize
		if w.last+step > 0 {
			w.last += step
		}
	}
	w.high = max(w.high, w.last)
	w.low = min(w.low, w.last)
	dv := model.Quantity(g.rng.Int64N(int64(g.cfg.MaxVolume))) + 1
	w.volume += dv
	w.turnover += model.Notional(int64(w.last) * int64(dv))

	ts := now.UnixNano()
	tick := normalize.RawTick{
		Symbol:      g.symbols[i],
		EventTsNano: ts,
		RecvTsNano:  ts,
		Last:        w.last,
		Open:        w.open,
		High:        w.high,
		Low:         w.low,
		PreClose:    g.cfg.BasePrice,
		Volume:      w.volume,
		Turnover:    w.turnover,
	}
	tick.Bids[0] = model.Level{Price: max(w.last-g.cfg.Spread, 0), Quantity: dv}
	tick.Asks[0] = model.Level{Price: w.last + g.cfg.Spread, Quantity: dv}
	return tick
}
