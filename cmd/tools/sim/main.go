package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/normalize"
	"kline/internal/period"
	"kline/internal/recorder"
	"kline/internal/source/sim"
)

func main() {
	walDir := flag.String("wal-dir", "testdata/tape", "Tape directory to write")
	symbols := flag.String("symbols", "rb2410", "Comma separated symbols")
	ticks := flag.Int("ticks", 1000, "Number of ticks to generate")
	kindName := flag.String("kind", "ctp", "Source kind stamped on the ticks")
	timezone := flag.String("timezone", "Asia/Shanghai", "Session time zone")
	start := flag.String("start", "2024-01-02 09:30:00", "Event time of the first tick")
	step := flag.Duration("step", 3*time.Second, "Event time between ticks")
	basePrice := flag.String("base-price", "3500", "Starting price")
	tickSize := flag.String("tick-size", "1", "Largest price move per tick")
	spread := flag.String("spread", "1", "Bid/ask spread")
	maxVolume := flag.Int64("max-volume", 20, "Largest volume per tick")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}
	kind, err := enum.ParseSourceKind(*kindName)
	if err != nil {
		log.Fatalf("invalid kind: %v", err)
	}
	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}
	ts, err := time.ParseInLocation(time.DateTime, *start, loc)
	if err != nil {
		log.Fatalf("invalid start: %v", err)
	}

	cfg := sim.GeneratorConfig{
		Symbols:   strings.Split(*symbols, ","),
		MaxVolume: model.Quantity(*maxVolume),
		Seed:      *seed,
	}
	for dst, s := range map[*model.Price]string{&cfg.BasePrice: *basePrice, &cfg.TickSize: *tickSize, &cfg.Spread: *spread} {
		p, err := model.ParsePrice(s)
		if err != nil {
			log.Fatalf("invalid price %q: %v", s, err)
		}
		*dst = p
	}
	gen, err := sim.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	session := period.DefaultSession(loc)
	normalizer := normalize.NewNormalizer(kind, session)

	ctx := context.Background()
	writer, err := recorder.NewWriter(recorder.DefaultConfig(*walDir))
	if err != nil {
		log.Fatalf("tape init failed: %v", err)
	}
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("tape start failed: %v", err)
	}

	var skipped int
	for n := 0; n < *ticks; n++ {
		raw := gen.Next(ts)
		ts = ts.Add(*step)
		if !session.Contains(time.Unix(0, raw.EventTsNano)) {
			skipped++
			continue
		}
		snap, err := normalizer.Normalize(raw)
		if err != nil {
			log.Fatalf("normalize failed: %v", err)
		}
		if err := appendWithRetry(writer, snap); err != nil {
			log.Fatalf("tape append failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("tape close failed: %v", err)
	}
	log.Printf("wrote %d snapshots to %s, %d outside the session", writer.Written(), *walDir, skipped)
}

func appendWithRetry(w *recorder.Writer, s model.Snapshot) error {
	for {
		err := w.Append(s)
		if !errors.Is(err, recorder.ErrQueueFull) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}
