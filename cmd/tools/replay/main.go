package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/bytedance/sonic"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/recorder"
)

func main() {
	dir := flag.String("wal-dir", "testdata/tape", "Tape directory")
	prefix := flag.String("prefix", "", "Tape file prefix (default: tape)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecv := flag.Bool("use-recv-time", false, "Use receive timestamp for pacing")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	tolerate := flag.Bool("tolerate-truncation", false, "Stop quietly at a torn final record")
	asJSON := flag.Bool("json", false, "Print decoded records as JSON lines")
	flag.Parse()

	cfg := recorder.PlaybackConfig{
		Dir:                *dir,
		FilePrefix:         *prefix,
		Speed:              *speed,
		UseRecvTime:        *useRecv,
		DisableChecksum:    *noChecksum,
		MaxPayloadSize:     *maxPayload,
		TolerateTruncation: *tolerate,
	}
	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var index int
	err = pb.Run(ctx, func(h recorder.Header, payload []byte) error {
		index++
		if !*asJSON {
			_, err := fmt.Fprintf(out, "%06d seq=%d kind=%s source=%s day=%d ts_event=%d ts_recv=%d len=%d\n",
				index, h.Seq, h.Kind, h.Source, h.TradingDay, h.TsEvent, h.TsRecv, len(payload))
			return err
		}
		line, err := decode(h, payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%06d seq=%d: %v\n", index, h.Seq, err)
			return nil
		}
		buf, err := sonic.Marshal(line)
		if err != nil {
			return err
		}
		buf = append(buf, '\n')
		_, err = out.Write(buf)
		return err
	})
	if err != nil {
		log.Fatalf("playback run failed after %d records: %v", index, err)
	}
}

type level struct {
	Price    string `json:"p"`
	Quantity int64  `json:"q"`
}

type record struct {
	Seq        uint64  `json:"seq"`
	Kind       string  `json:"kind"`
	Source     string  `json:"source"`
	Symbol     string  `json:"symbol"`
	TradingDay int32   `json:"trading_day,omitempty"`
	EventTs    int64   `json:"ts_event"`
	RecvTs     int64   `json:"ts_recv"`
	Last       string  `json:"last"`
	Volume     int64   `json:"volume"`
	Turnover   string  `json:"turnover"`
	Bids       []level `json:"bids,omitempty"`
	Asks       []level `json:"asks,omitempty"`
}

func decode(h recorder.Header, payload []byte) (record, error) {
	r := record{Seq: h.Seq, Kind: h.Kind.String(), Source: h.Source.String(), TradingDay: h.TradingDay, EventTs: h.TsEvent, RecvTs: h.TsRecv}
	switch h.Kind {
	case enum.EventSnapshot:
		s, err := recorder.DecodeSnapshot(h, payload)
		if err != nil {
			return r, err
		}
		r.Symbol = s.Symbol.String()
		r.Last = s.Last.String()
		r.Volume = int64(s.TotalVolume)
		r.Turnover = s.TotalTurnover.String()
		r.Bids = levels(s.Bids[:])
		r.Asks = levels(s.Asks[:])
	case enum.EventOrderBook:
		ob, err := recorder.DecodeOrderBook(h, payload)
		if err != nil {
			return r, err
		}
		r.Symbol = ob.Symbol.String()
		r.Last = ob.LastPrice.String()
		r.Volume = int64(ob.Quantity)
		r.Turnover = ob.Turnover.String()
		r.Bids = levels(ob.Bids[:ob.BidsLength])
		r.Asks = levels(ob.Asks[:ob.AsksLength])
	default:
		return r, fmt.Errorf("unexpected record kind %s", h.Kind)
	}
	return r, nil
}

func levels(src []model.Level) []level {
	out := make([]level, 0, len(src))
	for _, l := range src {
		if l.Price == 0 && l.Quantity == 0 {
			continue
		}
		out = append(out, level{Price: l.Price.String(), Quantity: int64(l.Quantity)})
	}
	return out
}
