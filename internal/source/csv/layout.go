package csv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kline/internal/model"
	"kline/internal/normalize"
	"kline/pkg/exception"
)

const (
	colSymbol = iota
	colDate
	colTime
	colMillis
	colLast
	colVolume
	colTurnover
	colOpen
	colHigh
	colLow
	colPreClose
	colUpperLimit
	colLowerLimit
	colOpenInterest
	colCount
)

var columnNames = map[string]int{
	"symbol":        colSymbol,
	"date":          colDate,
	"time":          colTime,
	"ms":            colMillis,
	"last_price":    colLast,
	"volume":        colVolume,
	"turnover":      colTurnover,
	"open":          colOpen,
	"high":          colHigh,
	"low":           colLow,
	"pre_close":     colPreClose,
	"upper_limit":   colUpperLimit,
	"lower_limit":   colLowerLimit,
	"open_interest": colOpenInterest,
}

var required = [...]int{colSymbol, colDate, colTime, colLast, colVolume, colTurnover}

// layout maps the header of one file to field positions. -1 means absent.
type layout struct {
	cols   [colCount]int
	bid    [model.BookDepth]int
	bidVol [model.BookDepth]int
	ask    [model.BookDepth]int
	askVol [model.BookDepth]int
	// minFields is the shortest row that still holds every required column.
	minFields int
}

func newLayout(header []string) (layout, error) {
	var l layout
	for i := range l.cols {
		l.cols[i] = -1
	}
	for i := 0; i < model.BookDepth; i++ {
		l.bid[i], l.bidVol[i], l.ask[i], l.askVol[i] = -1, -1, -1, -1
	}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if c, ok := columnNames[name]; ok {
			l.cols[c] = i
			continue
		}
		if lvl, ok := level(name, "bid_vol"); ok {
			l.bidVol[lvl] = i
		} else if lvl, ok := level(name, "ask_vol"); ok {
			l.askVol[lvl] = i
		} else if lvl, ok := level(name, "bid"); ok {
			l.bid[lvl] = i
		} else if lvl, ok := level(name, "ask"); ok {
			l.ask[lvl] = i
		}
	}

	for _, c := range required {
		if l.cols[c] < 0 {
			return l, fmt.Errorf("%w: header misses required columns symbol,date,time,last_price,volume,turnover", exception.ErrMalformedRecord)
		}
		l.minFields = max(l.minFields, l.cols[c]+1)
	}
	return l, nil
}

// level parses "bid1".."bid5" style names into a zero based level.
func level(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || len(rest) != 1 {
		return 0, false
	}
	n := int(rest[0] - '1')
	if n < 0 || n >= model.BookDepth {
		return 0, false
	}
	return n, true
}

func (l *layout) field(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// parse converts one data row. Timestamps are read in loc.
func (l *layout) parse(record []string, loc *time.Location) (normalize.RawTick, error) {
	var tick normalize.RawTick
	if len(record) < l.minFields {
		return tick, fmt.Errorf("%w: %d fields, need %d", exception.ErrMalformedRecord, len(record), l.minFields)
	}

	tick.Symbol = l.field(record, l.cols[colSymbol])
	if tick.Symbol == "" {
		return tick, fmt.Errorf("%w: empty symbol", exception.ErrMalformedRecord)
	}

	ts, err := parseTimestamp(l.field(record, l.cols[colDate]), l.field(record, l.cols[colTime]), l.field(record, l.cols[colMillis]), loc)
	if err != nil {
		return tick, err
	}
	tick.EventTsNano = ts.UnixNano()

	prices := []struct {
		col int
		dst *model.Price
	}{
		{colLast, &tick.Last},
		{colOpen, &tick.Open},
		{colHigh, &tick.High},
		{colLow, &tick.Low},
		{colPreClose, &tick.PreClose},
		{colUpperLimit, &tick.UpperLimit},
		{colLowerLimit, &tick.LowerLimit},
	}
	for _, p := range prices {
		if *p.dst, err = l.price(record, l.cols[p.col]); err != nil {
			return tick, err
		}
	}
	if tick.Volume, err = l.quantity(record, l.cols[colVolume]); err != nil {
		return tick, err
	}
	if tick.OpenInterest, err = l.quantity(record, l.cols[colOpenInterest]); err != nil {
		return tick, err
	}
	if s := l.field(record, l.cols[colTurnover]); s != "" {
		if tick.Turnover, err = model.ParseNotional(s); err != nil {
			return tick, fmt.Errorf("%w: turnover %q", exception.ErrMalformedRecord, s)
		}
	}

	for i := 0; i < model.BookDepth; i++ {
		if tick.Bids[i].Price, err = l.price(record, l.bid[i]); err != nil {
			return tick, err
		}
		if tick.Bids[i].Quantity, err = l.quantity(record, l.bidVol[i]); err != nil {
			return tick, err
		}
		if tick.Asks[i].Price, err = l.price(record, l.ask[i]); err != nil {
			return tick, err
		}
		if tick.Asks[i].Quantity, err = l.quantity(record, l.askVol[i]); err != nil {
			return tick, err
		}
	}
	return tick, nil
}

func (l *layout) price(record []string, col int) (model.Price, error) {
	s := l.field(record, col)
	if s == "" {
		return 0, nil
	}
	p, err := model.ParsePrice(s)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", exception.ErrMalformedRecord, s)
	}
	return p, nil
}

func (l *layout) quantity(record []string, col int) (model.Quantity, error) {
	s := l.field(record, col)
	if s == "" {
		return 0, nil
	}
	q, err := model.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q", exception.ErrMalformedRecord, s)
	}
	return q, nil
}

// parseTimestamp accepts date YYYYMMDD or YYYY-MM-DD and time HHMMSS, HH:MM:SS
// or HH:MM:SS.fff. ms, when present, adds milliseconds.
func parseTimestamp(date, clock, ms string, loc *time.Location) (time.Time, error) {
	date = strings.ReplaceAll(date, "-", "")
	if len(date) != 8 {
		return time.Time{}, fmt.Errorf("%w: date %q", exception.ErrMalformedRecord, date)
	}
	day, err := strconv.Atoi(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", exception.ErrMalformedRecord, date)
	}

	var frac time.Duration
	if whole, f, ok := strings.Cut(clock, "."); ok {
		clock = whole
		v, err := strconv.Atoi(f)
		if err != nil || len(f) > 9 {
			return time.Time{}, fmt.Errorf("%w: time %q", exception.ErrMalformedRecord, clock+"."+f)
		}
		for i := len(f); i < 9; i++ {
			v *= 10
		}
		frac = time.Duration(v)
	}
	clock = strings.ReplaceAll(clock, ":", "")
	if len(clock) == 5 {
		clock = "0" + clock
	}
	if len(clock) != 6 {
		return time.Time{}, fmt.Errorf("%w: time %q", exception.ErrMalformedRecord, clock)
	}
	hms, err := strconv.Atoi(clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", exception.ErrMalformedRecord, clock)
	}
	if ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil || v < 0 || v > 999 {
			return time.Time{}, fmt.Errorf("%w: ms %q", exception.ErrMalformedRecord, ms)
		}
		frac += time.Duration(v) * time.Millisecond
	}

	hh, mm, ss := hms/10000, hms/100%100, hms%100
	y, mo, d := day/10000, day/100%100, day%100
	if mo < 1 || mo > 12 || d < 1 || d > 31 || hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, fmt.Errorf("%w: timestamp %s %s out of range", exception.ErrMalformedRecord, date, clock)
	}
	return time.Date(y, time.Month(mo), d, hh, mm, ss, 0, loc).Add(frac), nil
}
