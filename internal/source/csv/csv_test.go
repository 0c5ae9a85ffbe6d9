package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/source/sourcetest"
	"kline/pkg/exception"
)

var cst = time.FixedZone("CST", 8*3600)

const header = "symbol,date,time,ms,last_price,volume,turnover,bid1,bid_vol1,ask1,ask_vol1\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, cfg Config) (*Source, *sourcetest.Emitter) {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "csv"
	}
	cfg.Location = cst
	src, err := New(cfg, nil)
	require.NoError(t, err)
	emit := &sourcetest.Emitter{}
	require.NoError(t, src.Run(context.Background(), emit))
	return src, emit
}

func TestCSVParsesRow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "day.csv", header+
		"600000,20240102,09:30:01,500,10.01,100,1001.5,10.00,5,10.02,7\n")

	src, emit := run(t, Config{Path: path})
	assert.Equal(t, enum.SourceCSV, src.Kind())
	assert.Equal(t, enum.ShutdownJoin, src.Policy())
	assert.True(t, src.Bounded())

	ticks := emit.Ticks()
	require.Len(t, ticks, 1)
	tk := ticks[0]
	assert.Equal(t, "600000", tk.Symbol)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 1, 500_000_000, cst).UnixNano(), tk.EventTsNano)
	assert.Equal(t, model.Price(10_010), tk.Last)
	assert.Equal(t, model.Quantity(100), tk.Volume)
	assert.Equal(t, model.Notional(1_001_500), tk.Turnover)
	assert.Equal(t, model.Level{Price: 10_000, Quantity: 5}, tk.Bids[0])
	assert.Equal(t, model.Level{Price: 10_020, Quantity: 7}, tk.Asks[0])
	assert.Equal(t, Stats{Files: 1, Rows: 1, Emitted: 1}, src.Stats())
}

func TestCSVDirectoryOrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240103.csv", header+"600000,20240103,093000,,10.30,10,103\n")
	writeFile(t, dir, "20240102.csv", header+
		"600000,20240102,093000,,10.20,10,102\n"+
		"000001,20240102,093000,,9.00,10,90\n")
	writeFile(t, dir, "notes.txt", "ignored")

	src, emit := run(t, Config{Path: dir, Symbols: []string{"600000"}})
	files, err := src.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20240102.csv", filepath.Base(files[0]))

	ticks := emit.Ticks()
	require.Len(t, ticks, 2)
	assert.Equal(t, model.Price(10_200), ticks[0].Last)
	assert.Equal(t, model.Price(10_300), ticks[1].Last)
	assert.Equal(t, 3, src.Stats().Rows)
	assert.Equal(t, 2, src.Stats().Emitted)
}

func TestCSVSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "day.csv", header+
		"600000,20240102,09:30:00,0,10.00,100,1000\n"+
		"600000,20240102,09:30:01,0,abc,100,1000\n"+
		"600000,2024010,09:30:02,0,10.00,100,1000\n"+
		"600000,20240102,25:30:03,0,10.00,100,1000\n"+
		"600000,20240102,09:30:04\n"+
		",20240102,09:30:05,0,10.00,100,1000\n"+
		"600000,20240102,09:30:06,0,10.05,200,2010\n")

	src, emit := run(t, Config{Path: path})
	ticks := emit.Ticks()
	require.Len(t, ticks, 2)
	assert.Equal(t, model.Price(10_050), ticks[1].Last)
	assert.Equal(t, 5, src.Stats().Skipped)
}

func TestCSVHeaderMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "day.csv", "symbol,date,time\n600000,20240102,093000\n")
	src, err := New(Config{Name: "csv", Path: path}, nil)
	require.NoError(t, err)
	err = src.Run(context.Background(), &sourcetest.Emitter{})
	assert.ErrorIs(t, err, exception.ErrMalformedRecord)
}

func TestCSVEmptyFileAndMissingPath(t *testing.T) {
	dir := t.TempDir()
	_, emit := run(t, Config{Path: writeFile(t, dir, "empty.csv", "")})
	assert.Empty(t, emit.Ticks())

	src, err := New(Config{Name: "csv", Path: filepath.Join(dir, "missing")}, nil)
	require.NoError(t, err)
	assert.Error(t, src.Run(context.Background(), &sourcetest.Emitter{}))
}

func TestCSVStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "day.csv", header+
		"600000,20240102,093000,,10.00,1,10\n"+
		"600000,20240102,093001,,10.00,2,20\n"+
		"600000,20240102,093002,,10.00,3,30\n")
	src, err := New(Config{Name: "csv", Path: path, Location: cst}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emit := &sourcetest.Emitter{Limit: 1, Cancel: cancel}
	assert.ErrorIs(t, src.Run(ctx, emit), context.Canceled)
	assert.Len(t, emit.Ticks(), 1)
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		date, clock, ms string
		want            time.Time
	}{
		{"20240102", "093000", "", time.Date(2024, 1, 2, 9, 30, 0, 0, cst)},
		{"2024-01-02", "09:30:00", "250", time.Date(2024, 1, 2, 9, 30, 0, 250_000_000, cst)},
		{"20240102", "93000", "", time.Date(2024, 1, 2, 9, 30, 0, 0, cst)},
		{"20240102", "09:30:00.12", "", time.Date(2024, 1, 2, 9, 30, 0, 120_000_000, cst)},
	}
	for _, tc := range cases {
		got, err := parseTimestamp(tc.date, tc.clock, tc.ms, cst)
		require.NoError(t, err, tc.clock)
		assert.True(t, tc.want.Equal(got), "%s %s: got %s", tc.date, tc.clock, got)
	}

	for _, bad := range [][3]string{{"2024", "093000", ""}, {"20240102", "0930", ""}, {"20241302", "093000", ""}, {"20240102", "093000", "1000"}} {
		_, err := parseTimestamp(bad[0], bad[1], bad[2], cst)
		assert.ErrorIs(t, err, exception.ErrMalformedRecord, bad)
	}
}

func TestConfigErrors(t *testing.T) {
	_, err := New(Config{Path: "x"}, nil)
	assert.Error(t, err)
	_, err = New(Config{Name: "x"}, nil)
	assert.Error(t, err)
}
