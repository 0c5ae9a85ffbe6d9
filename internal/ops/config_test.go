package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/period"
	"kline/pkg/exception"
)

const minimal = `
mode: backtesting
sources:
  - name: day
    kind: csv
    type: csv
    path: testdata/day.csv
`

func TestParseDefaults(t *testing.T) {
	l, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, enum.RunModeBacktesting, l.Mode)
	assert.Equal(t, time.Minute, l.Interval)
	assert.Equal(t, "Asia/Shanghai", l.Session.Location.String())
	assert.Equal(t, period.TimeOfDay(93000), l.Session.Open)
	assert.Equal(t, []period.Break{{Start: 113000, End: 130000}}, l.Session.Breaks)
	assert.Equal(t, obs.LevelInfo, l.LogLevel)
	assert.Nil(t, l.Recorder)
	assert.Nil(t, l.Archive)
	require.Len(t, l.Sources, 1)
	assert.Equal(t, SourceCSV, l.Sources[0].Type)
	assert.Equal(t, enum.SourceCSV, l.Sources[0].Kind)
	assert.True(t, l.Sources[0].Bounded())

	s, err := l.Scheduler()
	require.NoError(t, err)
	opt := l.EngineOptions(s)
	assert.Equal(t, enum.RunModeBacktesting, opt.Mode)
	assert.Same(t, s, opt.Scheduler)
}

func TestParseFullConfig(t *testing.T) {
	t.Setenv("KLINE_TEST_BRIDGE", "ws://bridge:8080/md")
	t.Setenv("KLINE_TEST_PG_PASSWORD", "s3cret")

	l, err := Parse([]byte(`
mode: live
timezone: UTC
cutoff: "14:55"
interval_seconds: 300
session:
  open: 90000
  close: "15:15:00"
  breaks:
    - {start: "10:15:00", end: "10:30:00"}
    - {start: "11:30:00", end: "13:30:00"}
queue_capacity: 128
join_timeout: 3s
kill_grace: 500ms
log: {level: debug}
metrics: {addr: ":9100"}
profiling: {enabled: true, application: kline, server: "http://pyro:4040"}
recorder:
  enabled: true
  dir: /tmp/tape
  segment_max_bytes: 1048576
archive:
  enabled: true
  record: true
  batch_size: 50
  postgres: {host: db, user: kline, password: "${KLINE_TEST_PG_PASSWORD}", database: ticks}
sources:
  - {name: ctp, kind: ctp, type: gateway, url: "${KLINE_TEST_BRIDGE}", symbols: [rb2410]}
  - {name: replay, kind: ctp, type: tape, dir: /tmp/tape, speed: 2, shutdown: terminate}
  - {name: pg, kind: xtp, type: archive, trading_day: 20240102}
  - name: sim
    kind: ctp
    type: sim
    symbols: [rb2410]
    sim: {base_price: "3500.5", tick_size: "0.5", count: 10, start: "2024-01-02 09:30:00", step: 1s}
  - {name: off, kind: ctp, type: gateway, enabled: false}
strategies:
  - {name: p, kind: ctp, symbols: [rb2410]}
  - {name: c, type: collector, kind: xtp}
`))
	require.NoError(t, err)

	assert.Equal(t, enum.RunModeLive, l.Mode)
	assert.Equal(t, period.TimeOfDay(145500), l.Cutoff)
	assert.Equal(t, 5*time.Minute, l.Interval)
	assert.Equal(t, period.TimeOfDay(90000), l.Session.Open)
	assert.Equal(t, period.TimeOfDay(151500), l.Session.Close)
	assert.Len(t, l.Session.Breaks, 2)
	assert.Equal(t, 128, l.QueueCapacity)
	assert.Equal(t, 500*time.Millisecond, l.KillGrace)
	assert.Equal(t, obs.LevelDebug, l.LogLevel)
	assert.Equal(t, ":9100", l.MetricsAddr)
	assert.Equal(t, "http://pyro:4040", l.Profiling.ServerAddress)

	require.NotNil(t, l.Recorder)
	assert.Equal(t, "/tmp/tape", l.Recorder.Dir)
	assert.Equal(t, int64(1<<20), l.Recorder.SegmentMaxBytes)

	require.NotNil(t, l.Archive)
	assert.True(t, l.Archive.Record)
	assert.Equal(t, 50, l.Archive.Store.BatchSize)
	assert.Equal(t, "s3cret", l.Archive.Postgres.Password)

	require.Len(t, l.Sources, 4)
	assert.Equal(t, "ws://bridge:8080/md", l.Sources[0].URL)
	assert.False(t, l.Sources[0].Bounded())
	assert.Equal(t, enum.ShutdownTerminate, l.Sources[1].Policy)
	assert.Equal(t, 2.0, l.Sources[1].Playback.Speed)
	assert.Equal(t, enum.SourceXTP, l.Sources[2].Kind)
	sim := l.Sources[3].Sim
	assert.Equal(t, model.Price(3_500_500), sim.BasePrice)
	assert.Equal(t, model.Price(500), sim.TickSize)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), sim.Start)
	assert.True(t, l.Sources[3].Bounded())

	require.Len(t, l.Strategies, 2)
	assert.Equal(t, StrategyPrinter, l.Strategies[0].Type)
	assert.Equal(t, StrategyCollector, l.Strategies[1].Type)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown mode":        "mode: paper\n" + sourcesCSV,
		"bad timezone":        "timezone: Mars/Base\n" + sourcesCSV,
		"bad cutoff":          "cutoff: \"25:00\"\n" + sourcesCSV,
		"negative interval":   "interval_seconds: -1\n" + sourcesCSV,
		"session order":       "session: {open: \"15:00\", close: \"09:30\"}\n" + sourcesCSV,
		"bad level":           "log: {level: loud}\n" + sourcesCSV,
		"recorder dir":        "recorder: {enabled: true}\n" + sourcesCSV,
		"no source":           "mode: live\n",
		"unknown type":        "sources: [{name: a, kind: ctp, type: fix}]",
		"unknown kind":        "sources: [{name: a, kind: ibkr, type: csv, path: x}]",
		"duplicate source":    "sources: [{name: a, kind: csv, type: csv, path: x}, {name: a, kind: csv, type: csv, path: y}]",
		"gateway url":         "sources: [{name: a, kind: ctp, type: gateway, symbols: [x]}]",
		"archive disabled":    "sources: [{name: a, kind: ctp, type: archive, trading_day: 20240102}]",
		"sim base price":      "sources: [{name: a, kind: ctp, type: sim, symbols: [x]}]",
		"live gateway in bt":  "mode: backtesting\nsources: [{name: a, kind: ctp, type: gateway, url: ws://x, symbols: [x]}]",
		"unbounded sim in bt": "mode: backtesting\nsources: [{name: a, kind: ctp, type: sim, symbols: [x], sim: {base_price: \"1\"}}]",
		"bad policy":          "sources: [{name: a, kind: csv, type: csv, path: x, shutdown: later}]",
		"strategy kind":       sourcesCSV + "strategies: [{name: s, kind: nyse}]",
		"strategy type":       sourcesCSV + "strategies: [{name: s, kind: csv, type: trader}]",
		"duplicate strategy":  sourcesCSV + "strategies: [{name: s, kind: csv}, {name: s, kind: csv}]",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.ErrorIs(t, err, exception.ErrInvalidConfig)
		})
	}
}

const sourcesCSV = "sources: [{name: a, kind: csv, type: csv, path: x}]\n"

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("queue_capacityy: 3\n" + sourcesCSV))
	assert.Error(t, err)
}

func TestLoadWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("KLINE_TEST_CSV_PATH=/data/ticks\n"), 0o644))
	cfg := filepath.Join(dir, "kline.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
sources:
  - {name: a, kind: csv, type: csv, path: "${KLINE_TEST_CSV_PATH}"}
`), 0o644))
	t.Cleanup(func() { os.Unsetenv("KLINE_TEST_CSV_PATH") })

	l, err := Load(cfg, filepath.Join(dir, "missing.env"), env)
	require.NoError(t, err)
	assert.Equal(t, "/data/ticks", l.Sources[0].Path)

	_, err = Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	cases := map[string]period.TimeOfDay{
		"09:30:00": 93000,
		"9:30":     93000,
		"150000":   150000,
		"0":        0,
		"23:59:59": 235959,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "24:00", "12:60", "1:2:3:4", "noon", "-1", "126000"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSampleConfigParses(t *testing.T) {
	l, err := Load(filepath.Join("..", "..", "config", "kline.yaml"))
	require.NoError(t, err)
	assert.Equal(t, enum.RunModeBacktesting, l.Mode)
	require.Len(t, l.Sources, 1)
	assert.Equal(t, "csv-day", l.Sources[0].Name)
	assert.Len(t, l.Strategies, 2)
}
