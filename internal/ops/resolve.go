package ops

import (
	"fmt"
	"strings"
	"time"

	"kline/internal/archive"
	"kline/internal/engine"
	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/period"
	"kline/internal/recorder"
	"kline/pkg/conn"
	"kline/pkg/exception"
)

const (
	defaultTimezone        = "Asia/Shanghai"
	defaultIntervalSeconds = 60
)

type SourceType string

const (
	SourceGateway SourceType = "gateway"
	SourceCSV     SourceType = "csv"
	SourceTape    SourceType = "tape"
	SourceArchive SourceType = "archive"
	SourceSim     SourceType = "sim"
)

// Bounded reports whether the type runs out of data on its own. A sim
// source is bounded when it has a count.
func (t SourceType) Bounded() bool {
	switch t {
	case SourceCSV, SourceTape, SourceArchive:
		return true
	}
	return false
}

type StrategyType string

const (
	StrategyPrinter   StrategyType = "printer"
	StrategyCollector StrategyType = "collector"
)

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Mode          enum.RunMode
	Session       period.Session
	Interval      time.Duration
	Cutoff        period.TimeOfDay
	QueueCapacity int
	JoinTimeout   time.Duration
	KillGrace     time.Duration
	LogLevel      obs.Level
	MetricsAddr   string
	Profiling     obs.ProfilingConfig
	// Recorder is nil when disabled.
	Recorder *recorder.Config
	// Archive is nil when disabled.
	Archive    *ArchiveSpec
	Sources    []SourceSpec
	Strategies []StrategySpec
}

type ArchiveSpec struct {
	Postgres conn.Option
	Store    archive.Config
	Record   bool
}

// SourceSpec is a validated, enabled source.
type SourceSpec struct {
	Name string
	Kind enum.SourceKind
	Type SourceType
	// Policy is zero when the type default applies.
	Policy  enum.ShutdownPolicy
	Symbols []string

	URL           string
	LogoutTimeout time.Duration
	Path          string
	Playback      recorder.PlaybackConfig
	TradingDay    int32
	Sim           SimSpec
}

type SimSpec struct {
	BasePrice model.Price
	TickSize  model.Price
	Spread    model.Price
	MaxVolume model.Quantity
	Seed      uint64
	Interval  time.Duration
	Count     int
	Start     time.Time
	Step      time.Duration
}

type StrategySpec struct {
	Name    string
	Type    StrategyType
	Kind    enum.SourceKind
	Symbols []string
}

// Scheduler builds the period scheduler of the configured session.
func (l Loaded) Scheduler() (*period.Scheduler, error) {
	return period.NewScheduler(l.Interval, l.Session)
}

// EngineOptions maps the config onto engine options. Clock, metrics and
// sinks are left to the caller.
func (l Loaded) EngineOptions(s *period.Scheduler) engine.Options {
	return engine.Options{
		Mode:          l.Mode,
		Scheduler:     s,
		Cutoff:        l.Cutoff,
		QueueCapacity: l.QueueCapacity,
		JoinTimeout:   l.JoinTimeout,
		KillGrace:     l.KillGrace,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", exception.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func resolve(cfg FileConfig) (Loaded, error) {
	var l Loaded
	var err error

	if l.Mode, err = enum.ParseRunMode(cfg.Mode); err != nil {
		return l, invalid("mode: %v", err)
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return l, invalid("timezone %q: %v", tz, err)
	}
	if l.Session, err = resolveSession(cfg.Session, loc); err != nil {
		return l, err
	}

	if cfg.IntervalSeconds < 0 {
		return l, invalid("interval_seconds must be > 0")
	}
	if cfg.IntervalSeconds == 0 {
		cfg.IntervalSeconds = defaultIntervalSeconds
	}
	l.Interval = time.Duration(cfg.IntervalSeconds) * time.Second
	if cfg.Cutoff != nil {
		l.Cutoff = cfg.Cutoff.TimeOfDay()
	}
	if cfg.QueueCapacity < 0 || cfg.JoinTimeout < 0 || cfg.KillGrace < 0 {
		return l, invalid("queue_capacity, join_timeout and kill_grace must be >= 0")
	}
	l.QueueCapacity = cfg.QueueCapacity
	l.JoinTimeout = cfg.JoinTimeout
	l.KillGrace = cfg.KillGrace

	if l.LogLevel, err = obs.ParseLevel(cfg.Log.Level); err != nil {
		return l, invalid("log: %v", err)
	}
	l.MetricsAddr = cfg.Metrics.Addr
	l.Profiling = obs.ProfilingConfig{
		Enabled:         cfg.Profiling.Enabled,
		ApplicationName: cfg.Profiling.Application,
		ServerAddress:   cfg.Profiling.Server,
		Tags:            cfg.Profiling.Tags,
	}
	if l.Profiling.Enabled && l.Profiling.ServerAddress == "" {
		return l, invalid("profiling: server is empty")
	}

	if cfg.Recorder.Enabled {
		rc := cfg.Recorder.Config
		if err := recorder.DefaultConfig(rc.Dir).Validate(); err != nil {
			return l, invalid("recorder: %v", err)
		}
		l.Recorder = &rc
	}
	if cfg.Archive.Enabled {
		l.Archive = &ArchiveSpec{Postgres: cfg.Archive.Postgres, Store: cfg.Archive.Config, Record: cfg.Archive.Record}
	}

	if l.Sources, err = resolveSources(cfg.Sources, l, loc); err != nil {
		return l, err
	}
	if l.Strategies, err = resolveStrategies(cfg.Strategies); err != nil {
		return l, err
	}
	return l, nil
}

func resolveSession(cfg SessionConfig, loc *time.Location) (period.Session, error) {
	s := period.DefaultSession(loc)
	if cfg.Open != nil {
		s.Open = cfg.Open.TimeOfDay()
	}
	if cfg.Close != nil {
		s.Close = cfg.Close.TimeOfDay()
	}
	if cfg.Breaks != nil {
		s.Breaks = make([]period.Break, 0, len(cfg.Breaks))
		for _, b := range cfg.Breaks {
			s.Breaks = append(s.Breaks, period.Break{Start: b.Start.TimeOfDay(), End: b.End.TimeOfDay()})
		}
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%w: %v", exception.ErrInvalidConfig, err)
	}
	return s, nil
}

func resolveSources(files []SourceConfig, l Loaded, loc *time.Location) ([]SourceSpec, error) {
	seen := make(map[string]struct{}, len(files))
	specs := make([]SourceSpec, 0, len(files))
	for i, f := range files {
		if f.Enabled != nil && !*f.Enabled {
			continue
		}
		if f.Name == "" {
			return nil, invalid("sources[%d]: name is empty", i)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, invalid("source %s: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}

		spec, err := resolveSource(f, l, loc)
		if err != nil {
			return nil, invalid("source %s: %v", f.Name, err)
		}
		if l.Mode == enum.RunModeBacktesting && !spec.Bounded() {
			return nil, invalid("source %s: %s source never ends, not allowed in backtesting", f.Name, spec.Type)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, invalid("no enabled source")
	}
	return specs, nil
}

// Bounded reports whether the source emits an end of stream.
func (s SourceSpec) Bounded() bool {
	return s.Type.Bounded() || (s.Type == SourceSim && s.Sim.Count > 0)
}

func resolveSource(f SourceConfig, l Loaded, loc *time.Location) (SourceSpec, error) {
	spec := SourceSpec{
		Name:          f.Name,
		Type:          SourceType(strings.ToLower(f.Type)),
		Symbols:       f.Symbols,
		URL:           f.URL,
		LogoutTimeout: f.LogoutTimeout,
		Path:          f.Path,
		TradingDay:    f.TradingDay,
	}
	var err error
	if spec.Kind, err = enum.ParseSourceKind(f.Kind); err != nil {
		return spec, err
	}
	if f.Shutdown != "" {
		if spec.Policy, err = enum.ParseShutdownPolicy(f.Shutdown); err != nil {
			return spec, err
		}
	}

	switch spec.Type {
	case SourceGateway:
		if f.URL == "" {
			return spec, fmt.Errorf("url is empty")
		}
		if len(f.Symbols) == 0 {
			return spec, fmt.Errorf("no symbols to subscribe")
		}
	case SourceCSV:
		if f.Path == "" {
			return spec, fmt.Errorf("path is empty")
		}
	case SourceTape:
		spec.Playback = recorder.PlaybackConfig{Dir: f.Dir, Speed: f.Speed, TolerateTruncation: f.TolerateTruncation}
		if err := spec.Playback.Validate(); err != nil {
			return spec, err
		}
	case SourceArchive:
		if l.Archive == nil {
			return spec, fmt.Errorf("archive section is disabled")
		}
		if f.TradingDay < 19700101 || f.TradingDay > 99991231 {
			return spec, fmt.Errorf("trading_day %d is not YYYYMMDD", f.TradingDay)
		}
	case SourceSim:
		if spec.Sim, err = resolveSim(f.Sim, loc); err != nil {
			return spec, err
		}
		if len(f.Symbols) == 0 {
			return spec, fmt.Errorf("no symbols to simulate")
		}
	default:
		return spec, fmt.Errorf("unknown type %q", f.Type)
	}
	return spec, nil
}

func resolveSim(f SimConfig, loc *time.Location) (SimSpec, error) {
	spec := SimSpec{
		MaxVolume: model.Quantity(f.MaxVolume),
		Seed:      f.Seed,
		Interval:  f.Interval,
		Count:     f.Count,
		Step:      f.Step,
	}
	if f.Count < 0 {
		return spec, fmt.Errorf("sim count must be >= 0")
	}
	prices := []struct {
		name string
		s    string
		dst  *model.Price
	}{
		{"base_price", f.BasePrice, &spec.BasePrice},
		{"tick_size", f.TickSize, &spec.TickSize},
		{"spread", f.Spread, &spec.Spread},
	}
	for _, p := range prices {
		if p.s == "" {
			continue
		}
		v, err := model.ParsePrice(p.s)
		if err != nil {
			return spec, fmt.Errorf("sim %s: %v", p.name, err)
		}
		*p.dst = v
	}
	if spec.BasePrice <= 0 {
		return spec, fmt.Errorf("sim base_price must be > 0")
	}
	if f.Start != "" {
		start, err := time.ParseInLocation(time.DateTime, f.Start, loc)
		if err != nil {
			return spec, fmt.Errorf("sim start: %v", err)
		}
		spec.Start = start
	}
	return spec, nil
}

func resolveStrategies(files []StrategyFile) ([]StrategySpec, error) {
	seen := make(map[string]struct{}, len(files))
	specs := make([]StrategySpec, 0, len(files))
	for i, f := range files {
		if f.Name == "" {
			return nil, invalid("strategies[%d]: name is empty", i)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, invalid("strategy %s: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}

		spec := StrategySpec{Name: f.Name, Type: StrategyType(strings.ToLower(f.Type)), Symbols: f.Symbols}
		if spec.Type == "" {
			spec.Type = StrategyPrinter
		}
		if spec.Type != StrategyPrinter && spec.Type != StrategyCollector {
			return nil, invalid("strategy %s: unknown type %q", f.Name, f.Type)
		}
		kind, err := enum.ParseSourceKind(f.Kind)
		if err != nil {
			return nil, invalid("strategy %s: %v", f.Name, err)
		}
		spec.Kind = kind
		specs = append(specs, spec)
	}
	return specs, nil
}
