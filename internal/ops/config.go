package ops

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kline/internal/archive"
	"kline/internal/recorder"
	"kline/pkg/conn"
	"kline/pkg/exception"
)

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Mode            string         `yaml:"mode"`
	Timezone        string         `yaml:"timezone"`
	Cutoff          *Clock         `yaml:"cutoff"`
	IntervalSeconds int            `yaml:"interval_seconds"`
	Session         SessionConfig  `yaml:"session"`
	QueueCapacity   int            `yaml:"queue_capacity"`
	JoinTimeout     time.Duration  `yaml:"join_timeout"`
	KillGrace       time.Duration  `yaml:"kill_grace"`
	Log             LogConfig      `yaml:"log"`
	Metrics         MetricsConfig  `yaml:"metrics"`
	Profiling       ProfilingFile  `yaml:"profiling"`
	Recorder        RecorderConfig `yaml:"recorder"`
	Archive         ArchiveConfig  `yaml:"archive"`
	Sources         []SourceConfig `yaml:"sources"`
	Strategies      []StrategyFile `yaml:"strategies"`
}

// SessionConfig is the trading window; an empty section means the default
// 09:30-11:30, 13:00-15:00 session.
type SessionConfig struct {
	Open   *Clock        `yaml:"open"`
	Close  *Clock        `yaml:"close"`
	Breaks []BreakConfig `yaml:"breaks"`
}

type BreakConfig struct {
	Start Clock `yaml:"start"`
	End   Clock `yaml:"end"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9100".
	Addr string `yaml:"addr"`
}

type ProfilingFile struct {
	Enabled     bool              `yaml:"enabled"`
	Application string            `yaml:"application"`
	Server      string            `yaml:"server"`
	Tags        map[string]string `yaml:"tags"`
}

// RecorderConfig tees every normalized snapshot into a tape.
type RecorderConfig struct {
	Enabled         bool `yaml:"enabled"`
	recorder.Config `yaml:",inline"`
}

// ArchiveConfig tees every normalized snapshot into PostgreSQL and backs
// archive sources.
type ArchiveConfig struct {
	Enabled        bool        `yaml:"enabled"`
	Postgres       conn.Option `yaml:"postgres"`
	archive.Config `yaml:",inline"`
	// Record writes live snapshots; without it the archive is read only.
	Record bool `yaml:"record"`
}

// SourceConfig describes one producer. Type specific fields are ignored by
// the other types.
type SourceConfig struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Type     string   `yaml:"type"`
	Enabled  *bool    `yaml:"enabled"`
	Shutdown string   `yaml:"shutdown"`
	Symbols  []string `yaml:"symbols"`

	// gateway
	URL           string        `yaml:"url"`
	LogoutTimeout time.Duration `yaml:"logout_timeout"`
	// csv
	Path string `yaml:"path"`
	// tape
	Dir                string  `yaml:"dir"`
	Speed              float64 `yaml:"speed"`
	TolerateTruncation bool    `yaml:"tolerate_truncation"`
	// archive
	TradingDay int32 `yaml:"trading_day"`
	// sim
	Sim SimConfig `yaml:"sim"`
}

type SimConfig struct {
	BasePrice string        `yaml:"base_price"`
	TickSize  string        `yaml:"tick_size"`
	Spread    string        `yaml:"spread"`
	MaxVolume int64         `yaml:"max_volume"`
	Seed      uint64        `yaml:"seed"`
	Interval  time.Duration `yaml:"interval"`
	Count     int           `yaml:"count"`
	// Start switches to synthetic timestamps, "2006-01-02 15:04:05" in
	// the configured timezone.
	Start string        `yaml:"start"`
	Step  time.Duration `yaml:"step"`
}

type StrategyFile struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Kind    string   `yaml:"kind"`
	Symbols []string `yaml:"symbols"`
}

// Load reads .env files (missing ones are skipped), expands ${VAR}
// references in the YAML file from the environment, then validates and
// resolves it.
func Load(path string, envFiles ...string) (Loaded, error) {
	if err := loadEnv(envFiles...); err != nil {
		return Loaded{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return Parse(data)
}

// Parse decodes, validates and resolves YAML config bytes.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("%w: decode: %v", exception.ErrInvalidConfig, err)
	}
	return resolve(cfg)
}

func loadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
