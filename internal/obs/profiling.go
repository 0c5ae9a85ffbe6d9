package obs

import (
	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig enables continuous profiling through pyroscope.
type ProfilingConfig struct {
	Enabled         bool              `yaml:"enabled"`
	ApplicationName string            `yaml:"application"`
	ServerAddress   string            `yaml:"server"`
	Tags            map[string]string `yaml:"tags"`
}

// StartProfiler starts pyroscope when enabled. The returned stop func is
// always safe to call.
func StartProfiler(cfg ProfilingConfig, log Logger) (stop func(), err error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = "kline"
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          pyroscopeLogger{log: log},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		if err := profiler.Stop(); err != nil {
			log.Warnf("pyroscope stop: %v", err)
		}
	}, nil
}

type pyroscopeLogger struct {
	log Logger
}

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.log.Debugf(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.log.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.log.Errorf(format, args...) }
