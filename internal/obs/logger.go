package obs

import (
	"fmt"
	"strings"

	"github.com/yanun0323/logs"
)

// Logger is the sink every component logs through. It is injected; no
// package keeps a global logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// NewLogger returns a Logger writing through github.com/yanun0323/logs,
// dropping entries below level.
func NewLogger(level Level, fields ...string) Logger {
	prefix := ""
	if len(fields) > 0 {
		prefix = "[" + strings.Join(fields, " ") + "] "
	}
	return logger{level: level, prefix: prefix}
}

type logger struct {
	level  Level
	prefix string
}

func (l logger) Debugf(format string, args ...any) {
	if l.level <= LevelDebug {
		logs.Infof(l.prefix+"DEBUG "+format, args...)
	}
}

func (l logger) Infof(format string, args ...any) {
	if l.level <= LevelInfo {
		logs.Infof(l.prefix+format, args...)
	}
}

func (l logger) Warnf(format string, args ...any) {
	if l.level <= LevelWarn {
		logs.Infof(l.prefix+"WARN "+format, args...)
	}
}

func (l logger) Errorf(format string, args ...any) {
	logs.Errorf(l.prefix+format, args...)
}

// Discard drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debugf(string, ...any) {}
func (discard) Infof(string, ...any)  {}
func (discard) Warnf(string, ...any)  {}
func (discard) Errorf(string, ...any) {}
