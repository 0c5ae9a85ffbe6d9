package recorder

import (
	"fmt"
	"time"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 8192
	defaultBufferSize            = 256 * 1024
	defaultFilePrefix            = "tape"
	fileSuffix                   = ".tape"
)

var defaultSegmentMaxDuration = 30 * time.Minute

// Config controls the tape writer.
type Config struct {
	Dir                string        `yaml:"dir"`
	FilePrefix         string        `yaml:"file_prefix"`
	SegmentMaxBytes    int64         `yaml:"segment_max_bytes"`
	SegmentMaxDuration time.Duration `yaml:"segment_max_duration"`
	QueueSize          int           `yaml:"queue_size"`
	BufferSize         int           `yaml:"buffer_size"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
	SyncInterval       time.Duration `yaml:"sync_interval"`
}

// DefaultConfig returns a baseline configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.SegmentMaxDuration == 0 {
		c.SegmentMaxDuration = defaultSegmentMaxDuration
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("invalid recorder config: Dir is empty")
	case c.SegmentMaxBytes <= 0:
		return fmt.Errorf("invalid recorder config: SegmentMaxBytes must be > 0")
	case c.QueueSize <= 0:
		return fmt.Errorf("invalid recorder config: QueueSize must be > 0")
	case c.BufferSize <= 0:
		return fmt.Errorf("invalid recorder config: BufferSize must be > 0")
	case c.FilePrefix == "":
		return fmt.Errorf("invalid recorder config: FilePrefix is empty")
	case c.FlushInterval < 0 || c.SyncInterval < 0:
		return fmt.Errorf("invalid recorder config: FlushInterval and SyncInterval must be >= 0")
	}
	return nil
}
