// Package csv replays tick CSV files. A directory is replayed file by file in
// file name order; each file starts with a header row naming its columns.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/source"
)

type Config struct {
	Name string
	// Kind defaults to enum.SourceCSV.
	Kind enum.SourceKind
	// Path is a CSV file or a directory of *.csv files.
	Path     string
	Symbols  []string
	Location *time.Location
}

// Stats counts the rows of the last run.
type Stats struct {
	Files   int
	Rows    int
	Emitted int
	Skipped int
}

// Source is a bounded, Join policy CSV replay.
type Source struct {
	source.Info
	cfg     Config
	symbols map[string]struct{}
	log     obs.Logger
	stats   Stats
}

func New(cfg Config, log obs.Logger) (*Source, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("invalid csv config: Name is empty")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("invalid csv config: Path is empty")
	}
	if !cfg.Kind.IsAvailable() {
		cfg.Kind = enum.SourceCSV
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = obs.Discard
	}

	var symbols map[string]struct{}
	if len(cfg.Symbols) > 0 {
		symbols = make(map[string]struct{}, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols[s] = struct{}{}
		}
	}

	info := source.Info{SourceName: cfg.Name, SourceKind: cfg.Kind}.WithDefaults(enum.ShutdownJoin)
	return &Source{Info: info, cfg: cfg, symbols: symbols, log: log}, nil
}

func (s *Source) Bounded() bool { return true }

// Stats returns the counters of the last run. It is only meaningful after
// Run returned.
func (s *Source) Stats() Stats { return s.stats }

// Files lists the files Run replays, in order.
func (s *Source) Files() ([]string, error) {
	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{s.cfg.Path}, nil
	}
	entries, err := os.ReadDir(s.cfg.Path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(s.cfg.Path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *Source) Run(ctx context.Context, emit source.Emitter) error {
	s.stats = Stats{}
	files, err := s.Files()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := s.replay(ctx, path, emit); err != nil {
			return err
		}
		s.stats.Files++
	}
	s.log.Infof("csv %s: %d files, %d rows, %d emitted, %d skipped",
		s.Name(), s.stats.Files, s.stats.Rows, s.stats.Emitted, s.stats.Skipped)
	return nil
}

func (s *Source) replay(ctx context.Context, path string, emit source.Emitter) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read %s header: %w", path, err)
	}
	l, err := newLayout(header)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *stdcsv.ParseError
			if errors.As(err, &perr) {
				s.stats.Rows++
				s.skip(path, perr.Line, err)
				continue
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		s.stats.Rows++
		line, _ := r.FieldPos(0)

		if s.symbols != nil {
			if _, ok := s.symbols[l.field(record, l.cols[colSymbol])]; !ok {
				continue
			}
		}
		tick, err := l.parse(record, s.cfg.Location)
		if err != nil {
			s.skip(path, line, err)
			continue
		}
		if err := emit.Tick(ctx, tick); err != nil {
			return err
		}
		s.stats.Emitted++
	}
}

func (s *Source) skip(path string, line int, err error) {
	s.stats.Skipped++
	s.log.Warnf("csv %s: skip %s:%d: %+v", s.Name(), filepath.Base(path), line, err)
}
