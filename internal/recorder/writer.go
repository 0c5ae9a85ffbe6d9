package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"kline/internal/model"
)

var (
	ErrQueueFull       = errors.New("tape queue full")
	ErrClosed          = errors.New("tape writer closed")
	ErrNotStarted      = errors.New("tape writer not started")
	ErrAlreadyStarted  = errors.New("tape writer already started")
	ErrPayloadTooLarge = errors.New("tape payload too large")
)

const maxPayloadLen = uint64(^uint32(0))

// Writer appends snapshots and order books to rotating tape segments. Appends
// never block: a full queue is reported as ErrQueueFull.
type Writer struct {
	cfg Config
	ch  chan record
	wg  sync.WaitGroup
	err atomic.Value
	seq atomic.Uint64

	started atomic.Bool
	closed  atomic.Bool
	mu      sync.RWMutex
}

// NewWriter creates a tape writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan record, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		l := &segmentLoop{w: w, headerBuf: make([]byte, recordHeaderSize)}
		l.run(ctx)
	}()
	return nil
}

// Close stops the writer and flushes any buffered data.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed.CompareAndSwap(false, true) {
		close(w.ch)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Written returns the number of records accepted so far.
func (w *Writer) Written() uint64 {
	return w.seq.Load()
}

// Append records a normalized snapshot.
func (w *Writer) Append(s model.Snapshot) error {
	return w.TryAppend(SnapshotHeader(s), s.Encode(nil))
}

// AppendOrderBook records an order book.
func (w *Writer) AppendOrderBook(ob model.OrderBook) error {
	return w.TryAppend(OrderBookHeader(ob), ob.Encode(nil))
}

// TryAppend enqueues a record without blocking. The writer owns payload
// afterwards. A zero Seq is replaced by the writer's own sequence.
func (w *Writer) TryAppend(header Header, payload []byte) error {
	if !w.started.Load() {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed.Load() {
		return ErrClosed
	}
	select {
	case w.ch <- record{header: header, payload: payload}:
		w.seq.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) setErr(err error) {
	if err == nil || w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}

type record struct {
	header  Header
	payload []byte
}

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

// segmentLoop is owned by the writer goroutine.
type segmentLoop struct {
	w           *Writer
	seg         *segment
	segID       uint64
	seq         uint64
	headerBuf   []byte
	checksumBuf [recordChecksumSize]byte
}

func (l *segmentLoop) run(ctx context.Context) {
	var flushC, syncC <-chan time.Time
	if d := l.w.cfg.FlushInterval; d > 0 {
		t := time.NewTicker(d)
		defer t.Stop()
		flushC = t.C
	}
	if d := l.w.cfg.SyncInterval; d > 0 {
		t := time.NewTicker(d)
		defer t.Stop()
		syncC = t.C
	}
	defer func() {
		if err := l.closeSegment(); err != nil {
			l.w.setErr(err)
		}
	}()

	for {
		var err error
		select {
		case <-ctx.Done():
			l.drain()
			return
		case rec, ok := <-l.w.ch:
			if !ok {
				return
			}
			err = l.write(rec)
		case <-flushC:
			if l.seg != nil {
				err = l.seg.buf.Flush()
			}
		case <-syncC:
			if l.seg != nil {
				if err = l.seg.buf.Flush(); err == nil {
					err = l.seg.file.Sync()
				}
			}
		}
		if err != nil {
			l.w.setErr(err)
			return
		}
	}
}

func (l *segmentLoop) drain() {
	for {
		select {
		case rec, ok := <-l.w.ch:
			if !ok {
				return
			}
			if err := l.write(rec); err != nil {
				l.w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (l *segmentLoop) write(rec record) error {
	now := time.Now().UTC()
	size := int64(recordHeaderSize + len(rec.payload) + recordChecksumSize)
	if l.shouldRotate(now, size) {
		if err := l.closeSegment(); err != nil {
			return err
		}
		if err := l.openSegment(now); err != nil {
			return err
		}
	}

	l.seq++
	if rec.header.Seq == 0 {
		rec.header.Seq = l.seq
	}
	encodeHeader(l.headerBuf, rec.header, len(rec.payload))
	binary.LittleEndian.PutUint32(l.checksumBuf[:], checksum(l.headerBuf, rec.payload))

	for _, b := range [][]byte{l.headerBuf, rec.payload, l.checksumBuf[:]} {
		if _, err := l.seg.buf.Write(b); err != nil {
			return err
		}
	}
	l.seg.size += size
	return nil
}

func (l *segmentLoop) shouldRotate(now time.Time, next int64) bool {
	switch {
	case l.seg == nil:
		return true
	case l.seg.size+next > l.w.cfg.SegmentMaxBytes:
		return l.seg.size > 0
	case l.w.cfg.SegmentMaxDuration > 0 && now.Sub(l.seg.openedAt) >= l.w.cfg.SegmentMaxDuration:
		return true
	}
	return false
}

func (l *segmentLoop) closeSegment() error {
	seg := l.seg
	if seg == nil {
		return nil
	}
	l.seg = nil
	if err := seg.buf.Flush(); err != nil {
		_ = seg.file.Close()
		return err
	}
	if err := seg.file.Sync(); err != nil {
		_ = seg.file.Close()
		return err
	}
	return seg.file.Close()
}

func (l *segmentLoop) openSegment(now time.Time) error {
	ts := now.Format("20060102-150405")
	for {
		l.segID++
		name := fmt.Sprintf("%s-%s-%06d%s", l.w.cfg.FilePrefix, ts, l.segID, fileSuffix)
		file, err := os.OpenFile(filepath.Join(l.w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}
		l.seg = &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, l.w.cfg.BufferSize),
			openedAt: now,
		}
		return nil
	}
}
