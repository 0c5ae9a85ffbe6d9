package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

var ErrChecksumMismatch = errors.New("tape checksum mismatch")

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes tape records sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	payload   []byte
}

// NewReader wraps an io.Reader with tape decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record header and payload. The payload is only valid
// until the next call to Next. A clean end of input returns io.EOF, a record
// cut short returns io.ErrUnexpectedEOF.
func (r *Reader) Next() (Header, []byte, error) {
	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return Header{}, nil, io.EOF
		}
		return Header{}, nil, io.ErrUnexpectedEOF
	}

	header, payloadLen, err := decodeRecordHeader(r.headerBuf)
	if err != nil {
		return header, nil, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return header, nil, ErrPayloadTooLarge
	}

	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return header, nil, io.ErrUnexpectedEOF
	}

	var sum [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, sum[:]); err != nil {
		return header, nil, io.ErrUnexpectedEOF
	}
	if !r.opts.DisableChecksum && checksum(r.headerBuf, r.payload) != binary.LittleEndian.Uint32(sum[:]) {
		return header, nil, ErrChecksumMismatch
	}

	return header, r.payload, nil
}
