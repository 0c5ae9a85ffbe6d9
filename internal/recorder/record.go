package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"kline/internal/model"
	"kline/internal/model/enum"
)

// Record layout, little endian:
//
//	0  magic "KTP1"     4
//	4  record version   2
//	6  header size      2
//	8  event kind       1
//	9  source kind      1
//	10 payload size     4
//	14 reserved         2
//	16 seq              8
//	24 event ts         8
//	32 recv ts          8
//	40 trading day      4
//	44 reserved        12
//	56 payload, then crc32c of header and payload
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 56
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'K', 'T', 'P', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("tape invalid magic")
	ErrUnsupportedRecordVer    = errors.New("tape unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("tape invalid header size")
	ErrPayloadSize             = errors.New("tape payload size does not match kind")
)

// Header describes one tape record.
type Header struct {
	Kind       enum.EventKind
	Source     enum.SourceKind
	Seq        uint64
	TsEvent    int64
	TsRecv     int64
	TradingDay int32
}

func encodeHeader(dst []byte, h Header, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	clear(dst[:recordHeaderSize])
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	dst[8] = byte(h.Kind)
	dst[9] = byte(h.Source)
	binary.LittleEndian.PutUint32(dst[10:14], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], h.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(h.TsEvent))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(h.TsRecv))
	binary.LittleEndian.PutUint32(dst[40:44], uint32(h.TradingDay))
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (Header, uint32, error) {
	if len(src) < recordHeaderSize {
		return Header{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return Header{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return Header{}, 0, ErrUnsupportedRecordVer
	}
	if size := binary.LittleEndian.Uint16(src[6:8]); size != recordHeaderSize {
		return Header{}, 0, ErrInvalidRecordHeaderSize
	}
	h := Header{
		Kind:       enum.EventKind(src[8]),
		Source:     enum.SourceKind(src[9]),
		Seq:        binary.LittleEndian.Uint64(src[16:24]),
		TsEvent:    int64(binary.LittleEndian.Uint64(src[24:32])),
		TsRecv:     int64(binary.LittleEndian.Uint64(src[32:40])),
		TradingDay: int32(binary.LittleEndian.Uint32(src[40:44])),
	}
	return h, binary.LittleEndian.Uint32(src[10:14]), nil
}

// SnapshotHeader builds the record header of a snapshot.
func SnapshotHeader(s model.Snapshot) Header {
	return Header{
		Kind:       enum.EventSnapshot,
		Source:     s.Source,
		TsEvent:    s.EventTsNano,
		TsRecv:     s.RecvTsNano,
		TradingDay: s.TradingDay,
	}
}

// OrderBookHeader builds the record header of an order book.
func OrderBookHeader(ob model.OrderBook) Header {
	return Header{
		Kind:    enum.EventOrderBook,
		Source:  ob.Source,
		TsEvent: ob.EventTsNano,
		TsRecv:  ob.RecvTsNano,
	}
}

// DecodeSnapshot decodes a snapshot record payload.
func DecodeSnapshot(h Header, payload []byte) (model.Snapshot, error) {
	if h.Kind != enum.EventSnapshot {
		return model.Snapshot{}, fmt.Errorf("%w: want snapshot, got %s", ErrPayloadSize, h.Kind)
	}
	s, ok := model.Snapshot{}.Decode(payload)
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot payload %d bytes", ErrPayloadSize, len(payload))
	}
	return s, nil
}

// DecodeOrderBook decodes an order book record payload.
func DecodeOrderBook(h Header, payload []byte) (model.OrderBook, error) {
	if h.Kind != enum.EventOrderBook {
		return model.OrderBook{}, fmt.Errorf("%w: want order book, got %s", ErrPayloadSize, h.Kind)
	}
	ob, ok := model.OrderBook{}.Decode(payload)
	if !ok {
		return model.OrderBook{}, fmt.Errorf("%w: order book payload %d bytes", ErrPayloadSize, len(payload))
	}
	return ob, nil
}
