// Package streamio provides small helpers for byte-oriented streaming reads
// and writes shared by the encoding and file packages.
package streamio

import (
	"encoding/binary"
	"io"
	"math/bits"
)

// Writer is an interface that combines an [io.Writer] with an [io.ByteWriter].
// Value encoders write to a Writer to avoid implementation-specific buffering.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// Reader is an interface that combines an [io.Reader] with an [io.ByteReader].
type Reader interface {
	io.Reader
	io.ByteReader
}

// WriteUvarint writes a uvarint-encoded value to w.
func WriteUvarint(w io.ByteWriter, v uint64) error {
	for v >= 0x80 {
		if err := w.WriteByte(byte(v) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return w.WriteByte(byte(v))
}

// WriteVarint writes a zigzag-encoded varint value to w.
func WriteVarint(w io.ByteWriter, v int64) error {
	return WriteUvarint(w, zigzag(v))
}

// UvarintSize returns the number of bytes needed to encode v as a uvarint.
func UvarintSize(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}

// VarintSize returns the number of bytes needed to encode v as a
// zigzag-encoded varint.
func VarintSize(v int64) int {
	return UvarintSize(zigzag(v))
}

func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// Unzigzag reverses the zigzag transformation applied by [WriteVarint].
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// ReadFull reads exactly len(b) bytes from r, returning
// [io.ErrUnexpectedEOF] when the stream ends early.
func ReadFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

// AppendUint32LE appends v to b in little-endian byte order.
func AppendUint32LE(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendUint64LE appends v to b in little-endian byte order.
func AppendUint64LE(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}
