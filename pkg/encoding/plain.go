package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// PLAIN encoding: fixed-width little-endian values for fixed-size types,
// 4-byte length-prefixed bytes for BYTE_ARRAY, raw bytes for
// FIXED_LEN_BYTE_ARRAY, and bit-packed booleans (LSB first).

func init() {
	for _, t := range []format.Type{
		format.TypeBoolean,
		format.TypeInt32,
		format.TypeInt64,
		format.TypeFloat,
		format.TypeDouble,
		format.TypeByteArray,
		format.TypeFixedLenByteArray,
	} {
		registerValueEncoding(t, format.EncodingPlain, registryEntry{
			NewEncoder: func(w streamio.Writer, cfg Config) ValueEncoder {
				return newPlainEncoder(t, w)
			},
			NewDecoder: func(data []byte, cfg Config) ValueDecoder {
				return newPlainDecoder(t, data, cfg.TypeLength)
			},
		})
	}
}

type plainEncoder struct {
	t format.Type
	w streamio.Writer

	// Bit accumulator for BOOLEAN values.
	boolBits  byte
	boolCount int
}

func newPlainEncoder(t format.Type, w streamio.Writer) *plainEncoder {
	return &plainEncoder{t: t, w: w}
}

func (e *plainEncoder) PhysicalType() format.Type     { return e.t }
func (e *plainEncoder) EncodingType() format.Encoding { return format.EncodingPlain }

func (e *plainEncoder) Encode(v Value) error {
	if e.t == format.TypeBoolean {
		if v.Boolean() {
			e.boolBits |= 1 << e.boolCount
		}
		e.boolCount++
		if e.boolCount == 8 {
			if err := e.w.WriteByte(e.boolBits); err != nil {
				return err
			}
			e.boolBits, e.boolCount = 0, 0
		}
		return nil
	}

	var buf [8]byte
	switch e.t {
	case format.TypeInt32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(v.Int32()))
		_, err := e.w.Write(buf[:4])
		return err
	case format.TypeInt64:
		binary.LittleEndian.PutUint64(buf[:8], uint64(v.Int64()))
		_, err := e.w.Write(buf[:8])
		return err
	case format.TypeFloat:
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v.Float()))
		_, err := e.w.Write(buf[:4])
		return err
	case format.TypeDouble:
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(v.Double()))
		_, err := e.w.Write(buf[:8])
		return err
	case format.TypeByteArray:
		b := v.Bytes()
		binary.LittleEndian.PutUint32(buf[:4], uint32(len(b)))
		if _, err := e.w.Write(buf[:4]); err != nil {
			return err
		}
		_, err := e.w.Write(b)
		return err
	case format.TypeFixedLenByteArray:
		_, err := e.w.Write(v.Bytes())
		return err
	}
	return fmt.Errorf("plain encoding: unsupported type %s", e.t)
}

func (e *plainEncoder) Flush() error {
	if e.t == format.TypeBoolean && e.boolCount > 0 {
		if err := e.w.WriteByte(e.boolBits); err != nil {
			return err
		}
		e.boolBits, e.boolCount = 0, 0
	}
	return nil
}

func (e *plainEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.boolBits, e.boolCount = 0, 0
}

// AppendPlain appends the PLAIN representation of v to dst. It is the
// canonical byte form of a value, also used for statistics bounds, bloom
// filter hashing and dictionary keys.
func AppendPlain(dst []byte, v Value) []byte {
	switch v.Type() {
	case format.TypeBoolean:
		if v.Boolean() {
			return append(dst, 1)
		}
		return append(dst, 0)
	case format.TypeInt32:
		return streamio.AppendUint32LE(dst, uint32(v.Int32()))
	case format.TypeInt64:
		return streamio.AppendUint64LE(dst, uint64(v.Int64()))
	case format.TypeFloat:
		return streamio.AppendUint32LE(dst, math.Float32bits(v.Float()))
	case format.TypeDouble:
		return streamio.AppendUint64LE(dst, math.Float64bits(v.Double()))
	case format.TypeByteArray, format.TypeFixedLenByteArray:
		return append(dst, v.Bytes()...)
	}
	panic(fmt.Sprintf("encoding.AppendPlain: unsupported type %s", v.Type()))
}

type plainDecoder struct {
	t          format.Type
	data       []byte
	typeLength int

	// Bit position for BOOLEAN values.
	boolPos int
}

func newPlainDecoder(t format.Type, data []byte, typeLength int) *plainDecoder {
	return &plainDecoder{t: t, data: data, typeLength: typeLength}
}

func (d *plainDecoder) PhysicalType() format.Type     { return d.t }
func (d *plainDecoder) EncodingType() format.Encoding { return format.EncodingPlain }

func (d *plainDecoder) Decode(s []Value) (int, error) {
	for i := range s {
		v, err := d.next()
		if err != nil {
			if err == io.EOF && i > 0 {
				return i, nil
			}
			return i, err
		}
		s[i] = v
	}
	return len(s), nil
}

func (d *plainDecoder) next() (Value, error) {
	switch d.t {
	case format.TypeBoolean:
		if d.boolPos/8 >= len(d.data) {
			return Value{}, io.EOF
		}
		bit := d.data[d.boolPos/8] >> (d.boolPos % 8) & 1
		d.boolPos++
		return BooleanValue(bit == 1), nil

	case format.TypeInt32:
		b, err := d.take(4)
		if err != nil {
			return Value{}, err
		}
		return Int32Value(int32(binary.LittleEndian.Uint32(b))), nil

	case format.TypeInt64:
		b, err := d.take(8)
		if err != nil {
			return Value{}, err
		}
		return Int64Value(int64(binary.LittleEndian.Uint64(b))), nil

	case format.TypeFloat:
		b, err := d.take(4)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil

	case format.TypeDouble:
		b, err := d.take(8)
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil

	case format.TypeByteArray:
		if len(d.data) == 0 {
			return Value{}, io.EOF
		}
		hdr, err := d.take(4)
		if err != nil {
			return Value{}, err
		}
		n := int(binary.LittleEndian.Uint32(hdr))
		b, err := d.take(n)
		if err != nil {
			return Value{}, err
		}
		return ByteArrayValue(b), nil

	case format.TypeFixedLenByteArray:
		if len(d.data) == 0 {
			return Value{}, io.EOF
		}
		if d.typeLength <= 0 {
			return Value{}, fmt.Errorf("plain decoding: missing type length for %s", d.t)
		}
		b, err := d.take(d.typeLength)
		if err != nil {
			return Value{}, err
		}
		return FixedLenByteArrayValue(b), nil
	}
	return Value{}, fmt.Errorf("plain decoding: unsupported type %s", d.t)
}

func (d *plainDecoder) take(n int) ([]byte, error) {
	if len(d.data) == 0 {
		return nil, io.EOF
	}
	if len(d.data) < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.data[:n]
	d.data = d.data[n:]
	return b, nil
}

func (d *plainDecoder) Reset(data []byte) {
	d.data = data
	d.boolPos = 0
}
