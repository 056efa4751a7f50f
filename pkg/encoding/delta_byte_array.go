package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// DELTA_LENGTH_BYTE_ARRAY stores all value lengths as a DELTA_BINARY_PACKED
// INT32 run followed by the concatenated value bytes. DELTA_BYTE_ARRAY
// additionally delta-encodes the byte prefix shared with the previous
// value: it stores prefix lengths (DELTA_BINARY_PACKED) followed by the
// suffixes in DELTA_LENGTH_BYTE_ARRAY form.

func init() {
	registerValueEncoding(format.TypeByteArray, format.EncodingDeltaLengthByteArray, registryEntry{
		NewEncoder: func(w streamio.Writer, cfg Config) ValueEncoder {
			return newDeltaLengthByteArrayEncoder(w)
		},
		NewDecoder: func(data []byte, cfg Config) ValueDecoder {
			return newDeltaLengthByteArrayDecoder(data)
		},
	})
	registerValueEncoding(format.TypeByteArray, format.EncodingDeltaByteArray, registryEntry{
		NewEncoder: func(w streamio.Writer, cfg Config) ValueEncoder {
			return newDeltaByteArrayEncoder(w)
		},
		NewDecoder: func(data []byte, cfg Config) ValueDecoder {
			return newDeltaByteArrayDecoder(data)
		},
	})
}

type deltaLengthByteArrayEncoder struct {
	w       streamio.Writer
	lengths *deltaBinaryPackedEncoder
	buf     bytes.Buffer
}

func newDeltaLengthByteArrayEncoder(w streamio.Writer) *deltaLengthByteArrayEncoder {
	return &deltaLengthByteArrayEncoder{
		w:       w,
		lengths: newDeltaBinaryPackedEncoder(format.TypeInt32, w),
	}
}

func (e *deltaLengthByteArrayEncoder) PhysicalType() format.Type { return format.TypeByteArray }

func (e *deltaLengthByteArrayEncoder) EncodingType() format.Encoding {
	return format.EncodingDeltaLengthByteArray
}

func (e *deltaLengthByteArrayEncoder) Encode(v Value) error {
	b := v.Bytes()
	if err := e.lengths.Encode(Int32Value(int32(len(b)))); err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

func (e *deltaLengthByteArrayEncoder) Flush() error {
	if err := e.lengths.Flush(); err != nil {
		return err
	}
	_, err := e.buf.WriteTo(e.w)
	return err
}

func (e *deltaLengthByteArrayEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.lengths.Reset(w)
	e.buf.Reset()
}

type deltaLengthByteArrayDecoder struct {
	data    []byte
	lengths []int64
	pos     int
	tail    []byte // Concatenated value bytes following the length run.
	started bool
}

func newDeltaLengthByteArrayDecoder(data []byte) *deltaLengthByteArrayDecoder {
	d := &deltaLengthByteArrayDecoder{}
	d.Reset(data)
	return d
}

func (d *deltaLengthByteArrayDecoder) PhysicalType() format.Type { return format.TypeByteArray }

func (d *deltaLengthByteArrayDecoder) EncodingType() format.Encoding {
	return format.EncodingDeltaLengthByteArray
}

func (d *deltaLengthByteArrayDecoder) Reset(data []byte) {
	d.data = data
	d.lengths = d.lengths[:0]
	d.pos = 0
	d.tail = nil
	d.started = false
}

// start decodes the whole length run up front: the byte extent of the run,
// and with it the start of the value bytes, is only known once every
// length has been decoded.
func (d *deltaLengthByteArrayDecoder) start() error {
	if d.started {
		return nil
	}
	d.started = true

	if len(d.data) == 0 {
		return nil
	}

	var lengths deltaBinaryPackedDecoder
	lengths.t = format.TypeInt32
	lengths.Reset(d.data)
	for {
		v, err := lengths.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if int32(v) < 0 {
			return fmt.Errorf("delta length byte array: negative length %d", int32(v))
		}
		d.lengths = append(d.lengths, v)
	}
	d.tail = lengths.data
	return nil
}

func (d *deltaLengthByteArrayDecoder) Decode(s []Value) (int, error) {
	if err := d.start(); err != nil {
		return 0, err
	}

	for i := range s {
		if d.pos >= len(d.lengths) {
			if i > 0 {
				return i, nil
			}
			return 0, io.EOF
		}

		n := int(d.lengths[d.pos])
		if len(d.tail) < n {
			return i, fmt.Errorf("delta length byte array: %w", io.ErrUnexpectedEOF)
		}
		s[i] = ByteArrayValue(d.tail[:n])
		d.tail = d.tail[n:]
		d.pos++
	}
	return len(s), nil
}

type deltaByteArrayEncoder struct {
	w        streamio.Writer
	prefixes *deltaBinaryPackedEncoder
	suffixes *deltaLengthByteArrayEncoder
	prev     []byte
}

func newDeltaByteArrayEncoder(w streamio.Writer) *deltaByteArrayEncoder {
	return &deltaByteArrayEncoder{
		w:        w,
		prefixes: newDeltaBinaryPackedEncoder(format.TypeInt32, w),
		suffixes: newDeltaLengthByteArrayEncoder(w),
	}
}

func (e *deltaByteArrayEncoder) PhysicalType() format.Type     { return format.TypeByteArray }
func (e *deltaByteArrayEncoder) EncodingType() format.Encoding { return format.EncodingDeltaByteArray }

func (e *deltaByteArrayEncoder) Encode(v Value) error {
	b := v.Bytes()
	prefix := sharedPrefix(e.prev, b)
	if err := e.prefixes.Encode(Int32Value(int32(prefix))); err != nil {
		return err
	}
	if err := e.suffixes.Encode(ByteArrayValue(b[prefix:])); err != nil {
		return err
	}
	e.prev = append(e.prev[:0], b...)
	return nil
}

func (e *deltaByteArrayEncoder) Flush() error {
	if err := e.prefixes.Flush(); err != nil {
		return err
	}
	return e.suffixes.Flush()
}

func (e *deltaByteArrayEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.prefixes.Reset(w)
	e.suffixes.Reset(w)
	e.prev = e.prev[:0]
}

func sharedPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

type deltaByteArrayDecoder struct {
	data       []byte
	prefixLens []int64
	pos        int
	suffixes   *deltaLengthByteArrayDecoder
	prev       []byte
	started    bool

	suffixBuf [1]Value
}

func newDeltaByteArrayDecoder(data []byte) *deltaByteArrayDecoder {
	d := &deltaByteArrayDecoder{}
	d.Reset(data)
	return d
}

func (d *deltaByteArrayDecoder) PhysicalType() format.Type     { return format.TypeByteArray }
func (d *deltaByteArrayDecoder) EncodingType() format.Encoding { return format.EncodingDeltaByteArray }

func (d *deltaByteArrayDecoder) Reset(data []byte) {
	d.data = data
	d.prefixLens = d.prefixLens[:0]
	d.pos = 0
	d.suffixes = nil
	d.prev = d.prev[:0]
	d.started = false
}

// start decodes the whole prefix-length run, which must be fully consumed
// before the suffix stream that follows it can be located.
func (d *deltaByteArrayDecoder) start() error {
	if d.started {
		return nil
	}
	d.started = true

	if len(d.data) == 0 {
		return nil
	}

	var prefixes deltaBinaryPackedDecoder
	prefixes.t = format.TypeInt32
	prefixes.Reset(d.data)
	for {
		v, err := prefixes.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		d.prefixLens = append(d.prefixLens, v)
	}
	d.suffixes = newDeltaLengthByteArrayDecoder(prefixes.data)
	return nil
}

func (d *deltaByteArrayDecoder) Decode(s []Value) (int, error) {
	if err := d.start(); err != nil {
		return 0, err
	}

	for i := range s {
		if d.suffixes == nil || d.pos >= len(d.prefixLens) {
			if i > 0 {
				return i, nil
			}
			return 0, io.EOF
		}

		n, err := d.suffixes.Decode(d.suffixBuf[:])
		if err != nil && err != io.EOF {
			return i, err
		}
		if n == 0 {
			return i, io.ErrUnexpectedEOF
		}

		prefix := int(d.prefixLens[d.pos])
		if prefix > len(d.prev) {
			return i, fmt.Errorf("delta byte array: prefix %d exceeds previous value length %d", prefix, len(d.prev))
		}
		suffix := d.suffixBuf[0].Bytes()

		value := make([]byte, 0, prefix+len(suffix))
		value = append(value, d.prev[:prefix]...)
		value = append(value, suffix...)

		d.prev = append(d.prev[:0], value...)
		d.pos++
		s[i] = ByteArrayValue(value)
	}
	return len(s), nil
}
