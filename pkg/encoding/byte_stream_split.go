package encoding

import (
	"fmt"
	"io"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// BYTE_STREAM_SPLIT scatters the bytes of fixed-width values across K
// planes of N bytes each, where K is the value width: byte k of value i is
// stored at offset k*N + i. The transposition makes the planes far more
// compressible by a downstream codec; the encoding itself adds no
// redundancy reduction.

func init() {
	for _, t := range []format.Type{
		format.TypeInt32,
		format.TypeInt64,
		format.TypeFloat,
		format.TypeDouble,
		format.TypeFixedLenByteArray,
	} {
		registerValueEncoding(t, format.EncodingByteStreamSplit, registryEntry{
			NewEncoder: func(w streamio.Writer, cfg Config) ValueEncoder {
				return newByteStreamSplitEncoder(t, w, cfg.TypeLength)
			},
			NewDecoder: func(data []byte, cfg Config) ValueDecoder {
				return newByteStreamSplitDecoder(t, data, cfg.TypeLength)
			},
		})
	}
}

func byteStreamSplitWidth(t format.Type, typeLength int) int {
	switch t {
	case format.TypeInt32, format.TypeFloat:
		return 4
	case format.TypeInt64, format.TypeDouble:
		return 8
	case format.TypeFixedLenByteArray:
		return typeLength
	}
	return 0
}

type byteStreamSplitEncoder struct {
	t     format.Type
	w     streamio.Writer
	width int
	plain []byte // PLAIN-encoded values, transposed on Flush.
}

func newByteStreamSplitEncoder(t format.Type, w streamio.Writer, typeLength int) *byteStreamSplitEncoder {
	return &byteStreamSplitEncoder{t: t, w: w, width: byteStreamSplitWidth(t, typeLength)}
}

func (e *byteStreamSplitEncoder) PhysicalType() format.Type     { return e.t }
func (e *byteStreamSplitEncoder) EncodingType() format.Encoding { return format.EncodingByteStreamSplit }

func (e *byteStreamSplitEncoder) Encode(v Value) error {
	if e.t == format.TypeFixedLenByteArray && len(v.Bytes()) != e.width {
		return fmt.Errorf("byte stream split: value length %d does not match type length %d", len(v.Bytes()), e.width)
	}
	e.plain = AppendPlain(e.plain, v)
	return nil
}

func (e *byteStreamSplitEncoder) Flush() error {
	if e.width <= 0 {
		if len(e.plain) > 0 {
			return fmt.Errorf("byte stream split: missing type length for %s", e.t)
		}
		return nil
	}

	n := len(e.plain) / e.width
	out := make([]byte, len(e.plain))
	for i := 0; i < n; i++ {
		for k := 0; k < e.width; k++ {
			out[k*n+i] = e.plain[i*e.width+k]
		}
	}
	if _, err := e.w.Write(out); err != nil {
		return err
	}
	e.plain = e.plain[:0]
	return nil
}

func (e *byteStreamSplitEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.plain = e.plain[:0]
}

type byteStreamSplitDecoder struct {
	t     format.Type
	width int
	data  []byte
	count int
	pos   int
}

func newByteStreamSplitDecoder(t format.Type, data []byte, typeLength int) *byteStreamSplitDecoder {
	d := &byteStreamSplitDecoder{t: t, width: byteStreamSplitWidth(t, typeLength)}
	d.Reset(data)
	return d
}

func (d *byteStreamSplitDecoder) PhysicalType() format.Type     { return d.t }
func (d *byteStreamSplitDecoder) EncodingType() format.Encoding { return format.EncodingByteStreamSplit }

func (d *byteStreamSplitDecoder) Reset(data []byte) {
	d.data = data
	d.pos = 0
	if d.width > 0 {
		d.count = len(data) / d.width
	}
}

func (d *byteStreamSplitDecoder) Decode(s []Value) (int, error) {
	if d.width <= 0 {
		return 0, fmt.Errorf("byte stream split: missing type length for %s", d.t)
	}
	if len(d.data)%d.width != 0 {
		return 0, fmt.Errorf("byte stream split: data length %d is not a multiple of %d", len(d.data), d.width)
	}

	for i := range s {
		if d.pos >= d.count {
			if i > 0 {
				return i, nil
			}
			return 0, io.EOF
		}

		buf := make([]byte, d.width)
		for k := 0; k < d.width; k++ {
			buf[k] = d.data[k*d.count+d.pos]
		}
		d.pos++

		v, err := plainValue(d.t, buf, d.width)
		if err != nil {
			return i, err
		}
		s[i] = v
	}
	return len(s), nil
}

// plainValue decodes a single PLAIN fixed-width value from buf.
func plainValue(t format.Type, buf []byte, typeLength int) (Value, error) {
	dec := newPlainDecoder(t, buf, typeLength)
	var s [1]Value
	if _, err := dec.Decode(s[:]); err != nil {
		return Value{}, err
	}
	return s[0], nil
}
