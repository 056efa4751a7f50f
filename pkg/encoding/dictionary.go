package encoding

import (
	"fmt"
	"io"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// Dictionary encoding spans a whole column chunk: the dictionary page
// holds the unique values (PLAIN encoded, in order of first appearance)
// and each data page holds indices into it. A data page body is a one-byte
// bit width followed by a bare RLE/bit-packed hybrid run of indices.
//
// Dictionaries carry state across pages, so they are managed explicitly by
// the column chunk writer and reader rather than through the encoder
// registry.

// A Dictionary accumulates the unique values of a column chunk in order of
// first appearance.
type Dictionary struct {
	t      format.Type
	values []Value
	lookup map[string]int

	keyBuf    []byte
	plainSize int
}

// NewDictionary creates an empty dictionary for values of physical type t.
func NewDictionary(t format.Type) *Dictionary {
	return &Dictionary{t: t, lookup: make(map[string]int)}
}

// Index returns the dictionary index for v, inserting it if absent.
// Inserted byte array values are copied.
func (d *Dictionary) Index(v Value) int {
	d.keyBuf = AppendPlain(d.keyBuf[:0], v)
	if i, ok := d.lookup[string(d.keyBuf)]; ok {
		return i
	}

	i := len(d.values)
	d.values = append(d.values, v.Clone())
	d.lookup[string(d.keyBuf)] = i
	d.plainSize += len(d.keyBuf)
	if d.t == format.TypeByteArray {
		d.plainSize += 4
	}
	return i
}

// Len returns the number of unique values in the dictionary.
func (d *Dictionary) Len() int { return len(d.values) }

// PlainSize returns the size in bytes of the PLAIN-encoded dictionary page
// body.
func (d *Dictionary) PlainSize() int { return d.plainSize }

// Values returns the dictionary's values in index order. The returned
// slice must not be modified.
func (d *Dictionary) Values() []Value { return d.values }

// BitWidth returns the bit width needed to encode indices into the
// dictionary.
func (d *Dictionary) BitWidth() int {
	return bitWidth(uint64(max(len(d.values)-1, 0)))
}

// EncodePage writes the dictionary page body: every unique value, PLAIN
// encoded.
func (d *Dictionary) EncodePage(w streamio.Writer) error {
	enc := newPlainEncoder(d.t, w)
	for _, v := range d.values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return enc.Flush()
}

// EncodeIndexes writes a data page body for dictionary-encoded values: the
// index bit width byte followed by a bare hybrid run of indexes.
func (d *Dictionary) EncodeIndexes(w streamio.Writer, indexes []int32) error {
	width := d.BitWidth()
	if err := w.WriteByte(byte(width)); err != nil {
		return err
	}
	enc := NewHybridEncoder(w, width)
	for _, i := range indexes {
		enc.Put(uint64(i))
	}
	return enc.Flush()
}

// DecodeDictionary decodes a dictionary page body of count PLAIN-encoded
// values.
func DecodeDictionary(t format.Type, data []byte, count int, cfg Config) ([]Value, error) {
	dec := newPlainDecoder(t, data, cfg.TypeLength)
	values := make([]Value, count)
	for n := 0; n < count; {
		m, err := dec.Decode(values[n:])
		if err != nil {
			return nil, fmt.Errorf("decoding dictionary page: %w", err)
		}
		n += m
	}
	return values, nil
}

// A DictDecoder decodes dictionary-encoded data page bodies against a
// previously decoded dictionary.
type DictDecoder struct {
	t      format.Type
	dict   []Value
	hybrid *HybridDecoder
}

// NewDictDecoder creates a decoder resolving indices in data against dict.
func NewDictDecoder(t format.Type, dict []Value, data []byte) (*DictDecoder, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("dictionary data page: %w", io.ErrUnexpectedEOF)
	}
	width := int(data[0])
	if width > 32 {
		return nil, fmt.Errorf("dictionary data page: invalid index bit width %d", width)
	}
	return &DictDecoder{
		t:      t,
		dict:   dict,
		hybrid: NewHybridDecoder(data[1:], width),
	}, nil
}

func (d *DictDecoder) PhysicalType() format.Type     { return d.t }
func (d *DictDecoder) EncodingType() format.Encoding { return format.EncodingRLEDictionary }

// Decode implements [ValueDecoder].
func (d *DictDecoder) Decode(s []Value) (int, error) {
	for i := range s {
		idx, err := d.hybrid.Next()
		if err != nil {
			if err == io.EOF && i > 0 {
				return i, nil
			}
			return i, err
		}
		if idx >= uint64(len(d.dict)) {
			return i, fmt.Errorf("dictionary data page: index %d out of range (dictionary has %d entries)", idx, len(d.dict))
		}
		s[i] = d.dict[idx]
	}
	return len(s), nil
}

// Reset implements [ValueDecoder]. The dictionary is retained.
func (d *DictDecoder) Reset(data []byte) {
	width := 0
	if len(data) > 0 {
		width = int(data[0])
		data = data[1:]
	}
	d.hybrid = NewHybridDecoder(data, width)
}
