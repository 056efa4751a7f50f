package encoding

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grafana/parquet/internal/streamio"
)

// The RLE/bit-packed hybrid alternates two kinds of runs, each prefixed by
// a uvarint header whose low bit distinguishes the kind:
//
//	header = count << 1          repeated run: one value in ceil(width/8)
//	                             little-endian bytes, repeated count times
//	header = groups << 1 | 1     bit-packed run: groups * 8 values packed
//	                             at the fixed bit width
//
// The bit width is fixed per stream and carried out of band (page header
// for levels, a one-byte prefix for dictionary indices).

// minRepeatRun is the shortest repetition worth a repeated run; shorter
// repetitions are folded into bit-packed groups.
const minRepeatRun = 8

// A HybridEncoder encodes unsigned values with the RLE/bit-packed hybrid at
// a fixed bit width. Values are buffered and encoded on Flush.
type HybridEncoder struct {
	w      streamio.Writer
	width  int
	values []uint64
}

// NewHybridEncoder creates a HybridEncoder writing runs of width-bit values
// to w.
func NewHybridEncoder(w streamio.Writer, width int) *HybridEncoder {
	if width < 0 || width > 32 {
		panic(fmt.Sprintf("encoding: invalid hybrid bit width %d", width))
	}
	return &HybridEncoder{w: w, width: width}
}

// Put appends a single value.
func (e *HybridEncoder) Put(v uint64) {
	e.values = append(e.values, v)
}

// PutAll appends a run of values.
func (e *HybridEncoder) PutAll(vs []uint64) {
	e.values = append(e.values, vs...)
}

// Flush encodes all buffered values and writes them to the underlying
// writer. The encoder is reset afterwards.
func (e *HybridEncoder) Flush() error {
	var (
		vs  = e.values
		lit []uint64 // Pending literal values for a bit-packed run.
	)

	flushLiterals := func(pad bool) error {
		if len(lit) == 0 {
			return nil
		}
		if pad {
			for len(lit)%8 != 0 {
				lit = append(lit, 0)
			}
		}
		groups := len(lit) / 8
		if err := streamio.WriteUvarint(e.w, uint64(groups)<<1|1); err != nil {
			return err
		}
		if _, err := e.w.Write(packBits(nil, lit[:groups*8], e.width)); err != nil {
			return err
		}
		lit = lit[:0]
		return nil
	}

	for i := 0; i < len(vs); {
		j := i
		for j < len(vs) && vs[j] == vs[i] {
			j++
		}
		runLen := j - i

		// A repeated run may only begin when the pending literals fill whole
		// groups; otherwise enough of the repetition is borrowed to complete
		// the current group.
		if borrow := (8 - len(lit)%8) % 8; borrow > 0 && runLen >= minRepeatRun {
			for k := 0; k < borrow && runLen > 0; k++ {
				lit = append(lit, vs[i])
				i++
				runLen--
			}
		}

		if runLen >= minRepeatRun {
			if err := flushLiterals(false); err != nil {
				return err
			}
			if err := e.writeRepeated(vs[i], runLen); err != nil {
				return err
			}
		} else {
			lit = append(lit, vs[i:j]...)
		}
		i = j
	}

	if err := flushLiterals(true); err != nil {
		return err
	}
	e.values = e.values[:0]
	return nil
}

func (e *HybridEncoder) writeRepeated(v uint64, count int) error {
	if err := streamio.WriteUvarint(e.w, uint64(count)<<1); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := e.w.Write(buf[:(e.width+7)/8])
	return err
}

// Reset discards buffered values and redirects the encoder to w.
func (e *HybridEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.values = e.values[:0]
}

// A HybridDecoder decodes an RLE/bit-packed hybrid stream at a fixed bit
// width.
type HybridDecoder struct {
	data  []byte
	width int

	// Current repeated run.
	repeatValue uint64
	repeatCount int

	// Current bit-packed run.
	literals []uint64
	litPos   int
}

// NewHybridDecoder creates a HybridDecoder reading width-bit values from
// data.
func NewHybridDecoder(data []byte, width int) *HybridDecoder {
	if width < 0 || width > 32 {
		panic(fmt.Sprintf("encoding: invalid hybrid bit width %d", width))
	}
	return &HybridDecoder{data: data, width: width}
}

// Next returns the next value in the stream, or [io.EOF] when the stream is
// exhausted.
func (d *HybridDecoder) Next() (uint64, error) {
	for {
		if d.repeatCount > 0 {
			d.repeatCount--
			return d.repeatValue, nil
		}
		if d.litPos < len(d.literals) {
			v := d.literals[d.litPos]
			d.litPos++
			return v, nil
		}
		if err := d.nextRun(); err != nil {
			return 0, err
		}
	}
}

func (d *HybridDecoder) nextRun() error {
	if len(d.data) == 0 {
		return io.EOF
	}

	header, n := binary.Uvarint(d.data)
	if n <= 0 {
		return fmt.Errorf("reading run header: %w", io.ErrUnexpectedEOF)
	}
	d.data = d.data[n:]

	if header&1 == 1 {
		count := int(header>>1) * 8
		if cap(d.literals) < count {
			d.literals = make([]uint64, count)
		}
		d.literals = d.literals[:count]
		used := unpackBits(d.literals, d.data, d.width)
		if used < 0 {
			return fmt.Errorf("reading bit-packed run: %w", io.ErrUnexpectedEOF)
		}
		d.data = d.data[used:]
		d.litPos = 0
		return nil
	}

	byteWidth := (d.width + 7) / 8
	if len(d.data) < byteWidth {
		return fmt.Errorf("reading repeated run: %w", io.ErrUnexpectedEOF)
	}
	var buf [4]byte
	copy(buf[:], d.data[:byteWidth])
	d.repeatValue = uint64(binary.LittleEndian.Uint32(buf[:]))
	d.repeatCount = int(header >> 1)
	d.data = d.data[byteWidth:]
	return nil
}

// Decode fills s with up to len(s) values, returning the number decoded.
// At the end of the stream it returns 0, [io.EOF].
func (d *HybridDecoder) Decode(s []uint64) (int, error) {
	for i := range s {
		v, err := d.Next()
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

// Reset discards state and resets the decoder to read from data.
func (d *HybridDecoder) Reset(data []byte) {
	d.data = data
	d.repeatCount = 0
	d.literals = d.literals[:0]
	d.litPos = 0
}
