package encoding

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// DELTA_BINARY_PACKED stores a header of
//
//	<block size> <miniblocks per block> <total count> <first value>
//
// followed by blocks of
//
//	<min delta> <miniblock bit widths> <bit-packed miniblock deltas>
//
// where all counts are uvarints and values are zigzag varints. Blocks hold
// 128 values split across 4 miniblocks of 32; each miniblock is bit-packed
// at its own width after subtracting the block's minimum delta.

const (
	deltaBlockSize     = 128
	deltaMiniblocks    = 4
	deltaMiniblockSize = deltaBlockSize / deltaMiniblocks
)

func init() {
	for _, t := range []format.Type{format.TypeInt32, format.TypeInt64} {
		registerValueEncoding(t, format.EncodingDeltaBinaryPacked, registryEntry{
			NewEncoder: func(w streamio.Writer, cfg Config) ValueEncoder {
				return newDeltaBinaryPackedEncoder(t, w)
			},
			NewDecoder: func(data []byte, cfg Config) ValueDecoder {
				return newDeltaBinaryPackedDecoder(t, data)
			},
		})
	}
}

type deltaBinaryPackedEncoder struct {
	t      format.Type
	w      streamio.Writer
	values []int64
}

func newDeltaBinaryPackedEncoder(t format.Type, w streamio.Writer) *deltaBinaryPackedEncoder {
	return &deltaBinaryPackedEncoder{t: t, w: w}
}

func (e *deltaBinaryPackedEncoder) PhysicalType() format.Type     { return e.t }
func (e *deltaBinaryPackedEncoder) EncodingType() format.Encoding { return format.EncodingDeltaBinaryPacked }

func (e *deltaBinaryPackedEncoder) Encode(v Value) error {
	if e.t == format.TypeInt32 {
		e.values = append(e.values, int64(v.Int32()))
	} else {
		e.values = append(e.values, v.Int64())
	}
	return nil
}

func (e *deltaBinaryPackedEncoder) Flush() error {
	var first int64
	if len(e.values) > 0 {
		first = e.values[0]
	}

	if err := streamio.WriteUvarint(e.w, deltaBlockSize); err != nil {
		return err
	}
	if err := streamio.WriteUvarint(e.w, deltaMiniblocks); err != nil {
		return err
	}
	if err := streamio.WriteUvarint(e.w, uint64(len(e.values))); err != nil {
		return err
	}
	if err := streamio.WriteVarint(e.w, first); err != nil {
		return err
	}

	deltas := make([]int64, 0, deltaBlockSize)
	prev := first
	for i := 1; i < len(e.values); i += deltaBlockSize {
		deltas = deltas[:0]
		for j := i; j < min(i+deltaBlockSize, len(e.values)); j++ {
			deltas = append(deltas, e.values[j]-prev)
			prev = e.values[j]
		}
		if err := e.writeBlock(deltas); err != nil {
			return err
		}
	}

	e.values = e.values[:0]
	return nil
}

func (e *deltaBinaryPackedEncoder) writeBlock(deltas []int64) error {
	minDelta := deltas[0]
	for _, d := range deltas {
		if d < minDelta {
			minDelta = d
		}
	}
	if err := streamio.WriteVarint(e.w, minDelta); err != nil {
		return err
	}

	// Normalize against the block minimum, padding the last miniblock so
	// every miniblock is complete.
	norm := make([]uint64, deltaBlockSize)
	for i, d := range deltas {
		norm[i] = uint64(d - minDelta)
	}

	var widths [deltaMiniblocks]byte
	used := (len(deltas) + deltaMiniblockSize - 1) / deltaMiniblockSize
	for m := 0; m < used; m++ {
		var max uint64
		for _, v := range norm[m*deltaMiniblockSize : (m+1)*deltaMiniblockSize] {
			if v > max {
				max = v
			}
		}
		widths[m] = byte(bitWidth(max))
	}
	if _, err := e.w.Write(widths[:]); err != nil {
		return err
	}

	for m := 0; m < used; m++ {
		packed := packBits(nil, norm[m*deltaMiniblockSize:(m+1)*deltaMiniblockSize], int(widths[m]))
		if _, err := e.w.Write(packed); err != nil {
			return err
		}
	}
	return nil
}

func (e *deltaBinaryPackedEncoder) Reset(w streamio.Writer) {
	e.w = w
	e.values = e.values[:0]
}

type deltaBinaryPackedDecoder struct {
	t    format.Type
	data []byte

	blockSize  int
	miniblocks int
	remaining  int
	value      int64
	headerRead bool
	pending    bool // First value decoded from the header but not yet emitted.

	// Current block state.
	minDelta   int64
	widths     []byte
	miniblock  int // Index of the current miniblock within the block.
	miniValues []uint64
	miniPos    int
	miniLen    int
}

func newDeltaBinaryPackedDecoder(t format.Type, data []byte) *deltaBinaryPackedDecoder {
	d := &deltaBinaryPackedDecoder{t: t}
	d.Reset(data)
	return d
}

func (d *deltaBinaryPackedDecoder) PhysicalType() format.Type     { return d.t }
func (d *deltaBinaryPackedDecoder) EncodingType() format.Encoding { return format.EncodingDeltaBinaryPacked }

func (d *deltaBinaryPackedDecoder) Reset(data []byte) {
	*d = deltaBinaryPackedDecoder{t: d.t, data: data}
}

func (d *deltaBinaryPackedDecoder) header() error {
	bs, err := d.uvarint()
	if err != nil {
		return err
	}
	mb, err := d.uvarint()
	if err != nil {
		return err
	}
	count, err := d.uvarint()
	if err != nil {
		return err
	}
	first, err := d.varint()
	if err != nil {
		return err
	}

	if bs == 0 || mb == 0 || bs%mb != 0 || (bs/mb)%8 != 0 {
		return fmt.Errorf("delta binary packed: invalid block layout %d/%d", bs, mb)
	}

	d.blockSize = int(bs)
	d.miniblocks = int(mb)
	d.remaining = int(count)
	d.value = first
	d.miniblock = d.miniblocks // Force loading a block on first miniblock read.
	d.widths = make([]byte, d.miniblocks)
	d.miniValues = make([]uint64, d.blockSize/d.miniblocks)
	d.headerRead = true
	d.pending = d.remaining > 0
	return nil
}

// next returns the next raw value, or [io.EOF] when the run is exhausted.
func (d *deltaBinaryPackedDecoder) next() (int64, error) {
	if !d.headerRead {
		if len(d.data) == 0 {
			return 0, io.EOF
		}
		if err := d.header(); err != nil {
			return 0, err
		}
	}
	if d.remaining == 0 {
		return 0, io.EOF
	}

	if d.pending {
		d.pending = false
	} else {
		delta, err := d.nextDelta()
		if err != nil {
			return 0, err
		}
		d.value += delta
	}
	d.remaining--
	return d.value, nil
}

func (d *deltaBinaryPackedDecoder) Decode(s []Value) (int, error) {
	for i := range s {
		v, err := d.next()
		if err != nil {
			if err == io.EOF && i > 0 {
				return i, nil
			}
			return i, err
		}
		if d.t == format.TypeInt32 {
			s[i] = Int32Value(int32(v))
		} else {
			s[i] = Int64Value(v)
		}
	}
	return len(s), nil
}

func (d *deltaBinaryPackedDecoder) nextDelta() (int64, error) {
	if d.miniPos >= d.miniLen {
		if err := d.nextMiniblock(); err != nil {
			return 0, err
		}
	}
	v := d.miniValues[d.miniPos]
	d.miniPos++
	return int64(v) + d.minDelta, nil
}

func (d *deltaBinaryPackedDecoder) nextMiniblock() error {
	miniSize := d.blockSize / d.miniblocks

	if d.miniblock >= d.miniblocks {
		// Start of a new block.
		md, err := d.varint()
		if err != nil {
			return err
		}
		d.minDelta = md
		if len(d.data) < d.miniblocks {
			return fmt.Errorf("delta binary packed: %w", io.ErrUnexpectedEOF)
		}
		copy(d.widths, d.data[:d.miniblocks])
		d.data = d.data[d.miniblocks:]
		d.miniblock = 0
	}

	width := int(d.widths[d.miniblock])
	if width > 64 {
		return fmt.Errorf("delta binary packed: invalid bit width %d", width)
	}
	used := unpackBits(d.miniValues[:miniSize], d.data, width)
	if used < 0 {
		return fmt.Errorf("delta binary packed: %w", io.ErrUnexpectedEOF)
	}
	d.data = d.data[used:]
	d.miniblock++
	d.miniPos = 0
	d.miniLen = miniSize
	return nil
}

func (d *deltaBinaryPackedDecoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data)
	if n <= 0 {
		return 0, fmt.Errorf("delta binary packed: %w", io.ErrUnexpectedEOF)
	}
	d.data = d.data[n:]
	return v, nil
}

func (d *deltaBinaryPackedDecoder) varint() (int64, error) {
	u, err := d.uvarint()
	if err != nil {
		return 0, err
	}
	return streamio.Unzigzag(u), nil
}
