package format

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// PageLocation is one entry of an offset index, locating a data page within
// the file.
type PageLocation struct {
	Offset             int64
	CompressedPageSize int32
	FirstRowIndex      int64
}

func (l *PageLocation) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "PageLocation")
	w.i64(1, l.Offset)
	w.i32(2, l.CompressedPageSize)
	w.i64(3, l.FirstRowIndex)
	return w.end()
}

func (l *PageLocation) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			l.Offset, err = p.ReadI64(ctx)
		case 2:
			l.CompressedPageSize, err = p.ReadI32(ctx)
		case 3:
			l.FirstRowIndex, err = p.ReadI64(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// OffsetIndex locates every data page of one column chunk, enabling random
// access at page granularity.
type OffsetIndex struct {
	PageLocations []PageLocation
}

func (x *OffsetIndex) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "OffsetIndex")
	w.list(1, thrift.STRUCT, len(x.PageLocations), func(i int) error {
		return x.PageLocations[i].write(ctx, p)
	})
	return w.end()
}

func (x *OffsetIndex) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id != 1 {
			return false, nil
		}
		return true, readList(ctx, p, func(int) error {
			var l PageLocation
			if err := l.read(ctx, p); err != nil {
				return err
			}
			x.PageLocations = append(x.PageLocations, l)
			return nil
		})
	})
}

// ColumnIndex stores per-page min/max bounds and null counts for one column
// chunk. Entries for pages consisting entirely of nulls have NullPages set
// and empty bound values.
type ColumnIndex struct {
	NullPages     []bool
	MinValues     [][]byte
	MaxValues     [][]byte
	BoundaryOrder BoundaryOrder
	NullCounts    []int64
}

func (x *ColumnIndex) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "ColumnIndex")
	w.list(1, thrift.BOOL, len(x.NullPages), func(i int) error {
		return p.WriteBool(ctx, x.NullPages[i])
	})
	w.list(2, thrift.STRING, len(x.MinValues), func(i int) error {
		return p.WriteBinary(ctx, x.MinValues[i])
	})
	w.list(3, thrift.STRING, len(x.MaxValues), func(i int) error {
		return p.WriteBinary(ctx, x.MaxValues[i])
	})
	w.i32(4, int32(x.BoundaryOrder))
	if x.NullCounts != nil {
		w.list(5, thrift.I64, len(x.NullCounts), func(i int) error {
			return p.WriteI64(ctx, x.NullCounts[i])
		})
	}
	return w.end()
}

func (x *ColumnIndex) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadBool(ctx)
				x.NullPages = append(x.NullPages, v)
				return err
			})
		case 2:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadBinary(ctx)
				x.MinValues = append(x.MinValues, v)
				return err
			})
		case 3:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadBinary(ctx)
				x.MaxValues = append(x.MaxValues, v)
				return err
			})
		case 4:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				x.BoundaryOrder = BoundaryOrder(v)
			}
		case 5:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadI64(ctx)
				x.NullCounts = append(x.NullCounts, v)
				return err
			})
		default:
			return false, nil
		}
		return true, err
	})
}

// BloomFilterHeader precedes the bitset of a split-block bloom filter.
// Algorithm, hash and compression are unions with a single defined member
// each: block-based algorithm, xxHash, and uncompressed.
type BloomFilterHeader struct {
	NumBytes    int32
	Algorithm   BloomFilterAlgorithm
	Hash        BloomFilterHash
	Compression BloomFilterCompression
}

// BloomFilterAlgorithm selects the filter algorithm.
type BloomFilterAlgorithm struct {
	Block *EmptyType
}

func (a *BloomFilterAlgorithm) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "BloomFilterAlgorithm")
	if a.Block != nil {
		w.structField(1, a.Block)
	}
	return w.end()
}

func (a *BloomFilterAlgorithm) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id != 1 {
			return false, nil
		}
		a.Block = new(EmptyType)
		return true, a.Block.read(ctx, p)
	})
}

// BloomFilterHash selects the hash function fed into the filter.
type BloomFilterHash struct {
	XxHash *EmptyType
}

func (h *BloomFilterHash) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "BloomFilterHash")
	if h.XxHash != nil {
		w.structField(1, h.XxHash)
	}
	return w.end()
}

func (h *BloomFilterHash) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id != 1 {
			return false, nil
		}
		h.XxHash = new(EmptyType)
		return true, h.XxHash.read(ctx, p)
	})
}

// BloomFilterCompression selects the compression of the filter bitset.
type BloomFilterCompression struct {
	Uncompressed *EmptyType
}

func (c *BloomFilterCompression) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "BloomFilterCompression")
	if c.Uncompressed != nil {
		w.structField(1, c.Uncompressed)
	}
	return w.end()
}

func (c *BloomFilterCompression) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id != 1 {
			return false, nil
		}
		c.Uncompressed = new(EmptyType)
		return true, c.Uncompressed.read(ctx, p)
	})
}

func (h *BloomFilterHeader) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "BloomFilterHeader")
	w.i32(1, h.NumBytes)
	w.structField(2, &h.Algorithm)
	w.structField(3, &h.Hash)
	w.structField(4, &h.Compression)
	return w.end()
}

func (h *BloomFilterHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			h.NumBytes, err = p.ReadI32(ctx)
		case 2:
			err = h.Algorithm.read(ctx, p)
		case 3:
			err = h.Hash.read(ctx, p)
		case 4:
			err = h.Compression.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}
