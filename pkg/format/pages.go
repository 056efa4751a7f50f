package format

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// DataPageHeader describes a v1 data page. Levels and values are
// concatenated and compressed together in the page body.
type DataPageHeader struct {
	NumValues               int32
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
	Statistics              *Statistics
}

func (h *DataPageHeader) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "DataPageHeader")
	w.i32(1, h.NumValues)
	w.i32(2, int32(h.Encoding))
	w.i32(3, int32(h.DefinitionLevelEncoding))
	w.i32(4, int32(h.RepetitionLevelEncoding))
	if h.Statistics != nil {
		w.structField(5, h.Statistics)
	}
	return w.end()
}

func (h *DataPageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var v int32
		var err error
		switch id {
		case 1:
			h.NumValues, err = p.ReadI32(ctx)
		case 2:
			if v, err = p.ReadI32(ctx); err == nil {
				h.Encoding = Encoding(v)
			}
		case 3:
			if v, err = p.ReadI32(ctx); err == nil {
				h.DefinitionLevelEncoding = Encoding(v)
			}
		case 4:
			if v, err = p.ReadI32(ctx); err == nil {
				h.RepetitionLevelEncoding = Encoding(v)
			}
		case 5:
			h.Statistics = new(Statistics)
			err = h.Statistics.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// IndexPageHeader is reserved by the format; index pages are not written.
type IndexPageHeader struct{}

func (h *IndexPageHeader) write(ctx context.Context, p thrift.TProtocol) error {
	return writeStruct(ctx, p, "IndexPageHeader").end()
}

func (h *IndexPageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(int16, thrift.TType) (bool, error) {
		return false, nil
	})
}

// DictionaryPageHeader describes the dictionary page of a column chunk.
type DictionaryPageHeader struct {
	NumValues int32
	Encoding  Encoding
	IsSorted  *bool
}

func (h *DictionaryPageHeader) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "DictionaryPageHeader")
	w.i32(1, h.NumValues)
	w.i32(2, int32(h.Encoding))
	w.optBool(3, h.IsSorted)
	return w.end()
}

func (h *DictionaryPageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			h.NumValues, err = p.ReadI32(ctx)
		case 2:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				h.Encoding = Encoding(v)
			}
		case 3:
			var v bool
			if v, err = p.ReadBool(ctx); err == nil {
				h.IsSorted = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// DataPageHeaderV2 describes a v2 data page. Level streams are stored
// uncompressed ahead of the (optionally compressed) value stream, so their
// byte lengths are recorded here.
type DataPageHeaderV2 struct {
	NumValues                  int32
	NumNulls                   int32
	NumRows                    int32
	Encoding                   Encoding
	DefinitionLevelsByteLength int32
	RepetitionLevelsByteLength int32
	IsCompressed               *bool // Defaults to true when absent.
	Statistics                 *Statistics
}

func (h *DataPageHeaderV2) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "DataPageHeaderV2")
	w.i32(1, h.NumValues)
	w.i32(2, h.NumNulls)
	w.i32(3, h.NumRows)
	w.i32(4, int32(h.Encoding))
	w.i32(5, h.DefinitionLevelsByteLength)
	w.i32(6, h.RepetitionLevelsByteLength)
	w.optBool(7, h.IsCompressed)
	if h.Statistics != nil {
		w.structField(8, h.Statistics)
	}
	return w.end()
}

func (h *DataPageHeaderV2) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			h.NumValues, err = p.ReadI32(ctx)
		case 2:
			h.NumNulls, err = p.ReadI32(ctx)
		case 3:
			h.NumRows, err = p.ReadI32(ctx)
		case 4:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				h.Encoding = Encoding(v)
			}
		case 5:
			h.DefinitionLevelsByteLength, err = p.ReadI32(ctx)
		case 6:
			h.RepetitionLevelsByteLength, err = p.ReadI32(ctx)
		case 7:
			var v bool
			if v, err = p.ReadBool(ctx); err == nil {
				h.IsCompressed = &v
			}
		case 8:
			h.Statistics = new(Statistics)
			err = h.Statistics.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// Compressed reports whether the page's value stream is compressed.
func (h *DataPageHeaderV2) Compressed() bool {
	return h.IsCompressed == nil || *h.IsCompressed
}

// PageHeader frames every page in a column chunk. Exactly one of the
// per-type headers is set, matching Type.
type PageHeader struct {
	Type                 PageType
	UncompressedPageSize int32
	CompressedPageSize   int32
	CRC                  *int32
	DataPageHeader       *DataPageHeader
	IndexPageHeader      *IndexPageHeader
	DictionaryPageHeader *DictionaryPageHeader
	DataPageHeaderV2     *DataPageHeaderV2
}

func (h *PageHeader) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "PageHeader")
	w.i32(1, int32(h.Type))
	w.i32(2, h.UncompressedPageSize)
	w.i32(3, h.CompressedPageSize)
	w.optI32(4, h.CRC)
	if h.DataPageHeader != nil {
		w.structField(5, h.DataPageHeader)
	}
	if h.IndexPageHeader != nil {
		w.structField(6, h.IndexPageHeader)
	}
	if h.DictionaryPageHeader != nil {
		w.structField(7, h.DictionaryPageHeader)
	}
	if h.DataPageHeaderV2 != nil {
		w.structField(8, h.DataPageHeaderV2)
	}
	return w.end()
}

func (h *PageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				h.Type = PageType(v)
			}
		case 2:
			h.UncompressedPageSize, err = p.ReadI32(ctx)
		case 3:
			h.CompressedPageSize, err = p.ReadI32(ctx)
		case 4:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				h.CRC = &v
			}
		case 5:
			h.DataPageHeader = new(DataPageHeader)
			err = h.DataPageHeader.read(ctx, p)
		case 6:
			h.IndexPageHeader = new(IndexPageHeader)
			err = h.IndexPageHeader.read(ctx, p)
		case 7:
			h.DictionaryPageHeader = new(DictionaryPageHeader)
			err = h.DictionaryPageHeader.read(ctx, p)
		case 8:
			h.DataPageHeaderV2 = new(DataPageHeaderV2)
			err = h.DataPageHeaderV2.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}
