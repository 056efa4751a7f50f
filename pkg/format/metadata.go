package format

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// SchemaElement is one node of the flattened schema tree stored in the file
// footer. Nodes are listed in depth-first order; group nodes carry
// NumChildren and leaves carry Type.
type SchemaElement struct {
	Type           *Type
	TypeLength     *int32
	RepetitionType *FieldRepetitionType
	Name           string
	NumChildren    *int32
	ConvertedType  *ConvertedType
	Scale          *int32
	Precision      *int32
	FieldID        *int32
	LogicalType    *LogicalType
}

func (e *SchemaElement) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "SchemaElement")
	w.optI32(1, (*int32)(e.Type))
	w.optI32(2, e.TypeLength)
	w.optI32(3, (*int32)(e.RepetitionType))
	w.str(4, e.Name)
	w.optI32(5, e.NumChildren)
	w.optI32(6, (*int32)(e.ConvertedType))
	w.optI32(7, e.Scale)
	w.optI32(8, e.Precision)
	w.optI32(9, e.FieldID)
	if e.LogicalType != nil {
		w.structField(10, e.LogicalType)
	}
	return w.end()
}

func (e *SchemaElement) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.Type = ptr(Type(v))
			}
		case 2:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.TypeLength = &v
			}
		case 3:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.RepetitionType = ptr(FieldRepetitionType(v))
			}
		case 4:
			e.Name, err = p.ReadString(ctx)
		case 5:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.NumChildren = &v
			}
		case 6:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.ConvertedType = ptr(ConvertedType(v))
			}
		case 7:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.Scale = &v
			}
		case 8:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.Precision = &v
			}
		case 9:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				e.FieldID = &v
			}
		case 10:
			e.LogicalType = new(LogicalType)
			err = e.LogicalType.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// Statistics holds per-page or per-chunk value statistics. All fields are
// optional; absence means the statistic could not be computed. MinValue and
// MaxValue use the logical-type ordering, while the deprecated Min and Max
// use signed comparison only.
type Statistics struct {
	Max           []byte // Deprecated in favor of MaxValue.
	Min           []byte // Deprecated in favor of MinValue.
	NullCount     *int64
	DistinctCount *int64
	MaxValue      []byte
	MinValue      []byte
}

func (s *Statistics) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "Statistics")
	w.optBinary(1, s.Max)
	w.optBinary(2, s.Min)
	w.optI64(3, s.NullCount)
	w.optI64(4, s.DistinctCount)
	w.optBinary(5, s.MaxValue)
	w.optBinary(6, s.MinValue)
	return w.end()
}

func (s *Statistics) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			s.Max, err = p.ReadBinary(ctx)
		case 2:
			s.Min, err = p.ReadBinary(ctx)
		case 3:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				s.NullCount = &v
			}
		case 4:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				s.DistinctCount = &v
			}
		case 5:
			s.MaxValue, err = p.ReadBinary(ctx)
		case 6:
			s.MinValue, err = p.ReadBinary(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// KeyValue is an application-defined metadata entry in the footer.
type KeyValue struct {
	Key   string
	Value *string
}

func (kv *KeyValue) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "KeyValue")
	w.str(1, kv.Key)
	w.optStr(2, kv.Value)
	return w.end()
}

func (kv *KeyValue) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			kv.Key, err = p.ReadString(ctx)
		case 2:
			var v string
			if v, err = p.ReadString(ctx); err == nil {
				kv.Value = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// SortingColumn describes the sort order of a row group.
type SortingColumn struct {
	ColumnIdx  int32
	Descending bool
	NullsFirst bool
}

func (s *SortingColumn) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "SortingColumn")
	w.i32(1, s.ColumnIdx)
	w.boolField(2, s.Descending)
	w.boolField(3, s.NullsFirst)
	return w.end()
}

func (s *SortingColumn) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			s.ColumnIdx, err = p.ReadI32(ctx)
		case 2:
			s.Descending, err = p.ReadBool(ctx)
		case 3:
			s.NullsFirst, err = p.ReadBool(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// PageEncodingStats counts how many pages of a given type and encoding a
// column chunk contains, letting readers detect fully dictionary-encoded
// chunks without scanning page headers.
type PageEncodingStats struct {
	PageType PageType
	Encoding Encoding
	Count    int32
}

func (s *PageEncodingStats) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "PageEncodingStats")
	w.i32(1, int32(s.PageType))
	w.i32(2, int32(s.Encoding))
	w.i32(3, s.Count)
	return w.end()
}

func (s *PageEncodingStats) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var v int32
		var err error
		switch id {
		case 1:
			if v, err = p.ReadI32(ctx); err == nil {
				s.PageType = PageType(v)
			}
		case 2:
			if v, err = p.ReadI32(ctx); err == nil {
				s.Encoding = Encoding(v)
			}
		case 3:
			s.Count, err = p.ReadI32(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// ColumnMetaData describes one column chunk: its encodings, codec, page
// offsets, sizes and statistics.
type ColumnMetaData struct {
	Type                  Type
	Encodings             []Encoding
	PathInSchema          []string
	Codec                 CompressionCodec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	KeyValueMetadata      []KeyValue
	DataPageOffset        int64
	IndexPageOffset       *int64
	DictionaryPageOffset  *int64
	Statistics            *Statistics
	EncodingStats         []PageEncodingStats
	BloomFilterOffset     *int64
	BloomFilterLength     *int32
}

func (m *ColumnMetaData) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "ColumnMetaData")
	w.i32(1, int32(m.Type))
	w.list(2, thrift.I32, len(m.Encodings), func(i int) error {
		return p.WriteI32(ctx, int32(m.Encodings[i]))
	})
	w.list(3, thrift.STRING, len(m.PathInSchema), func(i int) error {
		return p.WriteString(ctx, m.PathInSchema[i])
	})
	w.i32(4, int32(m.Codec))
	w.i64(5, m.NumValues)
	w.i64(6, m.TotalUncompressedSize)
	w.i64(7, m.TotalCompressedSize)
	if m.KeyValueMetadata != nil {
		w.list(8, thrift.STRUCT, len(m.KeyValueMetadata), func(i int) error {
			return m.KeyValueMetadata[i].write(ctx, p)
		})
	}
	w.i64(9, m.DataPageOffset)
	w.optI64(10, m.IndexPageOffset)
	w.optI64(11, m.DictionaryPageOffset)
	if m.Statistics != nil {
		w.structField(12, m.Statistics)
	}
	if m.EncodingStats != nil {
		w.list(13, thrift.STRUCT, len(m.EncodingStats), func(i int) error {
			return m.EncodingStats[i].write(ctx, p)
		})
	}
	w.optI64(14, m.BloomFilterOffset)
	w.optI32(15, m.BloomFilterLength)
	return w.end()
}

func (m *ColumnMetaData) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				m.Type = Type(v)
			}
		case 2:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadI32(ctx)
				m.Encodings = append(m.Encodings, Encoding(v))
				return err
			})
		case 3:
			err = readList(ctx, p, func(int) error {
				v, err := p.ReadString(ctx)
				m.PathInSchema = append(m.PathInSchema, v)
				return err
			})
		case 4:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				m.Codec = CompressionCodec(v)
			}
		case 5:
			m.NumValues, err = p.ReadI64(ctx)
		case 6:
			m.TotalUncompressedSize, err = p.ReadI64(ctx)
		case 7:
			m.TotalCompressedSize, err = p.ReadI64(ctx)
		case 8:
			err = readList(ctx, p, func(int) error {
				var kv KeyValue
				if err := kv.read(ctx, p); err != nil {
					return err
				}
				m.KeyValueMetadata = append(m.KeyValueMetadata, kv)
				return nil
			})
		case 9:
			m.DataPageOffset, err = p.ReadI64(ctx)
		case 10:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				m.IndexPageOffset = &v
			}
		case 11:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				m.DictionaryPageOffset = &v
			}
		case 12:
			m.Statistics = new(Statistics)
			err = m.Statistics.read(ctx, p)
		case 13:
			err = readList(ctx, p, func(int) error {
				var s PageEncodingStats
				if err := s.read(ctx, p); err != nil {
					return err
				}
				m.EncodingStats = append(m.EncodingStats, s)
				return nil
			})
		case 14:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				m.BloomFilterOffset = &v
			}
		case 15:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				m.BloomFilterLength = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// ColumnChunk references one column chunk of a row group, along with the
// locations of its column index, offset index and metadata.
type ColumnChunk struct {
	FilePath          *string
	FileOffset        int64 // Deprecated; kept for compatibility with old readers.
	MetaData          *ColumnMetaData
	OffsetIndexOffset *int64
	OffsetIndexLength *int32
	ColumnIndexOffset *int64
	ColumnIndexLength *int32
}

func (c *ColumnChunk) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "ColumnChunk")
	w.optStr(1, c.FilePath)
	w.i64(2, c.FileOffset)
	if c.MetaData != nil {
		w.structField(3, c.MetaData)
	}
	w.optI64(4, c.OffsetIndexOffset)
	w.optI32(5, c.OffsetIndexLength)
	w.optI64(6, c.ColumnIndexOffset)
	w.optI32(7, c.ColumnIndexLength)
	return w.end()
}

func (c *ColumnChunk) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			var v string
			if v, err = p.ReadString(ctx); err == nil {
				c.FilePath = &v
			}
		case 2:
			c.FileOffset, err = p.ReadI64(ctx)
		case 3:
			c.MetaData = new(ColumnMetaData)
			err = c.MetaData.read(ctx, p)
		case 4:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				c.OffsetIndexOffset = &v
			}
		case 5:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				c.OffsetIndexLength = &v
			}
		case 6:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				c.ColumnIndexOffset = &v
			}
		case 7:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				c.ColumnIndexLength = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// RowGroup describes one horizontal partition of the file.
type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	SortingColumns      []SortingColumn
	FileOffset          *int64
	TotalCompressedSize *int64
	Ordinal             *int16
}

func (g *RowGroup) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "RowGroup")
	w.list(1, thrift.STRUCT, len(g.Columns), func(i int) error {
		return g.Columns[i].write(ctx, p)
	})
	w.i64(2, g.TotalByteSize)
	w.i64(3, g.NumRows)
	if g.SortingColumns != nil {
		w.list(4, thrift.STRUCT, len(g.SortingColumns), func(i int) error {
			return g.SortingColumns[i].write(ctx, p)
		})
	}
	w.optI64(5, g.FileOffset)
	w.optI64(6, g.TotalCompressedSize)
	if g.Ordinal != nil {
		w.field(7, thrift.I16, func() error { return p.WriteI16(ctx, *g.Ordinal) })
	}
	return w.end()
}

func (g *RowGroup) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			err = readList(ctx, p, func(int) error {
				var c ColumnChunk
				if err := c.read(ctx, p); err != nil {
					return err
				}
				g.Columns = append(g.Columns, c)
				return nil
			})
		case 2:
			g.TotalByteSize, err = p.ReadI64(ctx)
		case 3:
			g.NumRows, err = p.ReadI64(ctx)
		case 4:
			err = readList(ctx, p, func(int) error {
				var s SortingColumn
				if err := s.read(ctx, p); err != nil {
					return err
				}
				g.SortingColumns = append(g.SortingColumns, s)
				return nil
			})
		case 5:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				g.FileOffset = &v
			}
		case 6:
			var v int64
			if v, err = p.ReadI64(ctx); err == nil {
				g.TotalCompressedSize = &v
			}
		case 7:
			var v int16
			if v, err = p.ReadI16(ctx); err == nil {
				g.Ordinal = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// ColumnOrder is a union declaring the ordering used for min/max statistics
// of one column. Only the type-defined order is defined by the format.
type ColumnOrder struct {
	TypeOrder *EmptyType
}

func (o *ColumnOrder) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "ColumnOrder")
	if o.TypeOrder != nil {
		w.structField(1, o.TypeOrder)
	}
	return w.end()
}

func (o *ColumnOrder) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id != 1 {
			return false, nil
		}
		o.TypeOrder = new(EmptyType)
		return true, o.TypeOrder.read(ctx, p)
	})
}

// FileMetaData is the footer of a Parquet file.
type FileMetaData struct {
	Version          int32
	Schema           []SchemaElement
	NumRows          int64
	RowGroups        []RowGroup
	KeyValueMetadata []KeyValue
	CreatedBy        *string
	ColumnOrders     []ColumnOrder
}

func (m *FileMetaData) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "FileMetaData")
	w.i32(1, m.Version)
	w.list(2, thrift.STRUCT, len(m.Schema), func(i int) error {
		return m.Schema[i].write(ctx, p)
	})
	w.i64(3, m.NumRows)
	w.list(4, thrift.STRUCT, len(m.RowGroups), func(i int) error {
		return m.RowGroups[i].write(ctx, p)
	})
	if m.KeyValueMetadata != nil {
		w.list(5, thrift.STRUCT, len(m.KeyValueMetadata), func(i int) error {
			return m.KeyValueMetadata[i].write(ctx, p)
		})
	}
	w.optStr(6, m.CreatedBy)
	if m.ColumnOrders != nil {
		w.list(7, thrift.STRUCT, len(m.ColumnOrders), func(i int) error {
			return m.ColumnOrders[i].write(ctx, p)
		})
	}
	return w.end()
}

func (m *FileMetaData) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			m.Version, err = p.ReadI32(ctx)
		case 2:
			err = readList(ctx, p, func(int) error {
				var e SchemaElement
				if err := e.read(ctx, p); err != nil {
					return err
				}
				m.Schema = append(m.Schema, e)
				return nil
			})
		case 3:
			m.NumRows, err = p.ReadI64(ctx)
		case 4:
			err = readList(ctx, p, func(int) error {
				var g RowGroup
				if err := g.read(ctx, p); err != nil {
					return err
				}
				m.RowGroups = append(m.RowGroups, g)
				return nil
			})
		case 5:
			err = readList(ctx, p, func(int) error {
				var kv KeyValue
				if err := kv.read(ctx, p); err != nil {
					return err
				}
				m.KeyValueMetadata = append(m.KeyValueMetadata, kv)
				return nil
			})
		case 6:
			var v string
			if v, err = p.ReadString(ctx); err == nil {
				m.CreatedBy = &v
			}
		case 7:
			err = readList(ctx, p, func(int) error {
				var o ColumnOrder
				if err := o.read(ctx, p); err != nil {
					return err
				}
				m.ColumnOrders = append(m.ColumnOrders, o)
				return nil
			})
		default:
			return false, nil
		}
		return true, err
	})
}
