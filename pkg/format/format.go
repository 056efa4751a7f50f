// Package format defines the Parquet file metadata structures and their
// Thrift compact-protocol serialization. The structures mirror the layout
// defined by parquet-format; field identifiers must never change, as they
// are part of the wire format.
package format

// Type is the physical type of a column's values.
type Type int32

const (
	TypeBoolean           Type = 0
	TypeInt32             Type = 1
	TypeInt64             Type = 2
	TypeInt96             Type = 3
	TypeFloat             Type = 4
	TypeDouble            Type = 5
	TypeByteArray         Type = 6
	TypeFixedLenByteArray Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInt32:
		return "INT32"
	case TypeInt64:
		return "INT64"
	case TypeInt96:
		return "INT96"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeByteArray:
		return "BYTE_ARRAY"
	case TypeFixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	}
	return "UNKNOWN"
}

// FieldRepetitionType denotes whether a schema field is required, optional,
// or repeated.
type FieldRepetitionType int32

const (
	FieldRequired FieldRepetitionType = 0
	FieldOptional FieldRepetitionType = 1
	FieldRepeated FieldRepetitionType = 2
)

func (t FieldRepetitionType) String() string {
	switch t {
	case FieldRequired:
		return "REQUIRED"
	case FieldOptional:
		return "OPTIONAL"
	case FieldRepeated:
		return "REPEATED"
	}
	return "UNKNOWN"
}

// Encoding identifies the encoding used for a run of values or levels.
type Encoding int32

const (
	EncodingPlain Encoding = 0

	// EncodingPlainDictionary is the deprecated dictionary encoding from
	// format version 1.0; readers must still understand it.
	EncodingPlainDictionary Encoding = 2

	EncodingRLE                  Encoding = 3
	EncodingBitPacked            Encoding = 4 // Deprecated; only valid for levels.
	EncodingDeltaBinaryPacked    Encoding = 5
	EncodingDeltaLengthByteArray Encoding = 6
	EncodingDeltaByteArray       Encoding = 7
	EncodingRLEDictionary        Encoding = 8
	EncodingByteStreamSplit      Encoding = 9
)

func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "PLAIN"
	case EncodingPlainDictionary:
		return "PLAIN_DICTIONARY"
	case EncodingRLE:
		return "RLE"
	case EncodingBitPacked:
		return "BIT_PACKED"
	case EncodingDeltaBinaryPacked:
		return "DELTA_BINARY_PACKED"
	case EncodingDeltaLengthByteArray:
		return "DELTA_LENGTH_BYTE_ARRAY"
	case EncodingDeltaByteArray:
		return "DELTA_BYTE_ARRAY"
	case EncodingRLEDictionary:
		return "RLE_DICTIONARY"
	case EncodingByteStreamSplit:
		return "BYTE_STREAM_SPLIT"
	}
	return "UNKNOWN"
}

// CompressionCodec identifies the compression applied to page bodies within
// a column chunk.
type CompressionCodec int32

const (
	CodecUncompressed CompressionCodec = 0
	CodecSnappy       CompressionCodec = 1
	CodecGzip         CompressionCodec = 2
	CodecLZO          CompressionCodec = 3
	CodecBrotli       CompressionCodec = 4

	// CodecLZ4 is the deprecated Hadoop-framed LZ4 codec; prefer CodecLZ4Raw
	// for new files.
	CodecLZ4 CompressionCodec = 5

	CodecZstd   CompressionCodec = 6
	CodecLZ4Raw CompressionCodec = 7
)

func (c CompressionCodec) String() string {
	switch c {
	case CodecUncompressed:
		return "UNCOMPRESSED"
	case CodecSnappy:
		return "SNAPPY"
	case CodecGzip:
		return "GZIP"
	case CodecLZO:
		return "LZO"
	case CodecBrotli:
		return "BROTLI"
	case CodecLZ4:
		return "LZ4"
	case CodecZstd:
		return "ZSTD"
	case CodecLZ4Raw:
		return "LZ4_RAW"
	}
	return "UNKNOWN"
}

// PageType identifies a page within a column chunk.
type PageType int32

const (
	PageTypeData       PageType = 0
	PageTypeIndex      PageType = 1
	PageTypeDictionary PageType = 2
	PageTypeDataV2     PageType = 3
)

func (t PageType) String() string {
	switch t {
	case PageTypeData:
		return "DATA_PAGE"
	case PageTypeIndex:
		return "INDEX_PAGE"
	case PageTypeDictionary:
		return "DICTIONARY_PAGE"
	case PageTypeDataV2:
		return "DATA_PAGE_V2"
	}
	return "UNKNOWN"
}

// BoundaryOrder describes the ordering of min and max values across the
// pages of a column index.
type BoundaryOrder int32

const (
	BoundaryUnordered  BoundaryOrder = 0
	BoundaryAscending  BoundaryOrder = 1
	BoundaryDescending BoundaryOrder = 2
)

func (o BoundaryOrder) String() string {
	switch o {
	case BoundaryUnordered:
		return "UNORDERED"
	case BoundaryAscending:
		return "ASCENDING"
	case BoundaryDescending:
		return "DESCENDING"
	}
	return "UNKNOWN"
}

// ConvertedType is the deprecated logical type annotation from format
// version 1.0, written alongside LogicalType for compatibility with older
// readers.
type ConvertedType int32

const (
	ConvertedUTF8            ConvertedType = 0
	ConvertedMap             ConvertedType = 1
	ConvertedMapKeyValue     ConvertedType = 2
	ConvertedList            ConvertedType = 3
	ConvertedEnum            ConvertedType = 4
	ConvertedDecimal         ConvertedType = 5
	ConvertedDate            ConvertedType = 6
	ConvertedTimeMillis      ConvertedType = 7
	ConvertedTimeMicros      ConvertedType = 8
	ConvertedTimestampMillis ConvertedType = 9
	ConvertedTimestampMicros ConvertedType = 10
	ConvertedUint8           ConvertedType = 11
	ConvertedUint16          ConvertedType = 12
	ConvertedUint32          ConvertedType = 13
	ConvertedUint64          ConvertedType = 14
	ConvertedInt8            ConvertedType = 15
	ConvertedInt16           ConvertedType = 16
	ConvertedInt32           ConvertedType = 17
	ConvertedInt64           ConvertedType = 18
	ConvertedJSON            ConvertedType = 19
	ConvertedBSON            ConvertedType = 20
	ConvertedInterval        ConvertedType = 21
)
