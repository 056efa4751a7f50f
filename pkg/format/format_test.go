package format

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileMetaData_RoundTrip(t *testing.T) {
	in := FileMetaData{
		Version: 2,
		Schema: []SchemaElement{
			{Name: "schema", NumChildren: ptr(int32(2))},
			{
				Name:           "id",
				Type:           ptr(TypeInt64),
				RepetitionType: ptr(FieldRequired),
				LogicalType:    &LogicalType{Integer: &IntType{BitWidth: 64, IsSigned: true}},
			},
			{
				Name:           "name",
				Type:           ptr(TypeByteArray),
				RepetitionType: ptr(FieldOptional),
				ConvertedType:  ptr(ConvertedUTF8),
				LogicalType:    &LogicalType{UTF8: &EmptyType{}},
			},
		},
		NumRows: 1000,
		RowGroups: []RowGroup{{
			Columns: []ColumnChunk{{
				FileOffset: 4,
				MetaData: &ColumnMetaData{
					Type:                  TypeInt64,
					Encodings:             []Encoding{EncodingPlain, EncodingRLE},
					PathInSchema:          []string{"id"},
					Codec:                 CodecSnappy,
					NumValues:             1000,
					TotalUncompressedSize: 8123,
					TotalCompressedSize:   4567,
					DataPageOffset:        4,
					DictionaryPageOffset:  ptr(int64(4)),
					Statistics: &Statistics{
						NullCount: ptr(int64(13)),
						MinValue:  []byte{1, 0, 0, 0, 0, 0, 0, 0},
						MaxValue:  []byte{0xe8, 3, 0, 0, 0, 0, 0, 0},
					},
					EncodingStats: []PageEncodingStats{
						{PageType: PageTypeDictionary, Encoding: EncodingPlain, Count: 1},
						{PageType: PageTypeData, Encoding: EncodingRLEDictionary, Count: 3},
					},
					BloomFilterOffset: ptr(int64(9000)),
				},
				OffsetIndexOffset: ptr(int64(10000)),
				OffsetIndexLength: ptr(int32(64)),
			}},
			TotalByteSize:       8123,
			NumRows:             1000,
			TotalCompressedSize: ptr(int64(4567)),
			Ordinal:             ptr(int16(0)),
		}},
		KeyValueMetadata: []KeyValue{{Key: "writer", Value: ptr("test")}},
		CreatedBy:        ptr("parquet tests"),
		ColumnOrders:     []ColumnOrder{{TypeOrder: &EmptyType{}}, {TypeOrder: &EmptyType{}}},
	}

	data, err := Marshal(&in)
	data2, err2 := Marshal(&in)
	require.NoError(t, err)
	require.NoError(t, err2)
	require.Equal(t, data, data2, "serialization must be deterministic")

	var out FileMetaData
	require.NoError(t, Unmarshal(&out, data))
	require.Equal(t, in, out)
}

func TestPageHeader_RoundTrip(t *testing.T) {
	tt := []struct {
		name string
		hdr  PageHeader
	}{
		{
			name: "data page v1",
			hdr: PageHeader{
				Type:                 PageTypeData,
				UncompressedPageSize: 1024,
				CompressedPageSize:   512,
				CRC:                  ptr(int32(-1234)),
				DataPageHeader: &DataPageHeader{
					NumValues:               100,
					Encoding:                EncodingPlain,
					DefinitionLevelEncoding: EncodingRLE,
					RepetitionLevelEncoding: EncodingRLE,
					Statistics:              &Statistics{NullCount: ptr(int64(7))},
				},
			},
		},
		{
			name: "data page v2",
			hdr: PageHeader{
				Type:                 PageTypeDataV2,
				UncompressedPageSize: 2048,
				CompressedPageSize:   900,
				DataPageHeaderV2: &DataPageHeaderV2{
					NumValues:                  200,
					NumNulls:                   20,
					NumRows:                    180,
					Encoding:                   EncodingDeltaBinaryPacked,
					DefinitionLevelsByteLength: 31,
					RepetitionLevelsByteLength: 0,
					IsCompressed:               ptr(true),
				},
			},
		},
		{
			name: "dictionary page",
			hdr: PageHeader{
				Type:                 PageTypeDictionary,
				UncompressedPageSize: 64,
				CompressedPageSize:   64,
				DictionaryPageHeader: &DictionaryPageHeader{
					NumValues: 8,
					Encoding:  EncodingPlain,
				},
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(&tc.hdr)
			require.NoError(t, err)

			var out PageHeader
			require.NoError(t, Unmarshal(&out, data))
			require.Equal(t, tc.hdr, out)
		})
	}
}

func TestRead_LeavesTrailingBytes(t *testing.T) {
	hdr := PageHeader{
		Type:                 PageTypeData,
		UncompressedPageSize: 10,
		CompressedPageSize:   10,
		DataPageHeader:       &DataPageHeader{NumValues: 3, Encoding: EncodingPlain},
	}
	data, err := Marshal(&hdr)
	require.NoError(t, err)

	// A header followed by page data: decoding must consume exactly the
	// header bytes.
	body := []byte("0123456789")
	r := bytes.NewReader(append(append([]byte{}, data...), body...))

	var out PageHeader
	require.NoError(t, Read(&out, r))
	require.Equal(t, len(body), r.Len())
}

func TestColumnIndex_RoundTrip(t *testing.T) {
	in := ColumnIndex{
		NullPages:     []bool{false, false, true},
		MinValues:     [][]byte{{1, 0, 0, 0}, {5, 0, 0, 0}, {}},
		MaxValues:     [][]byte{{4, 0, 0, 0}, {9, 0, 0, 0}, {}},
		BoundaryOrder: BoundaryAscending,
		NullCounts:    []int64{0, 2, 10},
	}

	data, err := Marshal(&in)
	require.NoError(t, err)

	var out ColumnIndex
	require.NoError(t, Unmarshal(&out, data))
	require.Equal(t, in, out)
}

func TestBloomFilterHeader_RoundTrip(t *testing.T) {
	in := BloomFilterHeader{
		NumBytes:    1024,
		Algorithm:   BloomFilterAlgorithm{Block: &EmptyType{}},
		Hash:        BloomFilterHash{XxHash: &EmptyType{}},
		Compression: BloomFilterCompression{Uncompressed: &EmptyType{}},
	}

	data, err := Marshal(&in)
	require.NoError(t, err)

	var out BloomFilterHeader
	require.NoError(t, Unmarshal(&out, data))
	require.Equal(t, in, out)
}

func TestUnmarshal_Truncated(t *testing.T) {
	in := OffsetIndex{PageLocations: []PageLocation{
		{Offset: 4, CompressedPageSize: 100, FirstRowIndex: 0},
		{Offset: 104, CompressedPageSize: 88, FirstRowIndex: 1000},
	}}
	data, err := Marshal(&in)
	require.NoError(t, err)

	var out OffsetIndex
	require.Error(t, Unmarshal(&out, data[:len(data)/2]))
}

func TestIOTransport(t *testing.T) {
	tr := ioTransport{r: bytes.NewReader([]byte("ab"))}
	require.Equal(t, ^uint64(0), tr.RemainingBytes())
	require.True(t, tr.IsOpen())
	_, err := tr.Write([]byte("x"))
	require.ErrorContains(t, err, "read-only")

	tr = ioTransport{w: &bytes.Buffer{}}
	_, err = tr.Read(make([]byte, 1))
	require.ErrorContains(t, err, "write-only")
}
