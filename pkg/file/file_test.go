package file

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/grafana/parquet/pkg/bloom"
	"github.com/grafana/parquet/pkg/compress"
	"github.com/grafana/parquet/pkg/encoding"
	"github.com/grafana/parquet/pkg/format"
	"github.com/grafana/parquet/pkg/schema"
)

func flatSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Group("metric", format.FieldRequired,
		schema.Int64("id", format.FieldRequired),
		schema.String("label", format.FieldOptional),
		schema.Double("value", format.FieldOptional),
	))
	require.NoError(t, err)
	return s
}

func flatRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		rec := map[string]any{
			"id":    int64(i),
			"label": fmt.Sprintf("series-%d", i%5),
			"value": float64(i) / 2,
		}
		if i%7 == 3 {
			rec["label"] = nil
			rec["value"] = nil
		}
		records[i] = rec
	}
	return records
}

func writeFile(t *testing.T, s *schema.Schema, records []map[string]any, opts ...WriterOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, s, opts...)
	require.NoError(t, err)
	require.NoError(t, w.WriteRowGroupRecords(records))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openFile(t *testing.T, data []byte) *Reader {
	t.Helper()
	f, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return f
}

func TestWriter_RoundTrip(t *testing.T) {
	s := flatSchema(t)
	records := flatRecords(100)

	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, s,
		WithMetrics(reg),
		WithKeyValueMetadata("writer.host", "test"),
		WithCreatedBy("file_test"),
	)
	require.NoError(t, err)
	require.NoError(t, w.WriteRowGroupRecords(records))
	require.NoError(t, w.Close())

	require.Equal(t, float64(100), testutil.ToFloat64(w.metrics.rowsWritten))

	f := openFile(t, buf.Bytes())
	require.Equal(t, int64(100), f.NumRows())
	require.Equal(t, 1, f.NumRowGroups())
	require.NotNil(t, f.Metadata().CreatedBy)
	require.Equal(t, "file_test", *f.Metadata().CreatedBy)
	kvs := f.Metadata().KeyValueMetadata
	require.Len(t, kvs, 1)
	require.Equal(t, "writer.host", kvs[0].Key)
	require.NotNil(t, kvs[0].Value)
	require.Equal(t, "test", *kvs[0].Value)

	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestWriter_RoundTrip_Codecs(t *testing.T) {
	codecs := []format.CompressionCodec{
		format.CodecUncompressed,
		format.CodecSnappy,
		format.CodecGzip,
		format.CodecBrotli,
		format.CodecLZ4,
		format.CodecZstd,
		format.CodecLZ4Raw,
	}

	s := flatSchema(t)
	records := flatRecords(50)

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			data := writeFile(t, s, records, WithCodec(codec))

			f := openFile(t, data)
			g, err := f.RowGroup(0)
			require.NoError(t, err)
			c, err := g.Column(0)
			require.NoError(t, err)
			require.Equal(t, codec, c.chunk.MetaData.Codec)

			got, err := f.ReadRowGroupRecords(0)
			require.NoError(t, err)
			require.Equal(t, records, got)
		})
	}
}

func TestWriter_RoundTrip_DataPageV2(t *testing.T) {
	s, err := schema.New(schema.Group("event", format.FieldRequired,
		schema.Int64("id", format.FieldRequired),
		schema.List("tags", format.FieldOptional, schema.String("element", format.FieldOptional)),
	))
	require.NoError(t, err)

	records := make([]map[string]any, 30)
	for i := range records {
		tags := []any{}
		for j := 0; j <= i%3; j++ {
			tags = append(tags, fmt.Sprintf("tag-%d", j))
		}
		records[i] = map[string]any{"id": int64(i), "tags": tags}
	}

	for _, version := range []int{1, 2} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			data := writeFile(t, s, records,
				WithDataPageVersion(version),
				WithPageRowLimit(7),
			)
			f := openFile(t, data)
			got, err := f.ReadRowGroupRecords(0)
			require.NoError(t, err)
			require.Equal(t, records, got)
		})
	}
}

func TestWriter_RoundTrip_NestedDocument(t *testing.T) {
	s, err := schema.New(schema.Group("document", format.FieldRequired,
		schema.Int64("doc_id", format.FieldRequired),
		schema.Group("links", format.FieldOptional,
			schema.Int64("backward", format.FieldRepeated),
			schema.Int64("forward", format.FieldRepeated),
		),
		schema.Group("name", format.FieldRepeated,
			schema.Group("language", format.FieldRepeated,
				schema.String("code", format.FieldRequired),
				schema.String("country", format.FieldOptional),
			),
			schema.String("url", format.FieldOptional),
		),
	))
	require.NoError(t, err)

	records := []map[string]any{
		{
			"doc_id": int64(10),
			"links": map[string]any{
				"backward": []any{},
				"forward":  []any{int64(20), int64(40), int64(60)},
			},
			"name": []any{
				map[string]any{
					"language": []any{
						map[string]any{"code": "en-us", "country": "us"},
						map[string]any{"code": "en", "country": nil},
					},
					"url": "http://A",
				},
				map[string]any{
					"language": []any{},
					"url":      "http://B",
				},
				map[string]any{
					"language": []any{
						map[string]any{"code": "en-gb", "country": "gb"},
					},
					"url": nil,
				},
			},
		},
		{
			"doc_id": int64(20),
			"links": map[string]any{
				"backward": []any{int64(10), int64(30)},
				"forward":  []any{int64(80)},
			},
			"name": []any{
				map[string]any{"language": []any{}, "url": "http://C"},
			},
		},
	}

	for _, version := range []int{1, 2} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			data := writeFile(t, s, records, WithDataPageVersion(version))
			f := openFile(t, data)
			got, err := f.ReadRowGroupRecords(0)
			require.NoError(t, err)
			require.Equal(t, records, got)
		})
	}
}

func TestWriter_MultipleRowGroups(t *testing.T) {
	s := flatSchema(t)
	first, second := flatRecords(40), flatRecords(25)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, s)
	require.NoError(t, err)
	require.NoError(t, w.WriteRowGroupRecords(first))
	require.NoError(t, w.WriteRowGroupRecords(second))
	require.NoError(t, w.Close())

	f := openFile(t, buf.Bytes())
	require.Equal(t, 2, f.NumRowGroups())
	require.Equal(t, int64(65), f.NumRows())

	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, first, got)
	got, err = f.ReadRowGroupRecords(1)
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestWriter_DictionaryEncoding(t *testing.T) {
	s := flatSchema(t)

	// Five distinct labels over 200 rows stay well below the dictionary
	// size limit.
	records := make([]map[string]any, 200)
	for i := range records {
		records[i] = map[string]any{
			"id":    int64(i),
			"label": fmt.Sprintf("series-%d", i%5),
			"value": float64(i),
		}
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(1)
	require.NoError(t, err)

	meta := c.chunk.MetaData
	require.NotNil(t, meta.DictionaryPageOffset)
	require.Contains(t, meta.Encodings, format.EncodingRLEDictionary)
	require.NotNil(t, meta.Statistics)
	require.NotNil(t, meta.Statistics.DistinctCount)
	require.Equal(t, int64(5), *meta.Statistics.DistinctCount)

	all, err := c.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 200)
	require.Equal(t, "series-0", string(all[0].Value.Bytes()))
}

func TestWriter_DictionaryFallback(t *testing.T) {
	s := flatSchema(t)

	// Every label is distinct, so a 64 byte dictionary overflows during
	// the first page and the chunk falls back to plain encoding.
	records := make([]map[string]any, 100)
	for i := range records {
		records[i] = map[string]any{
			"id":    int64(i),
			"label": fmt.Sprintf("unique-label-%08d", i),
			"value": float64(i),
		}
	}
	data := writeFile(t, s, records, WithDictionarySizeLimit(64))

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(1)
	require.NoError(t, err)

	meta := c.chunk.MetaData
	require.Nil(t, meta.DictionaryPageOffset)
	require.NotContains(t, meta.Encodings, format.EncodingRLEDictionary)
	require.Contains(t, meta.Encodings, format.EncodingPlain)
	require.NotNil(t, meta.Statistics)
	require.Nil(t, meta.Statistics.DistinctCount)

	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestWriter_Statistics(t *testing.T) {
	s := flatSchema(t)
	records := []map[string]any{
		{"id": int64(8), "label": "b", "value": float64(1.5)},
		{"id": int64(3), "label": nil, "value": nil},
		{"id": int64(12), "label": "a", "value": float64(-2)},
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)

	c, err := g.Column(0)
	require.NoError(t, err)
	stats := c.chunk.MetaData.Statistics
	require.NotNil(t, stats)
	require.Equal(t, int64(0), *stats.NullCount)
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int64Value(3)), stats.MinValue)
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int64Value(12)), stats.MaxValue)

	c, err = g.Column(1)
	require.NoError(t, err)
	stats = c.chunk.MetaData.Statistics
	require.NotNil(t, stats)
	require.Equal(t, int64(1), *stats.NullCount)
	require.Equal(t, []byte("a"), stats.MinValue)
	require.Equal(t, []byte("b"), stats.MaxValue)
}

func TestWriter_Statistics_NaN(t *testing.T) {
	s := flatSchema(t)
	records := []map[string]any{
		{"id": int64(1), "label": nil, "value": float64(1)},
		{"id": int64(2), "label": nil, "value": math.NaN()},
		{"id": int64(3), "label": nil, "value": float64(3)},
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(2)
	require.NoError(t, err)

	stats := c.chunk.MetaData.Statistics
	require.NotNil(t, stats)
	require.Equal(t, int64(0), *stats.NullCount)
	require.Nil(t, stats.MinValue)
	require.Nil(t, stats.MaxValue)
}

func TestWriter_WithoutStatistics(t *testing.T) {
	s := flatSchema(t)
	data := writeFile(t, s, flatRecords(10), WithoutStatistics())

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)
	require.Nil(t, c.chunk.MetaData.Statistics)
}

func TestReader_PageIndexes(t *testing.T) {
	s := flatSchema(t)

	records := make([]map[string]any, 35)
	for i := range records {
		records[i] = map[string]any{
			"id":    int64(i),
			"label": fmt.Sprintf("unique-%d", i),
			"value": float64(i),
		}
	}
	data := writeFile(t, s, records, WithPageRowLimit(10))

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)

	offIdx, err := c.ReadOffsetIndex()
	require.NoError(t, err)
	require.Len(t, offIdx.PageLocations, 4)
	for i, loc := range offIdx.PageLocations {
		require.Equal(t, int64(i*10), loc.FirstRowIndex)
	}

	colIdx, err := c.ReadColumnIndex()
	require.NoError(t, err)
	require.Len(t, colIdx.MinValues, 4)
	require.Equal(t, format.BoundaryAscending, colIdx.BoundaryOrder)
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int64Value(0)), colIdx.MinValues[0])
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int64Value(34)), colIdx.MaxValues[3])
	for _, null := range colIdx.NullPages {
		require.False(t, null)
	}

	// Random access through the offset index decodes to the same values
	// as a sequential full-chunk read.
	sequential, err := c.ReadAll()
	require.NoError(t, err)

	var rows int
	var random []encoding.Value
	for _, loc := range offIdx.PageLocations {
		page, err := c.ReadPageAt(loc)
		require.NoError(t, err)
		decoded, err := page.Decode()
		require.NoError(t, err)
		rows += decoded.NumRows
		random = append(random, decoded.Values...)
	}
	require.Equal(t, 35, rows)
	require.Len(t, random, len(sequential))
	for i, lv := range sequential {
		require.Zero(t, encoding.CompareValues(lv.Value, random[i], false))
	}
}

func TestReader_ColumnIndex_NaN(t *testing.T) {
	s := flatSchema(t)
	records := []map[string]any{
		{"id": int64(1), "label": "a", "value": float64(1)},
		{"id": int64(2), "label": "b", "value": math.NaN()},
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)

	// The double column has a non-null page without usable bounds, so the
	// chunk carries no column index; its offset index is unaffected.
	c, err := g.Column(2)
	require.NoError(t, err)
	_, err = c.ReadColumnIndex()
	require.Error(t, err)
	_, err = c.ReadOffsetIndex()
	require.NoError(t, err)

	// Columns without NaN pages keep theirs.
	c, err = g.Column(0)
	require.NoError(t, err)
	idx, err := c.ReadColumnIndex()
	require.NoError(t, err)
	require.Equal(t, []bool{false}, idx.NullPages)
}

func TestReader_PageIndexes_Disabled(t *testing.T) {
	s := flatSchema(t)
	data := writeFile(t, s, flatRecords(10), WithoutPageIndexes())

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)

	_, err = c.ReadColumnIndex()
	require.Error(t, err)
	_, err = c.ReadOffsetIndex()
	require.Error(t, err)
}

func TestReader_BloomFilter(t *testing.T) {
	s := flatSchema(t)

	records := make([]map[string]any, 500)
	for i := range records {
		records[i] = map[string]any{
			"id":    int64(i),
			"label": fmt.Sprintf("series-%d", i),
			"value": float64(i),
		}
	}
	data := writeFile(t, s, records, WithColumnBloomFilter("label", 0.01))

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)

	c, err := g.Column(1)
	require.NoError(t, err)
	filter, err := c.ReadBloomFilter()
	require.NoError(t, err)

	for i := range records {
		v := encoding.StringValue(fmt.Sprintf("series-%d", i))
		require.True(t, filter.Check(bloom.Hash(v)))
	}

	var positives int
	for i := 0; i < 1000; i++ {
		v := encoding.StringValue(fmt.Sprintf("absent-%d", i))
		if filter.Check(bloom.Hash(v)) {
			positives++
		}
	}
	require.Less(t, positives, 100)

	// No filter was requested for the id column.
	c, err = g.Column(0)
	require.NoError(t, err)
	_, err = c.ReadBloomFilter()
	require.Error(t, err)
}

func TestWriter_ColumnOverrides(t *testing.T) {
	s := flatSchema(t)
	data := writeFile(t, s, flatRecords(20),
		WithCodec(format.CodecSnappy),
		WithColumnCodec("value", format.CodecZstd),
		WithColumnEncoding("id", format.EncodingDeltaBinaryPacked),
	)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)

	c, err := g.Column(0)
	require.NoError(t, err)
	require.Contains(t, c.chunk.MetaData.Encodings, format.EncodingDeltaBinaryPacked)

	c, err = g.Column(2)
	require.NoError(t, err)
	require.Equal(t, format.CodecZstd, c.chunk.MetaData.Codec)

	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, flatRecords(20), got)
}

func TestWriter_OptionalInt32Scenario(t *testing.T) {
	s, err := schema.New(schema.Group("root", format.FieldRequired,
		schema.Int32("v", format.FieldOptional),
	))
	require.NoError(t, err)

	records := []map[string]any{
		{"v": int32(1)},
		{"v": nil},
		{"v": int32(3)},
		{"v": nil},
		{"v": nil},
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)

	all, err := c.ReadAll()
	require.NoError(t, err)
	var defs []int
	var values []int32
	for _, lv := range all {
		defs = append(defs, lv.DefinitionLevel)
		if !lv.Value.IsNil() {
			values = append(values, lv.Value.Int32())
		}
	}
	require.Equal(t, []int{1, 0, 1, 0, 0}, defs)
	require.Equal(t, []int32{1, 3}, values)

	stats := c.chunk.MetaData.Statistics
	require.NotNil(t, stats)
	require.Equal(t, int64(3), *stats.NullCount)
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int32Value(1)), stats.MinValue)
	require.Equal(t, encoding.AppendPlain(nil, encoding.Int32Value(3)), stats.MaxValue)
}

func TestWriter_RepeatedStringScenario(t *testing.T) {
	s, err := schema.New(schema.Group("root", format.FieldRequired,
		schema.Group("names", format.FieldOptional,
			schema.String("name", format.FieldRepeated),
		),
	))
	require.NoError(t, err)

	// The empty list and the null group must survive distinctly.
	records := []map[string]any{
		{"names": map[string]any{"name": []any{"a", "b"}}},
		{"names": map[string]any{"name": []any{}}},
		{"names": nil},
	}
	data := writeFile(t, s, records)

	f := openFile(t, data)
	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestWriter_CompressionLevel(t *testing.T) {
	s := flatSchema(t)
	records := flatRecords(50)
	data := writeFile(t, s, records,
		WithCompression(compress.Gzip{Level: 9}),
		WithColumnCompression("value", compress.Zstd{Level: zstd.SpeedBestCompression}),
	)

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)
	require.Equal(t, format.CodecGzip, c.chunk.MetaData.Codec)
	c, err = g.Column(2)
	require.NoError(t, err)
	require.Equal(t, format.CodecZstd, c.chunk.MetaData.Codec)

	got, err := f.ReadRowGroupRecords(0)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestWriter_EmptyFile(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, flatSchema(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f := openFile(t, buf.Bytes())
	require.Equal(t, int64(0), f.NumRows())
	require.Equal(t, 0, f.NumRowGroups())
}

func TestWriter_UsageErrors(t *testing.T) {
	s := flatSchema(t)

	t.Run("write after close", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, s)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = w.AppendRowGroup()
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
	})

	t.Run("unclosed row group", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, s)
		require.NoError(t, err)
		_, err = w.AppendRowGroup()
		require.NoError(t, err)

		_, err = w.AppendRowGroup()
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
	})

	t.Run("row count mismatch", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, s)
		require.NoError(t, err)
		g, err := w.AppendRowGroup()
		require.NoError(t, err)

		c, err := g.AppendColumnChunk()
		require.NoError(t, err)
		require.NoError(t, c.Write([]schema.LeveledValue{
			{Value: encoding.Int64Value(1)},
			{Value: encoding.Int64Value(2)},
		}))
		require.NoError(t, c.Close())

		c, err = g.AppendColumnChunk()
		require.NoError(t, err)
		require.NoError(t, c.Write([]schema.LeveledValue{
			{DefinitionLevel: 1, Value: encoding.StringValue("only one")},
		}))
		err = c.Close()
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
	})

	t.Run("too many column chunks", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, s)
		require.NoError(t, err)
		g, err := w.AppendRowGroup()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			c, err := g.AppendColumnChunk()
			require.NoError(t, err)
			var values []schema.LeveledValue
			if i == 0 {
				values = []schema.LeveledValue{{Value: encoding.Int64Value(1)}}
			} else {
				values = []schema.LeveledValue{{DefinitionLevel: 0}}
			}
			require.NoError(t, c.Write(values))
			require.NoError(t, c.Close())
		}

		_, err = g.AppendColumnChunk()
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
	})

	t.Run("wrong value type", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, s)
		require.NoError(t, err)
		g, err := w.AppendRowGroup()
		require.NoError(t, err)
		c, err := g.AppendColumnChunk()
		require.NoError(t, err)

		err = c.Write([]schema.LeveledValue{{Value: encoding.StringValue("no")}})
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
	})
}

func TestOpenReader_CorruptFooter(t *testing.T) {
	valid := writeFile(t, flatSchema(t), flatRecords(5))

	corrupt := func(mutate func([]byte) []byte) []byte {
		data := append([]byte(nil), valid...)
		return mutate(data)
	}

	for _, tt := range []struct {
		name string
		data []byte
	}{
		{"too small", []byte("PAR1PAR")},
		{"bad leading magic", corrupt(func(d []byte) []byte {
			d[0] = 'X'
			return d
		})},
		{"bad trailing magic", corrupt(func(d []byte) []byte {
			d[len(d)-1] = 'X'
			return d
		})},
		{"footer length overflow", corrupt(func(d []byte) []byte {
			d[len(d)-8] = 0xff
			d[len(d)-7] = 0xff
			return d
		})},
		{"truncated footer", corrupt(func(d []byte) []byte {
			// Drop bytes from the middle so the trailer parses but the
			// metadata does not.
			return append(d[:len(d)-40], d[len(d)-12:]...)
		})},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenReader(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.ErrorIs(t, err, ErrCorruptFooter)
		})
	}
}

func TestReader_CorruptPage(t *testing.T) {
	s := flatSchema(t)
	data := writeFile(t, s, flatRecords(10), WithCodec(format.CodecUncompressed))

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(0)
	require.NoError(t, err)
	offIdx, err := c.ReadOffsetIndex()
	require.NoError(t, err)
	loc := offIdx.PageLocations[0]

	// Flip the last body byte of the first data page.
	data[loc.Offset+int64(loc.CompressedPageSize)-1] ^= 0xff

	f = openFile(t, data)
	g, err = f.RowGroup(0)
	require.NoError(t, err)
	c, err = g.Column(0)
	require.NoError(t, err)
	page, err := c.ReadPageAt(loc)
	require.NoError(t, err)
	_, err = page.Decode()
	require.ErrorIs(t, err, ErrCorruptPage)
}

func TestReader_SequentialPages(t *testing.T) {
	s := flatSchema(t)
	records := flatRecords(45)
	data := writeFile(t, s, records, WithPageRowLimit(20))

	f := openFile(t, data)
	g, err := f.RowGroup(0)
	require.NoError(t, err)
	c, err := g.Column(2)
	require.NoError(t, err)

	var pages, values int
	iter := c.Pages()
	for {
		page, err := iter.Next()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		pages++
		values += page.NumValues()
	}
	require.Equal(t, 3, pages)
	require.Equal(t, 45, values)
}
