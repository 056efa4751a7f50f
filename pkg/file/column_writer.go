package file

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"slices"
	"strings"

	"github.com/axiomhq/hyperloglog"
	"github.com/go-kit/log/level"

	"github.com/grafana/parquet/pkg/bloom"
	"github.com/grafana/parquet/pkg/compress"
	"github.com/grafana/parquet/pkg/encoding"
	"github.com/grafana/parquet/pkg/format"
	"github.com/grafana/parquet/pkg/schema"
)

// A memPage is one encoded, compressed data page buffered until the chunk
// closes. Pages are buffered because the dictionary page, whose contents
// are only known once the whole chunk is seen, must precede them in the
// file.
type memPage struct {
	header format.PageHeader
	body   []byte

	numRows   int64
	nullCount int64
	nullPage  bool
	min, max  encoding.Value // zero when the page has no bounds
	hasBounds bool
}

// A ColumnChunkWriter encodes one column chunk of a row group. Values
// arrive as level entries in record order; pages flush on row-count or
// size thresholds, always at record boundaries.
type ColumnChunkWriter struct {
	fw   *Writer
	rg   *RowGroupWriter
	col  *schema.Column
	path string

	codec    compress.Codec
	plainEnc format.Encoding // encoding of non-dictionary data pages
	useDict  bool
	dict     *encoding.Dictionary
	bloomFPP float64
	bloomNDV int64

	// Current page buffers. values holds non-null values only; indexes
	// mirrors it while dictionary encoding is active.
	reps, defs  []int
	values      []encoding.Value
	indexes     []int32
	pageRows    int64
	approxBytes int
	pageNaN     bool

	// Chunk accumulators.
	pages       []*memPage
	dictPages   int
	fellBack    bool
	totalRows   int64
	totalValues int64
	totalNulls  int64
	chunkMin    encoding.Value
	chunkMax    encoding.Value
	hasBounds   bool
	chunkNaN    bool
	hll         *hyperloglog.Sketch
	hashes      []uint64
	closed      bool
}

func newColumnChunkWriter(fw *Writer, rg *RowGroupWriter, col *schema.Column) (*ColumnChunkWriter, error) {
	path := strings.Join(col.Path, ".")
	override := fw.opts.columns[path]

	var codec compress.Codec
	var err error
	switch {
	case override != nil && override.codecImpl != nil:
		codec = override.codecImpl
	case override != nil && override.codec != nil:
		if codec, err = compress.Lookup(*override.codec); err != nil {
			return nil, fmt.Errorf("column %s: %w", path, err)
		}
	case fw.opts.codecImpl != nil:
		codec = fw.opts.codecImpl
	default:
		if codec, err = compress.Lookup(fw.opts.codec); err != nil {
			return nil, fmt.Errorf("column %s: %w", path, err)
		}
	}

	c := &ColumnChunkWriter{
		fw:       fw,
		rg:       rg,
		col:      col,
		path:     path,
		codec:    codec,
		plainEnc: format.EncodingPlain,
		bloomFPP: fw.opts.bloomFPP,
	}

	switch {
	case override != nil && override.encoding != nil:
		switch enc := *override.encoding; enc {
		case format.EncodingRLEDictionary, format.EncodingPlainDictionary:
			c.useDict = true
		default:
			if !encoding.CanEncode(col.PhysicalType, enc) {
				return nil, fmt.Errorf("column %s: %w: %s for %s", path, ErrUnsupportedEncoding, enc, col.PhysicalType)
			}
			c.plainEnc = enc
		}
	case col.PhysicalType == format.TypeBoolean:
		// Boolean dictionaries never pay off.
	default:
		c.useDict = true
	}

	if c.useDict {
		c.dict = encoding.NewDictionary(col.PhysicalType)
	}
	if override != nil {
		if override.bloomFPP != nil {
			c.bloomFPP = *override.bloomFPP
		}
		c.bloomNDV = override.bloomNDV
	}
	if c.hll, err = hyperloglog.NewSketch(12, true); err != nil {
		return nil, fmt.Errorf("column %s: creating distinct-count sketch: %w", path, err)
	}
	return c, nil
}

// Column returns the column this writer encodes.
func (c *ColumnChunkWriter) Column() *schema.Column { return c.col }

// Write appends level entries to the chunk. Entries must arrive in record
// order; an entry with repetition level 0 starts a new record.
func (c *ColumnChunkWriter) Write(values []schema.LeveledValue) error {
	if c.closed {
		return usagef("column %s: write to closed column chunk", c.path)
	}

	for _, lv := range values {
		if lv.RepetitionLevel < 0 || lv.RepetitionLevel > c.col.MaxRepetitionLevel {
			return usagef("column %s: repetition level %d out of range [0, %d]", c.path, lv.RepetitionLevel, c.col.MaxRepetitionLevel)
		}
		if lv.DefinitionLevel < 0 || lv.DefinitionLevel > c.col.MaxDefinitionLevel {
			return usagef("column %s: definition level %d out of range [0, %d]", c.path, lv.DefinitionLevel, c.col.MaxDefinitionLevel)
		}

		if lv.RepetitionLevel == 0 {
			if c.pageFull() {
				if err := c.flushPage(); err != nil {
					return err
				}
			}
			c.pageRows++
			c.totalRows++
		} else if c.totalValues == 0 && len(c.defs) == 0 {
			return usagef("column %s: first entry of a chunk must start a record", c.path)
		}

		c.reps = append(c.reps, lv.RepetitionLevel)
		c.defs = append(c.defs, lv.DefinitionLevel)
		c.totalValues++
		c.approxBytes += levelWidth(c.col.MaxRepetitionLevel) + levelWidth(c.col.MaxDefinitionLevel)

		if lv.DefinitionLevel < c.col.MaxDefinitionLevel {
			c.totalNulls++
			continue
		}
		if err := c.appendValue(lv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (c *ColumnChunkWriter) appendValue(v encoding.Value) error {
	if v.IsNil() {
		return usagef("column %s: entry at maximum definition level has no value", c.path)
	}
	if v.Type() != c.col.PhysicalType {
		return usagef("column %s: got %s value, want %s", c.path, v.Type(), c.col.PhysicalType)
	}
	if c.col.PhysicalType == format.TypeFixedLenByteArray && len(v.Bytes()) != c.col.TypeLength {
		return usagef("column %s: got %d byte value, want %d", c.path, len(v.Bytes()), c.col.TypeLength)
	}

	v = v.Clone()
	if c.useDict {
		idx := c.dict.Index(v)
		if c.dict.PlainSize() > c.fw.opts.dictSizeLimit {
			c.fallback()
		} else {
			c.indexes = append(c.indexes, int32(idx))
		}
	}
	c.values = append(c.values, v)

	plain := encoding.AppendPlain(nil, v)
	c.approxBytes += len(plain)
	c.hll.Insert(plain)
	if c.bloomFPP > 0 {
		c.hashes = append(c.hashes, bloom.Hash(v))
	}

	if v.IsNaN() {
		c.pageNaN = true
		c.chunkNaN = true
		return nil
	}
	unsigned := c.col.Unsigned()
	if !c.hasBounds || encoding.CompareValues(v, c.chunkMin, unsigned) < 0 {
		c.chunkMin = v
	}
	if !c.hasBounds || encoding.CompareValues(v, c.chunkMax, unsigned) > 0 {
		c.chunkMax = v
	}
	c.hasBounds = true
	return nil
}

// fallback abandons dictionary encoding for the rest of the chunk. Pages
// already flushed keep their dictionary encoding and the dictionary page
// is still written for them; when no page was flushed yet, the dictionary
// is dropped entirely.
func (c *ColumnChunkWriter) fallback() {
	c.useDict = false
	c.fellBack = true
	c.indexes = nil
	if c.dictPages == 0 {
		c.dict = nil
	}
	c.fw.metrics.dictionaryFallbacks.Inc()
	level.Debug(c.fw.logger).Log(
		"msg", "dictionary size limit exceeded, falling back to plain encoding",
		"column", c.path,
		"limit", c.fw.opts.dictSizeLimit,
	)
}

func (c *ColumnChunkWriter) pageFull() bool {
	return c.pageRows >= int64(c.fw.opts.pageRowLimit) || c.approxBytes >= c.fw.opts.pageSizeLimit
}

func (c *ColumnChunkWriter) flushPage() error {
	if len(c.defs) == 0 {
		return nil
	}

	numValues := len(c.defs)
	nullCount := int64(numValues - len(c.values))
	nullPage := len(c.values) == 0

	var valueBuf bytes.Buffer
	pageEnc := c.plainEnc
	if c.useDict && c.dict != nil {
		pageEnc = format.EncodingRLEDictionary
		if err := c.dict.EncodeIndexes(&valueBuf, c.indexes); err != nil {
			return fmt.Errorf("column %s: encoding dictionary indexes: %w", c.path, err)
		}
		c.dictPages++
	} else {
		enc, ok := encoding.NewValueEncoder(c.col.PhysicalType, pageEnc, &valueBuf, encoding.Config{TypeLength: c.col.TypeLength})
		if !ok {
			return fmt.Errorf("column %s: %w: %s for %s", c.path, ErrUnsupportedEncoding, pageEnc, c.col.PhysicalType)
		}
		for _, v := range c.values {
			if err := enc.Encode(v); err != nil {
				return fmt.Errorf("column %s: encoding values: %w", c.path, err)
			}
		}
		if err := enc.Flush(); err != nil {
			return fmt.Errorf("column %s: encoding values: %w", c.path, err)
		}
	}

	page := &memPage{
		numRows:   c.pageRows,
		nullCount: nullCount,
		nullPage:  nullPage,
	}
	if !nullPage && !c.pageNaN {
		unsigned := c.col.Unsigned()
		page.min, page.max = c.values[0], c.values[0]
		for _, v := range c.values[1:] {
			if encoding.CompareValues(v, page.min, unsigned) < 0 {
				page.min = v
			}
			if encoding.CompareValues(v, page.max, unsigned) > 0 {
				page.max = v
			}
		}
		page.hasBounds = true
	}

	var stats *format.Statistics
	if c.fw.opts.statistics {
		stats = &format.Statistics{NullCount: &nullCount}
		if page.hasBounds {
			stats.MinValue = encoding.AppendPlain(nil, page.min)
			stats.MaxValue = encoding.AppendPlain(nil, page.max)
		}
	}

	if err := c.assemblePage(page, &valueBuf, numValues, int32(nullCount), pageEnc, stats); err != nil {
		return err
	}
	c.pages = append(c.pages, page)

	c.reps = c.reps[:0]
	c.defs = c.defs[:0]
	c.values = c.values[:0]
	c.indexes = c.indexes[:0]
	c.pageRows = 0
	c.approxBytes = 0
	c.pageNaN = false
	return nil
}

// assemblePage frames the encoded levels and values into a v1 or v2 data
// page, filling page.header and page.body.
func (c *ColumnChunkWriter) assemblePage(page *memPage, valueBuf *bytes.Buffer, numValues int, numNulls int32, pageEnc format.Encoding, stats *format.Statistics) error {
	if c.fw.opts.dataPageVersion == 1 {
		var raw bytes.Buffer
		if c.col.MaxRepetitionLevel > 0 {
			b, err := encodeLevels(c.reps, c.col.MaxRepetitionLevel, true)
			if err != nil {
				return err
			}
			raw.Write(b)
		}
		if c.col.MaxDefinitionLevel > 0 {
			b, err := encodeLevels(c.defs, c.col.MaxDefinitionLevel, true)
			if err != nil {
				return err
			}
			raw.Write(b)
		}
		raw.Write(valueBuf.Bytes())

		compressed, err := c.codec.Encode(nil, raw.Bytes())
		if err != nil {
			return fmt.Errorf("column %s: %w", c.path, err)
		}
		page.body = compressed
		page.header = format.PageHeader{
			Type:                 format.PageTypeData,
			UncompressedPageSize: int32(raw.Len()),
			CompressedPageSize:   int32(len(compressed)),
			CRC:                  pageCRC(compressed),
			DataPageHeader: &format.DataPageHeader{
				NumValues:               int32(numValues),
				Encoding:                pageEnc,
				DefinitionLevelEncoding: format.EncodingRLE,
				RepetitionLevelEncoding: format.EncodingRLE,
				Statistics:              stats,
			},
		}
		return nil
	}

	var repB, defB []byte
	var err error
	if c.col.MaxRepetitionLevel > 0 {
		if repB, err = encodeLevels(c.reps, c.col.MaxRepetitionLevel, false); err != nil {
			return err
		}
	}
	if c.col.MaxDefinitionLevel > 0 {
		if defB, err = encodeLevels(c.defs, c.col.MaxDefinitionLevel, false); err != nil {
			return err
		}
	}
	compressed, err := c.codec.Encode(nil, valueBuf.Bytes())
	if err != nil {
		return fmt.Errorf("column %s: %w", c.path, err)
	}

	body := make([]byte, 0, len(repB)+len(defB)+len(compressed))
	body = append(body, repB...)
	body = append(body, defB...)
	body = append(body, compressed...)

	page.body = body
	page.header = format.PageHeader{
		Type:                 format.PageTypeDataV2,
		UncompressedPageSize: int32(len(repB) + len(defB) + valueBuf.Len()),
		CompressedPageSize:   int32(len(body)),
		CRC:                  pageCRC(body),
		DataPageHeaderV2: &format.DataPageHeaderV2{
			NumValues:                  int32(numValues),
			NumNulls:                   numNulls,
			NumRows:                    int32(page.numRows),
			Encoding:                   pageEnc,
			DefinitionLevelsByteLength: int32(len(defB)),
			RepetitionLevelsByteLength: int32(len(repB)),
			Statistics:                 stats,
		},
	}
	return nil
}

func pageCRC(body []byte) *int32 {
	v := int32(crc32.ChecksumIEEE(body))
	return &v
}

// Close flushes the final page, writes the chunk's pages to the file and
// finalizes its metadata. No writes are accepted afterwards.
func (c *ColumnChunkWriter) Close() error {
	if c.closed {
		return usagef("column %s: column chunk closed twice", c.path)
	}
	if err := c.flushPage(); err != nil {
		return err
	}
	c.closed = true

	var (
		dictOffset *int64
		err        error
	)
	if c.dict != nil && c.dict.Len() > 0 && c.dictPages > 0 {
		if dictOffset, err = c.writeDictPage(); err != nil {
			return err
		}
	}

	dataOffset := c.fw.offset
	locations := make([]format.PageLocation, 0, len(c.pages))
	var firstRow int64
	for _, p := range c.pages {
		off := c.fw.offset
		if err := c.fw.writePage(p.header, p.body); err != nil {
			return err
		}
		locations = append(locations, format.PageLocation{
			Offset:             off,
			CompressedPageSize: int32(c.fw.offset - off),
			FirstRowIndex:      firstRow,
		})
		firstRow += p.numRows
	}

	meta := c.buildMetaData(dictOffset, dataOffset)
	chunk := format.ColumnChunk{
		FileOffset: dataOffset,
		MetaData:   meta,
	}

	var colIdx *format.ColumnIndex
	var offIdx *format.OffsetIndex
	if c.fw.opts.pageIndexes {
		colIdx = c.buildColumnIndex()
		offIdx = &format.OffsetIndex{PageLocations: locations}
	}

	var filter *bloom.Filter
	if c.bloomFPP > 0 && len(c.hashes) > 0 {
		filter = c.buildBloomFilter()
	}

	if err := c.rg.finishChunk(chunk, colIdx, offIdx, filter, c.totalRows); err != nil {
		return err
	}
	level.Debug(c.fw.logger).Log(
		"msg", "closed column chunk",
		"column", c.path,
		"rows", c.totalRows,
		"values", c.totalValues,
		"pages", len(c.pages),
		"dictionary", dictOffset != nil,
	)
	return nil
}

func (c *ColumnChunkWriter) writeDictPage() (*int64, error) {
	var raw bytes.Buffer
	if err := c.dict.EncodePage(&raw); err != nil {
		return nil, fmt.Errorf("column %s: encoding dictionary page: %w", c.path, err)
	}
	compressed, err := c.codec.Encode(nil, raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", c.path, err)
	}

	header := format.PageHeader{
		Type:                 format.PageTypeDictionary,
		UncompressedPageSize: int32(raw.Len()),
		CompressedPageSize:   int32(len(compressed)),
		CRC:                  pageCRC(compressed),
		DictionaryPageHeader: &format.DictionaryPageHeader{
			NumValues: int32(c.dict.Len()),
			Encoding:  format.EncodingPlain,
		},
	}

	off := c.fw.offset
	if err := c.fw.writePage(header, compressed); err != nil {
		return nil, err
	}
	return &off, nil
}

func (c *ColumnChunkWriter) buildMetaData(dictOffset *int64, dataOffset int64) *format.ColumnMetaData {
	meta := &format.ColumnMetaData{
		Type:                 c.col.PhysicalType,
		PathInSchema:         c.col.Path,
		Codec:                c.codec.CompressionCodec(),
		NumValues:            c.totalValues,
		DataPageOffset:       dataOffset,
		DictionaryPageOffset: dictOffset,
	}

	encodings := map[format.Encoding]struct{}{}
	encStats := map[format.PageEncodingStats]int32{}
	if c.col.MaxRepetitionLevel > 0 || c.col.MaxDefinitionLevel > 0 {
		encodings[format.EncodingRLE] = struct{}{}
	}
	if dictOffset != nil {
		encodings[format.EncodingPlain] = struct{}{}
		encStats[format.PageEncodingStats{PageType: format.PageTypeDictionary, Encoding: format.EncodingPlain}]++
	}
	pageType := format.PageTypeData
	if c.fw.opts.dataPageVersion == 2 {
		pageType = format.PageTypeDataV2
	}
	for _, p := range c.pages {
		enc := pageEncoding(p.header)
		encodings[enc] = struct{}{}
		encStats[format.PageEncodingStats{PageType: pageType, Encoding: enc}]++
		meta.TotalUncompressedSize += int64(p.header.UncompressedPageSize)
	}
	// Compressed size spans headers too, so derive it from file offsets.
	if dictOffset != nil {
		meta.TotalCompressedSize = c.fw.offset - *dictOffset
	} else {
		meta.TotalCompressedSize = c.fw.offset - dataOffset
	}
	for enc := range encodings {
		meta.Encodings = append(meta.Encodings, enc)
	}
	slices.Sort(meta.Encodings)
	for key, count := range encStats {
		meta.EncodingStats = append(meta.EncodingStats, format.PageEncodingStats{
			PageType: key.PageType,
			Encoding: key.Encoding,
			Count:    count,
		})
	}
	slices.SortFunc(meta.EncodingStats, func(a, b format.PageEncodingStats) int {
		if a.PageType != b.PageType {
			return int(a.PageType) - int(b.PageType)
		}
		return int(a.Encoding) - int(b.Encoding)
	})

	if c.fw.opts.statistics {
		meta.Statistics = c.buildStatistics()
	}
	return meta
}

func (c *ColumnChunkWriter) buildStatistics() *format.Statistics {
	nulls := c.totalNulls
	stats := &format.Statistics{NullCount: &nulls}
	if c.hasBounds && !c.chunkNaN {
		stats.MinValue = encoding.AppendPlain(nil, c.chunkMin)
		stats.MaxValue = encoding.AppendPlain(nil, c.chunkMax)
	}

	// The distinct count is exact while the dictionary covers the whole
	// chunk, estimated otherwise, and unknown once a fallback mixed
	// encodings mid-chunk.
	switch {
	case c.fellBack:
	case c.dict != nil:
		distinct := int64(c.dict.Len())
		stats.DistinctCount = &distinct
	case c.totalValues > c.totalNulls:
		distinct := int64(c.hll.Estimate())
		stats.DistinctCount = &distinct
	}
	return stats
}

// buildColumnIndex returns nil when any non-null page has no usable
// bounds (NaN values). Readers take empty bounds as meaningful only on
// null pages, so such a chunk carries no column index at all.
func (c *ColumnChunkWriter) buildColumnIndex() *format.ColumnIndex {
	idx := &format.ColumnIndex{BoundaryOrder: format.BoundaryUnordered}
	for _, p := range c.pages {
		if !p.hasBounds && !p.nullPage {
			return nil
		}
		idx.NullPages = append(idx.NullPages, p.nullPage)
		idx.NullCounts = append(idx.NullCounts, p.nullCount)
		if p.hasBounds {
			idx.MinValues = append(idx.MinValues, encoding.AppendPlain(nil, p.min))
			idx.MaxValues = append(idx.MaxValues, encoding.AppendPlain(nil, p.max))
		} else {
			idx.MinValues = append(idx.MinValues, []byte{})
			idx.MaxValues = append(idx.MaxValues, []byte{})
		}
	}
	idx.BoundaryOrder = c.boundaryOrder()
	return idx
}

func (c *ColumnChunkWriter) boundaryOrder() format.BoundaryOrder {
	unsigned := c.col.Unsigned()
	ascending, descending := true, true
	var prev *memPage
	for _, p := range c.pages {
		if !p.hasBounds {
			return format.BoundaryUnordered
		}
		if prev != nil {
			if encoding.CompareValues(p.min, prev.min, unsigned) < 0 || encoding.CompareValues(p.max, prev.max, unsigned) < 0 {
				ascending = false
			}
			if encoding.CompareValues(p.min, prev.min, unsigned) > 0 || encoding.CompareValues(p.max, prev.max, unsigned) > 0 {
				descending = false
			}
		}
		prev = p
	}
	switch {
	case ascending:
		return format.BoundaryAscending
	case descending:
		return format.BoundaryDescending
	default:
		return format.BoundaryUnordered
	}
}

func (c *ColumnChunkWriter) buildBloomFilter() *bloom.Filter {
	var ndv int64
	switch {
	case c.bloomNDV > 0:
		ndv = c.bloomNDV
	case c.dict != nil && !c.fellBack:
		ndv = int64(c.dict.Len())
	default:
		ndv = int64(c.hll.Estimate())
	}
	filter := bloom.NewFilter(bloom.NumBytes(ndv, c.bloomFPP))
	for _, h := range c.hashes {
		filter.Insert(h)
	}
	return filter
}

func pageEncoding(h format.PageHeader) format.Encoding {
	if h.DataPageHeaderV2 != nil {
		return h.DataPageHeaderV2.Encoding
	}
	return h.DataPageHeader.Encoding
}
