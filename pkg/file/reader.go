package file

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/parquet/pkg/bloom"
	"github.com/grafana/parquet/pkg/compress"
	"github.com/grafana/parquet/pkg/encoding"
	"github.com/grafana/parquet/pkg/format"
	"github.com/grafana/parquet/pkg/schema"
)

// A Reader reads a Parquet file from an io.ReaderAt. The footer is parsed
// once at open; row groups and column chunks are then addressable at
// random. A Reader is safe for concurrent use as long as the underlying
// io.ReaderAt is.
type Reader struct {
	r      io.ReaderAt
	size   int64
	meta   *format.FileMetaData
	schema *schema.Schema
	logger log.Logger
}

// OpenReader parses the trailer and footer of a file. Bad magic bytes, an
// impossible footer length or undecodable metadata fail with an error
// wrapping [ErrCorruptFooter].
func OpenReader(r io.ReaderAt, size int64, opts ...ReaderOption) (*Reader, error) {
	options := readerOptions{logger: log.NewNopLogger()}
	for _, o := range opts {
		o(&options)
	}

	if size < int64(2*len(Magic)+4) {
		return nil, fmt.Errorf("%w: file of %d bytes is too small", ErrCorruptFooter, size)
	}

	head := make([]byte, len(Magic))
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("reading leading magic: %w", err)
	}
	if string(head) != Magic {
		return nil, fmt.Errorf("%w: bad leading magic %q", ErrCorruptFooter, head)
	}

	tail := make([]byte, 8)
	if _, err := r.ReadAt(tail, size-8); err != nil {
		return nil, fmt.Errorf("reading trailer: %w", err)
	}
	if string(tail[4:]) != Magic {
		return nil, fmt.Errorf("%w: bad trailing magic %q", ErrCorruptFooter, tail[4:])
	}

	footerLen := int64(binary.LittleEndian.Uint32(tail))
	footerStart := size - 8 - footerLen
	if footerStart < int64(len(Magic)) {
		return nil, fmt.Errorf("%w: footer of %d bytes exceeds file size %d", ErrCorruptFooter, footerLen, size)
	}

	footer := make([]byte, footerLen)
	if _, err := r.ReadAt(footer, footerStart); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	meta := new(format.FileMetaData)
	if err := format.Unmarshal(meta, footer); err != nil {
		return nil, fmt.Errorf("%w: deserializing metadata: %v", ErrCorruptFooter, err)
	}

	s, err := schema.FromElements(meta.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFooter, err)
	}

	level.Debug(options.logger).Log(
		"msg", "opened file",
		"rows", meta.NumRows,
		"row_groups", len(meta.RowGroups),
		"columns", len(s.Columns()),
	)
	return &Reader{r: r, size: size, meta: meta, schema: s, logger: options.logger}, nil
}

// Schema returns the file's schema.
func (f *Reader) Schema() *schema.Schema { return f.schema }

// Metadata returns the deserialized footer.
func (f *Reader) Metadata() *format.FileMetaData { return f.meta }

// NumRows returns the total number of records in the file.
func (f *Reader) NumRows() int64 { return f.meta.NumRows }

// NumRowGroups returns the number of row groups in the file.
func (f *Reader) NumRowGroups() int { return len(f.meta.RowGroups) }

// RowGroup returns a reader over row group i.
func (f *Reader) RowGroup(i int) (*RowGroupReader, error) {
	if i < 0 || i >= len(f.meta.RowGroups) {
		return nil, usagef("row group %d out of range [0, %d)", i, len(f.meta.RowGroups))
	}
	return &RowGroupReader{f: f, meta: &f.meta.RowGroups[i], ordinal: i}, nil
}

// ReadRowGroupRecords decodes every column of row group i and assembles
// the records.
func (f *Reader) ReadRowGroupRecords(i int) ([]map[string]any, error) {
	g, err := f.RowGroup(i)
	if err != nil {
		return nil, err
	}

	columns := make([][]schema.LeveledValue, len(f.schema.Columns()))
	for j := range columns {
		c, err := g.Column(j)
		if err != nil {
			return nil, err
		}
		if columns[j], err = c.ReadAll(); err != nil {
			return nil, err
		}
	}
	return f.schema.Reconstruct(columns)
}

// A RowGroupReader addresses the column chunks of one row group.
type RowGroupReader struct {
	f       *Reader
	meta    *format.RowGroup
	ordinal int
}

// NumRows returns the number of records in the row group.
func (g *RowGroupReader) NumRows() int64 { return g.meta.NumRows }

// NumColumns returns the number of column chunks in the row group.
func (g *RowGroupReader) NumColumns() int { return len(g.meta.Columns) }

// Column returns a reader over the chunk of leaf column i.
func (g *RowGroupReader) Column(i int) (*ColumnChunkReader, error) {
	if i < 0 || i >= len(g.meta.Columns) {
		return nil, usagef("column %d out of range [0, %d)", i, len(g.meta.Columns))
	}
	chunk := &g.meta.Columns[i]
	if chunk.MetaData == nil {
		return nil, fmt.Errorf("%w: column chunk %d has no metadata", ErrCorruptFooter, i)
	}
	codec, err := compress.Lookup(chunk.MetaData.Codec)
	if err != nil {
		return nil, err
	}
	return &ColumnChunkReader{
		f:     g.f,
		col:   g.f.schema.Column(i),
		chunk: chunk,
		codec: codec,
	}, nil
}

// A ColumnChunkReader decodes the pages of one column chunk, either
// sequentially through [ColumnChunkReader.Pages] or at random through an
// offset index and [ColumnChunkReader.ReadPageAt].
type ColumnChunkReader struct {
	f     *Reader
	col   *schema.Column
	chunk *format.ColumnChunk
	codec compress.Codec

	dict       []encoding.Value
	dictLoaded bool
}

// Column returns the column this reader decodes.
func (c *ColumnChunkReader) Column() *schema.Column { return c.col }

func (c *ColumnChunkReader) path() string { return strings.Join(c.col.Path, ".") }

// chunkStart returns the offset of the chunk's first page.
func (c *ColumnChunkReader) chunkStart() int64 {
	if d := c.chunk.MetaData.DictionaryPageOffset; d != nil {
		return *d
	}
	return c.chunk.MetaData.DataPageOffset
}

// Pages returns a sequential iterator over the chunk's data pages. A
// leading dictionary page is decoded transparently.
func (c *ColumnChunkReader) Pages() *Pages {
	start := c.chunkStart()
	return &Pages{
		c:         c,
		sr:        io.NewSectionReader(c.f.r, start, c.chunk.MetaData.TotalCompressedSize),
		remaining: c.chunk.MetaData.NumValues,
	}
}

// Pages iterates over the data pages of a column chunk in file order.
type Pages struct {
	c         *ColumnChunkReader
	sr        *io.SectionReader
	remaining int64
}

// Next returns the next data page, or io.EOF after the last one.
func (p *Pages) Next() (*Page, error) {
	for {
		if p.remaining <= 0 {
			return nil, io.EOF
		}

		var header format.PageHeader
		if err := format.Read(&header, p.sr); err != nil {
			return nil, fmt.Errorf("%w: column %s: reading page header: %v", ErrCorruptPage, p.c.path(), err)
		}
		if header.CompressedPageSize < 0 {
			return nil, fmt.Errorf("%w: column %s: negative page size", ErrCorruptPage, p.c.path())
		}
		body := make([]byte, header.CompressedPageSize)
		if _, err := io.ReadFull(p.sr, body); err != nil {
			return nil, fmt.Errorf("%w: column %s: reading page body: %v", ErrCorruptPage, p.c.path(), err)
		}

		switch header.Type {
		case format.PageTypeDictionary:
			if err := p.c.setDictionary(header, body); err != nil {
				return nil, err
			}
		case format.PageTypeData, format.PageTypeDataV2:
			if err := checkDataHeader(header, p.c.path()); err != nil {
				return nil, err
			}
			page := &Page{c: p.c, header: header, body: body}
			p.remaining -= int64(page.NumValues())
			return page, nil
		default:
			return nil, fmt.Errorf("%w: column %s: unexpected page type %s", ErrCorruptPage, p.c.path(), header.Type)
		}
	}
}

func (c *ColumnChunkReader) setDictionary(header format.PageHeader, body []byte) error {
	if err := checkCRC(header, body, c.path()); err != nil {
		return err
	}
	raw, err := c.codec.Decode(make([]byte, header.UncompressedPageSize), body)
	if err != nil {
		return fmt.Errorf("%w: column %s: %v", ErrCorruptPage, c.path(), err)
	}
	dh := header.DictionaryPageHeader
	if dh == nil {
		return fmt.Errorf("%w: column %s: dictionary page without dictionary header", ErrCorruptPage, c.path())
	}
	dict, err := encoding.DecodeDictionary(c.col.PhysicalType, raw, int(dh.NumValues), encoding.Config{TypeLength: c.col.TypeLength})
	if err != nil {
		return fmt.Errorf("%w: column %s: %v", ErrCorruptPage, c.path(), err)
	}
	c.dict = dict
	c.dictLoaded = true
	return nil
}

// loadDictionary reads the chunk's dictionary page, if any, for random
// page access.
func (c *ColumnChunkReader) loadDictionary() error {
	if c.dictLoaded || c.chunk.MetaData.DictionaryPageOffset == nil {
		return nil
	}
	sr := io.NewSectionReader(c.f.r, *c.chunk.MetaData.DictionaryPageOffset, c.chunk.MetaData.TotalCompressedSize)

	var header format.PageHeader
	if err := format.Read(&header, sr); err != nil {
		return fmt.Errorf("%w: column %s: reading dictionary page header: %v", ErrCorruptPage, c.path(), err)
	}
	if header.Type != format.PageTypeDictionary {
		return fmt.Errorf("%w: column %s: expected dictionary page, got %s", ErrCorruptPage, c.path(), header.Type)
	}
	body := make([]byte, header.CompressedPageSize)
	if _, err := io.ReadFull(sr, body); err != nil {
		return fmt.Errorf("%w: column %s: reading dictionary page body: %v", ErrCorruptPage, c.path(), err)
	}
	return c.setDictionary(header, body)
}

// ReadPageAt reads one data page located by an offset index entry.
func (c *ColumnChunkReader) ReadPageAt(loc format.PageLocation) (*Page, error) {
	if err := c.loadDictionary(); err != nil {
		return nil, err
	}

	sr := io.NewSectionReader(c.f.r, loc.Offset, int64(loc.CompressedPageSize))
	var header format.PageHeader
	if err := format.Read(&header, sr); err != nil {
		return nil, fmt.Errorf("%w: column %s: reading page header: %v", ErrCorruptPage, c.path(), err)
	}
	if header.Type != format.PageTypeData && header.Type != format.PageTypeDataV2 {
		return nil, fmt.Errorf("%w: column %s: expected data page, got %s", ErrCorruptPage, c.path(), header.Type)
	}
	if err := checkDataHeader(header, c.path()); err != nil {
		return nil, err
	}
	body := make([]byte, header.CompressedPageSize)
	if _, err := io.ReadFull(sr, body); err != nil {
		return nil, fmt.Errorf("%w: column %s: reading page body: %v", ErrCorruptPage, c.path(), err)
	}
	return &Page{c: c, header: header, body: body}, nil
}

// ReadAll decodes the whole chunk into one level stream.
func (c *ColumnChunkReader) ReadAll() ([]schema.LeveledValue, error) {
	out := make([]schema.LeveledValue, 0, c.chunk.MetaData.NumValues)

	pages := c.Pages()
	for {
		page, err := pages.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := page.Decode()
		if err != nil {
			return nil, err
		}

		vi := 0
		for i, def := range data.DefinitionLevels {
			lv := schema.LeveledValue{
				RepetitionLevel: data.RepetitionLevels[i],
				DefinitionLevel: def,
			}
			if def == c.col.MaxDefinitionLevel {
				lv.Value = data.Values[vi]
				vi++
			}
			out = append(out, lv)
		}
	}
}

// ReadColumnIndex reads the chunk's column index.
func (c *ColumnChunkReader) ReadColumnIndex() (*format.ColumnIndex, error) {
	if c.chunk.ColumnIndexOffset == nil || c.chunk.ColumnIndexLength == nil {
		return nil, fmt.Errorf("column %s: chunk has no column index", c.path())
	}
	data := make([]byte, *c.chunk.ColumnIndexLength)
	if _, err := c.f.r.ReadAt(data, *c.chunk.ColumnIndexOffset); err != nil {
		return nil, fmt.Errorf("column %s: reading column index: %w", c.path(), err)
	}
	idx := new(format.ColumnIndex)
	if err := format.Unmarshal(idx, data); err != nil {
		return nil, fmt.Errorf("%w: column %s: deserializing column index: %v", ErrCorruptFooter, c.path(), err)
	}
	return idx, nil
}

// ReadOffsetIndex reads the chunk's offset index.
func (c *ColumnChunkReader) ReadOffsetIndex() (*format.OffsetIndex, error) {
	if c.chunk.OffsetIndexOffset == nil || c.chunk.OffsetIndexLength == nil {
		return nil, fmt.Errorf("column %s: chunk has no offset index", c.path())
	}
	data := make([]byte, *c.chunk.OffsetIndexLength)
	if _, err := c.f.r.ReadAt(data, *c.chunk.OffsetIndexOffset); err != nil {
		return nil, fmt.Errorf("column %s: reading offset index: %w", c.path(), err)
	}
	idx := new(format.OffsetIndex)
	if err := format.Unmarshal(idx, data); err != nil {
		return nil, fmt.Errorf("%w: column %s: deserializing offset index: %v", ErrCorruptFooter, c.path(), err)
	}
	return idx, nil
}

// ReadBloomFilter reads the chunk's bloom filter.
func (c *ColumnChunkReader) ReadBloomFilter() (*bloom.Filter, error) {
	if c.chunk.MetaData.BloomFilterOffset == nil {
		return nil, fmt.Errorf("column %s: chunk has no bloom filter", c.path())
	}
	length := c.f.size - *c.chunk.MetaData.BloomFilterOffset
	if c.chunk.MetaData.BloomFilterLength != nil {
		length = int64(*c.chunk.MetaData.BloomFilterLength)
	}
	sr := io.NewSectionReader(c.f.r, *c.chunk.MetaData.BloomFilterOffset, length)

	var header format.BloomFilterHeader
	if err := format.Read(&header, sr); err != nil {
		return nil, fmt.Errorf("column %s: reading bloom filter header: %w", c.path(), err)
	}
	bits := make([]byte, header.NumBytes)
	if _, err := io.ReadFull(sr, bits); err != nil {
		return nil, fmt.Errorf("column %s: reading bloom filter bitset: %w", c.path(), err)
	}
	filter, err := bloom.FromBytes(bits)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", c.path(), err)
	}
	return filter, nil
}

// A Page is one data page read from a column chunk, held in its on-disk
// form. [Page.Decode] decompresses and decodes it.
type Page struct {
	c      *ColumnChunkReader
	header format.PageHeader
	body   []byte
}

// Header returns the page's header.
func (p *Page) Header() format.PageHeader { return p.header }

// NumValues returns the number of level entries in the page.
func (p *Page) NumValues() int {
	if p.header.DataPageHeaderV2 != nil {
		return int(p.header.DataPageHeaderV2.NumValues)
	}
	return int(p.header.DataPageHeader.NumValues)
}

func (p *Page) encoding() format.Encoding {
	if p.header.DataPageHeaderV2 != nil {
		return p.header.DataPageHeaderV2.Encoding
	}
	return p.header.DataPageHeader.Encoding
}

// PageData is the decoded form of one data page. Values holds the
// non-null values in order; entries at less than the maximum definition
// level have no corresponding value.
type PageData struct {
	RepetitionLevels []int
	DefinitionLevels []int
	Values           []encoding.Value
	NumRows          int
}

// Decode verifies the page checksum, decompresses the body and decodes
// levels and values.
func (p *Page) Decode() (*PageData, error) {
	if err := checkCRC(p.header, p.body, p.c.path()); err != nil {
		return nil, err
	}

	numValues := p.NumValues()
	var repB, defB, valueB []byte

	switch p.header.Type {
	case format.PageTypeData:
		raw, err := p.c.codec.Decode(make([]byte, p.header.UncompressedPageSize), p.body)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrCorruptPage, p.c.path(), err)
		}
		if p.c.col.MaxRepetitionLevel > 0 {
			if repB, raw, err = splitPrefixedLevels(raw); err != nil {
				return nil, err
			}
		}
		if p.c.col.MaxDefinitionLevel > 0 {
			if defB, raw, err = splitPrefixedLevels(raw); err != nil {
				return nil, err
			}
		}
		valueB = raw

	case format.PageTypeDataV2:
		h2 := p.header.DataPageHeaderV2
		repLen, defLen := int(h2.RepetitionLevelsByteLength), int(h2.DefinitionLevelsByteLength)
		if repLen+defLen > len(p.body) {
			return nil, fmt.Errorf("%w: column %s: level streams exceed page body", ErrCorruptPage, p.c.path())
		}
		repB = p.body[:repLen]
		defB = p.body[repLen : repLen+defLen]
		rest := p.body[repLen+defLen:]

		expected := int(p.header.UncompressedPageSize) - repLen - defLen
		if expected < 0 {
			return nil, fmt.Errorf("%w: column %s: uncompressed size below level stream lengths", ErrCorruptPage, p.c.path())
		}
		if h2.Compressed() {
			var err error
			if valueB, err = p.c.codec.Decode(make([]byte, expected), rest); err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", ErrCorruptPage, p.c.path(), err)
			}
		} else {
			if len(rest) != expected {
				return nil, fmt.Errorf("%w: column %s: value stream is %d bytes, expected %d", ErrCorruptPage, p.c.path(), len(rest), expected)
			}
			valueB = rest
		}

	default:
		return nil, fmt.Errorf("%w: column %s: not a data page", ErrCorruptPage, p.c.path())
	}

	data := &PageData{}
	var err error
	if p.c.col.MaxRepetitionLevel > 0 {
		if data.RepetitionLevels, err = decodeLevels(repB, numValues, p.c.col.MaxRepetitionLevel); err != nil {
			return nil, fmt.Errorf("column %s: %w", p.c.path(), err)
		}
	} else {
		data.RepetitionLevels = make([]int, numValues)
	}
	if p.c.col.MaxDefinitionLevel > 0 {
		if data.DefinitionLevels, err = decodeLevels(defB, numValues, p.c.col.MaxDefinitionLevel); err != nil {
			return nil, fmt.Errorf("column %s: %w", p.c.path(), err)
		}
	} else {
		data.DefinitionLevels = make([]int, numValues)
	}

	for _, r := range data.RepetitionLevels {
		if r == 0 {
			data.NumRows++
		}
	}

	present := 0
	for _, d := range data.DefinitionLevels {
		if d == p.c.col.MaxDefinitionLevel {
			present++
		}
	}
	if data.Values, err = p.decodeValues(valueB, present); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Page) decodeValues(data []byte, n int) ([]encoding.Value, error) {
	var dec encoding.ValueDecoder
	switch enc := p.encoding(); enc {
	case format.EncodingRLEDictionary, format.EncodingPlainDictionary:
		if err := p.c.loadDictionary(); err != nil {
			return nil, err
		}
		if p.c.dict == nil {
			return nil, fmt.Errorf("%w: column %s: data page references missing dictionary", ErrCorruptPage, p.c.path())
		}
		var err error
		if dec, err = encoding.NewDictDecoder(p.c.col.PhysicalType, p.c.dict, data); err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrCorruptPage, p.c.path(), err)
		}
	default:
		var ok bool
		if dec, ok = encoding.NewValueDecoder(p.c.col.PhysicalType, enc, data, encoding.Config{TypeLength: p.c.col.TypeLength}); !ok {
			return nil, fmt.Errorf("column %s: %w: %s for %s", p.c.path(), ErrUnsupportedEncoding, enc, p.c.col.PhysicalType)
		}
	}

	values := make([]encoding.Value, n)
	for got := 0; got < n; {
		m, err := dec.Decode(values[got:])
		got += m
		if err == io.EOF || (err == nil && m == 0) {
			return nil, fmt.Errorf("%w: column %s: value stream ends after %d of %d values", ErrCorruptPage, p.c.path(), got, n)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: decoding values: %v", ErrCorruptPage, p.c.path(), err)
		}
	}
	return values, nil
}

func checkDataHeader(header format.PageHeader, path string) error {
	if header.Type == format.PageTypeData && header.DataPageHeader == nil {
		return fmt.Errorf("%w: column %s: data page without data page header", ErrCorruptPage, path)
	}
	if header.Type == format.PageTypeDataV2 && header.DataPageHeaderV2 == nil {
		return fmt.Errorf("%w: column %s: data page without v2 header", ErrCorruptPage, path)
	}
	return nil
}

func checkCRC(header format.PageHeader, body []byte, path string) error {
	if header.CRC == nil {
		return nil
	}
	if got := int32(crc32.ChecksumIEEE(body)); got != *header.CRC {
		return fmt.Errorf("%w: column %s: page checksum mismatch", ErrCorruptPage, path)
	}
	return nil
}
