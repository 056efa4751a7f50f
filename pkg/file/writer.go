// Package file assembles and reads Parquet files: pages into column
// chunks, chunks into row groups, row groups into a footer-terminated
// file. The [Writer] streams to an io.Writer and never seeks; the
// [Reader] works from an io.ReaderAt.
package file

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/parquet/pkg/bloom"
	"github.com/grafana/parquet/pkg/format"
	"github.com/grafana/parquet/pkg/schema"
)

// Magic is the four-byte marker leading and trailing every file.
const Magic = "PAR1"

type writerState int

const (
	writerStateEmpty writerState = iota
	writerStateOpen
	writerStateFinalized
)

// A Writer streams a Parquet file to an io.Writer. Row groups are written
// one at a time, their column chunks in schema leaf order; Close appends
// the page indexes, bloom filters and footer.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	w      io.Writer
	offset int64

	schema  *schema.Schema
	opts    writerOptions
	logger  log.Logger
	metrics *writerMetrics

	state   writerState
	open    *RowGroupWriter
	numRows int64

	rowGroups []format.RowGroup
	colIdxs   [][]*format.ColumnIndex
	offIdxs   [][]*format.OffsetIndex
	filters   [][]*bloom.Filter
}

// NewWriter returns a [Writer] emitting a file with the given schema.
func NewWriter(w io.Writer, s *schema.Schema, opts ...WriterOption) (*Writer, error) {
	options := defaultWriterOptions()
	for _, o := range opts {
		o(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	metrics := newWriterMetrics()
	if err := metrics.register(options.registerer); err != nil {
		return nil, fmt.Errorf("registering writer metrics: %w", err)
	}

	return &Writer{
		w:       w,
		schema:  s,
		opts:    options,
		logger:  options.logger,
		metrics: metrics,
	}, nil
}

// Schema returns the schema the writer encodes.
func (w *Writer) Schema() *schema.Schema { return w.schema }

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.offset += int64(n)
	if err != nil {
		return fmt.Errorf("writing at offset %d: %w", w.offset, err)
	}
	return nil
}

func (w *Writer) writePage(header format.PageHeader, body []byte) error {
	hdr, err := format.Marshal(&header)
	if err != nil {
		return fmt.Errorf("serializing page header: %w", err)
	}
	if err := w.write(hdr); err != nil {
		return err
	}
	if err := w.write(body); err != nil {
		return err
	}
	w.metrics.pagesWritten.WithLabelValues(header.Type.String()).Inc()
	w.metrics.uncompressedBytes.Add(float64(header.UncompressedPageSize))
	w.metrics.compressedBytes.Add(float64(len(body)))
	return nil
}

// AppendRowGroup starts the next row group. The previous row group, if
// any, must be closed first.
func (w *Writer) AppendRowGroup() (*RowGroupWriter, error) {
	if w.state == writerStateFinalized {
		return nil, usagef("append row group to finalized file")
	}
	if w.open != nil {
		return nil, usagef("append row group while row group %d is open", w.open.ordinal)
	}

	if w.state == writerStateEmpty {
		if err := w.write([]byte(Magic)); err != nil {
			return nil, err
		}
		w.state = writerStateOpen
	}

	w.open = &RowGroupWriter{
		fw:          w,
		ordinal:     len(w.rowGroups),
		startOffset: w.offset,
		numRows:     -1,
	}
	return w.open, nil
}

func (w *Writer) finishRowGroup(g *RowGroupWriter, rg format.RowGroup) {
	w.rowGroups = append(w.rowGroups, rg)
	w.colIdxs = append(w.colIdxs, g.colIdxs)
	w.offIdxs = append(w.offIdxs, g.offIdxs)
	w.filters = append(w.filters, g.filters)
	w.numRows += rg.NumRows
	w.metrics.rowsWritten.Add(float64(rg.NumRows))
	w.open = nil

	level.Debug(w.logger).Log(
		"msg", "closed row group",
		"ordinal", g.ordinal,
		"rows", rg.NumRows,
		"bytes", w.offset-g.startOffset,
	)
}

// WriteRowGroupRecords shreds records into level streams and writes them
// as one row group.
func (w *Writer) WriteRowGroupRecords(records []map[string]any) error {
	var columns [][]schema.LeveledValue
	var err error
	for _, rec := range records {
		if columns, err = w.schema.Deconstruct(columns, rec); err != nil {
			return err
		}
	}

	g, err := w.AppendRowGroup()
	if err != nil {
		return err
	}
	for i := range w.schema.Columns() {
		cw, err := g.AppendColumnChunk()
		if err != nil {
			return err
		}
		if len(records) > 0 {
			if err := cw.Write(columns[i]); err != nil {
				return err
			}
		}
		if err := cw.Close(); err != nil {
			return err
		}
	}
	return g.Close()
}

// Close writes the bloom filters, page indexes and footer, finalizing the
// file. The writer accepts no further row groups.
func (w *Writer) Close() error {
	if w.state == writerStateFinalized {
		return usagef("file closed twice")
	}
	if w.open != nil {
		return usagef("close file while row group %d is open", w.open.ordinal)
	}

	if w.state == writerStateEmpty {
		if err := w.write([]byte(Magic)); err != nil {
			return err
		}
	}

	if err := w.writeBloomFilters(); err != nil {
		return err
	}
	if err := w.writeIndexes(); err != nil {
		return err
	}
	if err := w.writeFooter(); err != nil {
		return err
	}

	w.state = writerStateFinalized
	level.Debug(w.logger).Log("msg", "finalized file", "rows", w.numRows, "row_groups", len(w.rowGroups), "bytes", w.offset)
	return nil
}

func (w *Writer) writeBloomFilters() error {
	for i := range w.rowGroups {
		for j, filter := range w.filters[i] {
			if filter == nil {
				continue
			}
			bits := filter.Bytes()
			header := format.BloomFilterHeader{
				NumBytes:    int32(len(bits)),
				Algorithm:   format.BloomFilterAlgorithm{Block: &format.EmptyType{}},
				Hash:        format.BloomFilterHash{XxHash: &format.EmptyType{}},
				Compression: format.BloomFilterCompression{Uncompressed: &format.EmptyType{}},
			}
			hdr, err := format.Marshal(&header)
			if err != nil {
				return fmt.Errorf("serializing bloom filter header: %w", err)
			}

			offset := w.offset
			if err := w.write(hdr); err != nil {
				return err
			}
			if err := w.write(bits); err != nil {
				return err
			}

			meta := w.rowGroups[i].Columns[j].MetaData
			meta.BloomFilterOffset = &offset
			length := int32(w.offset - offset)
			meta.BloomFilterLength = &length
		}
	}
	return nil
}

func (w *Writer) writeIndexes() error {
	for i := range w.rowGroups {
		for j, idx := range w.colIdxs[i] {
			if idx == nil {
				continue
			}
			data, err := format.Marshal(idx)
			if err != nil {
				return fmt.Errorf("serializing column index: %w", err)
			}
			offset := w.offset
			if err := w.write(data); err != nil {
				return err
			}
			w.rowGroups[i].Columns[j].ColumnIndexOffset = &offset
			length := int32(len(data))
			w.rowGroups[i].Columns[j].ColumnIndexLength = &length
		}
	}
	for i := range w.rowGroups {
		for j, idx := range w.offIdxs[i] {
			if idx == nil {
				continue
			}
			data, err := format.Marshal(idx)
			if err != nil {
				return fmt.Errorf("serializing offset index: %w", err)
			}
			offset := w.offset
			if err := w.write(data); err != nil {
				return err
			}
			w.rowGroups[i].Columns[j].OffsetIndexOffset = &offset
			length := int32(len(data))
			w.rowGroups[i].Columns[j].OffsetIndexLength = &length
		}
	}
	return nil
}

func (w *Writer) writeFooter() error {
	columnOrders := make([]format.ColumnOrder, len(w.schema.Columns()))
	for i := range columnOrders {
		columnOrders[i] = format.ColumnOrder{TypeOrder: &format.EmptyType{}}
	}

	meta := format.FileMetaData{
		Version:          2,
		Schema:           w.schema.Elements(),
		NumRows:          w.numRows,
		RowGroups:        w.rowGroups,
		KeyValueMetadata: w.opts.keyValues,
		CreatedBy:        &w.opts.createdBy,
		ColumnOrders:     columnOrders,
	}

	data, err := format.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("serializing footer: %w", err)
	}
	if err := w.write(data); err != nil {
		return err
	}
	if err := w.write(binary.LittleEndian.AppendUint32(nil, uint32(len(data)))); err != nil {
		return err
	}
	return w.write([]byte(Magic))
}

// A RowGroupWriter writes the column chunks of one row group, in schema
// leaf order.
type RowGroupWriter struct {
	fw          *Writer
	ordinal     int
	startOffset int64

	next   int
	cur    *ColumnChunkWriter
	closed bool

	chunks  []format.ColumnChunk
	colIdxs []*format.ColumnIndex
	offIdxs []*format.OffsetIndex
	filters []*bloom.Filter
	numRows int64
}

// AppendColumnChunk opens the writer for the next leaf column. The
// previous chunk must be closed first.
func (g *RowGroupWriter) AppendColumnChunk() (*ColumnChunkWriter, error) {
	if g.closed {
		return nil, usagef("append column chunk to closed row group %d", g.ordinal)
	}
	if g.cur != nil {
		return nil, usagef("append column chunk while chunk for column %s is open", g.cur.path)
	}
	columns := g.fw.schema.Columns()
	if g.next >= len(columns) {
		return nil, usagef("row group %d already has all %d column chunks", g.ordinal, len(columns))
	}

	cw, err := newColumnChunkWriter(g.fw, g, columns[g.next])
	if err != nil {
		return nil, err
	}
	g.cur = cw
	g.next++
	return cw, nil
}

func (g *RowGroupWriter) finishChunk(chunk format.ColumnChunk, colIdx *format.ColumnIndex, offIdx *format.OffsetIndex, filter *bloom.Filter, rows int64) error {
	g.cur = nil
	if g.numRows >= 0 && rows != g.numRows {
		return usagef("row group %d: column %s has %d rows, previous chunks have %d",
			g.ordinal, strings.Join(chunk.MetaData.PathInSchema, "."), rows, g.numRows)
	}
	g.chunks = append(g.chunks, chunk)
	g.colIdxs = append(g.colIdxs, colIdx)
	g.offIdxs = append(g.offIdxs, offIdx)
	g.filters = append(g.filters, filter)
	if g.numRows < 0 {
		g.numRows = rows
	}
	return nil
}

// Close finalizes the row group. Every leaf column must have been written
// and all chunks must agree on the row count.
func (g *RowGroupWriter) Close() error {
	if g.closed {
		return usagef("row group %d closed twice", g.ordinal)
	}
	if g.cur != nil {
		return usagef("close row group %d while chunk for column %s is open", g.ordinal, g.cur.path)
	}
	columns := g.fw.schema.Columns()
	if g.next != len(columns) {
		return usagef("row group %d has %d of %d column chunks", g.ordinal, g.next, len(columns))
	}
	g.closed = true

	var totalBytes, compressedBytes int64
	for i := range g.chunks {
		totalBytes += g.chunks[i].MetaData.TotalUncompressedSize
		compressedBytes += g.chunks[i].MetaData.TotalCompressedSize
	}

	ordinal := int16(g.ordinal)
	rg := format.RowGroup{
		Columns:             g.chunks,
		TotalByteSize:       totalBytes,
		NumRows:             g.numRows,
		FileOffset:          &g.startOffset,
		TotalCompressedSize: &compressedBytes,
		Ordinal:             &ordinal,
	}
	g.fw.finishRowGroup(g, rg)
	return nil
}
