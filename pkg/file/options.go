package file

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/parquet/pkg/compress"
	"github.com/grafana/parquet/pkg/format"
)

// Default writer thresholds.
const (
	DefaultPageRowLimit        = 20_000
	DefaultPageSizeLimit       = 1024 * 1024
	DefaultDictionarySizeLimit = 1024 * 1024
)

const defaultCreatedBy = "github.com/grafana/parquet"

type columnOverride struct {
	encoding  *format.Encoding
	codec     *format.CompressionCodec
	codecImpl compress.Codec
	bloomFPP  *float64
	bloomNDV  int64
}

type writerOptions struct {
	codec           format.CompressionCodec
	codecImpl       compress.Codec
	dataPageVersion int
	pageRowLimit    int
	pageSizeLimit   int
	dictSizeLimit   int
	pageIndexes     bool
	statistics      bool
	bloomFPP        float64 // 0 disables bloom filters.
	columns         map[string]*columnOverride
	keyValues       []format.KeyValue
	createdBy       string
	logger          log.Logger
	registerer      prometheus.Registerer
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		codec:           format.CodecSnappy,
		dataPageVersion: 1,
		pageRowLimit:    DefaultPageRowLimit,
		pageSizeLimit:   DefaultPageSizeLimit,
		dictSizeLimit:   DefaultDictionarySizeLimit,
		pageIndexes:     true,
		statistics:      true,
		columns:         make(map[string]*columnOverride),
		createdBy:       defaultCreatedBy,
		logger:          log.NewNopLogger(),
	}
}

func (o *writerOptions) column(path string) *columnOverride {
	c, ok := o.columns[path]
	if !ok {
		c = &columnOverride{}
		o.columns[path] = c
	}
	return c
}

func (o *writerOptions) validate() error {
	if o.dataPageVersion != 1 && o.dataPageVersion != 2 {
		return fmt.Errorf("data page version must be 1 or 2, got %d", o.dataPageVersion)
	}
	if o.pageRowLimit <= 0 {
		return fmt.Errorf("page row limit must be positive, got %d", o.pageRowLimit)
	}
	if o.pageSizeLimit <= 0 {
		return fmt.Errorf("page size limit must be positive, got %d", o.pageSizeLimit)
	}
	if o.bloomFPP < 0 || o.bloomFPP >= 1 {
		return fmt.Errorf("bloom filter false positive probability must be in [0, 1), got %v", o.bloomFPP)
	}
	return nil
}

// A WriterOption customizes a [Writer].
type WriterOption func(*writerOptions)

// WithCodec sets the compression codec for all columns. The default is
// snappy.
func WithCodec(c format.CompressionCodec) WriterOption {
	return func(o *writerOptions) { o.codec = c }
}

// WithCompression sets a configured codec for all columns, for codecs
// with tunable levels such as compress.Gzip{Level: 9}.
func WithCompression(c compress.Codec) WriterOption {
	return func(o *writerOptions) { o.codecImpl = c }
}

// WithColumnCodec overrides the compression codec of one column, addressed
// by its dotted path.
func WithColumnCodec(path string, c format.CompressionCodec) WriterOption {
	return func(o *writerOptions) { o.column(path).codec = &c }
}

// WithColumnCompression overrides the codec of one column with a
// configured instance.
func WithColumnCompression(path string, c compress.Codec) WriterOption {
	return func(o *writerOptions) { o.column(path).codecImpl = c }
}

// WithColumnEncoding sets the value encoding of one column, disabling
// dictionary encoding for it.
func WithColumnEncoding(path string, e format.Encoding) WriterOption {
	return func(o *writerOptions) { o.column(path).encoding = &e }
}

// WithDataPageVersion selects the data page format, 1 or 2. The default
// is 1.
func WithDataPageVersion(v int) WriterOption {
	return func(o *writerOptions) { o.dataPageVersion = v }
}

// WithPageRowLimit caps the number of rows buffered into one data page.
func WithPageRowLimit(n int) WriterOption {
	return func(o *writerOptions) { o.pageRowLimit = n }
}

// WithPageSizeLimit caps the approximate uncompressed size of one data
// page in bytes.
func WithPageSizeLimit(n int) WriterOption {
	return func(o *writerOptions) { o.pageSizeLimit = n }
}

// WithDictionarySizeLimit caps the plain-encoded size of a chunk
// dictionary. A chunk whose dictionary would grow past the limit falls
// back to plain encoding.
func WithDictionarySizeLimit(n int) WriterOption {
	return func(o *writerOptions) { o.dictSizeLimit = n }
}

// WithBloomFilters enables split-block bloom filters on every column, with
// the given false positive probability target.
func WithBloomFilters(fpp float64) WriterOption {
	return func(o *writerOptions) { o.bloomFPP = fpp }
}

// WithColumnBloomFilter enables a bloom filter on one column.
func WithColumnBloomFilter(path string, fpp float64) WriterOption {
	return func(o *writerOptions) { o.column(path).bloomFPP = &fpp }
}

// WithColumnBloomNDV sizes one column's bloom filter for an expected
// number of distinct values instead of the observed cardinality.
func WithColumnBloomNDV(path string, ndv int64) WriterOption {
	return func(o *writerOptions) { o.column(path).bloomNDV = ndv }
}

// WithoutPageIndexes disables writing column and offset indexes.
func WithoutPageIndexes() WriterOption {
	return func(o *writerOptions) { o.pageIndexes = false }
}

// WithoutStatistics disables min/max/distinct statistics in chunk metadata
// and page headers.
func WithoutStatistics() WriterOption {
	return func(o *writerOptions) { o.statistics = false }
}

// WithKeyValueMetadata appends an application metadata entry to the
// footer.
func WithKeyValueMetadata(key, value string) WriterOption {
	return func(o *writerOptions) {
		o.keyValues = append(o.keyValues, format.KeyValue{Key: key, Value: &value})
	}
}

// WithCreatedBy sets the footer's created-by string.
func WithCreatedBy(s string) WriterOption {
	return func(o *writerOptions) { o.createdBy = s }
}

// WithLogger sets the logger for debug-level writer events.
func WithLogger(l log.Logger) WriterOption {
	return func(o *writerOptions) { o.logger = l }
}

// WithMetrics registers writer metrics with reg.
func WithMetrics(reg prometheus.Registerer) WriterOption {
	return func(o *writerOptions) { o.registerer = reg }
}

type readerOptions struct {
	logger log.Logger
}

// A ReaderOption customizes a [Reader].
type ReaderOption func(*readerOptions)

// WithReaderLogger sets the logger for debug-level reader events.
func WithReaderLogger(l log.Logger) ReaderOption {
	return func(o *readerOptions) { o.logger = l }
}
