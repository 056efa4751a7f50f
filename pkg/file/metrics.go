package file

import (
	"github.com/prometheus/client_golang/prometheus"
)

type writerMetrics struct {
	pagesWritten        *prometheus.CounterVec
	rowsWritten         prometheus.Counter
	uncompressedBytes   prometheus.Counter
	compressedBytes     prometheus.Counter
	dictionaryFallbacks prometheus.Counter
}

func newWriterMetrics() *writerMetrics {
	return &writerMetrics{
		pagesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parquet_writer_pages_written_total",
			Help: "Total number of pages written, by page type.",
		}, []string{"page_type"}),
		rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parquet_writer_rows_written_total",
			Help: "Total number of rows written to closed row groups.",
		}),
		uncompressedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parquet_writer_page_uncompressed_bytes_total",
			Help: "Total uncompressed size of page bodies written.",
		}),
		compressedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parquet_writer_page_compressed_bytes_total",
			Help: "Total compressed size of page bodies written.",
		}),
		dictionaryFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parquet_writer_dictionary_fallbacks_total",
			Help: "Total number of column chunks that fell back from dictionary to plain encoding.",
		}),
	}
}

func (m *writerMetrics) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		m.pagesWritten,
		m.rowsWritten,
		m.uncompressedBytes,
		m.compressedBytes,
		m.dictionaryFallbacks,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
