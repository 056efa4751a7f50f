package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/grafana/parquet/pkg/format"
)

// Gzip implements the GZIP codec. A zero Level selects the library
// default.
type Gzip struct {
	Level int
}

func (Gzip) CompressionCodec() format.CompressionCodec { return format.CodecGzip }

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

func (g Gzip) Encode(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])

	var w *gzip.Writer
	if g.Level != 0 {
		var err error
		if w, err = gzip.NewWriterLevel(buf, g.Level); err != nil {
			return nil, err
		}
	} else {
		w = gzipWriters.Get().(*gzip.Writer)
		defer gzipWriters.Put(w)
		w.Reset(buf)
	}

	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("compressing gzip page: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing gzip page: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decode(dst, src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip page: %w", err)
	}
	defer r.Close()

	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, fmt.Errorf("decompressing gzip page: %w", err)
	}

	// The stream must end exactly at the expected length.
	var tail [1]byte
	if n, _ := r.Read(tail[:]); n != 0 {
		return nil, fmt.Errorf("gzip page decompressed past expected %d bytes", len(dst))
	}
	return dst, nil
}
