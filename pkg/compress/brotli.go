package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/grafana/parquet/pkg/format"
)

// Brotli implements the BROTLI codec. A zero Quality selects the library
// default.
type Brotli struct {
	Quality int
}

func (Brotli) CompressionCodec() format.CompressionCodec { return format.CodecBrotli }

func (b Brotli) Encode(dst, src []byte) ([]byte, error) {
	quality := b.Quality
	if quality == 0 {
		quality = brotli.DefaultCompression
	}

	buf := bytes.NewBuffer(dst[:0])
	w := brotli.NewWriterLevel(buf, quality)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("compressing brotli page: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing brotli page: %w", err)
	}
	return buf.Bytes(), nil
}

func (Brotli) Decode(dst, src []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(src))
	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, fmt.Errorf("decompressing brotli page: %w", err)
	}

	var tail [1]byte
	if n, _ := r.Read(tail[:]); n != 0 {
		return nil, fmt.Errorf("brotli page decompressed past expected %d bytes", len(dst))
	}
	return dst, nil
}
