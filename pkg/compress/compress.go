// Package compress provides the block compression codecs used for page
// data. Codecs operate on whole byte slices; pages are small enough that
// streaming would only add overhead.
package compress

import (
	"fmt"

	"github.com/grafana/parquet/pkg/format"
)

// A Codec compresses and decompresses page payloads.
//
// Encode appends the compressed form of src to dst[:0] and returns the
// resulting slice. Decode fills dst, which the caller must size to the
// expected uncompressed length, and fails when src does not decompress to
// exactly that length.
type Codec interface {
	CompressionCodec() format.CompressionCodec
	Encode(dst, src []byte) ([]byte, error)
	Decode(dst, src []byte) ([]byte, error)
}

var codecs = map[format.CompressionCodec]Codec{
	format.CodecUncompressed: Uncompressed{},
	format.CodecSnappy:       Snappy{},
	format.CodecGzip:         Gzip{},
	format.CodecLZ4:          Lz4{},
	format.CodecBrotli:       Brotli{},
	format.CodecZstd:         Zstd{},
	format.CodecLZ4Raw:       Lz4Raw{},
}

// Lookup returns the default [Codec] for a codec identifier.
func Lookup(c format.CompressionCodec) (Codec, error) {
	codec, ok := codecs[c]
	if !ok {
		return nil, fmt.Errorf("unsupported compression codec %s", c)
	}
	return codec, nil
}

// Uncompressed passes page payloads through unchanged.
type Uncompressed struct{}

func (Uncompressed) CompressionCodec() format.CompressionCodec { return format.CodecUncompressed }

func (Uncompressed) Encode(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

func (Uncompressed) Decode(dst, src []byte) ([]byte, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("uncompressed page is %d bytes, expected %d", len(src), len(dst))
	}
	copy(dst, src)
	return dst, nil
}
