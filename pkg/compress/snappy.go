package compress

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/grafana/parquet/pkg/format"
)

// Snappy implements the SNAPPY codec using the raw snappy block format,
// not the framed stream format.
type Snappy struct{}

func (Snappy) CompressionCodec() format.CompressionCodec { return format.CodecSnappy }

func (Snappy) Encode(dst, src []byte) ([]byte, error) {
	return snappy.Encode(dst[:0], src), nil
}

func (Snappy) Decode(dst, src []byte) ([]byte, error) {
	decoded, err := snappy.Decode(dst, src)
	if err != nil {
		return nil, fmt.Errorf("decompressing snappy page: %w", err)
	}
	if len(decoded) != len(dst) {
		return nil, fmt.Errorf("snappy page decompressed to %d bytes, expected %d", len(decoded), len(dst))
	}
	return decoded, nil
}
