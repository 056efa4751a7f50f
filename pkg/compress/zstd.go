package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/grafana/parquet/pkg/format"
)

// Zstd implements the ZSTD codec. A zero Level selects
// [zstd.SpeedDefault].
type Zstd struct {
	Level zstd.EncoderLevel
}

func (Zstd) CompressionCodec() format.CompressionCodec { return format.CodecZstd }

// Encoders and the decoder are stateless for EncodeAll/DecodeAll use and
// shared process-wide.
var (
	zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			panic(fmt.Sprintf("creating zstd decoder: %v", err))
		}
		return d
	})

	zstdEncoders sync.Map // zstd.EncoderLevel -> *zstd.Encoder
)

func zstdEncoder(level zstd.EncoderLevel) *zstd.Encoder {
	if e, ok := zstdEncoders.Load(level); ok {
		return e.(*zstd.Encoder)
	}
	e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("creating zstd encoder: %v", err))
	}
	actual, _ := zstdEncoders.LoadOrStore(level, e)
	return actual.(*zstd.Encoder)
}

func (z Zstd) Encode(dst, src []byte) ([]byte, error) {
	level := z.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	return zstdEncoder(level).EncodeAll(src, dst[:0]), nil
}

func (Zstd) Decode(dst, src []byte) ([]byte, error) {
	decoded, err := zstdDecoder().DecodeAll(src, dst[:0])
	if err != nil {
		return nil, fmt.Errorf("decompressing zstd page: %w", err)
	}
	if len(decoded) != len(dst) {
		return nil, fmt.Errorf("zstd page decompressed to %d bytes, expected %d", len(decoded), len(dst))
	}
	return decoded, nil
}
