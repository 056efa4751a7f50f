package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/grafana/parquet/pkg/format"
)

// Lz4 implements the legacy LZ4 codec: raw lz4 blocks wrapped in Hadoop
// frames of two big-endian sizes, the uncompressed then the compressed
// block length. Decoding accepts multiple consecutive frames.
type Lz4 struct{}

func (Lz4) CompressionCodec() format.CompressionCodec { return format.CodecLZ4 }

func (Lz4) Encode(dst, src []byte) ([]byte, error) {
	block, err := compressBlock(src)
	if err != nil {
		return nil, fmt.Errorf("compressing lz4 page: %w", err)
	}
	dst = binary.BigEndian.AppendUint32(dst[:0], uint32(len(src)))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(block)))
	return append(dst, block...), nil
}

func (Lz4) Decode(dst, src []byte) ([]byte, error) {
	var pos int
	for len(src) > 0 {
		if len(src) < 8 {
			return nil, fmt.Errorf("lz4 page: truncated frame header")
		}
		rawLen := int(binary.BigEndian.Uint32(src))
		blockLen := int(binary.BigEndian.Uint32(src[4:]))
		src = src[8:]
		if blockLen > len(src) {
			return nil, fmt.Errorf("lz4 page: frame of %d bytes exceeds remaining %d", blockLen, len(src))
		}
		if pos+rawLen > len(dst) {
			return nil, fmt.Errorf("lz4 page decompresses past expected %d bytes", len(dst))
		}
		n, err := lz4.UncompressBlock(src[:blockLen], dst[pos:pos+rawLen])
		if err != nil {
			return nil, fmt.Errorf("decompressing lz4 page: %w", err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("lz4 frame decompressed to %d bytes, expected %d", n, rawLen)
		}
		pos += rawLen
		src = src[blockLen:]
	}
	if pos != len(dst) {
		return nil, fmt.Errorf("lz4 page decompressed to %d bytes, expected %d", pos, len(dst))
	}
	return dst, nil
}

// Lz4Raw implements the LZ4_RAW codec: a single bare lz4 block with no
// framing.
type Lz4Raw struct{}

func (Lz4Raw) CompressionCodec() format.CompressionCodec { return format.CodecLZ4Raw }

func (Lz4Raw) Encode(dst, src []byte) ([]byte, error) {
	block, err := compressBlock(src)
	if err != nil {
		return nil, fmt.Errorf("compressing lz4 page: %w", err)
	}
	return append(dst[:0], block...), nil
}

func (Lz4Raw) Decode(dst, src []byte) ([]byte, error) {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("decompressing lz4 page: %w", err)
	}
	if n != len(dst) {
		return nil, fmt.Errorf("lz4 page decompressed to %d bytes, expected %d", n, len(dst))
	}
	return dst, nil
}

// compressBlock compresses src as one lz4 block. Incompressible input
// falls back to a literal-only block so the output is always a valid lz4
// stream.
func compressBlock(src []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return appendLiteralBlock(buf[:0], src), nil
	}
	return buf[:n], nil
}

// appendLiteralBlock writes src as a single literal-only lz4 sequence.
func appendLiteralBlock(dst, src []byte) []byte {
	if n := len(src); n < 15 {
		dst = append(dst, byte(n)<<4)
	} else {
		dst = append(dst, 0xf0)
		for rem := n - 15; ; rem -= 255 {
			if rem < 255 {
				dst = append(dst, byte(rem))
				break
			}
			dst = append(dst, 255)
		}
	}
	return append(dst, src...)
}
