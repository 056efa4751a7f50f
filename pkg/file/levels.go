package file

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/grafana/parquet/pkg/encoding"
)

// levelWidth returns the bit width needed to store levels in [0, max].
func levelWidth(max int) int { return bits.Len(uint(max)) }

// encodeLevels encodes a level stream with the RLE/bit-packed hybrid.
// V1 data pages prefix the stream with its 4-byte little-endian length;
// v2 pages store it bare and record the length in the page header.
func encodeLevels(levels []int, maxLevel int, lengthPrefixed bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := encoding.NewHybridEncoder(&buf, levelWidth(maxLevel))
	for _, l := range levels {
		enc.Put(uint64(l))
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	if !lengthPrefixed {
		return buf.Bytes(), nil
	}
	out := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+buf.Len()), uint32(buf.Len()))
	return append(out, buf.Bytes()...), nil
}

// decodeLevels decodes count levels from a bare hybrid stream.
func decodeLevels(data []byte, count, maxLevel int) ([]int, error) {
	levels := make([]int, count)
	dec := encoding.NewHybridDecoder(data, levelWidth(maxLevel))
	for i := range levels {
		v, err := dec.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: short level stream: %v", ErrCorruptPage, err)
		}
		if int(v) > maxLevel {
			return nil, fmt.Errorf("%w: level %d exceeds maximum %d", ErrCorruptPage, v, maxLevel)
		}
		levels[i] = int(v)
	}
	return levels, nil
}

// splitPrefixedLevels splits a 4-byte length-prefixed level stream from
// the remainder of a v1 page body.
func splitPrefixedLevels(body []byte) (levels, rest []byte, err error) {
	if len(body) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated level stream prefix", ErrCorruptPage)
	}
	n := int(binary.LittleEndian.Uint32(body))
	if n > len(body)-4 {
		return nil, nil, fmt.Errorf("%w: level stream of %d bytes exceeds page body", ErrCorruptPage, n)
	}
	return body[4 : 4+n], body[4+n:], nil
}
