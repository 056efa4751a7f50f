// Package bloom implements the split-block bloom filter stored alongside
// column chunks. Filters hold xxh64 hashes of plain-encoded values; each
// hash touches a single 32-byte block, keeping probes to one cache line.
package bloom

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/grafana/parquet/pkg/encoding"
)

// BlockSize is the size of one filter block in bytes.
const BlockSize = 32

const wordsPerBlock = 8

// salt rotates the low hash bits into eight independent bit choices, one
// per word of a block.
var salt = [wordsPerBlock]uint32{
	0x47b6137b, 0x44974d91, 0x8824ad5b, 0xa2b7289d,
	0x705495c7, 0x2df1424b, 0x9efc4947, 0x5c6bfb31,
}

type block [wordsPerBlock]uint32

func (b *block) insert(x uint32) {
	for i := range b {
		b[i] |= 1 << ((salt[i] * x) >> 27)
	}
}

func (b *block) check(x uint32) bool {
	for i := range b {
		if b[i]&(1<<((salt[i]*x)>>27)) == 0 {
			return false
		}
	}
	return true
}

// A Filter is a split-block bloom filter. The zero value is not usable;
// construct filters with [NewFilter] or [FromBytes].
type Filter struct {
	blocks []block
}

// NewFilter returns an empty filter of at least numBytes, rounded up to a
// power-of-two number of blocks.
func NewFilter(numBytes int) *Filter {
	numBlocks := 1
	for numBlocks*BlockSize < numBytes {
		numBlocks *= 2
	}
	return &Filter{blocks: make([]block, numBlocks)}
}

// NumBytes returns the filter size for an expected number of distinct
// values and a target false positive probability.
func NumBytes(ndv int64, fpp float64) int {
	if ndv <= 0 {
		return BlockSize
	}
	if fpp <= 0 || fpp >= 1 {
		fpp = 0.01
	}
	bits := -float64(ndv) * math.Log(fpp) / (math.Ln2 * math.Ln2)
	return int(math.Ceil(bits / 8))
}

// Hash returns the filter hash of a value: xxh64 over the value's plain
// encoding.
func Hash(v encoding.Value) uint64 {
	return xxhash.Sum64(encoding.AppendPlain(nil, v))
}

func (f *Filter) blockIndex(h uint64) int {
	return int(((h >> 32) * uint64(len(f.blocks))) >> 32)
}

// Insert adds a hash to the filter.
func (f *Filter) Insert(h uint64) {
	f.blocks[f.blockIndex(h)].insert(uint32(h))
}

// Check reports whether a hash may have been inserted. False positives
// are possible, false negatives are not.
func (f *Filter) Check(h uint64) bool {
	return f.blocks[f.blockIndex(h)].check(uint32(h))
}

// Size returns the serialized filter size in bytes.
func (f *Filter) Size() int { return len(f.blocks) * BlockSize }

// Bytes serializes the filter as little-endian block words.
func (f *Filter) Bytes() []byte {
	out := make([]byte, 0, f.Size())
	for i := range f.blocks {
		for _, w := range f.blocks[i] {
			out = binary.LittleEndian.AppendUint32(out, w)
		}
	}
	return out
}

// FromBytes deserializes a filter produced by [Filter.Bytes].
func FromBytes(data []byte) (*Filter, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("bloom filter length %d is not a multiple of %d", len(data), BlockSize)
	}
	blocks := make([]block, len(data)/BlockSize)
	for i := range blocks {
		for j := 0; j < wordsPerBlock; j++ {
			blocks[i][j] = binary.LittleEndian.Uint32(data[i*BlockSize+j*4:])
		}
	}
	return &Filter{blocks: blocks}, nil
}
