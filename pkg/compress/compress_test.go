package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/grafana/parquet/pkg/format"
)

func testPayloads(t *testing.T) map[string][]byte {
	t.Helper()

	incompressible := make([]byte, 4096)
	rnd := rand.New(rand.NewSource(0))
	_, err := rnd.Read(incompressible)
	require.NoError(t, err)

	return map[string][]byte{
		"empty":          {},
		"tiny":           []byte("x"),
		"repetitive":     bytes.Repeat([]byte("0123456789abcdef"), 512),
		"incompressible": incompressible,
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []format.CompressionCodec{
		format.CodecUncompressed,
		format.CodecSnappy,
		format.CodecGzip,
		format.CodecLZ4,
		format.CodecBrotli,
		format.CodecZstd,
		format.CodecLZ4Raw,
	}

	for _, cc := range codecs {
		t.Run(cc.String(), func(t *testing.T) {
			codec, err := Lookup(cc)
			require.NoError(t, err)
			require.Equal(t, cc, codec.CompressionCodec())

			for name, payload := range testPayloads(t) {
				t.Run(name, func(t *testing.T) {
					encoded, err := codec.Encode(nil, payload)
					require.NoError(t, err)

					decoded, err := codec.Decode(make([]byte, len(payload)), encoded)
					require.NoError(t, err)
					require.Equal(t, payload, decoded)
				})
			}
		})
	}
}

func TestCodecs_WrongExpectedLength(t *testing.T) {
	payload := bytes.Repeat([]byte("abcd"), 256)

	for _, codec := range []Codec{Uncompressed{}, Snappy{}, Gzip{}, Lz4{}, Brotli{}, Zstd{}, Lz4Raw{}} {
		t.Run(codec.CompressionCodec().String(), func(t *testing.T) {
			encoded, err := codec.Encode(nil, payload)
			require.NoError(t, err)

			_, err = codec.Decode(make([]byte, len(payload)-1), encoded)
			require.Error(t, err)

			_, err = codec.Decode(make([]byte, len(payload)+100), encoded)
			require.Error(t, err)
		})
	}
}

func TestLookup_Unsupported(t *testing.T) {
	_, err := Lookup(format.CodecLZO)
	require.Error(t, err)
}

func TestLz4_MultipleFrames(t *testing.T) {
	var codec Lz4

	first := bytes.Repeat([]byte("aaaa"), 100)
	second := bytes.Repeat([]byte("bbbb"), 50)

	frame1, err := codec.Encode(nil, first)
	require.NoError(t, err)
	frame2, err := codec.Encode(nil, second)
	require.NoError(t, err)

	decoded, err := codec.Decode(make([]byte, len(first)+len(second)), append(frame1, frame2...))
	require.NoError(t, err)
	require.Equal(t, append(append([]byte(nil), first...), second...), decoded)
}

func TestAppendLiteralBlock(t *testing.T) {
	for _, size := range []int{0, 1, 14, 15, 270, 4096} {
		src := make([]byte, size)
		for i := range src {
			src[i] = byte(i)
		}

		block := appendLiteralBlock(nil, src)
		var codec Lz4Raw
		decoded, err := codec.Decode(make([]byte, size), block)
		require.NoError(t, err)
		require.Equal(t, src, decoded)
	}
}

func TestCompressBlock(t *testing.T) {
	src := bytes.Repeat([]byte("abcd1234"), 64)
	block, err := compressBlock(src)
	require.NoError(t, err)
	require.Less(t, len(block), len(src))

	dst := make([]byte, len(src))
	n, err := lz4.UncompressBlock(block, dst)
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.Equal(t, src, dst)
}
