package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/parquet/pkg/encoding"
)

func TestFilter_NoFalseNegatives(t *testing.T) {
	const n = 10000

	f := NewFilter(NumBytes(n, 0.01))
	for i := 0; i < n; i++ {
		f.Insert(Hash(encoding.Int64Value(int64(i))))
	}
	for i := 0; i < n; i++ {
		require.True(t, f.Check(Hash(encoding.Int64Value(int64(i)))), "value %d", i)
	}
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	const n = 10000

	f := NewFilter(NumBytes(n, 0.01))
	for i := 0; i < n; i++ {
		f.Insert(Hash(encoding.StringValue(fmt.Sprintf("present-%d", i))))
	}

	var hits int
	for i := 0; i < n; i++ {
		if f.Check(Hash(encoding.StringValue(fmt.Sprintf("absent-%d", i)))) {
			hits++
		}
	}

	// Sizing rounds up to a power of two, so the realized rate sits at or
	// below the 1% target with margin for hash variance.
	require.Less(t, float64(hits)/n, 0.05)
}

func TestFilter_RoundTrip(t *testing.T) {
	f := NewFilter(1024)
	values := []encoding.Value{
		encoding.Int32Value(42),
		encoding.StringValue("hello"),
		encoding.DoubleValue(3.14),
		encoding.BooleanValue(true),
	}
	for _, v := range values {
		f.Insert(Hash(v))
	}

	got, err := FromBytes(f.Bytes())
	require.NoError(t, err)
	require.Equal(t, f.Size(), got.Size())
	for _, v := range values {
		require.True(t, got.Check(Hash(v)))
	}
	require.False(t, got.Check(Hash(encoding.StringValue("missing"))))
}

func TestFromBytes_Invalid(t *testing.T) {
	_, err := FromBytes(nil)
	require.Error(t, err)

	_, err = FromBytes(make([]byte, 33))
	require.Error(t, err)
}

func TestNewFilter_Sizing(t *testing.T) {
	require.Equal(t, BlockSize, NewFilter(0).Size())
	require.Equal(t, BlockSize, NewFilter(32).Size())
	require.Equal(t, 64, NewFilter(33).Size())
	require.Equal(t, 1024, NewFilter(1000).Size())

	require.Equal(t, BlockSize, NumBytes(0, 0.01))
	require.Greater(t, NumBytes(1_000_000, 0.01), NumBytes(1000, 0.01))
	require.Greater(t, NumBytes(1000, 0.001), NumBytes(1000, 0.01))
}
