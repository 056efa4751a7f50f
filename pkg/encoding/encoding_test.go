package encoding

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/parquet/pkg/format"
)

// roundTrip encodes values with the registered encoder for (t, enc) and
// decodes them back, requiring an exact match.
func roundTrip(t *testing.T, physical format.Type, enc format.Encoding, cfg Config, values []Value) {
	t.Helper()

	var buf bytes.Buffer
	encoder, ok := NewValueEncoder(physical, enc, &buf, cfg)
	require.True(t, ok, "no encoder for %s/%s", physical, enc)
	require.Equal(t, physical, encoder.PhysicalType())
	require.Equal(t, enc, encoder.EncodingType())

	for _, v := range values {
		require.NoError(t, encoder.Encode(v))
	}
	require.NoError(t, encoder.Flush())

	decoder, ok := NewValueDecoder(physical, enc, buf.Bytes(), cfg)
	require.True(t, ok, "no decoder for %s/%s", physical, enc)

	out := make([]Value, len(values))
	for n := 0; n < len(values); {
		m, err := decoder.Decode(out[n:])
		require.NoError(t, err)
		require.NotZero(t, m)
		n += m
	}

	for i := range values {
		requireValueEqual(t, values[i], out[i])
	}
}

func requireValueEqual(t *testing.T, want, got Value) {
	t.Helper()
	require.Equal(t, want.Type(), got.Type())
	switch want.Type() {
	case format.TypeBoolean:
		require.Equal(t, want.Boolean(), got.Boolean())
	case format.TypeInt32:
		require.Equal(t, want.Int32(), got.Int32())
	case format.TypeInt64:
		require.Equal(t, want.Int64(), got.Int64())
	case format.TypeFloat:
		require.Equal(t, want.Float(), got.Float())
	case format.TypeDouble:
		require.Equal(t, want.Double(), got.Double())
	default:
		require.Equal(t, want.Bytes(), got.Bytes())
	}
}

func int32Values(vs ...int32) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Int32Value(v)
	}
	return out
}

func int64Values(vs ...int64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Int64Value(v)
	}
	return out
}

func stringValues(vs ...string) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = StringValue(v)
	}
	return out
}

func TestPlain_RoundTrip(t *testing.T) {
	tt := []struct {
		name     string
		physical format.Type
		cfg      Config
		values   []Value
	}{
		{name: "empty int32", physical: format.TypeInt32, values: nil},
		{name: "single int32", physical: format.TypeInt32, values: int32Values(42)},
		{name: "int32", physical: format.TypeInt32, values: int32Values(0, -1, math.MaxInt32, math.MinInt32, 7)},
		{name: "int64", physical: format.TypeInt64, values: int64Values(0, -1, math.MaxInt64, math.MinInt64, 1<<40)},
		{
			name:     "boolean",
			physical: format.TypeBoolean,
			values: []Value{
				BooleanValue(true), BooleanValue(false), BooleanValue(true),
				BooleanValue(true), BooleanValue(false), BooleanValue(false),
				BooleanValue(true), BooleanValue(false), BooleanValue(true),
			},
		},
		{
			name:     "float",
			physical: format.TypeFloat,
			values:   []Value{FloatValue(0), FloatValue(-1.5), FloatValue(math.MaxFloat32)},
		},
		{
			name:     "double",
			physical: format.TypeDouble,
			values:   []Value{DoubleValue(0), DoubleValue(3.14159), DoubleValue(math.Inf(-1))},
		},
		{
			name:     "byte array",
			physical: format.TypeByteArray,
			values:   stringValues("", "a", "hello world", "\x00\x01\x02"),
		},
		{
			name:     "fixed len byte array",
			physical: format.TypeFixedLenByteArray,
			cfg:      Config{TypeLength: 3},
			values: []Value{
				FixedLenByteArrayValue([]byte{1, 2, 3}),
				FixedLenByteArrayValue([]byte{4, 5, 6}),
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, tc.physical, format.EncodingPlain, tc.cfg, tc.values)
		})
	}
}

func TestHybrid_RoundTrip(t *testing.T) {
	tt := []struct {
		name   string
		width  int
		values []uint64
	}{
		{name: "empty", width: 3, values: nil},
		{name: "single", width: 1, values: []uint64{1}},
		{name: "all same", width: 2, values: []uint64{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3}},
		{name: "alternating", width: 1, values: []uint64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}},
		{name: "short literals", width: 4, values: []uint64{1, 2, 3}},
		{
			name:  "run after literals",
			width: 3,
			values: []uint64{
				1, 2, 3, 4, 5,
				7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
				1, 2,
			},
		},
		{name: "width zero", width: 0, values: []uint64{0, 0, 0, 0, 0}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewHybridEncoder(&buf, tc.width)
			enc.PutAll(tc.values)
			require.NoError(t, enc.Flush())

			dec := NewHybridDecoder(buf.Bytes(), tc.width)
			out := make([]uint64, len(tc.values))
			for n := 0; n < len(out); {
				m, err := dec.Decode(out[n:])
				require.NoError(t, err)
				n += m
			}
			require.Equal(t, tc.values, append([]uint64(nil), out...))
		})
	}
}

func TestHybrid_RandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	for _, width := range []int{1, 2, 5, 8, 13, 20, 32} {
		t.Run(fmt.Sprintf("width %d", width), func(t *testing.T) {
			values := make([]uint64, 1000)
			for i := range values {
				if rng.Intn(3) == 0 && i > 0 {
					values[i] = values[i-1] // Encourage runs.
				} else {
					values[i] = rng.Uint64() & mask(width)
				}
			}

			var buf bytes.Buffer
			enc := NewHybridEncoder(&buf, width)
			enc.PutAll(values)
			require.NoError(t, enc.Flush())

			dec := NewHybridDecoder(buf.Bytes(), width)
			out := make([]uint64, len(values))
			for n := 0; n < len(out); {
				m, err := dec.Decode(out[n:])
				require.NoError(t, err)
				n += m
			}
			require.Equal(t, values, out)
		})
	}
}

func TestDeltaBinaryPacked_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	random := make([]int64, 1000)
	for i := range random {
		random[i] = rng.Int63n(1 << 40)
		if rng.Intn(2) == 0 {
			random[i] = -random[i]
		}
	}

	ascending := make([]int64, 500)
	for i := range ascending {
		ascending[i] = int64(i) * 1000
	}

	tt := []struct {
		name   string
		values []int64
	}{
		{name: "empty", values: nil},
		{name: "single", values: []int64{12345}},
		{name: "constant", values: []int64{7, 7, 7, 7, 7}},
		{name: "small", values: []int64{1, 2, 3, 5, 8, 13, 21}},
		{name: "negative deltas", values: []int64{100, 90, 95, 0, -10, 50}},
		{name: "extremes", values: []int64{math.MinInt64, math.MaxInt64, 0, -1, 1}},
		{name: "ascending", values: ascending},
		{name: "random", values: random},
	}

	for _, tc := range tt {
		t.Run("int64 "+tc.name, func(t *testing.T) {
			roundTrip(t, format.TypeInt64, format.EncodingDeltaBinaryPacked, Config{}, int64Values(tc.values...))
		})
	}

	t.Run("int32", func(t *testing.T) {
		roundTrip(t, format.TypeInt32, format.EncodingDeltaBinaryPacked, Config{},
			int32Values(0, -5, math.MaxInt32, math.MinInt32, 1000, 1001, 1002))
	})
}

func TestDeltaLengthByteArray_RoundTrip(t *testing.T) {
	tt := []struct {
		name   string
		values []Value
	}{
		{name: "empty", values: nil},
		{name: "single", values: stringValues("hello")},
		{name: "empty strings", values: stringValues("", "", "")},
		{name: "mixed", values: stringValues("a", "", "abcdefghij", "xy")},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, format.TypeByteArray, format.EncodingDeltaLengthByteArray, Config{}, tc.values)
		})
	}
}

func TestDeltaByteArray_RoundTrip(t *testing.T) {
	tt := []struct {
		name   string
		values []Value
	}{
		{name: "empty", values: nil},
		{name: "single", values: stringValues("hello")},
		{name: "shared prefixes", values: stringValues("apple", "applesauce", "app", "banana", "band", "bandana")},
		{name: "no sharing", values: stringValues("x", "y", "z")},
		{name: "identical", values: stringValues("same", "same", "same")},
		{name: "empty strings", values: stringValues("", "a", "")},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, format.TypeByteArray, format.EncodingDeltaByteArray, Config{}, tc.values)
		})
	}
}

func TestByteStreamSplit_RoundTrip(t *testing.T) {
	t.Run("float", func(t *testing.T) {
		roundTrip(t, format.TypeFloat, format.EncodingByteStreamSplit, Config{},
			[]Value{FloatValue(1.5), FloatValue(-2.25), FloatValue(0), FloatValue(math.MaxFloat32)})
	})
	t.Run("double", func(t *testing.T) {
		roundTrip(t, format.TypeDouble, format.EncodingByteStreamSplit, Config{},
			[]Value{DoubleValue(1.5), DoubleValue(-2.25), DoubleValue(0)})
	})
	t.Run("int64", func(t *testing.T) {
		roundTrip(t, format.TypeInt64, format.EncodingByteStreamSplit, Config{},
			int64Values(1, -1, math.MaxInt64))
	})
	t.Run("fixed", func(t *testing.T) {
		roundTrip(t, format.TypeFixedLenByteArray, format.EncodingByteStreamSplit, Config{TypeLength: 2},
			[]Value{FixedLenByteArrayValue([]byte{1, 2}), FixedLenByteArrayValue([]byte{3, 4})})
	})
}

func TestDictionary(t *testing.T) {
	dict := NewDictionary(format.TypeByteArray)

	var indexes []int32
	words := []string{"red", "green", "red", "blue", "green", "red"}
	for _, w := range words {
		indexes = append(indexes, int32(dict.Index(StringValue(w))))
	}

	require.Equal(t, 3, dict.Len())
	require.Equal(t, []int32{0, 1, 0, 2, 1, 0}, indexes)

	// Dictionary page round trip.
	var dictBuf bytes.Buffer
	require.NoError(t, dict.EncodePage(&dictBuf))
	values, err := DecodeDictionary(format.TypeByteArray, dictBuf.Bytes(), dict.Len(), Config{})
	require.NoError(t, err)
	require.Equal(t, 3, len(values))
	require.Equal(t, "red", string(values[0].Bytes()))
	require.Equal(t, "green", string(values[1].Bytes()))
	require.Equal(t, "blue", string(values[2].Bytes()))

	// Data page round trip.
	var dataBuf bytes.Buffer
	require.NoError(t, dict.EncodeIndexes(&dataBuf, indexes))

	dec, err := NewDictDecoder(format.TypeByteArray, values, dataBuf.Bytes())
	require.NoError(t, err)
	out := make([]Value, len(words))
	for n := 0; n < len(out); {
		m, err := dec.Decode(out[n:])
		require.NoError(t, err)
		n += m
	}
	for i, w := range words {
		require.Equal(t, w, string(out[i].Bytes()))
	}
}

func TestDictionary_OutOfRangeIndex(t *testing.T) {
	dict := NewDictionary(format.TypeInt64)
	dict.Index(Int64Value(1))
	dict.Index(Int64Value(2))

	var buf bytes.Buffer
	require.NoError(t, dict.EncodeIndexes(&buf, []int32{0, 1, 1, 0}))

	// Resolve against a dictionary that is too small.
	dec, err := NewDictDecoder(format.TypeInt64, []Value{Int64Value(1)}, buf.Bytes())
	require.NoError(t, err)
	out := make([]Value, 4)
	_, err = dec.Decode(out)
	require.Error(t, err)
}

func TestCompareValues(t *testing.T) {
	require.Negative(t, CompareValues(Int32Value(-5), Int32Value(3), false))
	require.Positive(t, CompareValues(Int32Value(-5), Int32Value(3), true))
	require.Zero(t, CompareValues(Int64Value(9), Int64Value(9), false))
	require.Negative(t, CompareValues(StringValue("abc"), StringValue("abd"), false))
	require.Positive(t, CompareValues(DoubleValue(2.5), DoubleValue(-1), false))
}

func TestValue_Nil(t *testing.T) {
	var v Value
	require.True(t, v.IsNil())
	require.False(t, Int32Value(0).IsNil())
}
