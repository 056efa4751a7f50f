// Package encoding implements the value encodings of the Parquet format:
// PLAIN, the RLE/bit-packed hybrid, the DELTA family, BYTE_STREAM_SPLIT and
// dictionary encoding. Encoders and decoders are registered per
// (physical type, encoding) pair and looked up at page-open time.
package encoding

import (
	"bytes"
	"fmt"
	"math"
	"unsafe"

	"github.com/grafana/parquet/pkg/format"
)

type bytesptr *byte

// A Value represents a single physical value within a column. Unlike [any],
// Values can be constructed without allocations. The zero Value corresponds
// to a NULL.
type Value struct {
	// The internal representation is based on log/slog.Value: num holds
	// numeric values (or the byte length for byte arrays), and any holds the
	// physical type tag (or the byte pointer for byte arrays).

	_ [0]func() // Disallow equality checking of two Values.

	num uint64
	any any
}

// BooleanValue returns a [Value] for a BOOLEAN.
func BooleanValue(v bool) Value {
	var num uint64
	if v {
		num = 1
	}
	return Value{num: num, any: format.TypeBoolean}
}

// Int32Value returns a [Value] for an INT32.
func Int32Value(v int32) Value {
	return Value{num: uint64(uint32(v)), any: format.TypeInt32}
}

// Int64Value returns a [Value] for an INT64.
func Int64Value(v int64) Value {
	return Value{num: uint64(v), any: format.TypeInt64}
}

// FloatValue returns a [Value] for a FLOAT.
func FloatValue(v float32) Value {
	return Value{num: uint64(math.Float32bits(v)), any: format.TypeFloat}
}

// DoubleValue returns a [Value] for a DOUBLE.
func DoubleValue(v float64) Value {
	return Value{num: math.Float64bits(v), any: format.TypeDouble}
}

// ByteArrayValue returns a [Value] for a BYTE_ARRAY. The returned Value
// references v without copying.
func ByteArrayValue(v []byte) Value {
	return Value{num: uint64(len(v)), any: bytesptr(unsafe.SliceData(v))}
}

// StringValue returns a BYTE_ARRAY [Value] for a string, without copying.
func StringValue(v string) Value {
	return Value{num: uint64(len(v)), any: bytesptr(unsafe.StringData(v))}
}

// FixedLenByteArrayValue returns a [Value] for a FIXED_LEN_BYTE_ARRAY of
// length len(v).
func FixedLenByteArrayValue(v []byte) Value {
	return Value{num: uint64(len(v)) | fixedLenBit, any: bytesptr(unsafe.SliceData(v))}
}

// Byte array lengths are far below 2^62, so the top bit of num is free to
// distinguish FIXED_LEN_BYTE_ARRAY from BYTE_ARRAY.
const fixedLenBit = 1 << 62

// IsNil returns whether v is a NULL value.
func (v Value) IsNil() bool {
	return v.any == nil
}

// Type returns the physical type of v. Type panics if v is nil.
func (v Value) Type() format.Type {
	switch t := v.any.(type) {
	case format.Type:
		return t
	case bytesptr:
		if v.num&fixedLenBit != 0 {
			return format.TypeFixedLenByteArray
		}
		return format.TypeByteArray
	}
	panic(fmt.Sprintf("encoding.Value has unexpected type %T", v.any))
}

// Boolean returns v's value as a bool. It panics if v is not a BOOLEAN.
func (v Value) Boolean() bool {
	v.check(format.TypeBoolean)
	return v.num != 0
}

// Int32 returns v's value as an int32. It panics if v is not an INT32.
func (v Value) Int32() int32 {
	v.check(format.TypeInt32)
	return int32(uint32(v.num))
}

// Int64 returns v's value as an int64. It panics if v is not an INT64.
func (v Value) Int64() int64 {
	v.check(format.TypeInt64)
	return int64(v.num)
}

// Float returns v's value as a float32. It panics if v is not a FLOAT.
func (v Value) Float() float32 {
	v.check(format.TypeFloat)
	return math.Float32frombits(uint32(v.num))
}

// Double returns v's value as a float64. It panics if v is not a DOUBLE.
func (v Value) Double() float64 {
	v.check(format.TypeDouble)
	return math.Float64frombits(v.num)
}

// Bytes returns v's value as a byte slice. It panics if v is not a
// BYTE_ARRAY or FIXED_LEN_BYTE_ARRAY. The returned slice must not be
// modified.
func (v Value) Bytes() []byte {
	ptr, ok := v.any.(bytesptr)
	if !ok {
		panic(fmt.Sprintf("encoding.Value type is %s, not a byte array", v.Type()))
	}
	return unsafe.Slice((*byte)(ptr), v.num&^uint64(fixedLenBit))
}

func (v Value) check(expect format.Type) {
	if actual := v.Type(); actual != expect {
		panic(fmt.Sprintf("encoding.Value type is %s, not %s", actual, expect))
	}
}

// Clone returns a copy of v that does not alias the memory backing a byte
// array value.
func (v Value) Clone() Value {
	if _, ok := v.any.(bytesptr); !ok {
		return v
	}
	b := append([]byte(nil), v.Bytes()...)
	return Value{num: v.num, any: bytesptr(unsafe.SliceData(b))}
}

// CompareValues compares two non-nil values of the same physical type using
// the type-defined order: signed numeric comparison for numbers and
// unsigned lexicographic comparison for byte arrays. unsigned switches
// INT32 and INT64 comparison to unsigned, for columns whose logical type is
// an unsigned integer.
func CompareValues(a, b Value, unsigned bool) int {
	switch a.Type() {
	case format.TypeBoolean:
		return compareOrdered(btoi(a.Boolean()), btoi(b.Boolean()))
	case format.TypeInt32:
		if unsigned {
			return compareOrdered(uint32(a.Int32()), uint32(b.Int32()))
		}
		return compareOrdered(a.Int32(), b.Int32())
	case format.TypeInt64:
		if unsigned {
			return compareOrdered(uint64(a.Int64()), uint64(b.Int64()))
		}
		return compareOrdered(a.Int64(), b.Int64())
	case format.TypeFloat:
		return compareOrdered(a.Float(), b.Float())
	case format.TypeDouble:
		return compareOrdered(a.Double(), b.Double())
	case format.TypeByteArray, format.TypeFixedLenByteArray:
		return bytes.Compare(a.Bytes(), b.Bytes())
	}
	panic(fmt.Sprintf("encoding.CompareValues: unsupported type %s", a.Type()))
}

func compareOrdered[T int32 | int64 | uint32 | uint64 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func btoi(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// IsNaN returns whether v is a floating-point NaN.
func (v Value) IsNaN() bool {
	switch v.any {
	case format.TypeFloat:
		return math.IsNaN(float64(math.Float32frombits(uint32(v.num))))
	case format.TypeDouble:
		return math.IsNaN(math.Float64frombits(v.num))
	}
	return false
}
