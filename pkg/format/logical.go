package format

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// EmptyType is a logical type annotation that carries no parameters.
type EmptyType struct{}

func (*EmptyType) write(ctx context.Context, p thrift.TProtocol) error {
	return writeStruct(ctx, p, "").end()
}

func (*EmptyType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(int16, thrift.TType) (bool, error) {
		return false, nil
	})
}

// DecimalType annotates a column holding fixed-point decimal values with the
// given scale and precision.
type DecimalType struct {
	Scale     int32
	Precision int32
}

func (t *DecimalType) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "DecimalType")
	w.i32(1, t.Scale)
	w.i32(2, t.Precision)
	return w.end()
}

func (t *DecimalType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			t.Scale, err = p.ReadI32(ctx)
		case 2:
			t.Precision, err = p.ReadI32(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// TimeUnit is a union selecting the resolution of a time or timestamp
// column.
type TimeUnit struct {
	Millis *EmptyType
	Micros *EmptyType
	Nanos  *EmptyType
}

func (u *TimeUnit) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "TimeUnit")
	if u.Millis != nil {
		w.structField(1, u.Millis)
	}
	if u.Micros != nil {
		w.structField(2, u.Micros)
	}
	if u.Nanos != nil {
		w.structField(3, u.Nanos)
	}
	return w.end()
}

func (u *TimeUnit) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		e := new(EmptyType)
		switch id {
		case 1:
			u.Millis = e
		case 2:
			u.Micros = e
		case 3:
			u.Nanos = e
		default:
			return false, nil
		}
		return true, e.read(ctx, p)
	})
}

func (u *TimeUnit) String() string {
	switch {
	case u == nil:
		return "NONE"
	case u.Millis != nil:
		return "MILLIS"
	case u.Micros != nil:
		return "MICROS"
	case u.Nanos != nil:
		return "NANOS"
	}
	return "NONE"
}

// TimeType annotates an INT32 or INT64 column holding a time of day.
type TimeType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

func (t *TimeType) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "TimeType")
	w.boolField(1, t.IsAdjustedToUTC)
	w.structField(2, &t.Unit)
	return w.end()
}

func (t *TimeType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			t.IsAdjustedToUTC, err = p.ReadBool(ctx)
		case 2:
			err = t.Unit.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// TimestampType annotates an INT64 column holding an instant.
type TimestampType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

func (t *TimestampType) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "TimestampType")
	w.boolField(1, t.IsAdjustedToUTC)
	w.structField(2, &t.Unit)
	return w.end()
}

func (t *TimestampType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			t.IsAdjustedToUTC, err = p.ReadBool(ctx)
		case 2:
			err = t.Unit.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// IntType annotates an INT32 or INT64 column with an explicit bit width and
// signedness.
type IntType struct {
	BitWidth int8
	IsSigned bool
}

func (t *IntType) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "IntType")
	w.field(1, thrift.BYTE, func() error { return w.p.WriteByte(ctx, t.BitWidth) })
	w.boolField(2, t.IsSigned)
	return w.end()
}

func (t *IntType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch id {
		case 1:
			t.BitWidth, err = p.ReadByte(ctx)
		case 2:
			t.IsSigned, err = p.ReadBool(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// LogicalType is a union annotating how a physical type is to be
// interpreted. At most one member is set.
type LogicalType struct {
	UTF8      *EmptyType     // field 1: STRING
	Map       *EmptyType     // field 2
	List      *EmptyType     // field 3
	Enum      *EmptyType     // field 4
	Decimal   *DecimalType   // field 5
	Date      *EmptyType     // field 6
	Time      *TimeType      // field 7
	Timestamp *TimestampType // field 8
	Integer   *IntType       // field 10
	Unknown   *EmptyType     // field 11: always-null column
	JSON      *EmptyType     // field 12
	BSON      *EmptyType     // field 13
	UUID      *EmptyType     // field 14
	Float16   *EmptyType     // field 15
}

func (t *LogicalType) write(ctx context.Context, p thrift.TProtocol) error {
	w := writeStruct(ctx, p, "LogicalType")
	for _, m := range []struct {
		id int16
		s  Struct
	}{
		{1, t.UTF8}, {2, t.Map}, {3, t.List}, {4, t.Enum},
		{5, t.Decimal}, {6, t.Date}, {7, t.Time}, {8, t.Timestamp},
		{10, t.Integer}, {11, t.Unknown}, {12, t.JSON}, {13, t.BSON},
		{14, t.UUID}, {15, t.Float16},
	} {
		if !isNilStruct(m.s) {
			w.structField(m.id, m.s)
		}
	}
	return w.end()
}

func isNilStruct(s Struct) bool {
	switch v := s.(type) {
	case *EmptyType:
		return v == nil
	case *DecimalType:
		return v == nil
	case *TimeType:
		return v == nil
	case *TimestampType:
		return v == nil
	case *IntType:
		return v == nil
	}
	return s == nil
}

func (t *LogicalType) read(ctx context.Context, p thrift.TProtocol) error {
	return readStructFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var member Struct
		switch id {
		case 1:
			t.UTF8 = new(EmptyType)
			member = t.UTF8
		case 2:
			t.Map = new(EmptyType)
			member = t.Map
		case 3:
			t.List = new(EmptyType)
			member = t.List
		case 4:
			t.Enum = new(EmptyType)
			member = t.Enum
		case 5:
			t.Decimal = new(DecimalType)
			member = t.Decimal
		case 6:
			t.Date = new(EmptyType)
			member = t.Date
		case 7:
			t.Time = new(TimeType)
			member = t.Time
		case 8:
			t.Timestamp = new(TimestampType)
			member = t.Timestamp
		case 10:
			t.Integer = new(IntType)
			member = t.Integer
		case 11:
			t.Unknown = new(EmptyType)
			member = t.Unknown
		case 12:
			t.JSON = new(EmptyType)
			member = t.JSON
		case 13:
			t.BSON = new(EmptyType)
			member = t.BSON
		case 14:
			t.UUID = new(EmptyType)
			member = t.UUID
		case 15:
			t.Float16 = new(EmptyType)
			member = t.Float16
		default:
			return false, nil
		}
		return true, member.read(ctx, p)
	})
}
