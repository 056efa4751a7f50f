package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/thrift/lib/go/thrift"
)

// A Struct is a metadata structure that can be serialized with the Thrift
// compact protocol.
type Struct interface {
	write(ctx context.Context, p thrift.TProtocol) error
	read(ctx context.Context, p thrift.TProtocol) error
}

// Marshal serializes s with the Thrift compact protocol.
func Marshal(s Struct) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes s from data. Unmarshal returns an error if data is
// truncated or structurally invalid.
func Unmarshal(s Struct, data []byte) error {
	return Read(s, bytes.NewReader(data))
}

// Write serializes s to w with the Thrift compact protocol.
func Write(s Struct, w io.Writer) error {
	ctx := context.Background()
	p := thrift.NewTCompactProtocolConf(ioTransport{w: w}, nil)
	if err := s.write(ctx, p); err != nil {
		return err
	}
	return p.Flush(ctx)
}

// Read deserializes s from r with the Thrift compact protocol. Read consumes
// exactly the bytes that make up the structure, leaving r positioned at the
// first byte after it.
func Read(s Struct, r io.Reader) error {
	p := thrift.NewTCompactProtocolConf(ioTransport{r: r}, nil)
	return s.read(context.Background(), p)
}

// ioTransport adapts a plain reader/writer pair into a [thrift.TTransport]
// without any internal buffering, so reads never consume bytes beyond the
// structure being decoded.
type ioTransport struct {
	r io.Reader
	w io.Writer
}

var _ thrift.TTransport = ioTransport{}

func (t ioTransport) Read(p []byte) (int, error) {
	if t.r == nil {
		return 0, errors.New("transport is write-only")
	}
	n, err := t.r.Read(p)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

func (t ioTransport) Write(p []byte) (int, error) {
	if t.w == nil {
		return 0, errors.New("transport is read-only")
	}
	return t.w.Write(p)
}

func (t ioTransport) Close() error                { return nil }
func (t ioTransport) Flush(context.Context) error { return nil }
func (t ioTransport) RemainingBytes() uint64      { return ^uint64(0) }
func (t ioTransport) Open() error                 { return nil }
func (t ioTransport) IsOpen() bool                { return true }

// structWriter accumulates field writes for one structure, deferring error
// handling until end. This keeps the per-structure write methods linear.
type structWriter struct {
	ctx context.Context
	p   thrift.TProtocol
	err error
}

func writeStruct(ctx context.Context, p thrift.TProtocol, name string) *structWriter {
	w := &structWriter{ctx: ctx, p: p}
	w.err = p.WriteStructBegin(ctx, name)
	return w
}

func (w *structWriter) field(id int16, typ thrift.TType, fn func() error) {
	if w.err != nil {
		return
	}
	if w.err = w.p.WriteFieldBegin(w.ctx, "", typ, id); w.err != nil {
		return
	}
	if w.err = fn(); w.err != nil {
		return
	}
	w.err = w.p.WriteFieldEnd(w.ctx)
}

func (w *structWriter) boolField(id int16, v bool) {
	w.field(id, thrift.BOOL, func() error { return w.p.WriteBool(w.ctx, v) })
}

func (w *structWriter) optBool(id int16, v *bool) {
	if v != nil {
		w.boolField(id, *v)
	}
}

func (w *structWriter) i32(id int16, v int32) {
	w.field(id, thrift.I32, func() error { return w.p.WriteI32(w.ctx, v) })
}

func (w *structWriter) optI32(id int16, v *int32) {
	if v != nil {
		w.i32(id, *v)
	}
}

func (w *structWriter) i64(id int16, v int64) {
	w.field(id, thrift.I64, func() error { return w.p.WriteI64(w.ctx, v) })
}

func (w *structWriter) optI64(id int16, v *int64) {
	if v != nil {
		w.i64(id, *v)
	}
}

func (w *structWriter) str(id int16, v string) {
	w.field(id, thrift.STRING, func() error { return w.p.WriteString(w.ctx, v) })
}

func (w *structWriter) optStr(id int16, v *string) {
	if v != nil {
		w.str(id, *v)
	}
}

func (w *structWriter) binary(id int16, v []byte) {
	w.field(id, thrift.STRING, func() error { return w.p.WriteBinary(w.ctx, v) })
}

func (w *structWriter) optBinary(id int16, v []byte) {
	if v != nil {
		w.binary(id, v)
	}
}

func (w *structWriter) structField(id int16, s Struct) {
	w.field(id, thrift.STRUCT, func() error { return s.write(w.ctx, w.p) })
}

func (w *structWriter) list(id int16, elem thrift.TType, n int, fn func(i int) error) {
	w.field(id, thrift.LIST, func() error {
		if err := w.p.WriteListBegin(w.ctx, elem, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return w.p.WriteListEnd(w.ctx)
	})
}

func (w *structWriter) end() error {
	if w.err != nil {
		return w.err
	}
	if err := w.p.WriteFieldStop(w.ctx); err != nil {
		return err
	}
	return w.p.WriteStructEnd(w.ctx)
}

// readStructFields iterates the fields of a structure, calling fn for each.
// fn reports whether it consumed the field; unhandled fields are skipped so
// that structures from newer format versions remain readable.
func readStructFields(ctx context.Context, p thrift.TProtocol, fn func(id int16, typ thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, typ, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}
		handled, err := fn(id, typ)
		if err != nil {
			return fmt.Errorf("field %d: %w", id, err)
		}
		if !handled {
			if err := p.Skip(ctx, typ); err != nil {
				return fmt.Errorf("skipping field %d: %w", id, err)
			}
		}
		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return p.ReadStructEnd(ctx)
}

// readList iterates the elements of a list field, calling fn once per
// element.
func readList(ctx context.Context, p thrift.TProtocol, fn func(i int) error) error {
	_, n, err := p.ReadListBegin(ctx)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return p.ReadListEnd(ctx)
}

func ptr[T any](v T) *T { return &v }
