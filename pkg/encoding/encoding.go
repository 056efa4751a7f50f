package encoding

import (
	"fmt"

	"github.com/grafana/parquet/internal/streamio"
	"github.com/grafana/parquet/pkg/format"
)

// Config carries the schema-derived parameters an encoding may need beyond
// the physical type.
type Config struct {
	// TypeLength is the value length for FIXED_LEN_BYTE_ARRAY columns.
	TypeLength int
}

// A ValueEncoder encodes a sequence of [Value], writing the encoded bytes
// to an underlying [streamio.Writer]. Implementations of encodings must
// call registerValueEncoding to register themselves.
type ValueEncoder interface {
	// PhysicalType returns the type of values supported by the ValueEncoder.
	PhysicalType() format.Type

	// EncodingType returns the encoding produced by the ValueEncoder.
	EncodingType() format.Encoding

	// Encode encodes an individual [Value]. Encode returns an error if value
	// cannot be represented by the encoding.
	Encode(value Value) error

	// Flush encodes any buffered data and writes it to the underlying
	// [streamio.Writer]. No further values may be encoded after Flush.
	Flush() error

	// Reset discards any state and resets the ValueEncoder to write to w,
	// permitting reuse across pages.
	Reset(w streamio.Writer)
}

// A ValueDecoder decodes a sequence of [Value] from an encoded byte slice.
type ValueDecoder interface {
	// PhysicalType returns the type of values produced by the ValueDecoder.
	PhysicalType() format.Type

	// EncodingType returns the encoding consumed by the ValueDecoder.
	EncodingType() format.Encoding

	// Decode decodes up to len(s) values, storing the results into s. The
	// number of decoded values is returned, followed by an error (if any).
	// At the end of the stream, Decode returns 0, [io.EOF]. Decoded byte
	// array values may alias the data passed to Reset.
	Decode(s []Value) (int, error)

	// Reset discards any state and resets the decoder to read from data.
	Reset(data []byte)
}

// registry stores known value encoders and decoders. A global keeps each
// encoding implementation self-contained in its own file.
var registry = map[registryKey]registryEntry{}

type (
	registryKey struct {
		Physical format.Type
		Encoding format.Encoding
	}

	registryEntry struct {
		NewEncoder func(streamio.Writer, Config) ValueEncoder
		NewDecoder func([]byte, Config) ValueDecoder
	}
)

// registerValueEncoding registers an encoder and decoder for a physical
// type and encoding tuple. registerValueEncoding panics if the tuple is
// already registered; it should only be called from init functions.
func registerValueEncoding(physical format.Type, enc format.Encoding, entry registryEntry) {
	key := registryKey{Physical: physical, Encoding: enc}
	if _, exist := registry[key]; exist {
		panic(fmt.Sprintf("encoding: registerValueEncoding already called for %s/%s", physical, enc))
	}
	registry[key] = entry
}

// NewValueEncoder creates an encoder for the given physical type and
// encoding. It returns false if the combination is unsupported.
func NewValueEncoder(physical format.Type, enc format.Encoding, w streamio.Writer, cfg Config) (ValueEncoder, bool) {
	entry, exist := registry[registryKey{Physical: physical, Encoding: enc}]
	if !exist {
		return nil, false
	}
	return entry.NewEncoder(w, cfg), true
}

// NewValueDecoder creates a decoder for the given physical type and
// encoding reading from data. It returns false if the combination is
// unsupported.
func NewValueDecoder(physical format.Type, enc format.Encoding, data []byte, cfg Config) (ValueDecoder, bool) {
	entry, exist := registry[registryKey{Physical: physical, Encoding: enc}]
	if !exist {
		return nil, false
	}
	return entry.NewDecoder(data, cfg), true
}

// CanEncode reports whether an encoder is registered for the given physical
// type and encoding.
func CanEncode(physical format.Type, enc format.Encoding) bool {
	_, exist := registry[registryKey{Physical: physical, Encoding: enc}]
	return exist
}
