package file

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptFooter is wrapped by errors reporting a damaged file
	// trailer: bad magic bytes, an impossible footer length, or metadata
	// that fails to deserialize.
	ErrCorruptFooter = errors.New("corrupt footer")

	// ErrCorruptPage is wrapped by errors reporting a damaged page:
	// checksum mismatch, truncated body, or a decompressed size that does
	// not match the page header.
	ErrCorruptPage = errors.New("corrupt page")

	// ErrUnsupportedEncoding is wrapped by errors reporting a value
	// encoding the column's physical type cannot use.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// A UsageError reports API misuse, such as writing column chunks out of
// schema order or writing to a finalized file. Usage errors are programmer
// errors and never retried.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
