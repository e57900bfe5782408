package wire

import (
	"errors"
	"fmt"
)

// DecodeCode classifies decode failures.
type DecodeCode string

// Decode failure codes.
const (
	// UnsupportedVariant marks an unknown union tag or entry form.
	// Unknown tags are rejected, never skipped.
	UnsupportedVariant DecodeCode = "UnsupportedVariant"

	// MalformedEncoding marks everything else: bad magic, a future
	// format version, truncated input, oversized counts, trailing bytes.
	MalformedEncoding DecodeCode = "MalformedEncoding"
)

// DecodeError is the typed failure of Decode. Offset is the byte
// position where decoding stopped.
type DecodeError struct {
	Code   DecodeCode
	Offset int64
	Detail string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Code, e.Offset, e.Detail)
}

// AsDecodeError extracts a DecodeError from an error chain.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
