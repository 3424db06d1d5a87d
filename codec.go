package haph

import (
	"encoding/binary"
	"fmt"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/encoding"
)

// Codec serializes keys or values of a persisted map.
type Codec[T any] interface {
	// Append appends the encoding of v to dst.
	Append(dst []byte, v T) []byte
	// Decode parses one value from the front of src and returns it with the
	// number of bytes consumed.
	Decode(src []byte) (T, int, error)
}

// StringCodec encodes strings as uvarint length followed by the bytes.
type StringCodec[T ~string] struct{}

// Append appends the length-prefixed bytes of v.
func (StringCodec[T]) Append(dst []byte, v T) []byte {
	return encoding.AppendString(dst, string(v))
}

// Decode parses a string written by Append.
func (StringCodec[T]) Decode(src []byte) (T, int, error) {
	b, n := encoding.ReadBytes(src)
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: truncated string", herrors.ErrCorruptedMap)
	}
	return T(b), n, nil
}

// BytesCodec encodes byte slices as uvarint length followed by the bytes.
// Decoded slices are copies.
type BytesCodec struct{}

// Append appends the length-prefixed bytes of v. A nil and an empty slice
// encode the same.
func (BytesCodec) Append(dst []byte, v []byte) []byte {
	return encoding.AppendBytes(dst, v)
}

// Decode parses a byte string written by Append. Empty strings decode as nil.
func (BytesCodec) Decode(src []byte) ([]byte, int, error) {
	b, n := encoding.ReadBytes(src)
	if n <= 0 {
		return nil, 0, fmt.Errorf("%w: truncated byte string", herrors.ErrCorruptedMap)
	}
	return append([]byte(nil), b...), n, nil
}

// IntegerCodec encodes integers as zigzag varints, so small magnitudes of
// either sign stay short.
type IntegerCodec[T Integer] struct{}

// Append appends v as a zigzag varint.
func (IntegerCodec[T]) Append(dst []byte, v T) []byte {
	return binary.AppendVarint(dst, int64(v))
}

// Decode parses a varint written by Append. Values outside the range of T
// are truncated.
func (IntegerCodec[T]) Decode(src []byte) (T, int, error) {
	v, n := binary.Varint(src)
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: malformed varint", herrors.ErrCorruptedMap)
	}
	return T(v), n, nil
}
