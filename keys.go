package haph

import "encoding/binary"

// KeyEncoder appends the bytes that identify key to dst and returns the
// extended slice. Two keys that are == must encode identically and keys
// that are != must encode differently; Build rejects key sets that violate
// this with ErrDuplicateEncoding.
type KeyEncoder[K any] func(dst []byte, key K) []byte

// Integer is the set of integer key types supported by IntegerKey.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IntegerKey encodes an integer key as 8 little-endian bytes of its
// two's-complement value, so the encoding does not depend on the key width.
func IntegerKey[K Integer](dst []byte, key K) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(key))
}

// StringKey encodes a string key as its raw bytes.
func StringKey[K ~string](dst []byte, key K) []byte {
	return append(dst, key...)
}

// maxInlineKey sizes the scratch buffer Get encodes keys into. Longer keys
// grow it.
const maxInlineKey = 64
