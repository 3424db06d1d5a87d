// Package encoding provides the little-endian primitives used by the
// persisted map format: fixed-width words for displacement pairs and
// length-prefixed byte strings for keys and values.
package encoding

import "encoding/binary"

// PutWord writes the low width bytes of v to dst in little-endian order.
// width must be 1, 2, 4 or 8 and len(dst) >= width.
func PutWord(dst []byte, v uint64, width int) {
	switch width {
	case 1:
		dst[0] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(dst, v)
	default:
		panic("encoding: PutWord: unsupported width")
	}
}

// Word reads a little-endian word of width bytes from src.
// This is the read counterpart of PutWord.
func Word(src []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src))
	case 8:
		return binary.LittleEndian.Uint64(src)
	default:
		panic("encoding: Word: unsupported width")
	}
}

// ValidWidth reports whether width is a supported word size.
func ValidWidth(width int) bool {
	return width == 1 || width == 2 || width == 4 || width == 8
}

// AppendBytes appends b prefixed with its uvarint length.
func AppendBytes(dst, b []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendString is AppendBytes for a string, without converting it.
func AppendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadBytes reads a uvarint length-prefixed byte string from src. It returns
// the string (aliasing src) and the total bytes consumed, or n <= 0 if src is
// truncated or the length prefix is malformed.
func ReadBytes(src []byte) (b []byte, n int) {
	length, k := binary.Uvarint(src)
	if k <= 0 {
		return nil, k
	}
	if length > uint64(len(src)-k) {
		return nil, 0
	}
	end := k + int(length)
	return src[k:end], end
}
