// Package errors defines all exported error sentinels for the haph library.
//
// This is the single source of truth for error values. Both the top-level
// haph package and the haph command import from here, ensuring errors.Is
// checks work across package boundaries.
package errors

import "errors"

// Construction errors
var (
	ErrTooManyEntries      = errors.New("haph: entry count exceeds the maximum value of the hash width")
	ErrDuplicateKey        = errors.New("haph: duplicate key present")
	ErrDuplicateEncoding   = errors.New("haph: distinct keys have the same encoding")
	ErrSeedSearchExhausted = errors.New("haph: failed to find perfect hash function")
	ErrNilHasher           = errors.New("haph: hasher is nil")
	ErrNilKeyEncoder       = errors.New("haph: key encoder is nil")
)

// Format errors
var (
	ErrUnsupportedHasher = errors.New("haph: hasher cannot be persisted (does not implement SeedCodec)")
	ErrInvalidMagic      = errors.New("haph: invalid magic number")
	ErrInvalidVersion    = errors.New("haph: unsupported version")
	ErrWidthMismatch     = errors.New("haph: hash width does not match the map file")
	ErrHasherMismatch    = errors.New("haph: hasher does not match the map file")
	ErrTruncatedFile     = errors.New("haph: map file is truncated")
	ErrCorruptedMap      = errors.New("haph: map data is corrupted")
	ErrChecksumFailed    = errors.New("haph: map checksum verification failed")
)
