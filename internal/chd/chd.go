// Package chd implements the Compress-Hash-Displace construction used by
// haph maps.
//
// Entries are grouped into buckets by h0. Buckets are resolved heaviest
// first: each bucket gets the first displacement pair (d1, d2), searched
// row-major over [0, n)², that places all of its members on free slots of a
// table of exactly n slots. A bucket that cannot be placed fails the whole
// attempt; the caller retries with a new seed.
package chd

import "math/bits"

// Lambda is the target average bucket occupancy.
const Lambda = 5

// Word is the set of unsigned integer types a hash triple can be made of.
// Arithmetic on displacements wraps at the width of the Word.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Triple is the (h0, h1, h2) hash of one key. H0 selects the bucket,
// H1 and H2 feed the displacement formula.
type Triple[H Word] struct {
	H0, H1, H2 H
}

// Displacement is the (d1, d2) pair chosen for one bucket.
type Displacement[H Word] struct {
	D1, D2 H
}

// State is the outcome of a successful Solve.
type State[H Word] struct {
	// Displacements is indexed by bucket id.
	Displacements []Displacement[H]
	// Indices maps each slot to the entry placed there.
	Indices []int
}

// MaxValue returns the largest value representable by H.
func MaxValue[H Word]() uint64 {
	return uint64(^H(0))
}

// WidthBytes returns the size of H in bytes.
func WidthBytes[H Word]() int {
	return bits.Len64(MaxValue[H]()) / 8
}

// NumBuckets returns ceil(n / Lambda).
func NumBuckets(n int) int {
	return (n + Lambda - 1) / Lambda
}

// Displace computes f1*d1 + f2 + d2 with wraparound at the width of H.
func Displace[H Word](f1, f2, d1, d2 H) H {
	return f1*d1 + f2 + d2
}

// Slot reduces the displaced hash into [0, n). n must be non-zero.
func Slot[H Word](h1, h2, d1, d2 H, n uint64) int {
	return int(uint64(Displace(h1, h2, d1, d2)) % n)
}

// Bucket returns the bucket of a key with primary hash h0.
// numBuckets must be non-zero.
func Bucket[H Word](h0 H, numBuckets int) int {
	return int(uint64(h0) % uint64(numBuckets))
}
