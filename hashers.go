package haph

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	herrors "github.com/tamirms/haph/errors"
	intbits "github.com/tamirms/haph/internal/bits"
)

// HasherID identifies the hash function of a persisted map.
// This is stored in the file header.
type HasherID uint8

const (
	// HasherXXH3 is xxHash3-128 (XXH3).
	HasherXXH3 HasherID = 1

	// HasherXXHash is xxHash64 extended to three words (XXHash).
	HasherXXHash HasherID = 2

	// HasherMurmur3 is MurmurHash3 x64 128-bit with a 32-bit seed (Murmur3).
	HasherMurmur3 HasherID = 3
)

// String returns the hasher name.
func (id HasherID) String() string {
	switch id {
	case HasherXXH3:
		return "xxh3"
	case HasherXXHash:
		return "xxhash"
	case HasherMurmur3:
		return "murmur3"
	default:
		return "unknown"
	}
}

// ParseHasherID is the inverse of HasherID.String.
func ParseHasherID(name string) (HasherID, error) {
	for _, id := range []HasherID{HasherXXH3, HasherXXHash, HasherMurmur3} {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown hasher %q", herrors.ErrUnsupportedHasher, name)
}

// wyp0 and wyp1 are WyHash secret constants, used to decorrelate the third
// word from the two halves it is derived from.
const (
	wyp0 = 0xa0761d6478bd642f
	wyp1 = 0xe7037ed1a0b428db
)

// splitTriple derives a triple from 128 bits of hash output. h0 and h1 take
// the low bits of each half; h2 is a WyMix of both halves.
func splitTriple[H Word](lo, hi uint64) (H, H, H) {
	return H(lo), H(hi), H(intbits.WyMix(lo^wyp0, hi^wyp1))
}

// XXH3 hashes keys with xxHash3-128 under a 64-bit seed.
//
// Key bytes are buffered and hashed once in FinishTriple, so keys fed in
// several writes hash the same as one contiguous write.
type XXH3[H Word] struct{}

// SampleSeed draws a uniform 64-bit seed.
func (XXH3[H]) SampleSeed(rng *rand.Rand) uint64 { return rng.Uint64() }

// NewWithSeed returns a hash state keyed by seed.
func (XXH3[H]) NewWithSeed(seed uint64) TripleHash[H] {
	s := &xxh3State[H]{seed: seed}
	s.buf = s.inline[:0]
	return s
}

// HasherID returns HasherXXH3.
func (XXH3[H]) HasherID() HasherID { return HasherXXH3 }

// AppendSeed appends seed as 8 little-endian bytes.
func (XXH3[H]) AppendSeed(dst []byte, seed uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, seed)
}

// DecodeSeed parses a seed written by AppendSeed.
func (XXH3[H]) DecodeSeed(src []byte) (uint64, error) { return decodeSeed64(src) }

type xxh3State[H Word] struct {
	seed   uint64
	buf    []byte
	inline [32]byte
}

func (s *xxh3State[H]) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *xxh3State[H]) FinishTriple() (H, H, H) {
	h := xxh3.Hash128Seed(s.buf, s.seed)
	return splitTriple[H](h.Lo, h.Hi)
}

// XXHash hashes keys with xxHash64 under a 64-bit seed. The 64-bit digest is
// widened to 128 bits with the SplitMix64 finalizer, a bijection, so two
// keys share a triple only if their digests collide.
type XXHash[H Word] struct{}

// SampleSeed draws a uniform 64-bit seed.
func (XXHash[H]) SampleSeed(rng *rand.Rand) uint64 { return rng.Uint64() }

// NewWithSeed returns a hash state keyed by seed.
func (XXHash[H]) NewWithSeed(seed uint64) TripleHash[H] {
	return xxhashState[H]{xxhash.NewWithSeed(seed)}
}

// HasherID returns HasherXXHash.
func (XXHash[H]) HasherID() HasherID { return HasherXXHash }

// AppendSeed appends seed as 8 little-endian bytes.
func (XXHash[H]) AppendSeed(dst []byte, seed uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, seed)
}

// DecodeSeed parses a seed written by AppendSeed.
func (XXHash[H]) DecodeSeed(src []byte) (uint64, error) { return decodeSeed64(src) }

type xxhashState[H Word] struct {
	d *xxhash.Digest
}

func (s xxhashState[H]) Write(p []byte) (int, error) { return s.d.Write(p) }

func (s xxhashState[H]) FinishTriple() (H, H, H) {
	x := s.d.Sum64()
	return splitTriple[H](x, intbits.SplitMix64(x))
}

// Murmur3 hashes keys with MurmurHash3 x64 128-bit under a 32-bit seed.
type Murmur3[H Word] struct{}

// SampleSeed draws a uniform 32-bit seed.
func (Murmur3[H]) SampleSeed(rng *rand.Rand) uint32 { return rng.Uint32() }

// NewWithSeed returns a hash state keyed by seed.
func (Murmur3[H]) NewWithSeed(seed uint32) TripleHash[H] {
	return murmur3State[H]{murmur3.New128WithSeed(seed)}
}

// HasherID returns HasherMurmur3.
func (Murmur3[H]) HasherID() HasherID { return HasherMurmur3 }

// AppendSeed appends seed as 4 little-endian bytes.
func (Murmur3[H]) AppendSeed(dst []byte, seed uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, seed)
}

// DecodeSeed parses a seed written by AppendSeed.
func (Murmur3[H]) DecodeSeed(src []byte) (uint32, error) {
	if len(src) != 4 {
		return 0, fmt.Errorf("%w: murmur3 seed is %d bytes, want 4", herrors.ErrCorruptedMap, len(src))
	}
	return binary.LittleEndian.Uint32(src), nil
}

type murmur3State[H Word] struct {
	h murmur3.Hash128
}

func (s murmur3State[H]) Write(p []byte) (int, error) { return s.h.Write(p) }

func (s murmur3State[H]) FinishTriple() (H, H, H) {
	lo, hi := s.h.Sum128()
	return splitTriple[H](lo, hi)
}

func decodeSeed64(src []byte) (uint64, error) {
	if len(src) != 8 {
		return 0, fmt.Errorf("%w: seed is %d bytes, want 8", herrors.ErrCorruptedMap, len(src))
	}
	return binary.LittleEndian.Uint64(src), nil
}
