package haph

import (
	"math/rand/v2"

	"github.com/tamirms/haph/internal/chd"
)

// Word is the set of unsigned integer types a hash triple can be made of.
// The width of the Word bounds the number of entries a map can hold and
// sets the wraparound of displacement arithmetic.
type Word = chd.Word

// Hasher produces hash triples. A Hasher is a stateless factory: it draws
// seeds and creates per-key hash states for a given seed.
//
// Implementations must be deterministic for a fixed (seed, key) and should
// spread keys uniformly. Hash quality affects build time, never correctness.
type Hasher[S any, H Word] interface {
	// SampleSeed draws a seed candidate from rng.
	SampleSeed(rng *rand.Rand) S
	// NewWithSeed returns a fresh hash state keyed by seed.
	NewWithSeed(seed S) TripleHash[H]
}

// TripleHash is the state of one key being hashed. Key bytes are fed through
// Write, which like hash.Hash.Write never returns an error. FinishTriple
// returns (h0, h1, h2) and does not change the state.
type TripleHash[H Word] interface {
	Write(p []byte) (int, error)
	FinishTriple() (h0, h1, h2 H)
}

// SeedCodec is implemented by hashers whose maps can be persisted.
// HasherID identifies the hash function in the file header; it must be
// unique among persisted hashers.
type SeedCodec[S any] interface {
	HasherID() HasherID
	AppendSeed(dst []byte, seed S) []byte
	DecodeSeed(src []byte) (S, error)
}

// hashKey computes the triple of an encoded key under seed.
func hashKey[S any, H Word](h Hasher[S, H], seed S, key []byte) chd.Triple[H] {
	state := h.NewWithSeed(seed)
	_, _ = state.Write(key)
	h0, h1, h2 := state.FinishTriple()
	return chd.Triple[H]{H0: h0, H1: h1, H2: h2}
}
