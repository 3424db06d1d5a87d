package haph

import (
	"context"
	"fmt"
	"iter"
	"slices"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/chd"
)

// Entry is a key/value pair.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Displacement is the (d1, d2) pair of one bucket.
type Displacement[H Word] = chd.Displacement[H]

// Map is an immutable perfect hash map.
//
// A Map stores exactly one slot per entry. Lookups hash the key once,
// read one displacement pair and compare one stored key, so every query
// costs the same regardless of the key set.
//
// Thread Safety: a Map is never modified after construction, so all methods
// are safe for concurrent use.
type Map[K comparable, V any, S any, H Word] struct {
	hasher Hasher[S, H]
	encode KeyEncoder[K]

	seed          S
	displacements []Displacement[H] // indexed by bucket
	entries       []Entry[K, V]     // in slot order

	attempts int // seeds tried by the build; 0 for decoded maps
}

// Stats holds map statistics.
type Stats struct {
	NumEntries int
	NumBuckets int
	WordBytes  int
	// BitsPerKey is the displacement table size per entry.
	BitsPerKey float64
	// SeedAttempts is the number of seeds the build tried. It is zero for
	// maps loaded with Decode or Open.
	SeedAttempts int
}

// New builds a Map from entries. See Build.
func New[K comparable, V any, S any, H Word](entries []Entry[K, V], hasher Hasher[S, H], encode KeyEncoder[K], opts ...BuildOption) (*Map[K, V, S, H], error) {
	return Build(context.Background(), entries, hasher, encode, opts...)
}

// MustNew is like New but panics if the map cannot be built. It simplifies
// initialization of package-level lookup tables.
func MustNew[K comparable, V any, S any, H Word](entries []Entry[K, V], hasher Hasher[S, H], encode KeyEncoder[K], opts ...BuildOption) *Map[K, V, S, H] {
	m, err := New(entries, hasher, encode, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Build constructs a Map from entries, hashing keys with hasher after
// encoding them with encode. The entries slice is not modified.
//
// Build fails with ErrTooManyEntries if len(entries) exceeds the maximum
// value of H, with ErrDuplicateKey if two keys are ==, with
// ErrDuplicateEncoding if encode maps two distinct keys to the same bytes,
// and with ErrSeedSearchExhausted if no seed yields a placement. ctx is
// checked between seed attempts.
func Build[K comparable, V any, S any, H Word](ctx context.Context, entries []Entry[K, V], hasher Hasher[S, H], encode KeyEncoder[K], opts ...BuildOption) (*Map[K, V, S, H], error) {
	if hasher == nil {
		return nil, herrors.ErrNilHasher
	}
	if encode == nil {
		return nil, herrors.ErrNilKeyEncoder
	}
	if uint64(len(entries)) > chd.MaxValue[H]() {
		return nil, fmt.Errorf("%w: %d entries, max %d", herrors.ErrTooManyEntries, len(entries), chd.MaxValue[H]())
	}
	if i, j, dup := findDuplicate(entries); dup {
		return nil, fmt.Errorf("%w: entries %d and %d", herrors.ErrDuplicateKey, i, j)
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	keys := encodeKeys(entries, encode)
	// Keys sharing an encoding share a hash triple under every seed.
	if i, j, dup := keys.findDuplicate(); dup {
		return nil, fmt.Errorf("%w: entries %d and %d encode identically", herrors.ErrDuplicateEncoding, i, j)
	}

	seed, st, attempts, err := generate(ctx, keys, hasher, cfg)
	if err != nil {
		return nil, err
	}

	data := slices.Clone(entries)
	chd.Permute(data, st.Indices)

	return &Map[K, V, S, H]{
		hasher:        hasher,
		encode:        encode,
		seed:          seed,
		displacements: st.Displacements,
		entries:       data,
		attempts:      attempts,
	}, nil
}

// findDuplicate returns the positions of the first repeated key.
func findDuplicate[K comparable, V any](entries []Entry[K, V]) (int, int, bool) {
	seen := make(map[K]int, len(entries))
	for j := range entries {
		if i, ok := seen[entries[j].Key]; ok {
			return i, j, true
		}
		seen[entries[j].Key] = j
	}
	return 0, 0, false
}

// Get returns the stored key and value for key. ok is false if key was not
// among the entries the map was built from. Get never fails.
//
// Get allocates the key scratch buffer and one hash state per call; the
// count does not depend on the size of the map.
func (m *Map[K, V, S, H]) Get(key K) (storedKey K, value V, ok bool) {
	if len(m.displacements) == 0 {
		return storedKey, value, false
	}

	var buf [maxInlineKey]byte
	e := &m.entries[m.slot(m.encode(buf[:0], key))]
	if e.Key != key {
		// Another key owns this slot.
		return storedKey, value, false
	}
	return e.Key, e.Value, true
}

// slot computes the table position of an encoded key.
// Precondition: the map is not empty.
func (m *Map[K, V, S, H]) slot(encoded []byte) int {
	t := hashKey(m.hasher, m.seed, encoded)
	d := m.displacements[chd.Bucket(t.H0, len(m.displacements))]
	return chd.Slot(t.H1, t.H2, d.D1, d.D2, uint64(len(m.entries)))
}

// Lookup returns the value stored for key.
func (m *Map[K, V, S, H]) Lookup(key K) (V, bool) {
	_, v, ok := m.Get(key)
	return v, ok
}

// Contains reports whether key is in the map.
func (m *Map[K, V, S, H]) Contains(key K) bool {
	_, _, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V, S, H]) Len() int {
	return len(m.entries)
}

// All yields every entry in slot order.
func (m *Map[K, V, S, H]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.entries {
			if !yield(m.entries[i].Key, m.entries[i].Value) {
				return
			}
		}
	}
}

// Seed returns the seed the map's hash function was keyed with.
func (m *Map[K, V, S, H]) Seed() S {
	return m.seed
}

// Displacements returns a copy of the per-bucket displacement table.
func (m *Map[K, V, S, H]) Displacements() []Displacement[H] {
	return slices.Clone(m.displacements)
}

// Stats returns map statistics.
func (m *Map[K, V, S, H]) Stats() Stats {
	st := Stats{
		NumEntries:   len(m.entries),
		NumBuckets:   len(m.displacements),
		WordBytes:    chd.WidthBytes[H](),
		SeedAttempts: m.attempts,
	}
	if st.NumEntries > 0 {
		st.BitsPerKey = float64(st.NumBuckets*2*st.WordBytes*8) / float64(st.NumEntries)
	}
	return st
}
