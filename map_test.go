package haph

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/chd"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// constHasher maps every key to the same triple, so no seed can separate
// two keys.
type constHasher struct{}

func (constHasher) SampleSeed(rng *rand.Rand) uint64 { return rng.Uint64() }

func (constHasher) NewWithSeed(uint64) TripleHash[uint16] { return constState{} }

type constState struct{}

func (constState) Write(p []byte) (int, error) { return len(p), nil }

func (constState) FinishTriple() (uint16, uint16, uint16) { return 7, 11, 13 }

// randomStringEntries returns n entries with distinct keys.
func randomStringEntries(rng *rand.Rand, n int) []Entry[string, string] {
	seen := make(map[string]struct{}, n)
	entries := make([]Entry[string, string], 0, n)
	for len(entries) < n {
		k := strconv.FormatUint(rng.Uint64(), 36)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		entries = append(entries, Entry[string, string]{Key: k, Value: "v" + k})
	}
	return entries
}

// checkByteDomain queries every uint8 key and compares against entries.
func checkByteDomain[S any, H Word](t *testing.T, m *Map[uint8, string, S, H], entries []Entry[uint8, string]) {
	t.Helper()
	want := make(map[uint8]string, len(entries))
	for _, e := range entries {
		want[e.Key] = e.Value
	}
	for k := range 256 {
		key := uint8(k)
		gotKey, gotValue, ok := m.Get(key)
		if v, in := want[key]; in {
			require.True(t, ok, "key %d not found", key)
			require.Equal(t, key, gotKey)
			require.Equal(t, v, gotValue)
		} else {
			require.False(t, ok, "absent key %d reported found", key)
			require.Zero(t, gotKey)
			require.Zero(t, gotValue)
		}
	}
}

// ---------------------------------------------------------------------------
// Small-domain scenarios
// ---------------------------------------------------------------------------

func TestByteDomainScenarios(t *testing.T) {
	cases := []struct {
		name    string
		entries []Entry[uint8, string]
	}{
		{"Empty", nil},
		{"Single", []Entry[uint8, string]{{255, "foo"}}},
		{"Three", []Entry[uint8, string]{{1, "foo"}, {3, "bar"}, {9, "baz"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name+"/XXH3", func(t *testing.T) {
			m, err := New(tc.entries, XXH3[uint16]{}, IntegerKey[uint8])
			require.NoError(t, err)
			require.Equal(t, len(tc.entries), m.Len())
			checkByteDomain(t, m, tc.entries)
		})
		t.Run(tc.name+"/XXHash", func(t *testing.T) {
			m, err := New(tc.entries, XXHash[uint8]{}, IntegerKey[uint8])
			require.NoError(t, err)
			checkByteDomain(t, m, tc.entries)
		})
		t.Run(tc.name+"/Murmur3", func(t *testing.T) {
			m, err := New(tc.entries, Murmur3[uint64]{}, IntegerKey[uint8])
			require.NoError(t, err)
			checkByteDomain(t, m, tc.entries)
		})
	}
}

func TestEmptyMap(t *testing.T) {
	m, err := New[string, int](nil, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)
	require.Zero(t, m.Len())
	require.Empty(t, m.Displacements())
	require.False(t, m.Contains(""))
	require.False(t, m.Contains("anything"))

	st := m.Stats()
	require.Zero(t, st.NumBuckets)
	require.Zero(t, st.BitsPerKey)
	require.Equal(t, 1, st.SeedAttempts)

	for range m.All() {
		t.Fatal("empty map yielded an entry")
	}
}

func TestFullByteDomain(t *testing.T) {
	// 255 entries is the most a uint8-wide map can hold.
	entries := make([]Entry[uint8, string], 255)
	for i := range entries {
		entries[i] = Entry[uint8, string]{Key: uint8(i + 1), Value: fmt.Sprint(i + 1)}
	}
	m, err := New(entries, XXH3[uint8]{}, IntegerKey[uint8])
	require.NoError(t, err)
	require.Equal(t, chd.NumBuckets(255), len(m.Displacements()))
	checkByteDomain(t, m, entries)
}

// ---------------------------------------------------------------------------
// Construction errors
// ---------------------------------------------------------------------------

func TestDuplicateKey(t *testing.T) {
	entries := []Entry[uint8, string]{{1, "a"}, {5, "b"}, {7, "c"}, {5, "d"}}
	m, err := New(entries, XXH3[uint16]{}, IntegerKey[uint8])
	require.ErrorIs(t, err, herrors.ErrDuplicateKey)
	require.ErrorContains(t, err, "entries 1 and 3")
	require.Nil(t, m)
}

func TestDuplicateEncoding(t *testing.T) {
	// Only the low byte is encoded, so keys 0 and 256 collide.
	lowByte := func(dst []byte, k uint16) []byte { return append(dst, byte(k)) }
	entries := make([]Entry[uint16, int], 2000)
	for i := range entries {
		entries[i] = Entry[uint16, int]{Key: uint16(i), Value: i}
	}

	m, err := New(entries, XXH3[uint32]{}, lowByte)
	require.ErrorIs(t, err, herrors.ErrDuplicateEncoding)
	require.ErrorContains(t, err, "entries 0 and 256 encode identically")
	require.Nil(t, m)

	// The same encoder is fine while the low bytes stay distinct.
	m, err = New(entries[:256], XXH3[uint32]{}, lowByte)
	require.NoError(t, err)
	require.Equal(t, 256, m.Len())
}

func TestDuplicateKeyBeforeHashing(t *testing.T) {
	// constHasher can never succeed, so reaching the seed search would
	// report exhaustion instead of the duplicate.
	entries := []Entry[uint8, string]{{5, "a"}, {5, "b"}}
	_, err := New(entries, constHasher{}, IntegerKey[uint8], WithMaxSeedAttempts(1))
	require.ErrorIs(t, err, herrors.ErrDuplicateKey)
}

func TestTooManyEntries(t *testing.T) {
	entries := make([]Entry[uint16, struct{}], 256)
	for i := range entries {
		entries[i].Key = uint16(i)
	}

	_, err := New(entries, XXH3[uint8]{}, IntegerKey[uint16])
	require.ErrorIs(t, err, herrors.ErrTooManyEntries)

	// One fewer fits.
	m, err := New(entries[:255], XXH3[uint8]{}, IntegerKey[uint16])
	require.NoError(t, err)
	require.Equal(t, 255, m.Len())

	// The same entries fit a wider word.
	m16, err := New(entries, XXH3[uint16]{}, IntegerKey[uint16])
	require.NoError(t, err)
	require.Equal(t, 256, m16.Len())
}

func TestSeedSearchExhausted(t *testing.T) {
	entries := []Entry[uint8, string]{{1, "a"}, {2, "b"}}
	_, err := New(entries, constHasher{}, IntegerKey[uint8], WithMaxSeedAttempts(3))
	require.ErrorIs(t, err, herrors.ErrSeedSearchExhausted)
	require.ErrorContains(t, err, "3 seeds")
}

func TestNilArguments(t *testing.T) {
	entries := []Entry[uint8, string]{{1, "a"}}

	_, err := New[uint8, string, uint64, uint16](entries, nil, IntegerKey[uint8])
	require.ErrorIs(t, err, herrors.ErrNilHasher)

	_, err = New(entries, XXH3[uint16]{}, nil)
	require.ErrorIs(t, err, herrors.ErrNilKeyEncoder)
}

func TestMustNew(t *testing.T) {
	m := MustNew([]Entry[string, int]{{"a", 1}, {"b", 2}}, XXHash[uint32]{}, StringKey[string])
	v, ok := m.Lookup("b")
	require.True(t, ok)
	require.Equal(t, 2, v)

	require.PanicsWithError(t, "haph: duplicate key present: entries 0 and 1", func() {
		MustNew([]Entry[string, int]{{"a", 1}, {"a", 2}}, XXHash[uint32]{}, StringKey[string])
	})
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []Entry[uint8, string]{{1, "a"}}
	_, err := Build(ctx, entries, XXH3[uint16]{}, IntegerKey[uint8])
	require.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func TestRandomStringKeys(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{1, 2, 5, 6, 100, 1000, 20000} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			entries := randomStringEntries(rng, n)
			m, err := New(entries, XXH3[uint32]{}, StringKey[string])
			require.NoError(t, err)
			require.Equal(t, n, m.Len())
			require.Len(t, m.Displacements(), chd.NumBuckets(n))

			for _, e := range entries {
				k, v, ok := m.Get(e.Key)
				require.True(t, ok, "key %q", e.Key)
				require.Equal(t, e.Key, k)
				require.Equal(t, e.Value, v)
			}
			for range 1000 {
				// Keys from FormatUint never contain '#'.
				require.False(t, m.Contains("#"+strconv.FormatUint(rng.Uint64(), 36)))
			}
		})
	}
}

func TestAllHashersAndWidths(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 200)

	check := func(t *testing.T, get func(string) (string, bool)) {
		t.Helper()
		for _, e := range entries {
			v, ok := get(e.Key)
			require.True(t, ok, "key %q", e.Key)
			require.Equal(t, e.Value, v)
		}
		_, ok := get("missing")
		require.False(t, ok)
	}

	t.Run("XXH3/8", func(t *testing.T) { check(t, MustNew(entries, XXH3[uint8]{}, StringKey[string]).Lookup) })
	t.Run("XXH3/16", func(t *testing.T) { check(t, MustNew(entries, XXH3[uint16]{}, StringKey[string]).Lookup) })
	t.Run("XXH3/32", func(t *testing.T) { check(t, MustNew(entries, XXH3[uint32]{}, StringKey[string]).Lookup) })
	t.Run("XXH3/64", func(t *testing.T) { check(t, MustNew(entries, XXH3[uint64]{}, StringKey[string]).Lookup) })
	t.Run("XXHash/16", func(t *testing.T) { check(t, MustNew(entries, XXHash[uint16]{}, StringKey[string]).Lookup) })
	t.Run("XXHash/64", func(t *testing.T) { check(t, MustNew(entries, XXHash[uint64]{}, StringKey[string]).Lookup) })
	t.Run("Murmur3/8", func(t *testing.T) { check(t, MustNew(entries, Murmur3[uint8]{}, StringKey[string]).Lookup) })
	t.Run("Murmur3/32", func(t *testing.T) { check(t, MustNew(entries, Murmur3[uint32]{}, StringKey[string]).Lookup) })
}

func TestLongKeys(t *testing.T) {
	// Keys longer than the inline Get buffer.
	rng := newTestRNG(t)
	entries := make([]Entry[string, int], 50)
	for i := range entries {
		b := make([]byte, maxInlineKey*2+i)
		for j := range b {
			b[j] = byte('a' + rng.IntN(26))
		}
		entries[i] = Entry[string, int]{Key: string(b), Value: i}
	}
	m, err := New(entries, Murmur3[uint16]{}, StringKey[string])
	require.NoError(t, err)
	for _, e := range entries {
		v, ok := m.Lookup(e.Key)
		require.True(t, ok)
		require.Equal(t, e.Value, v)
	}
}

func TestNegativeIntegerKeys(t *testing.T) {
	entries := []Entry[int64, string]{{-1, "a"}, {0, "b"}, {1, "c"}, {-1 << 63, "d"}}
	m, err := New(entries, XXHash[uint16]{}, IntegerKey[int64])
	require.NoError(t, err)
	for _, e := range entries {
		v, ok := m.Lookup(e.Key)
		require.True(t, ok)
		require.Equal(t, e.Value, v)
	}
	require.False(t, m.Contains(2))
}

func TestAllYieldsSlotOrder(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 300)
	m, err := New(entries, XXH3[uint16]{}, StringKey[string])
	require.NoError(t, err)

	var got []Entry[string, string]
	for k, v := range m.All() {
		got = append(got, Entry[string, string]{Key: k, Value: v})
	}
	require.Equal(t, m.entries, got)
	require.ElementsMatch(t, entries, got)

	// Early break.
	count := 0
	for range m.All() {
		count++
		if count == 10 {
			break
		}
	}
	require.Equal(t, 10, count)
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 500)
	orig := slices.Clone(entries)
	_, err := New(entries, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)
	require.Equal(t, orig, entries)
}

func TestDisplacementsReturnsCopy(t *testing.T) {
	m := MustNew([]Entry[uint8, string]{{1, "foo"}, {3, "bar"}, {9, "baz"}}, XXH3[uint16]{}, IntegerKey[uint8])
	d := m.Displacements()
	require.Len(t, d, 1)
	d[0].D1++
	require.NotEqual(t, d[0], m.Displacements()[0])
}

func TestStats(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 1000)
	m, err := New(entries, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)

	st := m.Stats()
	require.Equal(t, 1000, st.NumEntries)
	require.Equal(t, 200, st.NumBuckets)
	require.Equal(t, 4, st.WordBytes)
	require.InDelta(t, 12.8, st.BitsPerKey, 1e-9)
	require.GreaterOrEqual(t, st.SeedAttempts, 1)
}

func TestGetAllocations(t *testing.T) {
	empty := MustNew[string, string](nil, XXH3[uint32]{}, StringKey[string])
	require.Zero(t, testing.AllocsPerRun(100, func() { empty.Get("k") }))

	rng := newTestRNG(t)
	small := randomStringEntries(rng, 10)
	large := randomStringEntries(rng, 10000)
	for _, tc := range []struct {
		name    string
		entries []Entry[string, string]
	}{{"10", small}, {"10000", large}} {
		t.Run(tc.name, func(t *testing.T) {
			xx := MustNew(tc.entries, XXH3[uint32]{}, StringKey[string])
			mm := MustNew(tc.entries, Murmur3[uint32]{}, StringKey[string])
			key := tc.entries[0].Key
			require.LessOrEqual(t, testing.AllocsPerRun(100, func() { xx.Get(key) }), 2.0)
			require.LessOrEqual(t, testing.AllocsPerRun(100, func() { mm.Get(key) }), 3.0)
		})
	}
}

// ---------------------------------------------------------------------------
// Determinism and concurrency
// ---------------------------------------------------------------------------

func TestDeterministicBuild(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 5000)

	a, err := New(entries, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)
	b, err := New(entries, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)

	require.Equal(t, a.Seed(), b.Seed())
	require.Equal(t, a.Displacements(), b.Displacements())
	require.Equal(t, a.entries, b.entries)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 4*minKeysPerWorker+17)

	ref, err := New(entries, XXHash[uint32]{}, StringKey[string])
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		m, err := New(entries, XXHash[uint32]{}, StringKey[string], WithWorkers(workers))
		require.NoError(t, err)
		require.Equal(t, ref.Seed(), m.Seed(), "workers=%d", workers)
		require.Equal(t, ref.Displacements(), m.Displacements(), "workers=%d", workers)
		require.Equal(t, ref.entries, m.entries, "workers=%d", workers)
	}
}

func TestRandSeedChangesSeed(t *testing.T) {
	entries := []Entry[uint8, string]{{1, "foo"}, {3, "bar"}, {9, "baz"}}
	a := MustNew(entries, XXH3[uint16]{}, IntegerKey[uint8])
	b := MustNew(entries, XXH3[uint16]{}, IntegerKey[uint8], WithRandSeed(FixedSeed+1))
	require.NotEqual(t, a.Seed(), b.Seed())
	checkByteDomain(t, b, entries)
}

func TestConcurrentGet(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomStringEntries(rng, 10000)
	m, err := New(entries, XXH3[uint32]{}, StringKey[string])
	require.NoError(t, err)

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			for i := w; i < len(entries); i += 8 {
				v, ok := m.Lookup(entries[i].Key)
				if !ok || v != entries[i].Value {
					return fmt.Errorf("key %q: got (%q, %v)", entries[i].Key, v, ok)
				}
				if m.Contains(entries[i].Key + "#") {
					return errors.New("absent key reported found")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
