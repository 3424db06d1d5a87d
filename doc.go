// Package haph implements static perfect hash maps over a pluggable hash
// function.
//
// A Map is built once from a fixed set of key/value pairs and never changes
// afterwards. Every lookup hashes the key once, reads one displacement pair
// and compares one stored key, so lookups cost O(1) in the worst case and
// the table holds exactly one slot per entry.
//
// # Basic Usage
//
// Building a map:
//
//	m, err := haph.New(entries, haph.XXH3[uint32]{}, haph.StringKey[string])
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Querying it:
//
//	if v, ok := m.Lookup("mykey"); ok {
//	    fmt.Println(v)
//	}
//
// Persisting and reloading it:
//
//	codec := haph.StringCodec[string]{}
//	if err := m.WriteFile("map.haph", codec, codec); err != nil {
//	    log.Fatal(err)
//	}
//	m2, err := haph.Open("map.haph", haph.XXH3[uint32]{}, haph.StringKey[string], codec, codec)
//
// # Construction
//
// Keys are grouped into buckets of about five by the first word of their
// hash triple. Buckets are placed largest first: each receives the first
// displacement pair (d1, d2) under which all of its keys land on free slots.
// If some bucket cannot be placed, the build retries with the next seed drawn
// from a generator seeded with FixedSeed, so builds are reproducible.
//
// The hash word type H (uint8 to uint64) bounds the map to MaxValue(H)
// entries and sets the wraparound of the displacement arithmetic.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: map.go (New, Build, Get), reader.go (Decode, Open), writer.go (AppendBinary, WriteFile)
//   - Hashing: hasher.go (Hasher, TripleHash, SeedCodec), hashers.go (XXH3, XXHash, Murmur3), keys.go
//   - Configuration: options.go (BuildOption, WriteOption, With* functions)
//   - Seed search: generate.go
//   - Serialization: format.go (header, footer), codec.go
//   - Placement: internal/chd (buckets, displacement search, permutation)
//   - Platform: preallocate_*.go, madvise_*.go (OS-specific optimizations)
package haph
