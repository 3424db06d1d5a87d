package haph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/pierrec/lz4/v4"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/chd"
	"github.com/tamirms/haph/internal/encoding"
)

// maxCompressionRatio bounds the decompressed size claimed by a file, so a
// corrupted header cannot trigger a huge allocation. lz4 cannot exceed 255:1.
const maxCompressionRatio = 255

// Open reads a map file written by WriteFile.
//
// The file is memory-mapped read-only, decoded into an in-memory Map and
// unmapped before Open returns; the returned Map does not reference the
// file. hasher, encode and the codecs must match those used to write it.
func Open[K comparable, V any, S any, H Word](path string, hasher Hasher[S, H], encode KeyEncoder[K], keys Codec[K], values Codec[V]) (*Map[K, V, S, H], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat map file: %w", err)
	}
	if stat.Size() < headerSize+entryRegionPrefix+footerSize {
		return nil, herrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap map file: %w", err)
	}
	adviseSequential(mm)

	m, err := Decode(mm, hasher, encode, keys, values)
	if unmapErr := mm.Unmap(); unmapErr != nil {
		return nil, errors.Join(err, fmt.Errorf("mmap unmap failed: %w", unmapErr))
	}
	return m, err
}

// ReadInfo reads only the header of a map file.
func ReadInfo(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open map file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat map file: %w", err)
	}

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Info{}, herrors.ErrTruncatedFile
		}
		return Info{}, fmt.Errorf("read map header: %w", err)
	}
	info, err := DecodeInfo(buf)
	if err != nil {
		return Info{}, err
	}
	info.Size = stat.Size()
	return info, nil
}

// Decode parses a map serialized by AppendBinary or WriteFile. The returned
// Map does not alias data.
//
// Decode verifies the header, both checksums, and that every stored key
// resolves to its own slot under the stored seed, so a Map that decodes
// without error answers queries exactly like the one that was written.
func Decode[K comparable, V any, S any, H Word](data []byte, hasher Hasher[S, H], encode KeyEncoder[K], keys Codec[K], values Codec[V]) (*Map[K, V, S, H], error) {
	if hasher == nil {
		return nil, herrors.ErrNilHasher
	}
	if encode == nil {
		return nil, herrors.ErrNilKeyEncoder
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	if int(hdr.WordBytes) != chd.WidthBytes[H]() {
		return nil, fmt.Errorf("%w: file uses %d-byte words, map type uses %d",
			herrors.ErrWidthMismatch, hdr.WordBytes, chd.WidthBytes[H]())
	}
	sc, ok := any(hasher).(SeedCodec[S])
	if !ok {
		return nil, herrors.ErrUnsupportedHasher
	}
	if sc.HasherID() != hdr.HasherID {
		return nil, fmt.Errorf("%w: file uses %s, got %s", herrors.ErrHasherMismatch, hdr.HasherID, sc.HasherID())
	}
	if hdr.NumEntries > chd.MaxValue[H]() {
		return nil, herrors.ErrCorruptedMap
	}

	// Region bounds
	size := uint64(len(data))
	seedOff := uint64(headerSize)
	tableOff := seedOff + uint64(hdr.SeedLen)
	entryOff := tableOff + hdr.tableSize()
	if entryOff+entryRegionPrefix+footerSize > size {
		return nil, herrors.ErrTruncatedFile
	}
	rawLen := binary.LittleEndian.Uint64(data[entryOff:])
	storedLen := binary.LittleEndian.Uint64(data[entryOff+8:])
	storedOff := entryOff + entryRegionPrefix
	footerOff := size - footerSize
	if storedLen > footerOff-storedOff {
		return nil, herrors.ErrTruncatedFile
	}
	if storedOff+storedLen != footerOff {
		return nil, herrors.ErrCorruptedMap
	}
	stored := data[storedOff:footerOff]

	ftr, err := decodeFooter(data[footerOff:])
	if err != nil {
		return nil, err
	}
	if xxhash.Sum64(data[seedOff:entryOff]) != ftr.TableHash {
		return nil, herrors.ErrChecksumFailed
	}
	if xxhash.Sum64(stored) != ftr.EntryHash {
		return nil, herrors.ErrChecksumFailed
	}

	seed, err := sc.DecodeSeed(data[seedOff:tableOff])
	if err != nil {
		return nil, err
	}

	width := int(hdr.WordBytes)
	displacements := make([]Displacement[H], hdr.NumBuckets)
	for i := range displacements {
		off := int(tableOff) + i*2*width
		displacements[i] = Displacement[H]{
			D1: H(encoding.Word(data[off:], width)),
			D2: H(encoding.Word(data[off+width:], width)),
		}
	}

	raw, err := entryBytes(hdr, stored, rawLen)
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(raw, hdr.NumEntries, keys, values)
	if err != nil {
		return nil, err
	}

	m := &Map[K, V, S, H]{
		hasher:        hasher,
		encode:        encode,
		seed:          seed,
		displacements: displacements,
		entries:       entries,
	}
	if err := m.verifySlots(); err != nil {
		return nil, err
	}
	return m, nil
}

// entryBytes returns the uncompressed entry region.
func entryBytes(hdr *header, stored []byte, rawLen uint64) ([]byte, error) {
	if !hdr.compressed() {
		if rawLen != uint64(len(stored)) {
			return nil, herrors.ErrCorruptedMap
		}
		return stored, nil
	}
	if rawLen > uint64(len(stored))*maxCompressionRatio+entryRegionPrefix {
		return nil, herrors.ErrCorruptedMap
	}
	raw := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(stored, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress entry region: %v", herrors.ErrCorruptedMap, err)
	}
	if uint64(n) != rawLen {
		return nil, herrors.ErrCorruptedMap
	}
	return raw, nil
}

// decodeEntries parses exactly n entries that must consume all of raw.
func decodeEntries[K comparable, V any](raw []byte, n uint64, keys Codec[K], values Codec[V]) ([]Entry[K, V], error) {
	entries := make([]Entry[K, V], 0, min(n, uint64(len(raw))))
	for range n {
		k, kn, err := keys.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode key %d: %w", len(entries), err)
		}
		raw = raw[kn:]
		v, vn, err := values.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode value %d: %w", len(entries), err)
		}
		raw = raw[vn:]
		entries = append(entries, Entry[K, V]{Key: k, Value: v})
	}
	if len(raw) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after entries", herrors.ErrCorruptedMap, len(raw))
	}
	return entries, nil
}

// verifySlots checks every entry sits in the slot its key hashes to.
func (m *Map[K, V, S, H]) verifySlots() error {
	if len(m.entries) == 0 {
		return nil
	}
	var buf []byte
	for i := range m.entries {
		buf = m.encode(buf[:0], m.entries[i].Key)
		if got := m.slot(buf); got != i {
			return fmt.Errorf("%w: entry %d hashes to slot %d", herrors.ErrCorruptedMap, i, got)
		}
	}
	return nil
}
