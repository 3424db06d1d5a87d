package haph

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/pierrec/lz4/v4"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/chd"
	"github.com/tamirms/haph/internal/encoding"
)

// mapEncoding holds the variable-length parts of a serialized map, computed
// before the output buffer is sized.
// File layout: [Header 32B][Seed][Displacements][RawLen 8B][StoredLen 8B][Entries][Footer 16B]
type mapEncoding struct {
	hdr    header
	seed   []byte
	rawLen uint64
	stored []byte // entry region as written (lz4 block when hdr.compressed())
}

// size returns the exact encoded size in bytes.
func (e *mapEncoding) size() int {
	return headerSize + len(e.seed) + int(e.hdr.tableSize()) + entryRegionPrefix + len(e.stored) + footerSize
}

// prepare serializes the seed and entries and fills in the header.
func (m *Map[K, V, S, H]) prepare(keys Codec[K], values Codec[V], opts []WriteOption) (*mapEncoding, error) {
	sc, ok := any(m.hasher).(SeedCodec[S])
	if !ok {
		return nil, herrors.ErrUnsupportedHasher
	}

	cfg := &writeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	seed := sc.AppendSeed(nil, m.seed)
	if len(seed) > 255 {
		return nil, fmt.Errorf("%w: seed encodes to %d bytes (max 255)", herrors.ErrUnsupportedHasher, len(seed))
	}

	var raw []byte
	for i := range m.entries {
		raw = keys.Append(raw, m.entries[i].Key)
		raw = values.Append(raw, m.entries[i].Value)
	}

	e := &mapEncoding{
		hdr: header{
			Magic:      magic,
			Version:    version,
			WordBytes:  uint8(chd.WidthBytes[H]()),
			HasherID:   sc.HasherID(),
			NumEntries: uint64(len(m.entries)),
			NumBuckets: uint32(len(m.displacements)),
			SeedLen:    uint8(len(seed)),
		},
		seed:   seed,
		rawLen: uint64(len(raw)),
		stored: raw,
	}

	if cfg.compress && len(raw) > 0 {
		var c lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := c.CompressBlock(raw, dst)
		if err != nil {
			return nil, fmt.Errorf("compress entry region: %w", err)
		}
		// n == 0 means the block is incompressible.
		if n > 0 && n < len(raw) {
			e.stored = dst[:n]
			e.hdr.Flags |= flagCompressed
		}
	}
	return e, nil
}

// encodeInto writes the complete map into buf, which must be exactly
// e.size() bytes.
func (m *Map[K, V, S, H]) encodeInto(e *mapEncoding, buf []byte) {
	e.hdr.encodeTo(buf[:headerSize])
	off := headerSize
	off += copy(buf[off:], e.seed)

	width := int(e.hdr.WordBytes)
	for _, d := range m.displacements {
		encoding.PutWord(buf[off:], uint64(d.D1), width)
		encoding.PutWord(buf[off+width:], uint64(d.D2), width)
		off += 2 * width
	}
	tableHash := xxhash.Sum64(buf[headerSize:off])

	putUint64(buf[off:], e.rawLen)
	putUint64(buf[off+8:], uint64(len(e.stored)))
	off += entryRegionPrefix
	off += copy(buf[off:], e.stored)

	ftr := footer{
		TableHash: tableHash,
		EntryHash: xxhash.Sum64(e.stored),
	}
	ftr.encodeTo(buf[off:])
}

// AppendBinary appends the serialized map to dst. Keys and values are
// encoded with the given codecs; the map's hasher must implement SeedCodec.
func (m *Map[K, V, S, H]) AppendBinary(dst []byte, keys Codec[K], values Codec[V], opts ...WriteOption) ([]byte, error) {
	e, err := m.prepare(keys, values, opts)
	if err != nil {
		return dst, err
	}
	start := len(dst)
	dst = append(dst, make([]byte, e.size())...)
	m.encodeInto(e, dst[start:])
	return dst, nil
}

// WriteFile serializes the map to path, replacing any existing file.
//
// The file is pre-allocated and written through a shared memory mapping.
// On error the partial file is removed.
func (m *Map[K, V, S, H]) WriteFile(path string, keys Codec[K], values Codec[V], opts ...WriteOption) error {
	e, err := m.prepare(keys, values, opts)
	if err != nil {
		return err
	}
	size := e.size()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	cleanup := func(primary error) error {
		return errors.Join(primary, file.Close(), os.Remove(path))
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := preallocate(file, int64(size)); err != nil {
		return cleanup(fmt.Errorf("allocate disk space: %w", err))
	}

	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		return cleanup(fmt.Errorf("mmap map file: %w", err))
	}
	prefaultWrite(mm)

	m.encodeInto(e, mm)

	// Flush dirty pages to file (ensures writes visible before unmap)
	if err := mm.Flush(); err != nil {
		return cleanup(errors.Join(fmt.Errorf("mmap flush failed: %w", err), mm.Unmap()))
	}
	if err := mm.Unmap(); err != nil {
		return cleanup(fmt.Errorf("mmap unmap failed: %w", err))
	}
	if err := file.Close(); err != nil {
		return errors.Join(fmt.Errorf("close map file: %w", err), os.Remove(path))
	}
	return nil
}
