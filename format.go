package haph

import (
	"encoding/binary"

	herrors "github.com/tamirms/haph/errors"
	"github.com/tamirms/haph/internal/chd"
	"github.com/tamirms/haph/internal/encoding"
)

const (
	// magic number for haph map files, "HAPH" in little-endian
	magic = uint32(0x48504148)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (32 bytes)
	headerSize = 32

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16

	// entryRegionPrefix is the [RawLen 8B][StoredLen 8B] prefix of the entry region
	entryRegionPrefix = 16

	// flagCompressed marks an lz4-compressed entry region
	flagCompressed = uint8(1 << 0)
)

// header is the 32-byte file header.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x48504148 ("HAPH")
//	4       2     Version     0x0001
//	6       1     WordBytes   uint8 (1, 2, 4, 8)
//	7       1     HasherID    uint8
//	8       8     NumEntries  uint64_le
//	16      4     NumBuckets  uint32_le
//	20      1     Flags       uint8 (bit0 = lz4 entry region)
//	21      1     SeedLen     uint8
//	22      10    Reserved    [10]byte (zero)
//
// The header is followed by the seed, the displacement region
// (NumBuckets × 2 × WordBytes), the entry region and the footer.
type header struct {
	Magic      uint32
	Version    uint16
	WordBytes  uint8
	HasherID   HasherID
	NumEntries uint64
	NumBuckets uint32
	Flags      uint8
	SeedLen    uint8
	Reserved   [10]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = h.WordBytes
	buf[7] = uint8(h.HasherID)
	binary.LittleEndian.PutUint64(buf[8:16], h.NumEntries)
	binary.LittleEndian.PutUint32(buf[16:20], h.NumBuckets)
	buf[20] = h.Flags
	buf[21] = h.SeedLen
	copy(buf[22:32], h.Reserved[:])
}

// decodeHeader parses a 32-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, herrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		WordBytes:  buf[6],
		HasherID:   HasherID(buf[7]),
		NumEntries: binary.LittleEndian.Uint64(buf[8:16]),
		NumBuckets: binary.LittleEndian.Uint32(buf[16:20]),
		Flags:      buf[20],
		SeedLen:    buf[21],
	}
	copy(h.Reserved[:], buf[22:32])

	if h.Magic != magic {
		return nil, herrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, herrors.ErrInvalidVersion
	}
	if !encoding.ValidWidth(int(h.WordBytes)) {
		return nil, herrors.ErrCorruptedMap
	}
	// NumBuckets is fully determined by NumEntries.
	if uint64(h.NumBuckets) != h.NumEntries/chd.Lambda+min(h.NumEntries%chd.Lambda, 1) {
		return nil, herrors.ErrCorruptedMap
	}

	return h, nil
}

// compressed reports whether the entry region is lz4-compressed.
func (h *header) compressed() bool {
	return h.Flags&flagCompressed != 0
}

// tableSize returns the size of the displacement region in bytes.
func (h *header) tableSize() uint64 {
	return uint64(h.NumBuckets) * 2 * uint64(h.WordBytes)
}

// footer is the 16-byte file footer.
//
// Layout:
//
//	Offset  Size  Field      Type
//	0       8     TableHash  uint64_le (xxHash64 of seed + displacement region)
//	8       8     EntryHash  uint64_le (xxHash64 of the stored entry bytes)
type footer struct {
	TableHash uint64
	EntryHash uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.TableHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.EntryHash)
}

// decodeFooter parses a 16-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, herrors.ErrTruncatedFile
	}
	return &footer{
		TableHash: binary.LittleEndian.Uint64(buf[0:8]),
		EntryHash: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// Info describes a persisted map without decoding it.
type Info struct {
	Version    uint16
	WordBytes  int
	Hasher     HasherID
	NumEntries uint64
	NumBuckets uint32
	Compressed bool
	Size       int64
}

// DecodeInfo parses the header of an encoded map.
func DecodeInfo(data []byte) (Info, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Version:    h.Version,
		WordBytes:  int(h.WordBytes),
		Hasher:     h.HasherID,
		NumEntries: h.NumEntries,
		NumBuckets: h.NumBuckets,
		Compressed: h.compressed(),
		Size:       int64(len(data)),
	}, nil
}

func putUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}
