package main

import (
	"context"
	"fmt"

	"github.com/tamirms/haph"
)

// stringMap is the width- and hasher-independent view of a
// haph.Map[string, string, S, H].
type stringMap interface {
	Lookup(key string) (string, bool)
	Len() int
	Stats() haph.Stats
	AppendBinary(dst []byte, keys haph.Codec[string], values haph.Codec[string], opts ...haph.WriteOption) ([]byte, error)
	WriteFile(path string, keys haph.Codec[string], values haph.Codec[string], opts ...haph.WriteOption) error
}

var stringCodec haph.StringCodec[string]

func wrap[M stringMap](m M, err error) (stringMap, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildMap(ctx context.Context, entries []haph.Entry[string, string], id haph.HasherID, width int, opts ...haph.BuildOption) (stringMap, error) {
	switch width {
	case 8:
		return buildWidth[uint8](ctx, entries, id, opts)
	case 16:
		return buildWidth[uint16](ctx, entries, id, opts)
	case 32:
		return buildWidth[uint32](ctx, entries, id, opts)
	case 64:
		return buildWidth[uint64](ctx, entries, id, opts)
	default:
		return nil, fmt.Errorf("unsupported width %d (use 8, 16, 32 or 64)", width)
	}
}

func buildWidth[H haph.Word](ctx context.Context, entries []haph.Entry[string, string], id haph.HasherID, opts []haph.BuildOption) (stringMap, error) {
	key := haph.StringKey[string]
	switch id {
	case haph.HasherXXH3:
		m, err := haph.Build(ctx, entries, haph.XXH3[H]{}, key, opts...)
		return wrap(m, err)
	case haph.HasherXXHash:
		m, err := haph.Build(ctx, entries, haph.XXHash[H]{}, key, opts...)
		return wrap(m, err)
	case haph.HasherMurmur3:
		m, err := haph.Build(ctx, entries, haph.Murmur3[H]{}, key, opts...)
		return wrap(m, err)
	default:
		return nil, fmt.Errorf("unsupported hasher %s", id)
	}
}

// openMap opens a map file with the hasher and width recorded in its header.
func openMap(path string, info haph.Info) (stringMap, error) {
	switch info.WordBytes {
	case 1:
		return openWidth[uint8](path, info.Hasher)
	case 2:
		return openWidth[uint16](path, info.Hasher)
	case 4:
		return openWidth[uint32](path, info.Hasher)
	case 8:
		return openWidth[uint64](path, info.Hasher)
	default:
		return nil, fmt.Errorf("unsupported word size %d", info.WordBytes)
	}
}

func openWidth[H haph.Word](path string, id haph.HasherID) (stringMap, error) {
	key := haph.StringKey[string]
	switch id {
	case haph.HasherXXH3:
		m, err := haph.Open(path, haph.XXH3[H]{}, key, stringCodec, stringCodec)
		return wrap(m, err)
	case haph.HasherXXHash:
		m, err := haph.Open(path, haph.XXHash[H]{}, key, stringCodec, stringCodec)
		return wrap(m, err)
	case haph.HasherMurmur3:
		m, err := haph.Open(path, haph.Murmur3[H]{}, key, stringCodec, stringCodec)
		return wrap(m, err)
	default:
		return nil, fmt.Errorf("unsupported hasher %s", id)
	}
}
