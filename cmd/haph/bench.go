package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/haph"
)

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	numKeys := fs.Int("keys", 1_000_000, "number of keys")
	readers := fs.Int("readers", runtime.NumCPU(), "concurrent query goroutines")
	verbose := fs.Bool("v", false, "verbose logging")
	var bf buildFlags
	bf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := bf.merge(fs, defaultBuildConfig())
	*readers = max(*readers, 1)

	log, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	id, err := haph.ParseHasherID(cfg.Hasher)
	if err != nil {
		return err
	}

	fmt.Println("Generating keys...")
	rng := rand.New(rand.NewPCG(haph.FixedSeed, uint64(*numKeys)))
	seen := make(map[uint64]struct{}, *numKeys)
	entries := make([]haph.Entry[string, string], 0, *numKeys)
	for len(entries) < *numKeys {
		x := rng.Uint64()
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		k := strconv.FormatUint(x, 16)
		entries = append(entries, haph.Entry[string, string]{Key: k, Value: k})
	}

	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	fmt.Println("Building map...")
	start := time.Now()
	m, err := buildMap(ctx, entries, id, cfg.Width,
		haph.WithWorkers(cfg.Workers),
		haph.WithMaxSeedAttempts(cfg.MaxSeedAttempts),
		haph.WithLogger(log))
	if err != nil {
		return err
	}
	buildDuration := time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	encoded, err := m.AppendBinary(nil, stringCodec, stringCodec, haph.WithCompression(cfg.Compress))
	if err != nil {
		return err
	}

	fmt.Println("Querying (single-threaded)...")
	start = time.Now()
	for _, e := range entries {
		if v, ok := m.Lookup(e.Key); !ok || v != e.Value {
			return fmt.Errorf("lookup %q failed", e.Key)
		}
	}
	singleDuration := time.Since(start)

	fmt.Printf("Querying (%d readers)...\n", *readers)
	start = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for r := range *readers {
		g.Go(func() error {
			for i, j := r, 0; i < len(entries); i, j = i+*readers, j+1 {
				if j%65536 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				if _, ok := m.Lookup(entries[i].Key); !ok {
					return fmt.Errorf("lookup %q failed", entries[i].Key)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	parallelDuration := time.Since(start)

	st := m.Stats()
	n := float64(max(st.NumEntries, 1))
	fmt.Printf("\nResults:\n")
	fmt.Printf("  Hasher:            %s/%d\n", id, cfg.Width)
	fmt.Printf("  Keys:              %d\n", st.NumEntries)
	fmt.Printf("  Buckets:           %d\n", st.NumBuckets)
	fmt.Printf("  Seed attempts:     %d\n", st.SeedAttempts)
	fmt.Printf("  Bits/key:          %.2f\n", st.BitsPerKey)
	fmt.Printf("  Build time:        %v (%.0f ns/key)\n", buildDuration, float64(buildDuration.Nanoseconds())/n)
	fmt.Printf("  Heap growth:       %.1f MB\n", float64(int64(after.HeapAlloc)-int64(before.HeapAlloc))/(1<<20))
	fmt.Printf("  Encoded size:      %d bytes (compress=%v)\n", len(encoded), cfg.Compress)
	fmt.Printf("  Query (1 reader):  %.1f ns/query\n", float64(singleDuration.Nanoseconds())/n)
	fmt.Printf("  Query (%d readers): %.1f ns/query, %.1f Mq/s\n", *readers,
		float64(parallelDuration.Nanoseconds())/n, n/parallelDuration.Seconds()/1e6)
	return nil
}
