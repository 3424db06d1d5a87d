package haph

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	herrors "github.com/tamirms/haph/errors"
	intbits "github.com/tamirms/haph/internal/bits"
	"github.com/tamirms/haph/internal/chd"
)

// minKeysPerWorker keeps small builds on one goroutine, where spawning
// workers costs more than hashing.
const minKeysPerWorker = 4096

// encodedKeys holds every key's encoding in one buffer.
// Key i is buf[ends[i-1]:ends[i]].
type encodedKeys struct {
	buf  []byte
	ends []int
}

func encodeKeys[K comparable, V any](entries []Entry[K, V], encode KeyEncoder[K]) encodedKeys {
	ek := encodedKeys{ends: make([]int, len(entries))}
	for i := range entries {
		ek.buf = encode(ek.buf, entries[i].Key)
		ek.ends[i] = len(ek.buf)
	}
	return ek
}

func (ek *encodedKeys) len() int {
	return len(ek.ends)
}

func (ek *encodedKeys) key(i int) []byte {
	start := 0
	if i > 0 {
		start = ek.ends[i-1]
	}
	return ek.buf[start:ek.ends[i]]
}

// findDuplicate returns the positions of the first repeated encoding.
func (ek *encodedKeys) findDuplicate() (int, int, bool) {
	seen := make(map[string]int, ek.len())
	for j := range ek.len() {
		k := string(ek.key(j))
		if i, ok := seen[k]; ok {
			return i, j, true
		}
		seen[k] = j
	}
	return 0, 0, false
}

// newSeedRNG returns the deterministic generator seed candidates are drawn
// from. The PCG stream is derived from the same value so a single uint64
// fully determines the sequence.
func newSeedRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, intbits.SplitMix64(seed)))
}

// generate searches for a seed under which the displacement search places
// every key. It returns the seed, the solved state and the number of seeds
// tried.
func generate[S any, H Word](ctx context.Context, keys encodedKeys, hasher Hasher[S, H], cfg *buildConfig) (S, chd.State[H], int, error) {
	start := time.Now()
	rng := newSeedRNG(cfg.randSeed)
	hashes := make([]chd.Triple[H], keys.len())
	solver := chd.NewSolver[H]()

	for attempt := 1; attempt <= cfg.maxSeedAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			var zero S
			return zero, chd.State[H]{}, attempt - 1, err
		}

		seed := hasher.SampleSeed(rng)
		if err := hashAll(ctx, hasher, seed, keys, hashes, cfg.workers); err != nil {
			var zero S
			return zero, chd.State[H]{}, attempt, err
		}

		st, ok := solver.Solve(hashes)
		if ok {
			cfg.logger.Info("perfect hash map built",
				zap.Int("entries", keys.len()),
				zap.Int("buckets", len(st.Displacements)),
				zap.Int("attempts", attempt),
				zap.Duration("elapsed", time.Since(start)))
			return seed, st, attempt, nil
		}
		cfg.logger.Debug("seed attempt failed",
			zap.Int("attempt", attempt),
			zap.Any("seed", seed))
	}

	var zero S
	return zero, chd.State[H]{}, cfg.maxSeedAttempts, fmt.Errorf("%w: no placement after %d seeds",
		herrors.ErrSeedSearchExhausted, cfg.maxSeedAttempts)
}

// hashAll fills hashes with the triple of every key under seed. With
// workers > 1 the keys are split into contiguous chunks hashed in parallel;
// each chunk writes only its own indices, so the output is identical to the
// sequential path.
func hashAll[S any, H Word](ctx context.Context, hasher Hasher[S, H], seed S, keys encodedKeys, hashes []chd.Triple[H], workers int) error {
	n := keys.len()
	if workers > n/minKeysPerWorker {
		workers = n / minKeysPerWorker
	}
	if workers <= 1 {
		for i := range n {
			hashes[i] = hashKey(hasher, seed, keys.key(i))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				hashes[i] = hashKey(hasher, seed, keys.key(i))
			}
			return nil
		})
	}
	return g.Wait()
}
