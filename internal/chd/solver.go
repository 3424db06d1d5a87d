package chd

import "slices"

// Solver runs displacement searches. Its buffers are reused across Solve
// calls, so one Solver serves every seed attempt of a build.
//
// A Solver is NOT safe for concurrent use.
type Solver[H Word] struct {
	// Bucket layout (CSR)
	bucketStarts []int // len numBuckets+1
	members      []int // entry indices grouped by bucket
	entryBucket  []int // entry -> bucket
	cursor       []int
	order        []int // bucket ids, largest first
	sortCounts   []int

	// Placement state
	slots   []int    // slot -> entry, -1 if free
	stamps  []uint64 // slot -> generation of the trial that last touched it
	pending []int    // slots claimed by the current trial

	// generation identifies the current (d1, d2) trial. A slot is used in
	// this trial iff stamps[slot] == generation. It only grows, so stamps
	// survive across Solve calls without clearing.
	generation uint64
}

// NewSolver returns an empty Solver.
func NewSolver[H Word]() *Solver[H] {
	return &Solver[H]{}
}

// reset sizes the buffers for n entries and numBuckets buckets.
func (s *Solver[H]) reset(n, numBuckets int) {
	s.bucketStarts = grow(s.bucketStarts, numBuckets+1)
	s.members = grow(s.members, n)
	s.entryBucket = grow(s.entryBucket, n)
	s.cursor = grow(s.cursor, numBuckets)
	s.order = grow(s.order, numBuckets)
	s.slots = grow(s.slots, n)
	for i := range s.slots {
		s.slots[i] = -1
	}
	if len(s.stamps) < n {
		// Fresh stamps are zero, which never equals a live generation.
		s.stamps = make([]uint64, n)
	}
	s.pending = s.pending[:0]
}

func grow(buf []int, n int) []int {
	if cap(buf) < n {
		return make([]int, n)
	}
	return buf[:n]
}

// nextGeneration starts a new trial. On wraparound every stamp is cleared
// so a stale stamp can never be mistaken for the current trial.
func (s *Solver[H]) nextGeneration() {
	s.generation++
	if s.generation == 0 {
		clear(s.stamps)
		s.generation = 1
	}
}

// Solve attempts to place every entry. hashes is indexed by entry position.
// It returns false when some bucket admits no displacement pair; the caller
// should retry with hashes computed under a different seed.
//
// len(hashes) must not exceed MaxValue[H]().
func (s *Solver[H]) Solve(hashes []Triple[H]) (State[H], bool) {
	n := len(hashes)
	numBuckets := NumBuckets(n)
	s.reset(n, numBuckets)
	if n == 0 {
		return State[H]{Displacements: []Displacement[H]{}, Indices: []int{}}, true
	}

	s.bucketize(hashes, numBuckets)
	s.orderBuckets(numBuckets)

	displacements := make([]Displacement[H], numBuckets)
	for _, b := range s.order[:numBuckets] {
		members := s.members[s.bucketStarts[b]:s.bucketStarts[b+1]]
		if len(members) == 0 {
			// Remaining buckets are empty too; their pair stays (0, 0).
			break
		}
		d, ok := s.place(hashes, members)
		if !ok {
			return State[H]{}, false
		}
		displacements[b] = d
	}

	return State[H]{
		Displacements: displacements,
		Indices:       slices.Clone(s.slots[:n]),
	}, true
}

// place searches (d1, d2) row-major and commits the first pair under which
// every member lands on a distinct free slot.
func (s *Solver[H]) place(hashes []Triple[H], members []int) (Displacement[H], bool) {
	n := uint64(len(s.slots))
	for d1 := uint64(0); d1 < n; d1++ {
	trial:
		for d2 := uint64(0); d2 < n; d2++ {
			s.nextGeneration()
			s.pending = s.pending[:0]

			for _, entry := range members {
				h := hashes[entry]
				slot := Slot(h.H1, h.H2, H(d1), H(d2), n)
				if s.slots[slot] >= 0 || s.stamps[slot] == s.generation {
					continue trial
				}
				s.stamps[slot] = s.generation
				s.pending = append(s.pending, slot)
			}

			for j, slot := range s.pending {
				s.slots[slot] = members[j]
			}
			return Displacement[H]{D1: H(d1), D2: H(d2)}, true
		}
	}
	return Displacement[H]{}, false
}
