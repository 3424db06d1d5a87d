package chd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// startsFromSizes builds cumulative bucket starts from per-bucket sizes.
func startsFromSizes(sizes []int) []int {
	starts := make([]int, len(sizes)+1)
	for i, s := range sizes {
		starts[i+1] = starts[i] + s
	}
	return starts
}

// TestCountingSortOrder tests named deterministic cases for largest-first
// ordering with ascending-index tie-breaking.
func TestCountingSortOrder(t *testing.T) {
	tests := []struct {
		name   string
		sizes  []int
		expect []int
	}{
		{
			name:   "distinct_sizes",
			sizes:  []int{3, 7, 1, 5},
			expect: []int{1, 3, 0, 2},
		},
		{
			name:   "all_same_size",
			sizes:  []int{4, 4, 4, 4, 4},
			expect: []int{0, 1, 2, 3, 4},
		},
		{
			name:   "ties_mixed",
			sizes:  []int{3, 0, 10, 0, 3, 10, 0, 3, 0, 10},
			expect: []int{2, 5, 9, 0, 4, 7, 1, 3, 6, 8},
		},
		{
			name:   "all_empty",
			sizes:  []int{0, 0, 0},
			expect: []int{0, 1, 2},
		},
		{
			name:   "single",
			sizes:  []int{6},
			expect: []int{0},
		},
	}

	var counts []int
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := make([]int, len(tc.sizes))
			countingSortBucketsInto(startsFromSizes(tc.sizes), result, &counts)
			require.Equal(t, tc.expect, result)
		})
	}
}

func TestBucketize(t *testing.T) {
	hashes := []Triple[uint16]{
		{H0: 0}, {H0: 4}, {H0: 2}, {H0: 7}, {H0: 1}, {H0: 3},
		{H0: 10}, {H0: 13}, {H0: 5}, {H0: 6}, {H0: 9},
	}
	n := len(hashes)
	nb := NumBuckets(n) // 3
	require.Equal(t, 3, nb)

	s := NewSolver[uint16]()
	s.reset(n, nb)
	s.bucketize(hashes, nb)

	// h0 mod 3: 0,1,2,1,1,0,1,1,2,0,0
	require.Equal(t, []int{0, 4, 9, 11}, s.bucketStarts[:nb+1])
	require.Equal(t, []int{0, 5, 9, 10}, s.members[0:4])
	require.Equal(t, []int{1, 3, 4, 6, 7}, s.members[4:9])
	require.Equal(t, []int{2, 8}, s.members[9:11])

	s.orderBuckets(nb)
	require.Equal(t, []int{1, 0, 2}, s.order[:nb])
}
