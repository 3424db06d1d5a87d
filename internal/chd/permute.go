package chd

import "github.com/tamirms/haph/internal/bits"

// Permute reorders data in place so that afterwards data[j] holds what was
// at data[indices[j]]. indices must be a permutation of [0, len(data)).
//
// Each cycle of the permutation is followed once, moving every element at
// most once. Visited positions are tracked in a bit set.
func Permute[T any](data []T, indices []int) {
	visited := bits.NewSet(len(data))
	for start := range data {
		if visited.Has(start) {
			continue
		}
		visited.Add(start)
		if indices[start] == start {
			continue
		}

		tmp := data[start]
		j := start
		for {
			k := indices[j]
			if k == start {
				data[j] = tmp
				break
			}
			data[j] = data[k]
			visited.Add(k)
			j = k
		}
	}
}
