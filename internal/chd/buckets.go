package chd

// bucketize groups entry indices by bucket into a CSR layout:
// members[starts[b]:starts[b+1]] holds the entries of bucket b in input order.
func (s *Solver[H]) bucketize(hashes []Triple[H], numBuckets int) {
	starts := s.bucketStarts[:numBuckets+1]
	clear(starts)

	for i := range hashes {
		s.entryBucket[i] = Bucket(hashes[i].H0, numBuckets)
		starts[s.entryBucket[i]+1]++
	}
	for b := range numBuckets {
		starts[b+1] += starts[b]
	}

	// Fill using a cursor per bucket, reusing cursor as scratch.
	cursor := s.cursor[:numBuckets]
	copy(cursor, starts[:numBuckets])
	for i := range hashes {
		b := s.entryBucket[i]
		s.members[cursor[b]] = i
		cursor[b]++
	}
}

// orderBuckets sorts bucket ids by size (largest first) using counting sort.
// Buckets of equal size keep ascending id order, so the result is
// deterministic.
func (s *Solver[H]) orderBuckets(numBuckets int) {
	countingSortBucketsInto(s.bucketStarts[:numBuckets+1], s.order[:numBuckets], &s.sortCounts)
}

// countingSortBucketsInto writes bucket ids ordered by descending size into
// result. bucketStarts has len(result)+1 cumulative counts. counts is a
// reusable scratch buffer, grown as needed.
func countingSortBucketsInto(bucketStarts []int, result []int, counts *[]int) {
	n := len(bucketStarts) - 1
	if n <= 0 {
		return
	}

	maxSize := 0
	for i := range n {
		if size := bucketStarts[i+1] - bucketStarts[i]; size > maxSize {
			maxSize = size
		}
	}

	if cap(*counts) < maxSize+1 {
		*counts = make([]int, maxSize+1)
	}
	c := (*counts)[:maxSize+1]
	clear(c)

	for i := range n {
		c[bucketStarts[i+1]-bucketStarts[i]]++
	}

	// Convert counts to start positions, largest size first.
	pos := 0
	for size := maxSize; size >= 0; size-- {
		count := c[size]
		c[size] = pos
		pos += count
	}

	for i := range n {
		size := bucketStarts[i+1] - bucketStarts[i]
		result[c[size]] = i
		c[size]++
	}
}
