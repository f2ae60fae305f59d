package dynamo

import "sync"

// ColumnRange is a half-open span [Start, End) of grid columns.
type ColumnRange struct {
	Start, End int
}

func (r ColumnRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// ColumnRanges splits the interior columns [1, size-1) of a grid with a dead
// border into n contiguous ranges. Each range is size/n wide; the remainder
// goes to the last one. The first range starts at 1 rather than 0, so it is
// one column shorter. n must satisfy 1 <= n <= size.
func ColumnRanges(n, size int) []ColumnRange {
	if n <= 1 {
		return []ColumnRange{{Start: 1, End: size - 1}}
	}
	q := size / n
	ranges := make([]ColumnRange, 0, n)
	ranges = append(ranges, ColumnRange{Start: 1, End: q})
	for i := 1; i < n-1; i++ {
		ranges = append(ranges, ColumnRange{Start: q * i, End: q * (i + 1)})
	}
	ranges = append(ranges, ColumnRange{Start: q * (n - 1), End: size - 1})
	return ranges
}

// ParallelFor executes fn over [0, n) split into at most workers chunks.
// Chunks never overlap, so fn may write to per-index state without locking.
func ParallelFor(n, minChunk, workers int, fn func(start, end int)) {
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
