// Package join implements the chunked joiner: the outer orchestrator that
// stores B columns of N sketches each, drives the multi-sort engine over
// each column with pigeonhole-derived per-column radii, de-duplicates
// candidates, and verifies final Hamming distances with early termination.
package join

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/daac-tools/find-simdoc/internal/multisort"
	"github.com/daac-tools/find-simdoc/internal/simerr"
	"github.com/daac-tools/find-simdoc/sketch"
)

// Pair is one reported similar-document pair with its normalized Hamming
// distance.
type Pair struct {
	I, J int
	Dist float64
}

// ChunkedJoiner stores NumChunks() columns of one-chunk sketches each and
// answers all-pairs Hamming-distance queries over their concatenation.
type ChunkedJoiner[T sketch.Word] struct {
	numChunks        int
	columns          [][]T
	n                int
	candidateCounter metric.Int64Counter
}

// SetCandidateCounter wires a counter that is incremented by the number of
// candidate pairs each column's multi-sort pass contributes, before
// Hamming verification narrows them down to the final result. A column
// whose pigeonhole radius excludes it from this query contributes nothing.
// Optional; nil is a no-op.
func (j *ChunkedJoiner[T]) SetCandidateCounter(c metric.Int64Counter) {
	j.candidateCounter = c
}

// New allocates a joiner with numChunks empty columns.
func New[T sketch.Word](numChunks int) (*ChunkedJoiner[T], error) {
	if numChunks <= 0 {
		return nil, simerr.InvalidConfig("num chunks must be >= 1, got %d", numChunks)
	}
	if numChunks > sketch.Dim[T]() {
		return nil, simerr.ArgumentOutOfRange("num chunks %d exceeds sketch width %d", numChunks, sketch.Dim[T]())
	}
	return &ChunkedJoiner[T]{numChunks: numChunks, columns: make([][]T, numChunks)}, nil
}

// Add appends one full sketch, one value per column. It fails with
// ErrShortInput if values has fewer than NumChunks() elements; any values
// beyond NumChunks() are ignored, matching a pull of exactly B values from
// an infinite encoder stream.
func (j *ChunkedJoiner[T]) Add(values []T) error {
	if len(values) < j.numChunks {
		return simerr.ShortInput("sketch iterator yielded %d values, need %d", len(values), j.numChunks)
	}
	for c := 0; c < j.numChunks; c++ {
		j.columns[c] = append(j.columns[c], values[c])
	}
	j.n++
	return nil
}

// NumChunks returns B, the number of columns.
func (j *ChunkedJoiner[T]) NumChunks() int { return j.numChunks }

// NumSketches returns N, the number of sketches appended so far.
func (j *ChunkedJoiner[T]) NumSketches() int { return j.n }

// MemoryInBytes estimates the column storage footprint.
func (j *ChunkedJoiner[T]) MemoryInBytes() int {
	return j.numChunks * j.n * (sketch.Dim[T]() / 8)
}

// SimilarPairs returns every (i,j,d) with i<j, normalized Hamming distance
// d <= r, sorted by (i,j). r must be in [0,1]. Equivalent to
// SimilarPairsConcurrent(r, 1).
func (j *ChunkedJoiner[T]) SimilarPairs(r float64) ([]Pair, error) {
	return j.SimilarPairsConcurrent(r, 1)
}

// SimilarPairsConcurrent is SimilarPairs with the per-column multi-sort
// passes distributed across up to concurrency goroutines. Each column's
// candidates are collected into a candidate set local to that pass, which
// the worker merges into the shared set under a mutex as soon as the
// column is done. This is safe because each column's
// multi-sort pass only ever reads its own column slice. concurrency <= 1
// runs columns serially on the calling goroutine.
func (j *ChunkedJoiner[T]) SimilarPairsConcurrent(r float64, concurrency int) ([]Pair, error) {
	if r < 0 || r > 1 {
		return nil, simerr.ArgumentOutOfRange("radius %f outside [0,1]", r)
	}
	if j.n < 2 {
		return nil, nil
	}
	w := sketch.Dim[T]()
	dim := w * j.numChunks
	// H uses the ceiling for the pigeonhole bound; Hbound uses the floor
	// for early-exit verification. This asymmetry must be preserved
	// exactly: using the same rounding for both drops exact-threshold
	// matches at certain radii.
	H := int(math.Ceil(float64(dim) * r))
	Hbound := int(math.Floor(float64(dim) * r))

	processColumn := func(col int) *candidateSet {
		k := col + H + 1
		if k < j.numChunks {
			return nil
		}
		rj := (k - j.numChunks) / j.numChunks
		bPrime := rj + 3
		if bPrime > w {
			bPrime = w
		}
		local := newCandidateSet(j.n)
		for _, p := range multisort.NewEngine[T](bPrime, rj).SimilarPairs(j.columns[col]) {
			local.Add(p[0], p[1])
		}
		if local.count > 0 && j.candidateCounter != nil {
			j.candidateCounter.Add(context.Background(), int64(local.count))
		}
		return local
	}

	cs := newCandidateSet(j.n)
	if concurrency <= 1 {
		for col := 0; col < j.numChunks; col++ {
			if local := processColumn(col); local != nil {
				cs.Merge(local)
			}
		}
	} else {
		colCh := make(chan int)
		var mu sync.Mutex
		var wg sync.WaitGroup
		for worker := 0; worker < concurrency; worker++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for col := range colCh {
					local := processColumn(col)
					if local == nil {
						continue
					}
					mu.Lock()
					cs.Merge(local)
					mu.Unlock()
				}
			}()
		}
		for col := 0; col < j.numChunks; col++ {
			colCh <- col
		}
		close(colCh)
		wg.Wait()
	}

	candidates := cs.Pairs()
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a][0] != candidates[b][0] {
			return candidates[a][0] < candidates[b][0]
		}
		return candidates[a][1] < candidates[b][1]
	})

	results := make([]Pair, 0, len(candidates))
	for _, c := range candidates {
		i, jj := c[0], c[1]
		d := 0
		exceeded := false
		for col := 0; col < j.numChunks; col++ {
			d += sketch.HamDist(j.columns[col][i], j.columns[col][jj])
			if d > Hbound {
				exceeded = true
				break
			}
		}
		if exceeded {
			continue
		}
		dn := float64(d) / float64(dim)
		if d <= Hbound && dn <= r {
			results = append(results, Pair{I: i, J: jj, Dist: dn})
		}
	}
	return results, nil
}
