// Package multisort implements the generalized-pigeonhole multi-sort
// candidate generator: given one column of N equal-width sketches, a radius
// r' and a block count B', it enumerates every pair whose Hamming distance
// is at most r', each pair exactly once.
//
// https://doi.org/10.1007/s10115-009-0271-6
package multisort

import (
	"sort"

	"github.com/daac-tools/find-simdoc/internal/bitset"
	"github.com/daac-tools/find-simdoc/sketch"
)

const radixThreshold = 1000

type record[T sketch.Word] struct {
	id  int
	val T
}

type blockRange struct{ lo, hi int }

// Engine holds the block-mask table and scratch buffers for one (numBlocks,
// radius) configuration, so repeated SimilarPairs calls on one Engine
// avoid reallocating the mask table.
type Engine[T sketch.Word] struct {
	radius    int
	numBlocks int
	masks     []T
	ranges    []blockRange
	scratch   []record[T]
}

// NewEngine builds the block partition for numBlocks blocks over a
// sketch of width sketch.Dim[T](). radius must be in [0,numBlocks] and
// numBlocks must be in [radius, sketch.Dim[T]()]; violations are
// programming errors in the caller (the chunked joiner derives both from
// validated configuration) and panic rather than return an error.
func NewEngine[T sketch.Word](numBlocks, radius int) *Engine[T] {
	w := sketch.Dim[T]()
	if radius < 0 || radius > numBlocks || numBlocks > w || numBlocks <= 0 {
		panic("multisort: invalid (numBlocks, radius) for sketch width")
	}
	masks := make([]T, numBlocks)
	ranges := make([]blockRange, numBlocks)
	i := 0
	for b := 0; b < numBlocks; b++ {
		dim := (b + w) / numBlocks
		masks[b] = sketch.Mask[T](i, i+dim)
		ranges[b] = blockRange{i, i + dim}
		i += dim
	}
	return &Engine[T]{radius: radius, numBlocks: numBlocks, masks: masks, ranges: ranges}
}

// SimilarPairs returns every (i,j), i<j, with hamdist(sketches[i],
// sketches[j]) <= radius, each pair exactly once.
func (e *Engine[T]) SimilarPairs(sketches []T) [][2]int {
	records := make([]record[T], len(sketches))
	for i, s := range sketches {
		records[i] = record[T]{id: i, val: s}
	}
	e.scratch = make([]record[T], len(records))
	var results [][2]int
	e.recur(records, bitset.New(), &results)
	return results
}

// SimilarPairs is a convenience wrapper for one-off calls that do not need
// to reuse an Engine across columns.
func SimilarPairs[T sketch.Word](sketches []T, radius, numBlocks int) [][2]int {
	return NewEngine[T](numBlocks, radius).SimilarPairs(sketches)
}

func (e *Engine[T]) recur(records []record[T], blocks bitset.Set, results *[][2]int) {
	if blocks.Len() == e.numBlocks-e.radius {
		e.verifyAllPairs(records, blocks, results)
		return
	}
	maxBlock := 0
	if m, ok := blocks.Max(); ok {
		maxBlock = m + 1
	}
	for b := maxBlock; b < e.numBlocks; b++ {
		e.sortByBlock(b, records)
		for _, r := range e.collisionRanges(b, records) {
			e.recur(records[r[0]:r[1]], blocks.Add(b), results)
		}
	}
}

func (e *Engine[T]) verifyAllPairs(records []record[T], blocks bitset.Set, results *[][2]int) {
	for i := 0; i < len(records); i++ {
		x := records[i]
		for j := i + 1; j < len(records); j++ {
			y := records[j]
			if sketch.HamDist(x.val, y.val) <= e.radius && e.checkCanonical(x.val, y.val, blocks) {
				lo, hi := x.id, y.id
				if lo > hi {
					lo, hi = hi, lo
				}
				*results = append(*results, [2]int{lo, hi})
			}
		}
	}
}

// checkCanonical discards a pair if it will be reported under a
// lexicographically smaller block-index set, so each surviving pair is
// emitted by exactly one recursion path.
func (e *Engine[T]) checkCanonical(x, y T, blocks bitset.Set) bool {
	m := 0
	if v, ok := blocks.Max(); ok {
		m = v
	}
	canonical := true
	blocks.Complement().Iterate(func(b int) bool {
		if m <= b {
			return false
		}
		if x&e.masks[b] == y&e.masks[b] {
			canonical = false
			return false
		}
		return true
	})
	return canonical
}

func (e *Engine[T]) collisionRanges(b int, records []record[T]) [][2]int {
	mask := e.masks[b]
	var ranges [][2]int
	i := 0
	for j := 1; j < len(records); j++ {
		if records[i].val&mask == records[j].val&mask {
			continue
		}
		if j-i >= 2 {
			ranges = append(ranges, [2]int{i, j})
		}
		i = j
	}
	if j := len(records); j-i >= 2 {
		ranges = append(ranges, [2]int{i, j})
	}
	return ranges
}

// sortByBlock sorts records by their masked value on block b. Small slices
// use a comparison sort (need not be stable: only equal-key runs matter,
// never relative order within them); slices at or above radixThreshold use
// an LSD radix sort over the byte lanes spanning the block's bit range,
// which is naturally stable and asymptotically cheaper at scale.
func (e *Engine[T]) sortByBlock(b int, records []record[T]) {
	mask := e.masks[b]
	if len(records) < radixThreshold {
		sort.Slice(records, func(i, j int) bool {
			return uint64(records[i].val&mask) < uint64(records[j].val&mask)
		})
		return
	}
	e.radixSortByBlock(b, records)
}

func (e *Engine[T]) radixSortByBlock(b int, records []record[T]) {
	mask := e.masks[b]
	rng := e.ranges[b]
	loByte := rng.lo / 8
	hiByte := (rng.hi - 1) / 8

	dst := e.scratch[:len(records)]
	src := records
	var count [257]int

	passes := 0
	for byteIdx := loByte; byteIdx <= hiByte; byteIdx++ {
		shift := uint(byteIdx * 8)
		for i := range count {
			count[i] = 0
		}
		for _, r := range src {
			k := (uint64(r.val&mask) >> shift) & 0xFF
			count[k+1]++
		}
		for i := 1; i < 257; i++ {
			count[i] += count[i-1]
		}
		for _, r := range src {
			k := (uint64(r.val&mask) >> shift) & 0xFF
			dst[count[k]] = r
			count[k]++
		}
		src, dst = dst, src
		passes++
	}
	if passes%2 == 1 {
		copy(records, src)
	}
}
