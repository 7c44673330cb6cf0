package lsh

import (
	"math"

	"github.com/daac-tools/find-simdoc/sketch"
)

// MinHasher is the 1-bit minwise encoder used for Jaccard similarity: an
// infinite sequence of w-bit sketch words, one per call to Next, derived
// from a single seed fixed at construction.
type MinHasher[T sketch.Word] struct {
	rng *SplitMix64
}

// NewMinHasher seeds a MinHasher. The same seed must be used for every
// document a searcher builds or queries, so feature IDs hash consistently.
func NewMinHasher[T sketch.Word](seed uint64) *MinHasher[T] {
	return &MinHasher[T]{rng: NewSplitMix64(seed)}
}

// Next computes one w-bit sketch word from a document's feature ID set
// (duplicates allowed; only the minimum hash matters). For each of the w
// bit positions it draws a fresh seed, hashes every feature ID against it,
// keeps the minimum, and emits that minimum's low bit; bits are packed
// MSB-first in the order they are computed.
func (h *MinHasher[T]) Next(ids []uint64) T {
	w := sketch.Dim[T]()
	var word uint64
	for bit := 0; bit < w; bit++ {
		seed := h.rng.Next()
		minH := uint64(math.MaxUint64)
		for _, id := range ids {
			if v := HashU64(id, seed); v < minH {
				minH = v
			}
		}
		word = (word << 1) | (minH & 1)
	}
	return T(word)
}
