package lsh

import "github.com/daac-tools/find-simdoc/sketch"

// WeightedFeature is one (feature ID, signed weight) pair consumed by the
// SimHasher, as produced by the TF/IDF-weighted feature pipeline.
type WeightedFeature struct {
	ID     uint64
	Weight float64
}

// SimHasher is the simplified SimHash encoder used for Cosine similarity.
type SimHasher[T sketch.Word] struct {
	rng *SplitMix64
}

// NewSimHasher seeds a SimHasher.
func NewSimHasher[T sketch.Word](seed uint64) *SimHasher[T] {
	return &SimHasher[T]{rng: NewSplitMix64(seed)}
}

// Next computes one w-bit sketch word. It draws one fresh seed for the
// whole word, then for every (id, weight) pair accumulates weight into
// W[k] if bit k of hash(id,seed) is 0, else subtracts it; it emits bit k
// as (W[k] >= 0), packed MSB-first in order of increasing k.
func (h *SimHasher[T]) Next(feats []WeightedFeature) T {
	w := sketch.Dim[T]()
	seed := h.rng.Next()
	acc := make([]float64, w)
	for _, f := range feats {
		hv := HashU64(f.ID, seed)
		for k := 0; k < w; k++ {
			if (hv>>uint(k))&1 == 0 {
				acc[k] += f.Weight
			} else {
				acc[k] -= f.Weight
			}
		}
	}
	var word uint64
	for k := 0; k < w; k++ {
		var bit uint64
		if acc[k] >= 0 {
			bit = 1
		}
		word = (word << 1) | bit
	}
	return T(word)
}
