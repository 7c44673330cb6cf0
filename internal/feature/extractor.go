package feature

import (
	"github.com/daac-tools/find-simdoc/internal/lsh"
	"github.com/daac-tools/find-simdoc/internal/simerr"
)

// Extractor turns documents into feature ID sequences using one fixed
// Config for its entire lifetime.
type Extractor struct {
	cfg Config
}

// NewExtractor validates cfg and returns an Extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.WindowSize < 1 {
		return nil, simerr.InvalidConfig("window_size must be >= 1, got %d", cfg.WindowSize)
	}
	return &Extractor{cfg: cfg}, nil
}

// charFastPath reports whether this config emits code points directly
// instead of hashing: window_size = 1 and no delimiter.
func (e *Extractor) charFastPath() bool {
	return e.cfg.WindowSize == 1 && e.cfg.Delimiter == nil
}

// ExtractIDs returns the document's feature ID sequence, duplicates
// included, in shingle order. Used directly by the Jaccard path.
func (e *Extractor) ExtractIDs(doc string) []uint64 {
	toks := Tokenize(doc, e.cfg)
	if e.charFastPath() {
		ids := make([]uint64, 0, len(toks))
		for _, t := range toks {
			for _, r := range t {
				ids = append(ids, uint64(r))
			}
		}
		return ids
	}
	windows := Shingles(toks, e.cfg.WindowSize)
	ids := make([]uint64, len(windows))
	for i, w := range windows {
		ids[i] = hashWindow(w, e.cfg.Seed)
	}
	return ids
}

// ExtractWeighted returns one WeightedFeature per shingle occurrence, each
// with weight 1.0; TF/IDF modes reweight this in a later stage. Used by the
// Cosine path.
func (e *Extractor) ExtractWeighted(doc string) []lsh.WeightedFeature {
	ids := e.ExtractIDs(doc)
	out := make([]lsh.WeightedFeature, len(ids))
	for i, id := range ids {
		out[i] = lsh.WeightedFeature{ID: id, Weight: 1.0}
	}
	return out
}
