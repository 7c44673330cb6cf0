package feature

import (
	"math"

	"github.com/daac-tools/find-simdoc/internal/lsh"
	"github.com/daac-tools/find-simdoc/internal/simerr"
)

// TFMode selects how a term's in-document weight is computed.
type TFMode int

const (
	TFBinary TFMode = iota
	TFStandard
	TFSublinear
)

// ParseTFMode parses the CLI -T flag value.
func ParseTFMode(s string) (TFMode, error) {
	switch s {
	case "binary":
		return TFBinary, nil
	case "standard":
		return TFStandard, nil
	case "sublinear":
		return TFSublinear, nil
	default:
		return 0, simerr.InvalidConfig("unknown tf mode %q", s)
	}
}

// ApplyTF collapses a document's per-occurrence WeightedFeature list (as
// produced by Extractor.ExtractWeighted, one entry per shingle, weight
// 1.0) into one entry per unique feature ID, weighted per mode:
//
//	binary:    1.0 for any term present
//	standard:  count(term) / |doc|
//	sublinear: log10(count(term)) + 1
func ApplyTF(mode TFMode, feats []lsh.WeightedFeature) []lsh.WeightedFeature {
	if len(feats) == 0 {
		return nil
	}
	counts := make(map[uint64]float64, len(feats))
	order := make([]uint64, 0, len(feats))
	total := 0.0
	for _, f := range feats {
		if _, seen := counts[f.ID]; !seen {
			order = append(order, f.ID)
		}
		counts[f.ID] += f.Weight
		total += f.Weight
	}
	out := make([]lsh.WeightedFeature, len(order))
	for i, id := range order {
		count := counts[id]
		var w float64
		switch mode {
		case TFBinary:
			w = 1.0
		case TFStandard:
			w = count / total
		case TFSublinear:
			w = math.Log10(count) + 1
		}
		out[i] = lsh.WeightedFeature{ID: id, Weight: w}
	}
	return out
}

// IDFMode selects how a term's corpus-wide weight is computed.
type IDFMode int

const (
	IDFUnary IDFMode = iota
	IDFStandard
	IDFSmooth
)

// ParseIDFMode parses the CLI -I flag value.
func ParseIDFMode(s string) (IDFMode, error) {
	switch s {
	case "unary":
		return IDFUnary, nil
	case "standard":
		return IDFStandard, nil
	case "smooth":
		return IDFSmooth, nil
	default:
		return 0, simerr.InvalidConfig("unknown idf mode %q", s)
	}
}

// IDFModel is built once over the whole corpus (first pass) before any
// sketch is built, and then applied per document.
type IDFModel struct {
	mode    IDFMode
	numDocs int
	df      map[uint64]int
}

// BuildIDF scans documents once to compute per-feature document frequency.
// It fails if documents is empty and mode requires a non-trivial corpus.
func (e *Extractor) BuildIDF(mode IDFMode, documents []string) (*IDFModel, error) {
	if mode != IDFUnary && len(documents) == 0 {
		return nil, simerr.InvalidConfig("idf build requires at least one document")
	}
	df := make(map[uint64]int)
	for _, doc := range documents {
		seen := make(map[uint64]bool)
		for _, id := range e.ExtractIDs(doc) {
			if !seen[id] {
				seen[id] = true
				df[id]++
			}
		}
	}
	return &IDFModel{mode: mode, numDocs: len(documents), df: df}, nil
}

// Weight returns the corpus-wide weight for feature id.
func (m *IDFModel) Weight(id uint64) float64 {
	switch m.mode {
	case IDFUnary:
		return 1.0
	case IDFStandard:
		df := m.df[id]
		if df == 0 {
			df = 1
		}
		return math.Log10(float64(m.numDocs)/float64(df)) + 1
	case IDFSmooth:
		df := m.df[id]
		return math.Log10(float64(m.numDocs+1)/float64(df+1)) + 1
	default:
		return 1.0
	}
}

// Apply multiplies each feature's weight by its corpus-wide IDF weight.
func (m *IDFModel) Apply(feats []lsh.WeightedFeature) []lsh.WeightedFeature {
	out := make([]lsh.WeightedFeature, len(feats))
	for i, f := range feats {
		out[i] = lsh.WeightedFeature{ID: f.ID, Weight: f.Weight * m.Weight(f.ID)}
	}
	return out
}
